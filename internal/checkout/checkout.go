// Package checkout turns the session cart into a hosted checkout redirect.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"storefront/internal/gateway"
	"storefront/internal/model"
)

// ErrNotConfigured means the platform could not produce a checkout redirect.
// The shopper sees a blocking "checkout not configured" notice; there is no retry.
var ErrNotConfigured = errors.New("checkout not configured")

// ErrEmptyCart is returned when there is nothing to check out.
var ErrEmptyCart = errors.New("cart is empty")

// CartReader is the part of the cart cache the orchestrator reads.
type CartReader interface {
	Cart(ctx context.Context) (model.Cart, error)
	Invalidate()
}

// Orchestrator requests checkout redirects for one session.
type Orchestrator struct {
	gw        gateway.Gateway
	cart      CartReader
	callbacks model.CheckoutCallbacks
	logger    *slog.Logger
}

// New creates an orchestrator. storeURL is the storefront origin the hosted
// checkout returns to.
func New(gw gateway.Gateway, cart CartReader, storeURL string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	thankYou := strings.TrimRight(storeURL, "/") + "/checkout/thank-you"
	return &Orchestrator{
		gw:   gw,
		cart: cart,
		callbacks: model.CheckoutCallbacks{
			PostFlowURL:     thankYou,
			ThankYouPageURL: thankYou,
		},
		logger: logger,
	}
}

// Begin creates a checkout and redirect session from the current cart and
// returns the URL the shopper must navigate to. Failures wrap ErrNotConfigured
// and the gateway failure, so both errors.Is and errors.As work.
//
// On success the cached cart is dropped: the shopper leaves for the hosted
// checkout, and whatever happens there is re-read on return.
func (o *Orchestrator) Begin(ctx context.Context) (model.RedirectSession, error) {
	cart, err := o.cart.Cart(ctx)
	if err != nil {
		return model.RedirectSession{}, fmt.Errorf("reading cart: %w", err)
	}
	if len(cart.LineItems) == 0 {
		return model.RedirectSession{}, ErrEmptyCart
	}

	res := o.gw.CreateCheckoutRedirect(ctx, o.callbacks)
	if !res.OK() {
		o.logger.Error("checkout redirect failed",
			"code", res.Failure.Code,
			"message", res.Failure.Message,
		)
		return model.RedirectSession{}, fmt.Errorf("%w: %w", ErrNotConfigured, res.Failure)
	}

	o.cart.Invalidate()
	o.logger.Info("checkout redirect created", "redirect_id", res.Body.ID)
	return res.Body, nil
}
