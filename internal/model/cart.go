package model

import "time"

// VariantChoice is one (option, choice) pair in ordered list form.
type VariantChoice struct {
	Option string `json:"option"`
	Choice string `json:"choice"`
}

// Cart is the per-session shopping cart as returned by the platform.
type Cart struct {
	ID        string     `json:"id,omitempty"`
	Currency  string     `json:"currency,omitempty"`
	LineItems []LineItem `json:"line_items"`
}

// LineItem returns the line item with the given id.
func (c *Cart) LineItem(id string) (LineItem, bool) {
	if c == nil {
		return LineItem{}, false
	}
	for _, li := range c.LineItems {
		if li.ID == id {
			return li, true
		}
	}
	return LineItem{}, false
}

// Quantity returns the total number of units in the cart.
func (c *Cart) Quantity() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, li := range c.LineItems {
		n += li.Quantity
	}
	return n
}

// LineItem is one cart entry: a catalog item plus its chosen variant/options.
// VariantID is set for variant-managed products, Options for option-managed ones.
type LineItem struct {
	ID            string          `json:"id"`
	CatalogItemID string          `json:"catalog_item_id"`
	VariantID     string          `json:"variant_id,omitempty"`
	Options       []VariantChoice `json:"options,omitempty"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	Price         Money           `json:"price"`
	Image         string          `json:"image,omitempty"`
	InStock       bool            `json:"in_stock"`
}

// CartTotals is the derived monetary aggregate of a cart.
type CartTotals struct {
	Subtotal Money `json:"subtotal"`
	Shipping Money `json:"shipping"`
	Tax      Money `json:"tax"`
	Discount Money `json:"discount"`
	Total    Money `json:"total"`
}

// AddItem is a request to put a catalog item into the cart.
// Exactly one of VariantID or Options is expected, matching the product's
// management mode.
type AddItem struct {
	CatalogItemID string          `json:"catalog_item_id"`
	VariantID     string          `json:"variant_id,omitempty"`
	Options       []VariantChoice `json:"options,omitempty"`
	Quantity      int             `json:"quantity"`
}

// RedirectSession is a time-bounded hosted checkout URL.
type RedirectSession struct {
	ID      string `json:"id,omitempty"`
	FullURL string `json:"full_url"`
}

// CheckoutCallbacks are the URLs the hosted checkout returns to.
type CheckoutCallbacks struct {
	PostFlowURL     string
	ThankYouPageURL string
}

// Order is a placed order.
type Order struct {
	ID         string     `json:"id"`
	Number     string     `json:"number"`
	Status     string     `json:"status"`
	BuyerEmail string     `json:"buyer_email,omitempty"`
	LineItems  []LineItem `json:"line_items"`
	Totals     CartTotals `json:"totals"`
	CreatedAt  time.Time  `json:"created_at"`
}
