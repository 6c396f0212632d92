// Package cart keeps a per-session cache of the remote cart and coordinates
// the mutations that change it.
//
// Reads are cached and shared. Mutations run one at a time under the "cart"
// key; a successful mutation replaces the cached cart with the platform's
// response, a failed one leaves the cache untouched and is returned to the
// caller as a *gateway.Failure. Every applied cart bumps a version; reads and
// totals computed against an older version are never written back.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"storefront/internal/gateway"
	"storefront/internal/model"
)

// MutationKey identifies the single cache entry all cart mutations share.
const MutationKey = "cart"

// State is the mutation state of the cart key.
type State string

const (
	StateIdle     State = "idle"
	StateMutating State = "mutating"
	StateSettled  State = "settled"
)

// Store is the cart cache of one session.
type Store struct {
	gw     gateway.Gateway
	logger *slog.Logger

	// slot admits one mutation at a time; waiting honours the caller's context.
	slot  chan struct{}
	reads singleflight.Group

	mu            sync.Mutex
	cart          *model.Cart
	version       uint64
	totals        *model.CartTotals
	totalsVersion uint64
	updating      map[string]int
	state         State
	pending       int
	lastFailure   *gateway.Failure
}

// NewStore creates an empty cache over gw.
func NewStore(gw gateway.Gateway, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		gw:       gw,
		logger:   logger,
		slot:     make(chan struct{}, 1),
		updating: make(map[string]int),
		state:    StateIdle,
	}
}

// === Reads ===

// Cart returns the cached cart, loading it on first use. Concurrent loads share
// one platform call.
func (s *Store) Cart(ctx context.Context) (model.Cart, error) {
	s.mu.Lock()
	if s.cart != nil {
		c := cloneCart(s.cart)
		s.mu.Unlock()
		return c, nil
	}
	startVersion := s.version
	s.mu.Unlock()

	v, err := s.shared(ctx, fmt.Sprintf("cart:%d", startVersion), func(ctx context.Context) (any, error) {
		res := s.gw.CurrentCart(ctx)
		if !res.OK() {
			return nil, res.Failure
		}
		return s.applyRead(startVersion, res.Body), nil
	})
	if err != nil {
		return model.Cart{}, err
	}
	c := v.(model.Cart)
	return cloneCart(&c), nil
}

// applyRead caches a loaded cart unless a mutation applied a newer one while the
// read was in flight; in that case the newer cart wins.
func (s *Store) applyRead(startVersion uint64, loaded model.Cart) model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != startVersion {
		s.logger.Debug("discarding stale cart read", "read_version", startVersion, "version", s.version)
		if s.cart != nil {
			return cloneCart(s.cart)
		}
		return loaded
	}
	s.cart = &loaded
	s.version++
	s.totals = nil
	return cloneCart(s.cart)
}

// Totals returns the totals for the current cart version. Any applied cart
// change invalidates them.
func (s *Store) Totals(ctx context.Context) (model.CartTotals, error) {
	s.mu.Lock()
	if s.totals != nil && s.totalsVersion == s.version {
		t := *s.totals
		s.mu.Unlock()
		return t, nil
	}
	startVersion := s.version
	s.mu.Unlock()

	v, err := s.shared(ctx, fmt.Sprintf("totals:%d", startVersion), func(ctx context.Context) (any, error) {
		res := s.gw.CartTotals(ctx)
		if !res.OK() {
			return nil, res.Failure
		}
		s.mu.Lock()
		if s.version == startVersion {
			t := res.Body
			s.totals = &t
			s.totalsVersion = startVersion
		}
		s.mu.Unlock()
		return res.Body, nil
	})
	if err != nil {
		return model.CartTotals{}, err
	}
	return v.(model.CartTotals), nil
}

// shared runs fn once per key for all concurrent callers. The platform call is
// detached from any single caller's cancellation; each caller stops waiting
// when its own context ends.
func (s *Store) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.reads.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.Val, r.Err
	}
}

// === Mutations ===

// Add puts an item into the cart, incrementing the matching line if there is
// one.
func (s *Store) Add(ctx context.Context, item model.AddItem) (model.Cart, error) {
	return s.mutate(ctx, "add", "", func(ctx context.Context, current *model.Cart) gateway.Result[model.Cart] {
		return s.gw.AddToCart(ctx, item, current)
	})
}

// UpdateQuantity sets a line item's quantity. A quantity below 1 removes it.
func (s *Store) UpdateQuantity(ctx context.Context, lineItemID string, quantity int) (model.Cart, error) {
	if quantity < 1 {
		return s.Remove(ctx, lineItemID)
	}
	return s.mutate(ctx, "update", lineItemID, func(ctx context.Context, _ *model.Cart) gateway.Result[model.Cart] {
		return s.gw.UpdateItemQuantity(ctx, lineItemID, quantity)
	})
}

// Remove deletes a line item.
func (s *Store) Remove(ctx context.Context, lineItemID string) (model.Cart, error) {
	return s.mutate(ctx, "remove", lineItemID, func(ctx context.Context, _ *model.Cart) gateway.Result[model.Cart] {
		return s.gw.RemoveItem(ctx, lineItemID)
	})
}

// mutate runs op under the mutation slot. itemID, when set, is marked busy
// from before queueing until the mutation settles, whatever the outcome.
// Once issued, the platform call is not cancelled with the caller's context.
func (s *Store) mutate(ctx context.Context, op, itemID string, fn func(context.Context, *model.Cart) gateway.Result[model.Cart]) (model.Cart, error) {
	if itemID != "" {
		s.markUpdating(itemID)
		defer s.unmarkUpdating(itemID)
	}

	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
	defer s.release()

	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return model.Cart{}, ctx.Err()
	}
	defer func() { <-s.slot }()

	s.mu.Lock()
	s.state = StateMutating
	var current *model.Cart
	if s.cart != nil {
		c := cloneCart(s.cart)
		current = &c
	}
	s.mu.Unlock()

	res := fn(context.WithoutCancel(ctx), current)
	return s.settle(op, itemID, res)
}

// settle applies a mutation result: success replaces the cached cart, failure
// leaves it untouched.
func (s *Store) settle(op, itemID string, res gateway.Result[model.Cart]) (model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateSettled
	if !res.OK() {
		s.lastFailure = res.Failure
		s.logger.Warn("cart mutation failed",
			"op", op,
			"line_item_id", itemID,
			"code", res.Failure.Code,
			"message", res.Failure.Message,
		)
		return model.Cart{}, res.Failure
	}

	c := cloneCart(&res.Body)
	s.cart = &c
	s.version++
	s.totals = nil
	s.lastFailure = nil
	s.logger.Debug("cart mutation settled", "op", op, "version", s.version, "line_items", len(c.LineItems))
	return cloneCart(&c), nil
}

func (s *Store) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		s.state = StateIdle
	}
}

func (s *Store) markUpdating(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updating[id]++
}

func (s *Store) unmarkUpdating(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updating[id] <= 1 {
		delete(s.updating, id)
		return
	}
	s.updating[id]--
}

// === Inspection ===

// Updating returns the ids of line items with a mutation queued or in flight,
// sorted.
func (s *Store) Updating() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatingLocked()
}

func (s *Store) updatingLocked() []string {
	ids := make([]string, 0, len(s.updating))
	for id := range s.updating {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// State returns the mutation state of the cart key.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot is everything the UI renders from.
type Snapshot struct {
	Cart        *model.Cart       `json:"cart,omitempty"`
	Totals      *model.CartTotals `json:"totals,omitempty"`
	Updating    []string          `json:"updating"`
	State       State             `json:"state"`
	Pending     int               `json:"pending"`
	LastFailure *gateway.Failure  `json:"last_failure,omitempty"`
	Version     uint64            `json:"version"`
}

// Snapshot returns the cached state without touching the platform. Totals are
// included only when they belong to the cached cart version.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Updating:    s.updatingLocked(),
		State:       s.state,
		Pending:     s.pending,
		LastFailure: s.lastFailure,
		Version:     s.version,
	}
	if s.cart != nil {
		c := cloneCart(s.cart)
		snap.Cart = &c
	}
	if s.totals != nil && s.totalsVersion == s.version {
		t := *s.totals
		snap.Totals = &t
	}
	return snap
}

// Invalidate drops the cached cart and totals. Reads in flight are fenced out.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	s.totals = nil
	s.version++
}

func cloneCart(c *model.Cart) model.Cart {
	out := *c
	out.LineItems = make([]model.LineItem, len(c.LineItems))
	for i, li := range c.LineItems {
		li.Options = append([]model.VariantChoice(nil), li.Options...)
		out.LineItems[i] = li
	}
	return out
}
