// Package session maps shopper session ids to their gateway, cart cache and
// checkout orchestrator.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/gateway"
)

// DefaultTTL matches the lifetime of an anonymous Wix visitor token.
const DefaultTTL = 4 * time.Hour

// MaxEntries limits the number of live sessions (LRU eviction).
const MaxEntries = 10000

// GatewayFactory starts a platform session for a new shopper.
type GatewayFactory func(ctx context.Context) (gateway.Gateway, error)

// Config contains configuration for the registry.
type Config struct {
	TTL        time.Duration // idle time after which a session expires
	MaxEntries int           // max live sessions (0 = default)
	StoreURL   string        // storefront origin for checkout callbacks
}

// Session is everything the core keeps for one shopper.
type Session struct {
	ID        string
	Gateway   gateway.Gateway
	Cart      *cart.Store
	Checkout  *checkout.Orchestrator
	CreatedAt time.Time
}

type entry struct {
	session   *Session
	expiresAt time.Time
}

// Registry holds live sessions with idle expiry and LRU eviction.
type Registry struct {
	newGateway GatewayFactory
	config     Config
	logger     *slog.Logger
	now        func() time.Time

	mu         sync.Mutex
	sessions   map[string]*entry
	accessList []string // LRU tracking: most recent at end
}

// NewRegistry creates a registry.
func NewRegistry(factory GatewayFactory, config Config, logger *slog.Logger) *Registry {
	if config.TTL == 0 {
		config.TTL = DefaultTTL
	}
	if config.MaxEntries == 0 {
		config.MaxEntries = MaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		newGateway: factory,
		config:     config,
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[string]*entry),
	}
}

// Get returns a live session and extends its expiry.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if !e.expiresAt.After(now) {
		r.removeLocked(id)
		r.logger.Debug("session expired", "session_id", id)
		return nil, false
	}
	e.expiresAt = now.Add(r.config.TTL)
	r.recordAccessLocked(id)
	return e.session, true
}

// Create starts a new session.
func (r *Registry) Create(ctx context.Context) (*Session, error) {
	gw, err := r.newGateway(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting platform session: %w", err)
	}

	id := uuid.NewString()
	logger := r.logger.With("session_id", id)
	store := cart.NewStore(gw, logger)
	s := &Session{
		ID:        id,
		Gateway:   gw,
		Cart:      store,
		Checkout:  checkout.New(gw, store, r.config.StoreURL, logger),
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) >= r.config.MaxEntries {
		r.evictOldest()
	}
	r.sessions[id] = &entry{session: s, expiresAt: s.CreatedAt.Add(r.config.TTL)}
	r.recordAccessLocked(id)

	logger.Info("session created")
	return s, nil
}

// Resolve returns the session for id, or creates one when id is empty,
// unknown or expired. created reports which happened.
func (r *Registry) Resolve(ctx context.Context, id string) (s *Session, created bool, err error) {
	if id != "" {
		if s, ok := r.Get(id); ok {
			return s, false, nil
		}
	}
	s, err = r.Create(ctx)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Delete ends a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

// Len returns the number of tracked sessions, expired ones included until
// they are next touched or pruned.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune drops every expired session and returns how many were removed.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, e := range r.sessions {
		if !e.expiresAt.After(now) {
			r.removeLocked(id)
			removed++
		}
	}
	return removed
}

// Run prunes expired sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Prune(); n > 0 {
				r.logger.Info("pruned expired sessions", "count", n)
			}
		}
	}
}

func (r *Registry) removeLocked(id string) {
	delete(r.sessions, id)
	for i, u := range r.accessList {
		if u == id {
			r.accessList = append(r.accessList[:i], r.accessList[i+1:]...)
			break
		}
	}
}

func (r *Registry) recordAccessLocked(id string) {
	// Remove existing occurrence
	for i, u := range r.accessList {
		if u == id {
			r.accessList = append(r.accessList[:i], r.accessList[i+1:]...)
			break
		}
	}
	// Add to end (most recent)
	r.accessList = append(r.accessList, id)
}

func (r *Registry) evictOldest() {
	if len(r.accessList) == 0 {
		return
	}
	oldest := r.accessList[0]
	r.accessList = r.accessList[1:]
	delete(r.sessions, oldest)
	r.logger.Debug("session evicted", "session_id", oldest)
}
