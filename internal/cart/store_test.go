package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/gateway"
	"storefront/internal/model"
	"storefront/internal/variant"
)

// remoteCart is a stateful stand-in for the platform cart behind gateway.Mock.
// Add follows the platform gateway's rule: increment the matching line, insert
// otherwise.
type remoteCart struct {
	mu     sync.Mutex
	cart   model.Cart
	nextID int
	reads  atomic.Int32
	totals atomic.Int32
}

func (r *remoteCart) mock() *gateway.Mock {
	return &gateway.Mock{
		CurrentCartFunc: func(ctx context.Context) gateway.Result[model.Cart] {
			r.reads.Add(1)
			r.mu.Lock()
			defer r.mu.Unlock()
			return gateway.Success(cloneCart(&r.cart))
		},
		CartTotalsFunc: func(ctx context.Context) gateway.Result[model.CartTotals] {
			r.totals.Add(1)
			r.mu.Lock()
			defer r.mu.Unlock()
			return gateway.Success(model.CartTotals{Total: model.Money{Currency: "EUR"}})
		},
		AddToCartFunc: func(ctx context.Context, item model.AddItem, current *model.Cart) gateway.Result[model.Cart] {
			r.mu.Lock()
			defer r.mu.Unlock()
			if current == nil {
				c := cloneCart(&r.cart)
				current = &c
			}
			if li, ok := variant.FindLine(current, item); ok {
				for i := range r.cart.LineItems {
					if r.cart.LineItems[i].ID == li.ID {
						r.cart.LineItems[i].Quantity = li.Quantity + item.Quantity
					}
				}
				return gateway.Success(cloneCart(&r.cart))
			}
			r.nextID++
			r.cart.LineItems = append(r.cart.LineItems, model.LineItem{
				ID:            fmt.Sprintf("li-%d", r.nextID),
				CatalogItemID: item.CatalogItemID,
				VariantID:     item.VariantID,
				Options:       item.Options,
				Quantity:      item.Quantity,
			})
			return gateway.Success(cloneCart(&r.cart))
		},
		UpdateItemQuantityFunc: func(ctx context.Context, id string, qty int) gateway.Result[model.Cart] {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i := range r.cart.LineItems {
				if r.cart.LineItems[i].ID == id {
					r.cart.LineItems[i].Quantity = qty
					return gateway.Success(cloneCart(&r.cart))
				}
			}
			return gateway.Fail[model.Cart](gateway.UpdateCartItemFailure, "line item not found")
		},
		RemoveItemFunc: func(ctx context.Context, id string) gateway.Result[model.Cart] {
			r.mu.Lock()
			defer r.mu.Unlock()
			kept := []model.LineItem{}
			for _, li := range r.cart.LineItems {
				if li.ID != id {
					kept = append(kept, li)
				}
			}
			r.cart.LineItems = kept
			return gateway.Success(cloneCart(&r.cart))
		},
	}
}

func newTestStore(gw gateway.Gateway) *Store {
	return NewStore(gw, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sizeItem(size string, qty int) model.AddItem {
	return model.AddItem{
		CatalogItemID: "prod-tee",
		Options:       []model.VariantChoice{{Option: "Size", Choice: size}},
		Quantity:      qty,
	}
}

func TestAddSameCombinationIncrements(t *testing.T) {
	remote := &remoteCart{}
	store := newTestStore(remote.mock())
	ctx := context.Background()

	_, err := store.Add(ctx, sizeItem("S", 1))
	require.NoError(t, err)
	c, err := store.Add(ctx, sizeItem("S", 2))
	require.NoError(t, err)

	require.Len(t, c.LineItems, 1)
	assert.Equal(t, 3, c.LineItems[0].Quantity)

	c, err = store.Add(ctx, sizeItem("M", 1))
	require.NoError(t, err)
	require.Len(t, c.LineItems, 2)
	assert.Equal(t, "M", c.LineItems[1].Options[0].Choice)
	assert.Equal(t, 1, c.LineItems[1].Quantity)
}

func TestConcurrentAddsProduceOneLine(t *testing.T) {
	remote := &remoteCart{}
	store := newTestStore(remote.mock())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Add(context.Background(), sizeItem("S", 1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := store.Cart(context.Background())
	require.NoError(t, err)
	require.Len(t, c.LineItems, 1)
	assert.Equal(t, 20, c.LineItems[0].Quantity)
	assert.Equal(t, StateIdle, store.State())
}

func TestFailureLeavesCacheUntouched(t *testing.T) {
	remote := &remoteCart{}
	mock := remote.mock()
	store := newTestStore(mock)
	ctx := context.Background()

	before, err := store.Add(ctx, sizeItem("S", 1))
	require.NoError(t, err)

	mock.AddToCartFunc = func(ctx context.Context, item model.AddItem, current *model.Cart) gateway.Result[model.Cart] {
		return gateway.Fail[model.Cart](gateway.AddCartItemFailure, "platform down")
	}
	_, err = store.Add(ctx, sizeItem("M", 1))

	var f *gateway.Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, gateway.AddCartItemFailure, f.Code)

	after, err := store.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	snap := store.Snapshot()
	require.NotNil(t, snap.LastFailure)
	assert.Equal(t, gateway.AddCartItemFailure, snap.LastFailure.Code)
}

func TestBusySetClearedAfterSettle(t *testing.T) {
	remote := &remoteCart{}
	mock := remote.mock()
	store := newTestStore(mock)
	ctx := context.Background()

	c, err := store.Add(ctx, sizeItem("S", 1))
	require.NoError(t, err)
	id := c.LineItems[0].ID

	started := make(chan struct{})
	proceed := make(chan struct{})
	mock.UpdateItemQuantityFunc = func(ctx context.Context, lineItemID string, qty int) gateway.Result[model.Cart] {
		close(started)
		<-proceed
		return gateway.Fail[model.Cart](gateway.UpdateCartItemFailure, "rejected")
	}

	done := make(chan error, 1)
	go func() {
		_, err := store.UpdateQuantity(ctx, id, 5)
		done <- err
	}()

	<-started
	assert.Equal(t, []string{id}, store.Updating())
	assert.Equal(t, StateMutating, store.State())

	close(proceed)
	require.Error(t, <-done)
	assert.Empty(t, store.Updating())
	assert.Equal(t, StateIdle, store.State())

	_, err = store.Remove(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, store.Updating())
}

func TestStaleReadCannotOverwriteMutation(t *testing.T) {
	readStarted := make(chan struct{})
	releaseRead := make(chan struct{})
	mock := &gateway.Mock{
		CurrentCartFunc: func(ctx context.Context) gateway.Result[model.Cart] {
			close(readStarted)
			<-releaseRead
			return gateway.Success(model.Cart{LineItems: []model.LineItem{}})
		},
		AddToCartFunc: func(ctx context.Context, item model.AddItem, current *model.Cart) gateway.Result[model.Cart] {
			return gateway.Success(model.Cart{LineItems: []model.LineItem{{ID: "li-1", CatalogItemID: item.CatalogItemID, Quantity: 1}}})
		},
	}
	store := newTestStore(mock)

	readDone := make(chan model.Cart, 1)
	go func() {
		c, err := store.Cart(context.Background())
		assert.NoError(t, err)
		readDone <- c
	}()

	<-readStarted
	_, err := store.Add(context.Background(), sizeItem("S", 1))
	require.NoError(t, err)

	close(releaseRead)
	read := <-readDone
	assert.Len(t, read.LineItems, 1, "a read issued before the mutation settled returns the newer cart")

	cached, err := store.Cart(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached.LineItems, 1)
}

func TestColdReadsShareOneCall(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	mock := &gateway.Mock{
		CurrentCartFunc: func(ctx context.Context) gateway.Result[model.Cart] {
			calls.Add(1)
			<-release
			return gateway.Success(model.Cart{LineItems: []model.LineItem{}})
		},
	}
	store := newTestStore(mock)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Cart(context.Background())
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())

	_, err := store.Cart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "warm read must come from the cache")
}

func TestTotalsFollowCartVersion(t *testing.T) {
	remote := &remoteCart{}
	store := newTestStore(remote.mock())
	ctx := context.Background()

	_, err := store.Cart(ctx)
	require.NoError(t, err)
	_, err = store.Totals(ctx)
	require.NoError(t, err)
	_, err = store.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), remote.totals.Load(), "totals cached for the same cart version")
	assert.NotNil(t, store.Snapshot().Totals)

	_, err = store.Add(ctx, sizeItem("S", 1))
	require.NoError(t, err)
	assert.Nil(t, store.Snapshot().Totals, "a cart change invalidates totals")

	_, err = store.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), remote.totals.Load())
}

func TestQueuedMutationHonoursContext(t *testing.T) {
	proceed := make(chan struct{})
	started := make(chan struct{})
	mock := &gateway.Mock{
		RemoveItemFunc: func(ctx context.Context, id string) gateway.Result[model.Cart] {
			close(started)
			<-proceed
			return gateway.Success(model.Cart{})
		},
	}
	store := newTestStore(mock)

	first := make(chan error, 1)
	go func() {
		_, err := store.Remove(context.Background(), "li-1")
		first <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := store.UpdateQuantity(ctx, "li-2", 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"li-1"}, store.Updating(), "the abandoned item is no longer busy")

	close(proceed)
	require.NoError(t, <-first)
	assert.Empty(t, store.Updating())
	assert.Equal(t, StateIdle, store.State())
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	remote := &remoteCart{}
	store := newTestStore(remote.mock())
	ctx := context.Background()

	c, err := store.Add(ctx, sizeItem("S", 2))
	require.NoError(t, err)

	c, err = store.UpdateQuantity(ctx, c.LineItems[0].ID, 0)
	require.NoError(t, err)
	assert.Empty(t, c.LineItems)
}

func TestInvalidate(t *testing.T) {
	remote := &remoteCart{}
	store := newTestStore(remote.mock())
	ctx := context.Background()

	_, err := store.Cart(ctx)
	require.NoError(t, err)
	store.Invalidate()
	assert.Nil(t, store.Snapshot().Cart)

	_, err = store.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), remote.reads.Load())
}
