package checkout

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibex-commerce/storefront/internal/shop"
)

// memStore emulates the serialized commit discipline of the Postgres
// store: one mutex stands in for the row locks, so commits over the
// same products cannot interleave.
type memStore struct {
	mu        sync.Mutex
	products  map[int64]*shop.Product
	carts     map[int64]map[int64]int // customer -> product -> qty
	ledger    []shop.OrderLine
	nextID    int64
	commitErr error
}

func newMemStore(products ...shop.Product) *memStore {
	s := &memStore{products: map[int64]*shop.Product{}, carts: map[int64]map[int64]int{}}
	for i := range products {
		p := products[i]
		s.products[p.ID] = &p
	}
	return s
}

func (s *memStore) setCart(customerID int64, items map[int64]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[customerID] = items
}

func (s *memStore) cartLen(customerID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts[customerID])
}

func (s *memStore) stock(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

func (s *memStore) ledgerLines() []shop.OrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shop.OrderLine, len(s.ledger))
	copy(out, s.ledger)
	return out
}

func (s *memStore) PricedLines(_ context.Context, customerID int64) ([]shop.PricedCartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shop.PricedCartLine
	for pid, qty := range s.carts[customerID] {
		p := s.products[pid]
		out = append(out, shop.PricedCartLine{
			ProductID: pid, Name: p.Name, UnitPrice: p.Price, Qty: qty, Stock: p.Stock,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (s *memStore) Commit(_ context.Context, req CommitRequest) ([]shop.OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	// validate everything before mutating anything
	for _, it := range req.Items {
		p, ok := s.products[it.ProductID]
		if !ok {
			return nil, shop.ErrNotFound
		}
		if p.Stock < it.Qty {
			return nil, &shop.InsufficientStockError{
				ProductID: it.ProductID, Available: p.Stock, Requested: it.Qty,
			}
		}
	}
	var lines []shop.OrderLine
	for _, it := range req.Items {
		p := s.products[it.ProductID]
		s.nextID++
		unit := p.Price
		line := shop.OrderLine{
			ID: s.nextID, CustomerID: req.CustomerID, ProductID: it.ProductID,
			Qty: it.Qty, UnitPrice: unit,
			LineTotal:  unit.Mul(decimal.NewFromInt(int64(it.Qty))),
			PostalCode: req.Address.PostalCode, Number: req.Address.Number,
			OrderCode: req.OrderCode, CreatedAt: time.Now(),
		}
		p.Stock -= it.Qty
		lines = append(lines, line)
	}
	s.ledger = append(s.ledger, lines...)
	delete(s.carts, req.CustomerID)
	return lines, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBeginEmptyCart(t *testing.T) {
	store := newMemStore()
	f := NewFinalizer(store, testLogger())

	_, err := f.Begin(context.Background(), 42)
	assert.ErrorIs(t, err, shop.ErrEmptyCart)
	assert.Empty(t, store.ledgerLines())
}

func TestReviewComputesTotals(t *testing.T) {
	store := newMemStore(
		shop.Product{ID: 1, Name: "widget", Price: price("19.90"), Stock: 10},
		shop.Product{ID: 2, Name: "gasket", Price: price("2.50"), Stock: 3},
	)
	store.setCart(42, map[int64]int{1: 4, 2: 2})
	f := NewFinalizer(store, testLogger())

	co, err := f.Begin(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, StateReviewing, co.State())

	lines, total := co.Review()
	require.Len(t, lines, 2)
	assert.True(t, total.Equal(price("84.60")), "total = %s", total)
}

func TestConfirmRejectedCancelsAndKeepsCart(t *testing.T) {
	store := newMemStore(shop.Product{ID: 1, Name: "widget", Price: price("19.90"), Stock: 10})
	store.setCart(42, map[int64]int{1: 4})
	f := NewFinalizer(store, testLogger())

	co, err := f.Begin(context.Background(), 42)
	require.NoError(t, err)

	_, err = f.Confirm(context.Background(), co, shop.Address{PostalCode: "12345-678", Number: "10"}, false)
	assert.ErrorIs(t, err, shop.ErrCancelled)
	assert.Equal(t, StateCancelled, co.State())
	assert.Equal(t, 1, store.cartLen(42))
	assert.Equal(t, 10, store.stock(1))
	assert.Empty(t, store.ledgerLines())
}

func TestConfirmRequiresAddress(t *testing.T) {
	tests := []struct {
		name string
		addr shop.Address
	}{
		{name: "missing postal code", addr: shop.Address{Number: "10"}},
		{name: "missing number", addr: shop.Address{PostalCode: "12345-678"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore(shop.Product{ID: 1, Name: "widget", Price: price("19.90"), Stock: 10})
			store.setCart(42, map[int64]int{1: 1})
			f := NewFinalizer(store, testLogger())

			co, err := f.Begin(context.Background(), 42)
			require.NoError(t, err)

			_, err = f.Confirm(context.Background(), co, tt.addr, true)
			var verr *shop.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, 1, store.cartLen(42))
			assert.Empty(t, store.ledgerLines())
		})
	}
}

func TestFinalizeWidgetScenario(t *testing.T) {
	store := newMemStore(shop.Product{ID: 1, Name: "widget", Price: price("19.90"), Stock: 10})
	store.setCart(42, map[int64]int{1: 4})
	f := NewFinalizer(store, testLogger())
	ctx := context.Background()

	co, err := f.Begin(ctx, 42)
	require.NoError(t, err)

	res, err := f.Confirm(ctx, co, shop.Address{PostalCode: "12345-678", Number: "10"}, true)
	require.NoError(t, err)
	assert.Equal(t, StateDone, co.State())
	assert.Equal(t, 1, res.Items)
	assert.NotEmpty(t, res.OrderCode)
	assert.True(t, res.Total.Equal(price("79.60")), "total = %s", res.Total)
	assert.Equal(t, "12345-678", res.Address.PostalCode)
	assert.Equal(t, "10", res.Address.Number)

	assert.Equal(t, 6, store.stock(1))
	assert.Equal(t, 0, store.cartLen(42))

	lines := store.ledgerLines()
	require.Len(t, lines, 1)
	assert.Equal(t, res.OrderCode, lines[0].OrderCode)
	assert.True(t, lines[0].UnitPrice.Equal(price("19.90")))
}

func TestFinalizeMultiLineSharesOneCode(t *testing.T) {
	store := newMemStore(
		shop.Product{ID: 1, Name: "widget", Price: price("19.90"), Stock: 10},
		shop.Product{ID: 2, Name: "gasket", Price: price("2.50"), Stock: 5},
		shop.Product{ID: 3, Name: "flange", Price: price("7.00"), Stock: 2},
	)
	store.setCart(7, map[int64]int{1: 2, 2: 3, 3: 1})
	f := NewFinalizer(store, testLogger())
	ctx := context.Background()

	co, err := f.Begin(ctx, 7)
	require.NoError(t, err)
	res, err := f.Confirm(ctx, co, shop.Address{PostalCode: "01000-000", Number: "55"}, true)
	require.NoError(t, err)

	lines := store.ledgerLines()
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Equal(t, res.OrderCode, l.OrderCode)
	}
	assert.Equal(t, 8, store.stock(1))
	assert.Equal(t, 2, store.stock(2))
	assert.Equal(t, 1, store.stock(3))
	assert.Equal(t, 0, store.cartLen(7))
}

func TestFinalizeInsufficientStockLeavesEverythingUntouched(t *testing.T) {
	// Draft asked for 5 when stock was higher; stock has since dropped
	// to 2. The whole finalize fails, stock and draft stay as they
	// are.
	store := newMemStore(shop.Product{ID: 1, Name: "widget", Price: price("19.90"), Stock: 2})
	store.setCart(42, map[int64]int{1: 5})
	f := NewFinalizer(store, testLogger())
	ctx := context.Background()

	co, err := f.Begin(ctx, 42)
	require.NoError(t, err)

	_, err = f.Confirm(ctx, co, shop.Address{PostalCode: "12345-678", Number: "10"}, true)
	var serr *shop.InsufficientStockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, int64(1), serr.ProductID)
	assert.Equal(t, 2, serr.Available)
	assert.Equal(t, 5, serr.Requested)

	assert.Equal(t, StateFailed, co.State())
	assert.Equal(t, 2, store.stock(1))
	assert.Equal(t, 1, store.cartLen(42))
	assert.Empty(t, store.ledgerLines())
}

func TestFinalizeStorageFailureRollsBack(t *testing.T) {
	store := newMemStore(shop.Product{ID: 1, Name: "widget", Price: price("19.90"), Stock: 10})
	store.setCart(42, map[int64]int{1: 4})
	store.commitErr = &shop.StorageError{Op: "commit finalize", Err: errors.New("connection reset")}
	f := NewFinalizer(store, testLogger())
	ctx := context.Background()

	co, err := f.Begin(ctx, 42)
	require.NoError(t, err)

	_, err = f.Confirm(ctx, co, shop.Address{PostalCode: "12345-678", Number: "10"}, true)
	var serr *shop.StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StateFailed, co.State())
	assert.Equal(t, 10, store.stock(1))
	assert.Equal(t, 1, store.cartLen(42))
	assert.Empty(t, store.ledgerLines())
}

func TestConfirmTwiceIsRejected(t *testing.T) {
	store := newMemStore(shop.Product{ID: 1, Name: "widget", Price: price("19.90"), Stock: 10})
	store.setCart(42, map[int64]int{1: 1})
	f := NewFinalizer(store, testLogger())
	ctx := context.Background()

	co, err := f.Begin(ctx, 42)
	require.NoError(t, err)
	_, err = f.Confirm(ctx, co, shop.Address{PostalCode: "12345-678", Number: "10"}, true)
	require.NoError(t, err)

	// the second attempt is a client mistake, not a server fault
	_, err = f.Confirm(ctx, co, shop.Address{PostalCode: "12345-678", Number: "10"}, true)
	var verr *shop.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "checkout", verr.Field)
	require.Len(t, store.ledgerLines(), 1)
}

func TestConcurrentFinalizeNeverOversells(t *testing.T) {
	// Two customers race for the last unit: exactly one wins, stock
	// never goes negative.
	store := newMemStore(shop.Product{ID: 1, Name: "widget", Price: price("19.90"), Stock: 1})
	store.setCart(1, map[int64]int{1: 1})
	store.setCart(2, map[int64]int{1: 1})
	f := NewFinalizer(store, testLogger())
	ctx := context.Background()

	co1, err := f.Begin(ctx, 1)
	require.NoError(t, err)
	co2, err := f.Begin(ctx, 2)
	require.NoError(t, err)

	addr := shop.Address{PostalCode: "12345-678", Number: "10"}
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, co := range []*Checkout{co1, co2} {
		wg.Add(1)
		go func(c *Checkout) {
			defer wg.Done()
			_, err := f.Confirm(ctx, c, addr, true)
			results <- err
		}(co)
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var serr *shop.InsufficientStockError
		require.ErrorAs(t, err, &serr)
		conflicts++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 0, store.stock(1))
	assert.Len(t, store.ledgerLines(), 1)
}

func TestConcurrentFinalizeBothSucceedWhenStockSuffices(t *testing.T) {
	store := newMemStore(shop.Product{ID: 1, Name: "widget", Price: price("19.90"), Stock: 2})
	store.setCart(1, map[int64]int{1: 1})
	store.setCart(2, map[int64]int{1: 1})
	f := NewFinalizer(store, testLogger())
	ctx := context.Background()

	co1, err := f.Begin(ctx, 1)
	require.NoError(t, err)
	co2, err := f.Begin(ctx, 2)
	require.NoError(t, err)

	addr := shop.Address{PostalCode: "12345-678", Number: "10"}
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, co := range []*Checkout{co1, co2} {
		wg.Add(1)
		go func(c *Checkout) {
			defer wg.Done()
			_, err := f.Confirm(ctx, c, addr, true)
			results <- err
		}(co)
	}
	wg.Wait()
	close(results)

	for err := range results {
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, store.stock(1))
	codes := map[string]bool{}
	for _, l := range store.ledgerLines() {
		codes[l.OrderCode] = true
	}
	assert.Len(t, codes, 2, "each finalization gets its own code")
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, CanTransition(StateCollecting, StateReviewing))
	assert.True(t, CanTransition(StateReviewing, StateCancelled))
	assert.True(t, CanTransition(StateValidating, StateCommitting))
	assert.True(t, CanTransition(StateCommitting, StateDone))
	assert.False(t, CanTransition(StateDone, StateCommitting))
	assert.False(t, CanTransition(StateCancelled, StateReviewing))
	assert.False(t, CanTransition(StateCollecting, StateCommitting))
}
