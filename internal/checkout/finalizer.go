package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ibex-commerce/storefront/internal/shop"
)

// Store is the finalizer's view of the shared data store. Commit must
// be failure-atomic: either every order line is written, every stock
// decrement applied and the draft cleared, or nothing happened.
type Store interface {
	// PricedLines reads the customer's draft joined with current
	// catalog rows (name, price, stock).
	PricedLines(ctx context.Context, customerID int64) ([]shop.PricedCartLine, error)
	// Commit re-validates stock under row locks, freezes prices into
	// order lines and clears the draft. Returns the committed lines.
	// A stock conflict surfaces as *shop.InsufficientStockError with
	// no state change.
	Commit(ctx context.Context, req CommitRequest) ([]shop.OrderLine, error)
}

type CommitRequest struct {
	CustomerID int64
	OrderCode  string
	Address    shop.Address
	Items      []shop.CartLine
}

// Checkout is one finalization attempt walking
// Collecting -> Reviewing -> Validating -> Committing -> Done, with
// Cancelled and Failed as terminal off-ramps.
type Checkout struct {
	state      State
	customerID int64
	lines      []shop.PricedCartLine
	total      decimal.Decimal
}

func (c *Checkout) State() State { return c.state }

// Review exposes the collected lines with read-time subtotals and the
// running total, for the caller to present before confirmation.
func (c *Checkout) Review() ([]shop.PricedCartLine, decimal.Decimal) {
	return c.lines, c.total
}

func (c *Checkout) transition(to State) {
	if !CanTransition(c.state, to) {
		// programming error, not a user-facing condition
		panic(fmt.Sprintf("checkout: illegal transition %s -> %s", c.state, to))
	}
	c.state = to
}

type Result struct {
	OrderCode string
	Items     int
	Total     decimal.Decimal
	Address   shop.Address
	Lines     []shop.OrderLine
}

type Finalizer struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewFinalizer(store Store, log *slog.Logger) *Finalizer {
	return &Finalizer{store: store, log: log, now: time.Now}
}

// Begin collects the customer's draft and moves to Reviewing. An
// empty draft fails with shop.ErrEmptyCart.
func (f *Finalizer) Begin(ctx context.Context, customerID int64) (*Checkout, error) {
	c := &Checkout{state: StateCollecting, customerID: customerID, total: decimal.Zero}

	lines, err := f.store.PricedLines(ctx, customerID)
	if err != nil {
		c.transition(StateFailed)
		return nil, err
	}
	if len(lines) == 0 {
		c.transition(StateFailed)
		return nil, shop.ErrEmptyCart
	}
	for i := range lines {
		lines[i].Subtotal = lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(lines[i].Qty)))
		c.total = c.total.Add(lines[i].Subtotal)
	}
	c.lines = lines
	c.transition(StateReviewing)
	return c, nil
}

// Confirm drives a reviewed checkout to its terminal state. A
// rejected confirmation cancels and leaves the draft untouched;
// otherwise the lines are re-validated against current stock and
// committed as one atomic unit.
func (f *Finalizer) Confirm(ctx context.Context, c *Checkout, addr shop.Address, confirmed bool) (Result, error) {
	if c.state != StateReviewing {
		return Result{}, &shop.ValidationError{
			Field:  "checkout",
			Reason: fmt.Sprintf("state %s cannot be confirmed", c.state),
		}
	}
	if addr.PostalCode == "" {
		c.transition(StateFailed)
		return Result{}, &shop.ValidationError{Field: "postal_code", Reason: "required"}
	}
	if addr.Number == "" {
		c.transition(StateFailed)
		return Result{}, &shop.ValidationError{Field: "number", Reason: "required"}
	}
	if !confirmed {
		c.transition(StateCancelled)
		return Result{}, shop.ErrCancelled
	}

	// Validating: stock may have moved since Collecting. This check
	// fails fast; the commit repeats it under row locks, which is the
	// authoritative gate against concurrent finalizations.
	c.transition(StateValidating)
	current, err := f.store.PricedLines(ctx, c.customerID)
	if err != nil {
		c.transition(StateFailed)
		return Result{}, err
	}
	stockByID := make(map[int64]int, len(current))
	for _, l := range current {
		stockByID[l.ProductID] = l.Stock
	}
	for _, l := range c.lines {
		if avail, ok := stockByID[l.ProductID]; !ok || l.Qty > avail {
			c.transition(StateFailed)
			return Result{}, &shop.InsufficientStockError{
				ProductID: l.ProductID, Available: avail, Requested: l.Qty,
			}
		}
	}

	c.transition(StateCommitting)
	code := shop.NewOrderCode(c.customerID, f.now())
	items := make([]shop.CartLine, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, shop.CartLine{CustomerID: c.customerID, ProductID: l.ProductID, Qty: l.Qty})
	}
	committed, err := f.store.Commit(ctx, CommitRequest{
		CustomerID: c.customerID,
		OrderCode:  code,
		Address:    addr,
		Items:      items,
	})
	if err != nil {
		c.transition(StateFailed)
		var insufficient *shop.InsufficientStockError
		var negative *shop.StockWouldGoNegativeError
		if errors.As(err, &insufficient) || errors.As(err, &negative) || errors.Is(err, shop.ErrNotFound) {
			return Result{}, err
		}
		var storage *shop.StorageError
		if errors.As(err, &storage) {
			return Result{}, err
		}
		return Result{}, &shop.StorageError{Op: "finalize commit", Err: err}
	}

	total := decimal.Zero
	for _, l := range committed {
		total = total.Add(l.LineTotal)
	}
	c.transition(StateDone)
	f.log.Info("order finalized",
		"customer_id", c.customerID, "order_code", code,
		"items", len(committed), "total", total.String())
	return Result{OrderCode: code, Items: len(committed), Total: total, Address: addr, Lines: committed}, nil
}

// CommittedLines rebuilds event items from committed order lines.
func CommittedLines(lines []shop.OrderLine) []shop.FinalizedItem {
	out := make([]shop.FinalizedItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, shop.FinalizedItem{
			ProductID: l.ProductID,
			Qty:       l.Qty,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		})
	}
	return out
}
