package cart

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ibex-commerce/storefront/internal/shop"
)

// CatalogReader is the slice of the catalog the cart needs.
type CatalogReader interface {
	GetProduct(ctx context.Context, id int64) (shop.Product, error)
}

// Store persists draft lines. Implementations only move rows; the
// business rules live in Service.
type Store interface {
	// Merge accumulates qty into the (customer, product) line,
	// creating it when absent.
	Merge(ctx context.Context, customerID, productID int64, qty int) error
	// Reduce shrinks the line by amount as one atomic decision:
	// deleted when amount covers the whole quantity, decremented
	// otherwise, so the quantity can never pass through zero.
	// Returns shop.ErrNotInCart when no line exists.
	Reduce(ctx context.Context, customerID, productID int64, amount int) error
	// PricedLines joins the draft against the live catalog.
	PricedLines(ctx context.Context, customerID int64) ([]shop.PricedCartLine, error)
	// Clear drops every line for the customer.
	Clear(ctx context.Context, customerID int64) error
}

type Service struct {
	catalog CatalogReader
	store   Store
	log     *slog.Logger
}

func NewService(catalog CatalogReader, store Store, log *slog.Logger) *Service {
	return &Service{catalog: catalog, store: store, log: log}
}

// AddItem merges qty into the customer's draft line for the product.
// The stock check here is advisory: stock is only reserved at
// finalization, so the draft may still fail later.
func (s *Service) AddItem(ctx context.Context, customerID, productID int64, qty int) error {
	if qty < 1 {
		return &shop.ValidationError{Field: "qty", Reason: "must be at least 1"}
	}
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if p.Stock == 0 {
		return shop.ErrOutOfStock
	}
	if qty > p.Stock {
		return &shop.InsufficientStockError{ProductID: productID, Available: p.Stock, Requested: qty}
	}
	if err := s.store.Merge(ctx, customerID, productID, qty); err != nil {
		return err
	}
	s.log.Info("cart add", "customer_id", customerID, "product_id", productID, "qty", qty)
	return nil
}

// View is a read-time snapshot: prices come from the current catalog,
// so a price change before finalization shows up here.
type View struct {
	Lines []shop.PricedCartLine
	Total decimal.Decimal
}

func (s *Service) ViewCart(ctx context.Context, customerID int64) (View, error) {
	lines, err := s.store.PricedLines(ctx, customerID)
	if err != nil {
		return View{}, err
	}
	v := View{Lines: lines, Total: decimal.Zero}
	for i := range v.Lines {
		v.Lines[i].Subtotal = v.Lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(v.Lines[i].Qty)))
		v.Total = v.Total.Add(v.Lines[i].Subtotal)
	}
	return v, nil
}

// RemoveOrDecrease shrinks the draft line by amount; when amount
// covers the whole quantity the line is deleted rather than kept at
// zero. The delete-or-decrement decision happens inside the store so
// concurrent calls serialize on the row instead of racing a
// read-then-write here.
func (s *Service) RemoveOrDecrease(ctx context.Context, customerID, productID int64, amount int) error {
	if amount < 1 {
		return &shop.ValidationError{Field: "amount", Reason: "must be at least 1"}
	}
	return s.store.Reduce(ctx, customerID, productID, amount)
}

func (s *Service) Clear(ctx context.Context, customerID int64) error {
	return s.store.Clear(ctx, customerID)
}
