package shop

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64
	CompanyID int64
	Name      string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
}

// CartLine is one draft row, unique per (customer, product).
type CartLine struct {
	CustomerID int64
	ProductID  int64
	Qty        int
}

// PricedCartLine is a draft line joined against the live catalog.
// UnitPrice and Subtotal reflect the catalog at read time; they are
// only frozen when the order commits.
type PricedCartLine struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Qty       int
	Stock     int
	Subtotal  decimal.Decimal
}

type Address struct {
	PostalCode string `json:"postal_code"`
	Number     string `json:"number"`
}

// OrderLine is immutable once written. UnitPrice and LineTotal are the
// values at commit time, regardless of later catalog changes.
type OrderLine struct {
	ID         int64
	CustomerID int64
	ProductID  int64
	Qty        int
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
	PostalCode string
	Number     string
	OrderCode  string
	CreatedAt  time.Time
}

// OrderSummary is one finalized order reconstructed by grouping
// order_lines on the order code.
type OrderSummary struct {
	OrderCode string
	LatestAt  time.Time
	Items     int
	Total     decimal.Decimal
	Address   Address
}

type OrderLineDetail struct {
	ProductID int64
	Name      string
	Qty       int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}
