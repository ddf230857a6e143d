package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ibex-commerce/storefront/internal/shop"
)

type Repo struct{ DB *pgxpool.Pool }

// SalesRow aggregates the frozen order lines, so revenue reflects the
// prices customers actually paid, not current catalog prices.
type SalesRow struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	QtySold   int             `json:"qty_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type StockRow struct {
	ProductID  int64           `json:"product_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	StockValue decimal.Decimal `json:"stock_value"`
}

func (r *Repo) Sales(ctx context.Context, companyID int64) ([]SalesRow, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.name,
		       COALESCE(SUM(ol.quantity), 0)::bigint          AS qty_sold,
		       COALESCE(SUM(ol.line_total), 0)::text          AS revenue
		FROM products p
		LEFT JOIN order_lines ol ON ol.product_id = p.id
		WHERE p.company_id = $1
		GROUP BY p.id, p.name
		ORDER BY qty_sold DESC, p.name`, companyID)
	if err != nil {
		return nil, &shop.StorageError{Op: "sales report", Err: err}
	}
	defer rows.Close()

	var out []SalesRow
	for rows.Next() {
		var row SalesRow
		var qty int64
		var revenue string
		if err := rows.Scan(&row.ProductID, &row.Name, &qty, &revenue); err != nil {
			return nil, &shop.StorageError{Op: "sales report", Err: err}
		}
		row.QtySold = int(qty)
		if row.Revenue, err = decimal.NewFromString(revenue); err != nil {
			return nil, fmt.Errorf("parse revenue: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &shop.StorageError{Op: "sales report", Err: err}
	}
	return out, nil
}

func (r *Repo) Stock(ctx context.Context, companyID int64) ([]StockRow, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, price::text, stock, (price * stock)::text AS stock_value
		FROM products
		WHERE company_id = $1
		ORDER BY name`, companyID)
	if err != nil {
		return nil, &shop.StorageError{Op: "stock report", Err: err}
	}
	defer rows.Close()

	var out []StockRow
	for rows.Next() {
		var row StockRow
		var price, value string
		if err := rows.Scan(&row.ProductID, &row.Name, &price, &row.Stock, &value); err != nil {
			return nil, &shop.StorageError{Op: "stock report", Err: err}
		}
		if row.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		if row.StockValue, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("parse stock value: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &shop.StorageError{Op: "stock report", Err: err}
	}
	return out, nil
}
