package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ibex-commerce/storefront/internal/shop"
)

// Repo is the read-only side of the order ledger. Nothing writes here
// outside the finalizer's commit transaction. There is no parent order
// row; an order is the group of lines sharing one code.
type Repo struct{ DB *pgxpool.Pool }

// OrdersByCustomer groups the customer's lines by order code, newest
// first. Address fields never vary inside one code, so MAX picks the
// single value.
func (r *Repo) OrdersByCustomer(ctx context.Context, customerID int64) ([]shop.OrderSummary, error) {
	return r.summaries(ctx, `
		SELECT
			ol.order_code,
			MAX(ol.created_at)        AS latest_at,
			SUM(ol.quantity)::bigint  AS items,
			SUM(ol.line_total)::text  AS total,
			MAX(ol.postal_code)       AS postal_code,
			MAX(ol.number)            AS number
		FROM order_lines ol
		WHERE ol.customer_id = $1
		GROUP BY ol.order_code
		ORDER BY latest_at DESC`, customerID)
}

// OrdersByCompany keeps only the lines for the company's own
// products; item counts and totals are the company's share of each
// order.
func (r *Repo) OrdersByCompany(ctx context.Context, companyID int64) ([]shop.OrderSummary, error) {
	return r.summaries(ctx, `
		SELECT
			ol.order_code,
			MAX(ol.created_at)        AS latest_at,
			SUM(ol.quantity)::bigint  AS items,
			SUM(ol.line_total)::text  AS total,
			MAX(ol.postal_code)       AS postal_code,
			MAX(ol.number)            AS number
		FROM order_lines ol
		JOIN products p ON p.id = ol.product_id
		WHERE p.company_id = $1
		GROUP BY ol.order_code
		ORDER BY latest_at DESC`, companyID)
}

func (r *Repo) summaries(ctx context.Context, sql string, arg any) ([]shop.OrderSummary, error) {
	rows, err := r.DB.Query(ctx, sql, arg)
	if err != nil {
		return nil, &shop.StorageError{Op: "list orders", Err: err}
	}
	defer rows.Close()

	var out []shop.OrderSummary
	for rows.Next() {
		var s shop.OrderSummary
		var items int64
		var total string
		if err := rows.Scan(&s.OrderCode, &s.LatestAt, &items, &total,
			&s.Address.PostalCode, &s.Address.Number); err != nil {
			return nil, &shop.StorageError{Op: "list orders", Err: err}
		}
		s.Items = int(items)
		s.Total, err = decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("parse total: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &shop.StorageError{Op: "list orders", Err: err}
	}
	return out, nil
}

// LineItemsForCustomerOrder returns one order's lines, scoped so a
// customer can only see their own order.
func (r *Repo) LineItemsForCustomerOrder(ctx context.Context, customerID int64, code string) ([]shop.OrderLineDetail, error) {
	return r.details(ctx, code, `
		SELECT ol.product_id, p.name, ol.quantity, ol.unit_price::text, ol.line_total::text
		FROM order_lines ol
		JOIN products p ON p.id = ol.product_id
		WHERE ol.customer_id = $1 AND ol.order_code = $2
		ORDER BY p.name`, customerID, code)
}

// LineItemsForCompanyOrder returns only the lines of the order that
// belong to the company's products.
func (r *Repo) LineItemsForCompanyOrder(ctx context.Context, companyID int64, code string) ([]shop.OrderLineDetail, error) {
	return r.details(ctx, code, `
		SELECT ol.product_id, p.name, ol.quantity, ol.unit_price::text, ol.line_total::text
		FROM order_lines ol
		JOIN products p ON p.id = ol.product_id
		WHERE p.company_id = $1 AND ol.order_code = $2
		ORDER BY p.name`, companyID, code)
}

func (r *Repo) details(ctx context.Context, orderCode, sql string, args ...any) ([]shop.OrderLineDetail, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, &shop.StorageError{Op: "order details", Err: err}
	}
	defer rows.Close()

	var out []shop.OrderLineDetail
	for rows.Next() {
		var d shop.OrderLineDetail
		var unit, total string
		if err := rows.Scan(&d.ProductID, &d.Name, &d.Qty, &unit, &total); err != nil {
			return nil, &shop.StorageError{Op: "order details", Err: err}
		}
		if d.UnitPrice, err = decimal.NewFromString(unit); err != nil {
			return nil, fmt.Errorf("parse unit price: %w", err)
		}
		if d.LineTotal, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse line total: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &shop.StorageError{Op: "order details", Err: err}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("order %s: %w", orderCode, shop.ErrNotFound)
	}
	return out, nil
}
