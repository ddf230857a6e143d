package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ibex-commerce/storefront/internal/catalog"
	"github.com/ibex-commerce/storefront/internal/shop"
)

// PGStore commits finalizations against Postgres. Correctness comes
// from the transaction: every touched product row is locked with
// SELECT ... FOR UPDATE before its stock is checked and decremented,
// so two finalizations over the same product serialize and the last
// unit can only be sold once.
type PGStore struct{ DB *pgxpool.Pool }

var _ Store = (*PGStore)(nil)

func (s *PGStore) PricedLines(ctx context.Context, customerID int64) ([]shop.PricedCartLine, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT dc.product_id, p.name, p.price::text, dc.quantity, p.stock
		FROM draft_cart dc
		JOIN products p ON p.id = dc.product_id
		WHERE dc.customer_id = $1
		ORDER BY p.name`, customerID)
	if err != nil {
		return nil, &shop.StorageError{Op: "collect draft", Err: err}
	}
	defer rows.Close()

	var out []shop.PricedCartLine
	for rows.Next() {
		var l shop.PricedCartLine
		var price string
		if err := rows.Scan(&l.ProductID, &l.Name, &price, &l.Qty, &l.Stock); err != nil {
			return nil, &shop.StorageError{Op: "collect draft", Err: err}
		}
		l.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, &shop.StorageError{Op: "collect draft", Err: err}
	}
	return out, nil
}

func (s *PGStore) Commit(ctx context.Context, req CommitRequest) ([]shop.OrderLine, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &shop.StorageError{Op: "begin finalize", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock in product-id order so concurrent finalizations over
	// overlapping carts cannot deadlock.
	items := make([]shop.CartLine, len(req.Items))
	copy(items, req.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	lines := make([]shop.OrderLine, 0, len(items))
	for _, it := range items {
		var priceStr string
		var stock int
		err := tx.QueryRow(ctx,
			`SELECT price::text, stock FROM products WHERE id=$1 FOR UPDATE`,
			it.ProductID).Scan(&priceStr, &stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", it.ProductID, shop.ErrNotFound)
		}
		if err != nil {
			return nil, &shop.StorageError{Op: "lock product", Err: err}
		}
		if stock < it.Qty {
			return nil, &shop.InsufficientStockError{
				ProductID: it.ProductID, Available: stock, Requested: it.Qty,
			}
		}
		unit, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}

		line := shop.OrderLine{
			CustomerID: req.CustomerID,
			ProductID:  it.ProductID,
			Qty:        it.Qty,
			UnitPrice:  unit,
			LineTotal:  unit.Mul(decimal.NewFromInt(int64(it.Qty))),
			PostalCode: req.Address.PostalCode,
			Number:     req.Address.Number,
			OrderCode:  req.OrderCode,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO order_lines
				(customer_id, product_id, quantity, unit_price, line_total,
				 postal_code, number, order_code)
			VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8)
			RETURNING id, created_at`,
			line.CustomerID, line.ProductID, line.Qty,
			line.UnitPrice.String(), line.LineTotal.String(),
			line.PostalCode, line.Number, line.OrderCode,
		).Scan(&line.ID, &line.CreatedAt)
		if err != nil {
			return nil, &shop.StorageError{Op: "insert order line", Err: err}
		}

		if err := catalog.DecrementStock(ctx, tx, it.ProductID, it.Qty); err != nil {
			var negative *shop.StockWouldGoNegativeError
			if errors.As(err, &negative) {
				return nil, err
			}
			return nil, &shop.StorageError{Op: "decrement stock", Err: err}
		}
		lines = append(lines, line)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM draft_cart WHERE customer_id=$1`, req.CustomerID); err != nil {
		return nil, &shop.StorageError{Op: "clear draft", Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &shop.StorageError{Op: "commit finalize", Err: err}
	}
	return lines, nil
}
