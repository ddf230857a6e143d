package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ibex-commerce/storefront/internal/shop"
)

// PGStore keeps draft lines in the draft_cart table, unique on
// (customer_id, product_id).
type PGStore struct{ DB *pgxpool.Pool }

var _ Store = (*PGStore)(nil)

func (s *PGStore) Merge(ctx context.Context, customerID, productID int64, qty int) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO draft_cart (customer_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id, product_id) DO UPDATE SET
			quantity = draft_cart.quantity + excluded.quantity`,
		customerID, productID, qty)
	if err != nil {
		return &shop.StorageError{Op: "merge cart line", Err: err}
	}
	return nil
}

// Reduce locks the line, then deletes or decrements it inside one
// transaction, so two concurrent reductions cannot both observe the
// same quantity and drive it below 1.
func (s *PGStore) Reduce(ctx context.Context, customerID, productID int64, amount int) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &shop.StorageError{Op: "reduce cart line", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var qty int
	err = tx.QueryRow(ctx, `
		SELECT quantity FROM draft_cart
		WHERE customer_id=$1 AND product_id=$2
		FOR UPDATE`,
		customerID, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return shop.ErrNotInCart
	}
	if err != nil {
		return &shop.StorageError{Op: "reduce cart line", Err: err}
	}

	if amount >= qty {
		_, err = tx.Exec(ctx,
			`DELETE FROM draft_cart WHERE customer_id=$1 AND product_id=$2`,
			customerID, productID)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE draft_cart SET quantity = quantity - $3
			WHERE customer_id=$1 AND product_id=$2`,
			customerID, productID, amount)
	}
	if err != nil {
		return &shop.StorageError{Op: "reduce cart line", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &shop.StorageError{Op: "reduce cart line", Err: err}
	}
	return nil
}

func (s *PGStore) PricedLines(ctx context.Context, customerID int64) ([]shop.PricedCartLine, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT dc.product_id, p.name, p.price::text, dc.quantity, p.stock
		FROM draft_cart dc
		JOIN products p ON p.id = dc.product_id
		WHERE dc.customer_id = $1
		ORDER BY p.name`, customerID)
	if err != nil {
		return nil, &shop.StorageError{Op: "read cart", Err: err}
	}
	defer rows.Close()

	var out []shop.PricedCartLine
	for rows.Next() {
		var l shop.PricedCartLine
		var price string
		if err := rows.Scan(&l.ProductID, &l.Name, &price, &l.Qty, &l.Stock); err != nil {
			return nil, &shop.StorageError{Op: "read cart", Err: err}
		}
		l.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, &shop.StorageError{Op: "read cart", Err: err}
	}
	return out, nil
}

func (s *PGStore) Clear(ctx context.Context, customerID int64) error {
	_, err := s.DB.Exec(ctx,
		`DELETE FROM draft_cart WHERE customer_id=$1`, customerID)
	if err != nil {
		return &shop.StorageError{Op: "clear cart", Err: err}
	}
	return nil
}
