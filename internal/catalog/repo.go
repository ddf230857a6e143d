package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ibex-commerce/storefront/internal/shop"
)

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, company_id, name, price::text, stock, created_at`

func scanProduct(row pgx.Row) (shop.Product, error) {
	var p shop.Product
	var price string
	if err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &price, &p.Stock, &p.CreatedAt); err != nil {
		return shop.Product{}, err
	}
	var err error
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return shop.Product{}, fmt.Errorf("parse price: %w", err)
	}
	return p, nil
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (shop.Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx,
		`SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return shop.Product{}, fmt.Errorf("product %d: %w", id, shop.ErrNotFound)
	}
	if err != nil {
		return shop.Product{}, &shop.StorageError{Op: "get product", Err: err}
	}
	return p, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]shop.Product, error) {
	return r.list(ctx, `SELECT `+productCols+` FROM products ORDER BY id`)
}

func (r *Repo) ListByCompany(ctx context.Context, companyID int64) ([]shop.Product, error) {
	return r.list(ctx, `SELECT `+productCols+` FROM products WHERE company_id=$1 ORDER BY id`, companyID)
}

func (r *Repo) list(ctx context.Context, sql string, args ...any) ([]shop.Product, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, &shop.StorageError{Op: "list products", Err: err}
	}
	defer rows.Close()

	var out []shop.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, &shop.StorageError{Op: "list products", Err: err}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &shop.StorageError{Op: "list products", Err: err}
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, companyID int64, name string, price decimal.Decimal, stock int) (shop.Product, error) {
	if name == "" {
		return shop.Product{}, &shop.ValidationError{Field: "name", Reason: "required"}
	}
	if price.IsNegative() {
		return shop.Product{}, &shop.ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if stock < 0 {
		return shop.Product{}, &shop.ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products (company_id, name, price, stock)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING `+productCols,
		companyID, name, price.String(), stock))
	if err != nil {
		return shop.Product{}, &shop.StorageError{Op: "create product", Err: err}
	}
	return p, nil
}

// Update rewrites name, price and stock. The WHERE clause enforces
// ownership: a company cannot touch another company's product.
func (r *Repo) Update(ctx context.Context, companyID, id int64, name string, price decimal.Decimal, stock int) (shop.Product, error) {
	if name == "" {
		return shop.Product{}, &shop.ValidationError{Field: "name", Reason: "required"}
	}
	if price.IsNegative() {
		return shop.Product{}, &shop.ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if stock < 0 {
		return shop.Product{}, &shop.ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		UPDATE products SET name=$3, price=$4::numeric, stock=$5
		WHERE id=$1 AND company_id=$2
		RETURNING `+productCols,
		id, companyID, name, price.String(), stock))
	if errors.Is(err, pgx.ErrNoRows) {
		return shop.Product{}, fmt.Errorf("product %d: %w", id, shop.ErrNotFound)
	}
	if err != nil {
		return shop.Product{}, &shop.StorageError{Op: "update product", Err: err}
	}
	return p, nil
}

func (r *Repo) Delete(ctx context.Context, companyID, id int64) error {
	ct, err := r.DB.Exec(ctx,
		`DELETE FROM products WHERE id=$1 AND company_id=$2`, id, companyID)
	if err != nil {
		// FK restrict: the product is referenced by draft carts or order lines
		return &shop.StorageError{Op: "delete product", Err: err}
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", id, shop.ErrNotFound)
	}
	return nil
}

// DecrementStock runs inside the finalize transaction, after the row
// has been locked and validated. The conditional UPDATE is a last
// guard against the invariant breaking at the storage boundary.
func DecrementStock(ctx context.Context, tx pgx.Tx, productID int64, amount int) error {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2 WHERE id=$1 AND stock >= $2`,
		productID, amount)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		var stock int
		if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, productID).Scan(&stock); err != nil {
			return err
		}
		return &shop.StockWouldGoNegativeError{ProductID: productID, Stock: stock, Amount: amount}
	}
	return nil
}
