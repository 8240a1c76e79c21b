package postgres

import (
	"context"
	"database/sql"

	domain "github.com/marketloop/api/internal/domain"
	"github.com/marketloop/api/internal/repositories"
)

// ProductRepository stores catalog entries in the products table.
type ProductRepository struct {
	*store
}

// Insert persists a new product and returns it with the generated id.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	const query = `
		INSERT INTO products (title, seller_id, cost)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.querier(ctx).QueryRowContext(ctx, query,
		product.Title, product.SellerID, product.Cost,
	).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return domain.Product{}, wrapError("products.insert", err)
	}
	return product, nil
}

// FindByID loads a product by primary key.
func (r *ProductRepository) FindByID(ctx context.Context, productID int64) (domain.Product, error) {
	const query = `
		SELECT id, title, seller_id, cost, created_at
		FROM products WHERE id = $1`

	var product domain.Product
	err := r.querier(ctx).QueryRowContext(ctx, query, productID).Scan(
		&product.ID, &product.Title, &product.SellerID, &product.Cost, &product.CreatedAt,
	)
	if err != nil {
		return domain.Product{}, wrapError("products.find", err)
	}
	return product, nil
}

// ExistsByID reports whether a product row exists for the id.
func (r *ProductRepository) ExistsByID(ctx context.Context, productID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`

	var exists bool
	if err := r.querier(ctx).QueryRowContext(ctx, query, productID).Scan(&exists); err != nil {
		return false, wrapError("products.exists_by_id", err)
	}
	return exists, nil
}

// ExistsByTitle reports whether a product already uses the title.
func (r *ProductRepository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM products WHERE title = $1)`

	var exists bool
	if err := r.querier(ctx).QueryRowContext(ctx, query, title).Scan(&exists); err != nil {
		return false, wrapError("products.exists_by_title", err)
	}
	return exists, nil
}

// List returns products matching the filter ordered by id.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	query := `
		SELECT id, title, seller_id, cost, created_at
		FROM products`
	args := []any{}
	if filter.Title != "" {
		query += ` WHERE title ILIKE $1`
		args = append(args, "%"+filter.Title+"%")
	}
	query += ` ORDER BY id`

	rows, err := r.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError("products.list", err)
	}
	return scanProducts(rows, "products.list")
}

// ListBySeller returns the seller's products ordered by id.
func (r *ProductRepository) ListBySeller(ctx context.Context, sellerID int64) ([]domain.Product, error) {
	const query = `
		SELECT id, title, seller_id, cost, created_at
		FROM products WHERE seller_id = $1 ORDER BY id`

	rows, err := r.querier(ctx).QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, wrapError("products.list_by_seller", err)
	}
	return scanProducts(rows, "products.list_by_seller")
}

func scanProducts(rows *sql.Rows, op string) ([]domain.Product, error) {
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Title, &product.SellerID, &product.Cost, &product.CreatedAt); err != nil {
			return nil, wrapError(op, err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(op, err)
	}
	return products, nil
}
