package postgres

import (
	"context"

	"github.com/lib/pq"

	domain "github.com/marketloop/api/internal/domain"
)

// CartRepository stores staging baskets in the cart_items table, one row per
// (user, product) pair.
type CartRepository struct {
	*store
}

// ListItems returns the user's cart entries joined with product detail,
// ordered by product id. Inside a transaction the cart rows are locked so a
// concurrent checkout of the same cart serialises behind it.
func (r *CartRepository) ListItems(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	query := `
		SELECT c.product_id, p.title, p.cost, p.seller_id, c.quantity
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.product_id`
	if r.inTx(ctx) {
		query += ` FOR UPDATE OF c`
	}

	rows, err := r.querier(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, wrapError("carts.list", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Title, &item.Cost, &item.SellerID, &item.Quantity); err != nil {
			return nil, wrapError("carts.list", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("carts.list", err)
	}
	return items, nil
}

// AddItem records one more unit of the product in the user's cart. The
// increment happens in a single statement so concurrent adds never lose an
// update.
func (r *CartRepository) AddItem(ctx context.Context, userID, productID int64) error {
	const query = `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + 1`

	if _, err := r.querier(ctx).ExecContext(ctx, query, userID, productID); err != nil {
		return wrapError("carts.add", err)
	}
	return nil
}

// RemoveItem deletes the product's row from the user's cart regardless of
// quantity.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID int64) error {
	const query = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	res, err := r.querier(ctx).ExecContext(ctx, query, userID, productID)
	if err != nil {
		return wrapError("carts.remove", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapError("carts.remove", err)
	}
	if affected == 0 {
		return notFoundError("carts.remove")
	}
	return nil
}

// RemoveItems deletes exactly the given products from the user's cart. Rows
// inserted after the caller's snapshot are left untouched.
func (r *CartRepository) RemoveItems(ctx context.Context, userID int64, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	const query = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = ANY($2)`

	if _, err := r.querier(ctx).ExecContext(ctx, query, userID, pq.Array(productIDs)); err != nil {
		return wrapError("carts.remove_items", err)
	}
	return nil
}

// Clear drops every row of the user's cart.
func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	const query = `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := r.querier(ctx).ExecContext(ctx, query, userID); err != nil {
		return wrapError("carts.clear", err)
	}
	return nil
}

// Contains reports whether the user's cart holds the product.
func (r *CartRepository) Contains(ctx context.Context, userID, productID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM cart_items WHERE user_id = $1 AND product_id = $2)`

	var exists bool
	if err := r.querier(ctx).QueryRowContext(ctx, query, userID, productID).Scan(&exists); err != nil {
		return false, wrapError("carts.contains", err)
	}
	return exists, nil
}
