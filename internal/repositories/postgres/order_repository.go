package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	domain "github.com/marketloop/api/internal/domain"
)

// OrderRepository stores order headers and their owned lines. Line loads join
// products so callers receive the title, cost and seller alongside each line.
type OrderRepository struct {
	*store
}

// Insert persists a new order header and returns its generated id.
func (r *OrderRepository) Insert(ctx context.Context, ownerID int64, status domain.OrderStatus) (int64, error) {
	const query = `
		INSERT INTO orders (owner_id, status)
		VALUES ($1, $2)
		RETURNING id`

	var orderID int64
	if err := r.querier(ctx).QueryRowContext(ctx, query, ownerID, string(status)).Scan(&orderID); err != nil {
		return 0, wrapError("orders.insert", err)
	}
	return orderID, nil
}

// InsertLine persists one line of an order.
func (r *OrderRepository) InsertLine(ctx context.Context, line domain.OrderLine) error {
	const query = `
		INSERT INTO order_lines (order_id, product_id, quantity, status)
		VALUES ($1, $2, $3, $4)`

	if _, err := r.querier(ctx).ExecContext(ctx, query,
		line.OrderID, line.ProductID, line.Quantity, string(line.Status),
	); err != nil {
		return wrapError("orders.insert_line", err)
	}
	return nil
}

// FindByID loads an order header with all its lines.
func (r *OrderRepository) FindByID(ctx context.Context, orderID int64) (domain.Order, error) {
	const query = `
		SELECT id, owner_id, status, created_at
		FROM orders WHERE id = $1`

	var order domain.Order
	var status string
	err := r.querier(ctx).QueryRowContext(ctx, query, orderID).Scan(
		&order.ID, &order.OwnerID, &status, &order.CreatedAt,
	)
	if err != nil {
		return domain.Order{}, wrapError("orders.find", err)
	}
	order.Status = domain.OrderStatus(status)

	lines, err := r.loadLines(ctx, []int64{order.ID})
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines[order.ID]
	return order, nil
}

// ListByOwner returns the owner's orders, newest first, each with its lines.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Order, error) {
	const query = `
		SELECT id, owner_id, status, created_at
		FROM orders WHERE owner_id = $1
		ORDER BY id DESC`

	return r.listOrders(ctx, "orders.list_by_owner", query, ownerID)
}

// ListContainingSeller returns every order holding at least one line for the
// seller's products, newest first, with the full line set loaded. Callers
// project the seller view themselves.
func (r *OrderRepository) ListContainingSeller(ctx context.Context, sellerID int64) ([]domain.Order, error) {
	const query = `
		SELECT DISTINCT o.id, o.owner_id, o.status, o.created_at
		FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		JOIN products p ON p.id = l.product_id
		WHERE p.seller_id = $1
		ORDER BY o.id DESC`

	return r.listOrders(ctx, "orders.list_containing_seller", query, sellerID)
}

// FindLine loads a single order line with its product detail.
func (r *OrderRepository) FindLine(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
	const query = `
		SELECT l.order_id, l.product_id, l.quantity, l.status, p.title, p.cost, p.seller_id
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1 AND l.product_id = $2`

	var line domain.OrderLine
	var status string
	err := r.querier(ctx).QueryRowContext(ctx, query, orderID, productID).Scan(
		&line.OrderID, &line.ProductID, &line.Quantity, &status, &line.Title, &line.Cost, &line.SellerID,
	)
	if err != nil {
		return domain.OrderLine{}, wrapError("orders.find_line", err)
	}
	line.Status = domain.LineStatus(status)
	return line, nil
}

// UpdateStatus sets the order-level status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	const query = `UPDATE orders SET status = $2 WHERE id = $1`

	return r.execExpectingRow(ctx, "orders.update_status", query, orderID, string(status))
}

// UpdateLineStatus sets the status of one line.
func (r *OrderRepository) UpdateLineStatus(ctx context.Context, orderID, productID int64, status domain.LineStatus) error {
	const query = `UPDATE order_lines SET status = $3 WHERE order_id = $1 AND product_id = $2`

	return r.execExpectingRow(ctx, "orders.update_line_status", query, orderID, productID, string(status))
}

// UpdateAllLineStatuses sets every line of the order to the status.
func (r *OrderRepository) UpdateAllLineStatuses(ctx context.Context, orderID int64, status domain.LineStatus) error {
	const query = `UPDATE order_lines SET status = $2 WHERE order_id = $1`

	if _, err := r.querier(ctx).ExecContext(ctx, query, orderID, string(status)); err != nil {
		return wrapError("orders.update_all_line_statuses", err)
	}
	return nil
}

// AddLineQuantity increments an existing line's quantity in place.
func (r *OrderRepository) AddLineQuantity(ctx context.Context, orderID, productID int64, quantity int) error {
	const query = `
		UPDATE order_lines SET quantity = quantity + $3
		WHERE order_id = $1 AND product_id = $2`

	return r.execExpectingRow(ctx, "orders.add_line_quantity", query, orderID, productID, quantity)
}

// RemoveLine deletes one line from the order.
func (r *OrderRepository) RemoveLine(ctx context.Context, orderID, productID int64) error {
	const query = `DELETE FROM order_lines WHERE order_id = $1 AND product_id = $2`

	return r.execExpectingRow(ctx, "orders.remove_line", query, orderID, productID)
}

func (r *OrderRepository) execExpectingRow(ctx context.Context, op, query string, args ...any) error {
	res, err := r.querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return wrapError(op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapError(op, err)
	}
	if affected == 0 {
		return notFoundError(op)
	}
	return nil
}

func (r *OrderRepository) listOrders(ctx context.Context, op, query string, arg any) ([]domain.Order, error) {
	rows, err := r.querier(ctx).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, wrapError(op, err)
	}
	orders, ids, err := scanOrderHeaders(rows, op)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (r *OrderRepository) loadLines(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderLine, error) {
	const query = `
		SELECT l.order_id, l.product_id, l.quantity, l.status, p.title, p.cost, p.seller_id
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = ANY($1)
		ORDER BY l.order_id, l.product_id`

	rows, err := r.querier(ctx).QueryContext(ctx, query, pq.Array(orderIDs))
	if err != nil {
		return nil, wrapError("orders.load_lines", err)
	}
	defer rows.Close()

	lines := make(map[int64][]domain.OrderLine, len(orderIDs))
	for rows.Next() {
		var line domain.OrderLine
		var status string
		if err := rows.Scan(&line.OrderID, &line.ProductID, &line.Quantity, &status, &line.Title, &line.Cost, &line.SellerID); err != nil {
			return nil, wrapError("orders.load_lines", err)
		}
		line.Status = domain.LineStatus(status)
		lines[line.OrderID] = append(lines[line.OrderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("orders.load_lines", err)
	}
	return lines, nil
}

func scanOrderHeaders(rows *sql.Rows, op string) ([]domain.Order, []int64, error) {
	defer rows.Close()

	orders := []domain.Order{}
	ids := []int64{}
	for rows.Next() {
		var order domain.Order
		var status string
		if err := rows.Scan(&order.ID, &order.OwnerID, &status, &order.CreatedAt); err != nil {
			return nil, nil, wrapError(op, err)
		}
		order.Status = domain.OrderStatus(status)
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, wrapError(op, err)
	}
	return orders, ids, nil
}
