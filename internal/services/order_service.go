package services

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/marketloop/api/internal/domain"
	"github.com/marketloop/api/internal/repositories"
)

var (
	errOrderRepositoryRequired = errors.New("order service: order repository is required")
	errOrderCartsRequired      = errors.New("order service: cart repository is required")
)

// ErrOrderNotFound indicates the referenced order, product, or line does not exist.
var ErrOrderNotFound = errors.New("order service: not found")

// ErrOrderForbidden indicates the entity exists but the caller does not own it.
var ErrOrderForbidden = errors.New("order service: forbidden")

// ErrOrderInvalidState indicates the operation is structurally disallowed
// given the current data.
var ErrOrderInvalidState = errors.New("order service: invalid state")

// ErrOrderInvalidInput indicates a caller-supplied value violates a domain
// constraint.
var ErrOrderInvalidInput = errors.New("order service: invalid input")

// ErrOrderUnavailable indicates the order service cannot fulfil the request
// due to backend issues.
var ErrOrderUnavailable = errors.New("order service: unavailable")

// OrderServiceDeps wires the repositories and transactional boundary for the
// order lifecycle engine.
type OrderServiceDeps struct {
	Orders   repositories.OrderRepository
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Tx       repositories.UnitOfWork
	Logger   func(context.Context, string, map[string]any)
}

type orderService struct {
	orders   repositories.OrderRepository
	carts    repositories.CartRepository
	products repositories.ProductRepository
	tx       repositories.UnitOfWork
	logger   func(context.Context, string, map[string]any)
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errOrderRepositoryRequired
	}
	if deps.Carts == nil {
		return nil, errOrderCartsRequired
	}

	tx := deps.Tx
	if tx == nil {
		tx = noopUnitOfWork{}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:   deps.Orders,
		carts:    deps.Carts,
		products: deps.Products,
		tx:       tx,
		logger:   logger,
	}, nil
}

// CreateOrder drains the customer's cart into a new order. Cart read, order
// insert, and cart drain run in one transaction so a concurrent cart mutation
// is neither dropped nor double-counted.
func (s *orderService) CreateOrder(ctx context.Context, customerID int64) (domain.Order, error) {
	if customerID <= 0 {
		return domain.Order{}, fmt.Errorf("%w: customer id must be positive", ErrOrderInvalidInput)
	}

	var created domain.Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		items, err := s.carts.ListItems(ctx, customerID)
		if err != nil {
			return s.translateRepoError(err)
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: empty cart", ErrOrderInvalidState)
		}

		orderID, err := s.orders.Insert(ctx, customerID, domain.OrderStatusOpened)
		if err != nil {
			return s.translateRepoError(err)
		}

		drained := make([]int64, 0, len(items))
		for _, item := range items {
			line := domain.OrderLine{
				OrderID:   orderID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Status:    domain.LineStatusPending,
			}
			if err := s.orders.InsertLine(ctx, line); err != nil {
				return s.translateRepoError(err)
			}
			drained = append(drained, item.ProductID)
		}

		// Drain only the snapshotted rows. The snapshot's row locks do not
		// cover a concurrent add of a product that was not in the cart yet;
		// a blanket clear would delete that row once it commits.
		if err := s.carts.RemoveItems(ctx, customerID, drained); err != nil {
			return s.translateRepoError(err)
		}

		created, err = s.orders.FindByID(ctx, orderID)
		if err != nil {
			return s.translateRepoError(err)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger(ctx, "order.created", map[string]any{
		"orderID": created.ID,
		"ownerID": customerID,
		"lines":   len(created.Lines),
	})
	return created, nil
}

// GetUserOrder returns the order with full line detail. An order owned by
// another customer fails with Forbidden, distinct from NotFound for a
// nonexistent id.
func (s *orderService) GetUserOrder(ctx context.Context, customerID, orderID int64) (domain.Order, error) {
	order, err := s.loadOwnedOrder(ctx, customerID, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// GetUserOrders returns every order owned by the customer, newest first.
func (s *orderService) GetUserOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	if customerID <= 0 {
		return nil, fmt.Errorf("%w: customer id must be positive", ErrOrderInvalidInput)
	}

	orders, err := s.orders.ListByOwner(ctx, customerID)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// CancelOrder cancels the customer's own OPENED order and cascades the
// cancellation to every line in the same transaction.
func (s *orderService) CancelOrder(ctx context.Context, customerID, orderID int64) (domain.Order, error) {
	var cancelled domain.Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.loadOwnedOrder(ctx, customerID, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderStatusOpened {
			return fmt.Errorf("%w: order is %s", ErrOrderInvalidState, order.Status)
		}

		if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil {
			return s.translateRepoError(err)
		}
		if err := s.refreshOrderStatus(ctx, orderID); err != nil {
			return err
		}

		cancelled, err = s.orders.FindByID(ctx, orderID)
		if err != nil {
			return s.translateRepoError(err)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger(ctx, "order.cancelled", map[string]any{
		"orderID": orderID,
		"ownerID": customerID,
	})
	return cancelled, nil
}

// ConfirmLineReceived records the customer's confirmation of receipt, moving
// the line DELIVERED -> RECEIVED and re-aggregating the order status in the
// same transaction.
func (s *orderService) ConfirmLineReceived(ctx context.Context, customerID, orderID, productID int64) (domain.Order, error) {
	var updated domain.Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.loadOwnedOrder(ctx, customerID, orderID); err != nil {
			return err
		}

		line, err := s.orders.FindLine(ctx, orderID, productID)
		if err != nil {
			if isRepoNotFound(err) {
				return fmt.Errorf("%w: line (%d, %d)", ErrOrderNotFound, orderID, productID)
			}
			return s.translateRepoError(err)
		}
		if line.Status != domain.LineStatusDelivered {
			return fmt.Errorf("%w: line is %s, receipt requires delivered", ErrOrderInvalidState, line.Status)
		}

		if err := s.orders.UpdateLineStatus(ctx, orderID, productID, domain.LineStatusReceived); err != nil {
			return s.translateRepoError(err)
		}
		if err := s.refreshOrderStatus(ctx, orderID); err != nil {
			return err
		}

		updated, err = s.orders.FindByID(ctx, orderID)
		if err != nil {
			return s.translateRepoError(err)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger(ctx, "order.line_received", map[string]any{
		"orderID":   orderID,
		"productID": productID,
	})
	return updated, nil
}

// GetSellerOrder projects the order to only the lines whose product belongs
// to the seller. A missing order or an empty projection fails with
// InvalidState so sellers never learn of orders they have no lines in.
func (s *orderService) GetSellerOrder(ctx context.Context, sellerID, orderID int64) (domain.Order, error) {
	if sellerID <= 0 || orderID <= 0 {
		return domain.Order{}, fmt.Errorf("%w: identifiers must be positive", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isRepoNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: seller has no lines in order %d", ErrOrderInvalidState, orderID)
		}
		return domain.Order{}, s.translateRepoError(err)
	}

	projected := order.LinesForSeller(sellerID)
	if len(projected) == 0 {
		return domain.Order{}, fmt.Errorf("%w: seller has no lines in order %d", ErrOrderInvalidState, orderID)
	}
	order.Lines = projected
	return order, nil
}

// GetSellerOrders returns every order containing at least one of the seller's
// lines, each projected to only those lines.
func (s *orderService) GetSellerOrders(ctx context.Context, sellerID int64) ([]domain.Order, error) {
	if sellerID <= 0 {
		return nil, fmt.Errorf("%w: seller id must be positive", ErrOrderInvalidInput)
	}

	orders, err := s.orders.ListContainingSeller(ctx, sellerID)
	if err != nil {
		return nil, s.translateRepoError(err)
	}

	projected := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		lines := order.LinesForSeller(sellerID)
		if len(lines) == 0 {
			continue
		}
		order.Lines = lines
		projected = append(projected, order)
	}
	return projected, nil
}

// GetSellerLineItem returns the single line only if it exists and its product
// belongs to the seller. A line owned by another seller fails with Forbidden,
// distinct from NotFound for a missing line.
func (s *orderService) GetSellerLineItem(ctx context.Context, sellerID, orderID, productID int64) (domain.OrderLine, error) {
	if sellerID <= 0 || orderID <= 0 || productID <= 0 {
		return domain.OrderLine{}, fmt.Errorf("%w: identifiers must be positive", ErrOrderInvalidInput)
	}

	line, err := s.orders.FindLine(ctx, orderID, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return domain.OrderLine{}, fmt.Errorf("%w: line (%d, %d)", ErrOrderNotFound, orderID, productID)
		}
		return domain.OrderLine{}, s.translateRepoError(err)
	}
	if line.SellerID != sellerID {
		return domain.OrderLine{}, fmt.Errorf("%w: line belongs to another seller", ErrOrderForbidden)
	}
	return line, nil
}

// UpdateLineItemStatus writes a new status onto the seller's line and
// re-aggregates the order status. Authorization, the write, and the
// aggregation share one transaction so the aggregate observes the write.
func (s *orderService) UpdateLineItemStatus(ctx context.Context, cmd UpdateLineStatusCommand) (domain.OrderLine, error) {
	if _, ok := domain.ParseLineStatus(string(cmd.Status)); !ok {
		return domain.OrderLine{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}

	var updated domain.OrderLine
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		line, err := s.GetSellerLineItem(ctx, cmd.SellerID, cmd.OrderID, cmd.ProductID)
		if err != nil {
			return err
		}

		if !domain.CanTransitionLine(line.Status, cmd.Status) {
			return fmt.Errorf("%w: cannot move line from %s to %s", ErrOrderInvalidState, line.Status, cmd.Status)
		}

		if line.Status != cmd.Status {
			if err := s.orders.UpdateLineStatus(ctx, cmd.OrderID, cmd.ProductID, cmd.Status); err != nil {
				return s.translateRepoError(err)
			}
			if err := s.refreshOrderStatus(ctx, cmd.OrderID); err != nil {
				return err
			}
		}

		line.Status = cmd.Status
		updated = line
		return nil
	})
	if err != nil {
		return domain.OrderLine{}, err
	}

	s.logger(ctx, "order.line_status_updated", map[string]any{
		"orderID":   cmd.OrderID,
		"productID": cmd.ProductID,
		"status":    string(cmd.Status),
	})
	return updated, nil
}

// AddLineItem increments an existing line's quantity or inserts a new PENDING
// line at the given quantity. Order-building phase only.
func (s *orderService) AddLineItem(ctx context.Context, orderID, productID int64, quantity int) (domain.OrderLine, error) {
	if quantity <= 0 {
		return domain.OrderLine{}, fmt.Errorf("%w: quantity can't be less than or equal to 0", ErrOrderInvalidInput)
	}

	var result domain.OrderLine
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.orders.FindByID(ctx, orderID); err != nil {
			if isRepoNotFound(err) {
				return fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
			}
			return s.translateRepoError(err)
		}
		if s.products != nil {
			exists, err := s.products.ExistsByID(ctx, productID)
			if err != nil {
				return s.translateRepoError(err)
			}
			if !exists {
				return fmt.Errorf("%w: product %d", ErrOrderNotFound, productID)
			}
		}

		_, err := s.orders.FindLine(ctx, orderID, productID)
		switch {
		case err == nil:
			if err := s.orders.AddLineQuantity(ctx, orderID, productID, quantity); err != nil {
				return s.translateRepoError(err)
			}
		case isRepoNotFound(err):
			line := domain.OrderLine{
				OrderID:   orderID,
				ProductID: productID,
				Quantity:  quantity,
				Status:    domain.LineStatusPending,
			}
			if err := s.orders.InsertLine(ctx, line); err != nil {
				return s.translateRepoError(err)
			}
		default:
			return s.translateRepoError(err)
		}

		result, err = s.orders.FindLine(ctx, orderID, productID)
		if err != nil {
			return s.translateRepoError(err)
		}
		return nil
	})
	if err != nil {
		return domain.OrderLine{}, err
	}
	return result, nil
}

// RemoveLineItem deletes a line from an order being built. Removing a
// nonexistent line fails with NotFound.
func (s *orderService) RemoveLineItem(ctx context.Context, orderID, productID int64) error {
	if err := s.orders.RemoveLine(ctx, orderID, productID); err != nil {
		if isRepoNotFound(err) {
			return fmt.Errorf("%w: line (%d, %d)", ErrOrderNotFound, orderID, productID)
		}
		return s.translateRepoError(err)
	}
	return nil
}

// SetLineStatus writes a new status onto any line without seller scoping.
// Operators use it for transitions outside the seller's reach, such as
// marking a shipped line DELIVERED. The transition table still applies.
func (s *orderService) SetLineStatus(ctx context.Context, orderID, productID int64, status domain.LineStatus) (domain.OrderLine, error) {
	if _, ok := domain.ParseLineStatus(string(status)); !ok {
		return domain.OrderLine{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
	}
	if orderID <= 0 || productID <= 0 {
		return domain.OrderLine{}, fmt.Errorf("%w: identifiers must be positive", ErrOrderInvalidInput)
	}

	var updated domain.OrderLine
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		line, err := s.orders.FindLine(ctx, orderID, productID)
		if err != nil {
			if isRepoNotFound(err) {
				return fmt.Errorf("%w: line (%d, %d)", ErrOrderNotFound, orderID, productID)
			}
			return s.translateRepoError(err)
		}

		if !domain.CanTransitionLine(line.Status, status) {
			return fmt.Errorf("%w: cannot move line from %s to %s", ErrOrderInvalidState, line.Status, status)
		}

		if line.Status != status {
			if err := s.orders.UpdateLineStatus(ctx, orderID, productID, status); err != nil {
				return s.translateRepoError(err)
			}
			if err := s.refreshOrderStatus(ctx, orderID); err != nil {
				return err
			}
		}

		line.Status = status
		updated = line
		return nil
	})
	if err != nil {
		return domain.OrderLine{}, err
	}

	s.logger(ctx, "order.line_status_updated", map[string]any{
		"orderID":   orderID,
		"productID": productID,
		"status":    string(status),
	})
	return updated, nil
}

// refreshOrderStatus is the single place order-level status changes as a side
// effect of line-level changes. OPENED advances to COMPLETED once every line
// is RECEIVED; CANCELLED cascades down to every line.
func (s *orderService) refreshOrderStatus(ctx context.Context, orderID int64) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return s.translateRepoError(err)
	}

	switch order.Status {
	case domain.OrderStatusOpened:
		if order.AllLinesHaveStatus(domain.LineStatusReceived) {
			if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusCompleted); err != nil {
				return s.translateRepoError(err)
			}
			s.logger(ctx, "order.completed", map[string]any{"orderID": orderID})
		}
	case domain.OrderStatusCancelled:
		if err := s.orders.UpdateAllLineStatuses(ctx, orderID, domain.LineStatusCancelled); err != nil {
			return s.translateRepoError(err)
		}
	}
	return nil
}

func (s *orderService) loadOwnedOrder(ctx context.Context, customerID, orderID int64) (domain.Order, error) {
	if customerID <= 0 || orderID <= 0 {
		return domain.Order{}, fmt.Errorf("%w: identifiers must be positive", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isRepoNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: order %d", ErrOrderNotFound, orderID)
		}
		return domain.Order{}, s.translateRepoError(err)
	}
	if order.OwnerID != customerID {
		return domain.Order{}, fmt.Errorf("%w: order belongs to another customer", ErrOrderForbidden)
	}
	return order, nil
}

func (s *orderService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrOrderNotFound
		case repoErr.IsConflict():
			return fmt.Errorf("%w: storage conflict", ErrOrderUnavailable)
		}
		return ErrOrderUnavailable
	}
	return ErrOrderUnavailable
}
