package domain

import (
	"time"
)

// UserRole enumerates the access roles assignable to an account.
type UserRole string

const (
	// RoleCustomer identifies buyers who own carts and orders.
	RoleCustomer UserRole = "customer"
	// RoleSeller identifies accounts that list products and fulfil order lines.
	RoleSeller UserRole = "seller"
	// RoleAdmin identifies operator accounts.
	RoleAdmin UserRole = "admin"
)

// ParseUserRole maps a raw string onto a known role.
func ParseUserRole(raw string) (UserRole, bool) {
	switch UserRole(raw) {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return UserRole(raw), true
	default:
		return "", false
	}
}

// User is an account record. The password is stored only as a bcrypt hash.
type User struct {
	ID             int64
	Username       string
	HashedPassword string
	Role           UserRole
	Disabled       bool
	CreatedAt      time.Time
}

// Product is a catalog entry owned by a seller. Products are immutable after
// creation; the engine only ever reads them.
type Product struct {
	ID        int64
	Title     string
	SellerID  int64
	Cost      int64
	CreatedAt time.Time
}

// CartEntry is one row of a customer's staging basket, keyed by
// (user, product). Quantity is always >= 1; removal deletes the row.
type CartEntry struct {
	UserID    int64
	ProductID int64
	Quantity  int
}

// CartItem is a cart entry enriched with the referenced product's detail.
type CartItem struct {
	ProductID int64
	Title     string
	Cost      int64
	SellerID  int64
	Quantity  int
}

// OrderStatus is the order-level lifecycle state. It is a projection of the
// line-item statuses maintained exclusively by the order service.
type OrderStatus string

const (
	// OrderStatusOpened is the initial state of every order.
	OrderStatusOpened OrderStatus = "opened"
	// OrderStatusCompleted is reached once every line has been received.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled is absorbing; it cascades to all lines.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus maps a raw string onto a known order status.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	switch OrderStatus(raw) {
	case OrderStatusOpened, OrderStatusCompleted, OrderStatusCancelled:
		return OrderStatus(raw), true
	default:
		return "", false
	}
}

// LineStatus is the per-line fulfilment state.
type LineStatus string

const (
	// LineStatusPending is the initial state of a line created from a cart entry.
	LineStatusPending LineStatus = "pending"
	// LineStatusReadyToSend is set by the seller when the item is packed.
	LineStatusReadyToSend LineStatus = "ready_to_send"
	// LineStatusShipping is set by the seller when the item is handed to a carrier.
	LineStatusShipping LineStatus = "shipping"
	// LineStatusDelivered marks carrier-confirmed delivery.
	LineStatusDelivered LineStatus = "delivered"
	// LineStatusReceived is the customer's confirmation of receipt.
	LineStatusReceived LineStatus = "received"
	// LineStatusCancelled is absorbing.
	LineStatusCancelled LineStatus = "cancelled"
)

// ParseLineStatus maps a raw string onto a known line status.
func ParseLineStatus(raw string) (LineStatus, bool) {
	switch LineStatus(raw) {
	case LineStatusPending, LineStatusReadyToSend, LineStatusShipping,
		LineStatusDelivered, LineStatusReceived, LineStatusCancelled:
		return LineStatus(raw), true
	default:
		return "", false
	}
}

var lineStatusTransitions = map[LineStatus][]LineStatus{
	LineStatusPending:     {LineStatusReadyToSend, LineStatusCancelled},
	LineStatusReadyToSend: {LineStatusShipping, LineStatusCancelled},
	LineStatusShipping:    {LineStatusDelivered, LineStatusCancelled},
	LineStatusDelivered:   {LineStatusReceived, LineStatusCancelled},
}

// CanTransitionLine reports whether a line may move from current to target.
// Received and cancelled are terminal.
func CanTransitionLine(current, target LineStatus) bool {
	if current == target {
		return true
	}
	for _, next := range lineStatusTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// OrderLine is one product-quantity entry within an order. Quantity is a
// snapshot taken from the cart at order creation and never changes afterwards.
// Title, Cost and SellerID are denormalised from the referenced product when
// the line is loaded.
type OrderLine struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	Status    LineStatus
	Title     string
	Cost      int64
	SellerID  int64
}

// Order is an order header plus its owned line collection. The line set is
// fixed at creation; only statuses mutate afterwards.
type Order struct {
	ID        int64
	OwnerID   int64
	Status    OrderStatus
	CreatedAt time.Time
	Lines     []OrderLine
}

// LinesForSeller returns a new slice holding only the lines whose product
// belongs to the given seller. The receiver is not modified.
func (o Order) LinesForSeller(sellerID int64) []OrderLine {
	filtered := make([]OrderLine, 0, len(o.Lines))
	for _, line := range o.Lines {
		if line.SellerID == sellerID {
			filtered = append(filtered, line)
		}
	}
	return filtered
}

// AllLinesHaveStatus reports whether every line carries the given status.
// An order with no lines does not satisfy any status.
func (o Order) AllLinesHaveStatus(status LineStatus) bool {
	if len(o.Lines) == 0 {
		return false
	}
	for _, line := range o.Lines {
		if line.Status != status {
			return false
		}
	}
	return true
}
