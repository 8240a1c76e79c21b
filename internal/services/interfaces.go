package services

import (
	"context"

	domain "github.com/marketloop/api/internal/domain"
)

// UserService manages account registration and credential checks.
type UserService interface {
	Register(ctx context.Context, cmd RegisterUserCommand) (domain.User, error)
	Authenticate(ctx context.Context, username, password string) (domain.User, error)
	GetUser(ctx context.Context, userID int64) (domain.User, error)
	ListUsers(ctx context.Context, usernameFilter string) ([]domain.User, error)
}

// RegisterUserCommand carries the input for account creation.
type RegisterUserCommand struct {
	Username string
	Password string
	Role     domain.UserRole
}

// CatalogService manages seller-owned product records. Products are immutable
// after creation.
type CatalogService interface {
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (domain.Product, error)
	GetProduct(ctx context.Context, productID int64) (domain.Product, error)
	ListProducts(ctx context.Context, titleFilter string) ([]domain.Product, error)
	ListSellerProducts(ctx context.Context, sellerID int64) ([]domain.Product, error)
}

// CreateProductCommand carries the input for product creation.
type CreateProductCommand struct {
	SellerID int64
	Title    string
	Cost     int64
}

// CartService maintains the customer's pre-order basket.
type CartService interface {
	GetContent(ctx context.Context, userID int64) ([]domain.CartItem, error)
	AddItem(ctx context.Context, userID, productID int64) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	ClearAll(ctx context.Context, userID int64) error
	IsInCart(ctx context.Context, userID, productID int64) (bool, error)
}

// OrderService converts carts to orders, exposes role-scoped projections, and
// drives line and order status transitions.
type OrderService interface {
	CreateOrder(ctx context.Context, customerID int64) (domain.Order, error)

	GetUserOrder(ctx context.Context, customerID, orderID int64) (domain.Order, error)
	GetUserOrders(ctx context.Context, customerID int64) ([]domain.Order, error)
	CancelOrder(ctx context.Context, customerID, orderID int64) (domain.Order, error)
	ConfirmLineReceived(ctx context.Context, customerID, orderID, productID int64) (domain.Order, error)

	GetSellerOrder(ctx context.Context, sellerID, orderID int64) (domain.Order, error)
	GetSellerOrders(ctx context.Context, sellerID int64) ([]domain.Order, error)
	GetSellerLineItem(ctx context.Context, sellerID, orderID, productID int64) (domain.OrderLine, error)
	UpdateLineItemStatus(ctx context.Context, cmd UpdateLineStatusCommand) (domain.OrderLine, error)

	AddLineItem(ctx context.Context, orderID, productID int64, quantity int) (domain.OrderLine, error)
	RemoveLineItem(ctx context.Context, orderID, productID int64) error
	SetLineStatus(ctx context.Context, orderID, productID int64, status domain.LineStatus) (domain.OrderLine, error)
}

// UpdateLineStatusCommand carries a seller's line status transition request.
type UpdateLineStatusCommand struct {
	SellerID  int64
	OrderID   int64
	ProductID int64
	Status    domain.LineStatus
}
