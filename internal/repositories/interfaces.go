package repositories

import (
	"context"

	domain "github.com/marketloop/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for
// dependency injection. The embedded UnitOfWork groups repository calls in a
// single storage transaction.
type Registry interface {
	Close() error

	Users() UserRepository
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with the
// categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork runs fn inside a transactional boundary. Repository methods
// invoked with the context passed to fn observe the transaction's own writes
// and commit or roll back together.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository stores account records.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, userID int64) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	ExistsByID(ctx context.Context, userID int64) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	List(ctx context.Context, filter UserListFilter) ([]domain.User, error)
}

// ProductRepository stores catalog entries. The order engine only reads them.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, productID int64) (domain.Product, error)
	ExistsByID(ctx context.Context, productID int64) (bool, error)
	ExistsByTitle(ctx context.Context, title string) (bool, error)
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]domain.Product, error)
}

// CartRepository owns the per-user staging basket. AddItem must increment
// atomically at the store layer so concurrent adds for the same
// (user, product) pair never lose an update.
type CartRepository interface {
	ListItems(ctx context.Context, userID int64) ([]domain.CartItem, error)
	AddItem(ctx context.Context, userID, productID int64) error
	RemoveItem(ctx context.Context, userID, productID int64) error
	// RemoveItems deletes exactly the given products from the user's cart.
	// Order creation drains with this rather than Clear so an add committed
	// after the cart snapshot survives for the next order.
	RemoveItems(ctx context.Context, userID int64, productIDs []int64) error
	Clear(ctx context.Context, userID int64) error
	Contains(ctx context.Context, userID, productID int64) (bool, error)
}

// OrderRepository persists order headers and their owned lines. Loads return
// lines enriched with product title, cost and seller.
type OrderRepository interface {
	Insert(ctx context.Context, ownerID int64, status domain.OrderStatus) (int64, error)
	InsertLine(ctx context.Context, line domain.OrderLine) error
	FindByID(ctx context.Context, orderID int64) (domain.Order, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Order, error)
	ListContainingSeller(ctx context.Context, sellerID int64) ([]domain.Order, error)
	FindLine(ctx context.Context, orderID, productID int64) (domain.OrderLine, error)
	UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
	UpdateLineStatus(ctx context.Context, orderID, productID int64, status domain.LineStatus) error
	UpdateAllLineStatuses(ctx context.Context, orderID int64, status domain.LineStatus) error
	AddLineQuantity(ctx context.Context, orderID, productID int64, quantity int) error
	RemoveLine(ctx context.Context, orderID, productID int64) error
}

// UserListFilter narrows user listings; a non-empty Username matches as a
// substring.
type UserListFilter struct {
	Username string
}

// ProductListFilter narrows product listings; a non-empty Title matches as a
// substring.
type ProductListFilter struct {
	Title string
}
