package services

import (
	"context"
	"errors"

	domain "github.com/marketloop/api/internal/domain"
	"github.com/marketloop/api/internal/repositories"
)

type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string       { return "repository error stub" }
func (e *repositoryErrorStub) IsNotFound() bool    { return e.notFound }
func (e *repositoryErrorStub) IsConflict() bool    { return e.conflict }
func (e *repositoryErrorStub) IsUnavailable() bool { return e.unavailable }

var _ repositories.RepositoryError = (*repositoryErrorStub)(nil)

type stubUserRepo struct {
	insertFunc           func(ctx context.Context, user domain.User) (domain.User, error)
	findByIDFunc         func(ctx context.Context, userID int64) (domain.User, error)
	findByUsernameFunc   func(ctx context.Context, username string) (domain.User, error)
	existsByIDFunc       func(ctx context.Context, userID int64) (bool, error)
	existsByUsernameFunc func(ctx context.Context, username string) (bool, error)
	listFunc             func(ctx context.Context, filter repositories.UserListFilter) ([]domain.User, error)
}

func (s *stubUserRepo) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	if s.insertFunc == nil {
		return domain.User{}, errors.New("unexpected Insert")
	}
	return s.insertFunc(ctx, user)
}

func (s *stubUserRepo) FindByID(ctx context.Context, userID int64) (domain.User, error) {
	if s.findByIDFunc == nil {
		return domain.User{}, errors.New("unexpected FindByID")
	}
	return s.findByIDFunc(ctx, userID)
}

func (s *stubUserRepo) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	if s.findByUsernameFunc == nil {
		return domain.User{}, errors.New("unexpected FindByUsername")
	}
	return s.findByUsernameFunc(ctx, username)
}

func (s *stubUserRepo) ExistsByID(ctx context.Context, userID int64) (bool, error) {
	if s.existsByIDFunc == nil {
		return false, errors.New("unexpected ExistsByID")
	}
	return s.existsByIDFunc(ctx, userID)
}

func (s *stubUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if s.existsByUsernameFunc == nil {
		return false, errors.New("unexpected ExistsByUsername")
	}
	return s.existsByUsernameFunc(ctx, username)
}

func (s *stubUserRepo) List(ctx context.Context, filter repositories.UserListFilter) ([]domain.User, error) {
	if s.listFunc == nil {
		return nil, errors.New("unexpected List")
	}
	return s.listFunc(ctx, filter)
}

type stubProductRepo struct {
	insertFunc        func(ctx context.Context, product domain.Product) (domain.Product, error)
	findByIDFunc      func(ctx context.Context, productID int64) (domain.Product, error)
	existsByIDFunc    func(ctx context.Context, productID int64) (bool, error)
	existsByTitleFunc func(ctx context.Context, title string) (bool, error)
	listFunc          func(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error)
	listBySellerFunc  func(ctx context.Context, sellerID int64) ([]domain.Product, error)
}

func (s *stubProductRepo) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if s.insertFunc == nil {
		return domain.Product{}, errors.New("unexpected Insert")
	}
	return s.insertFunc(ctx, product)
}

func (s *stubProductRepo) FindByID(ctx context.Context, productID int64) (domain.Product, error) {
	if s.findByIDFunc == nil {
		return domain.Product{}, errors.New("unexpected FindByID")
	}
	return s.findByIDFunc(ctx, productID)
}

func (s *stubProductRepo) ExistsByID(ctx context.Context, productID int64) (bool, error) {
	if s.existsByIDFunc == nil {
		return false, errors.New("unexpected ExistsByID")
	}
	return s.existsByIDFunc(ctx, productID)
}

func (s *stubProductRepo) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	if s.existsByTitleFunc == nil {
		return false, errors.New("unexpected ExistsByTitle")
	}
	return s.existsByTitleFunc(ctx, title)
}

func (s *stubProductRepo) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	if s.listFunc == nil {
		return nil, errors.New("unexpected List")
	}
	return s.listFunc(ctx, filter)
}

func (s *stubProductRepo) ListBySeller(ctx context.Context, sellerID int64) ([]domain.Product, error) {
	if s.listBySellerFunc == nil {
		return nil, errors.New("unexpected ListBySeller")
	}
	return s.listBySellerFunc(ctx, sellerID)
}

type stubCartRepo struct {
	listItemsFunc   func(ctx context.Context, userID int64) ([]domain.CartItem, error)
	addItemFunc     func(ctx context.Context, userID, productID int64) error
	removeItemFunc  func(ctx context.Context, userID, productID int64) error
	removeItemsFunc func(ctx context.Context, userID int64, productIDs []int64) error
	clearFunc       func(ctx context.Context, userID int64) error
	containsFunc    func(ctx context.Context, userID, productID int64) (bool, error)
}

func (s *stubCartRepo) ListItems(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	if s.listItemsFunc == nil {
		return nil, errors.New("unexpected ListItems")
	}
	return s.listItemsFunc(ctx, userID)
}

func (s *stubCartRepo) AddItem(ctx context.Context, userID, productID int64) error {
	if s.addItemFunc == nil {
		return errors.New("unexpected AddItem")
	}
	return s.addItemFunc(ctx, userID, productID)
}

func (s *stubCartRepo) RemoveItem(ctx context.Context, userID, productID int64) error {
	if s.removeItemFunc == nil {
		return errors.New("unexpected RemoveItem")
	}
	return s.removeItemFunc(ctx, userID, productID)
}

func (s *stubCartRepo) RemoveItems(ctx context.Context, userID int64, productIDs []int64) error {
	if s.removeItemsFunc == nil {
		return errors.New("unexpected RemoveItems")
	}
	return s.removeItemsFunc(ctx, userID, productIDs)
}

func (s *stubCartRepo) Clear(ctx context.Context, userID int64) error {
	if s.clearFunc == nil {
		return errors.New("unexpected Clear")
	}
	return s.clearFunc(ctx, userID)
}

func (s *stubCartRepo) Contains(ctx context.Context, userID, productID int64) (bool, error) {
	if s.containsFunc == nil {
		return false, errors.New("unexpected Contains")
	}
	return s.containsFunc(ctx, userID, productID)
}

type stubOrderRepo struct {
	insertFunc                func(ctx context.Context, ownerID int64, status domain.OrderStatus) (int64, error)
	insertLineFunc            func(ctx context.Context, line domain.OrderLine) error
	findByIDFunc              func(ctx context.Context, orderID int64) (domain.Order, error)
	listByOwnerFunc           func(ctx context.Context, ownerID int64) ([]domain.Order, error)
	listContainingSellerFunc  func(ctx context.Context, sellerID int64) ([]domain.Order, error)
	findLineFunc              func(ctx context.Context, orderID, productID int64) (domain.OrderLine, error)
	updateStatusFunc          func(ctx context.Context, orderID int64, status domain.OrderStatus) error
	updateLineStatusFunc      func(ctx context.Context, orderID, productID int64, status domain.LineStatus) error
	updateAllLineStatusesFunc func(ctx context.Context, orderID int64, status domain.LineStatus) error
	addLineQuantityFunc       func(ctx context.Context, orderID, productID int64, quantity int) error
	removeLineFunc            func(ctx context.Context, orderID, productID int64) error
}

func (s *stubOrderRepo) Insert(ctx context.Context, ownerID int64, status domain.OrderStatus) (int64, error) {
	if s.insertFunc == nil {
		return 0, errors.New("unexpected Insert")
	}
	return s.insertFunc(ctx, ownerID, status)
}

func (s *stubOrderRepo) InsertLine(ctx context.Context, line domain.OrderLine) error {
	if s.insertLineFunc == nil {
		return errors.New("unexpected InsertLine")
	}
	return s.insertLineFunc(ctx, line)
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID int64) (domain.Order, error) {
	if s.findByIDFunc == nil {
		return domain.Order{}, errors.New("unexpected FindByID")
	}
	return s.findByIDFunc(ctx, orderID)
}

func (s *stubOrderRepo) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Order, error) {
	if s.listByOwnerFunc == nil {
		return nil, errors.New("unexpected ListByOwner")
	}
	return s.listByOwnerFunc(ctx, ownerID)
}

func (s *stubOrderRepo) ListContainingSeller(ctx context.Context, sellerID int64) ([]domain.Order, error) {
	if s.listContainingSellerFunc == nil {
		return nil, errors.New("unexpected ListContainingSeller")
	}
	return s.listContainingSellerFunc(ctx, sellerID)
}

func (s *stubOrderRepo) FindLine(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
	if s.findLineFunc == nil {
		return domain.OrderLine{}, errors.New("unexpected FindLine")
	}
	return s.findLineFunc(ctx, orderID, productID)
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	if s.updateStatusFunc == nil {
		return errors.New("unexpected UpdateStatus")
	}
	return s.updateStatusFunc(ctx, orderID, status)
}

func (s *stubOrderRepo) UpdateLineStatus(ctx context.Context, orderID, productID int64, status domain.LineStatus) error {
	if s.updateLineStatusFunc == nil {
		return errors.New("unexpected UpdateLineStatus")
	}
	return s.updateLineStatusFunc(ctx, orderID, productID, status)
}

func (s *stubOrderRepo) UpdateAllLineStatuses(ctx context.Context, orderID int64, status domain.LineStatus) error {
	if s.updateAllLineStatusesFunc == nil {
		return errors.New("unexpected UpdateAllLineStatuses")
	}
	return s.updateAllLineStatusesFunc(ctx, orderID, status)
}

func (s *stubOrderRepo) AddLineQuantity(ctx context.Context, orderID, productID int64, quantity int) error {
	if s.addLineQuantityFunc == nil {
		return errors.New("unexpected AddLineQuantity")
	}
	return s.addLineQuantityFunc(ctx, orderID, productID, quantity)
}

func (s *stubOrderRepo) RemoveLine(ctx context.Context, orderID, productID int64) error {
	if s.removeLineFunc == nil {
		return errors.New("unexpected RemoveLine")
	}
	return s.removeLineFunc(ctx, orderID, productID)
}

var (
	_ repositories.UserRepository    = (*stubUserRepo)(nil)
	_ repositories.ProductRepository = (*stubProductRepo)(nil)
	_ repositories.CartRepository    = (*stubCartRepo)(nil)
	_ repositories.OrderRepository   = (*stubOrderRepo)(nil)
)
