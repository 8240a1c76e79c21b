package handlers

import (
	"context"
	"errors"

	domain "github.com/marketloop/api/internal/domain"
	"github.com/marketloop/api/internal/platform/auth"
	"github.com/marketloop/api/internal/services"
)

type stubVerifier struct {
	identity *auth.Identity
	err      error
}

func (s *stubVerifier) Verify(string) (*auth.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func newStubAuthenticator(identity *auth.Identity) *auth.Authenticator {
	return auth.NewAuthenticator(&stubVerifier{identity: identity})
}

type stubOrderService struct {
	createOrderFunc          func(ctx context.Context, customerID int64) (domain.Order, error)
	getUserOrderFunc         func(ctx context.Context, customerID, orderID int64) (domain.Order, error)
	getUserOrdersFunc        func(ctx context.Context, customerID int64) ([]domain.Order, error)
	cancelOrderFunc          func(ctx context.Context, customerID, orderID int64) (domain.Order, error)
	confirmLineReceivedFunc  func(ctx context.Context, customerID, orderID, productID int64) (domain.Order, error)
	getSellerOrderFunc       func(ctx context.Context, sellerID, orderID int64) (domain.Order, error)
	getSellerOrdersFunc      func(ctx context.Context, sellerID int64) ([]domain.Order, error)
	getSellerLineItemFunc    func(ctx context.Context, sellerID, orderID, productID int64) (domain.OrderLine, error)
	updateLineItemStatusFunc func(ctx context.Context, cmd services.UpdateLineStatusCommand) (domain.OrderLine, error)
	addLineItemFunc          func(ctx context.Context, orderID, productID int64, quantity int) (domain.OrderLine, error)
	removeLineItemFunc       func(ctx context.Context, orderID, productID int64) error
	setLineStatusFunc        func(ctx context.Context, orderID, productID int64, status domain.LineStatus) (domain.OrderLine, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, customerID int64) (domain.Order, error) {
	if s.createOrderFunc == nil {
		return domain.Order{}, errors.New("unexpected CreateOrder")
	}
	return s.createOrderFunc(ctx, customerID)
}

func (s *stubOrderService) GetUserOrder(ctx context.Context, customerID, orderID int64) (domain.Order, error) {
	if s.getUserOrderFunc == nil {
		return domain.Order{}, errors.New("unexpected GetUserOrder")
	}
	return s.getUserOrderFunc(ctx, customerID, orderID)
}

func (s *stubOrderService) GetUserOrders(ctx context.Context, customerID int64) ([]domain.Order, error) {
	if s.getUserOrdersFunc == nil {
		return nil, errors.New("unexpected GetUserOrders")
	}
	return s.getUserOrdersFunc(ctx, customerID)
}

func (s *stubOrderService) CancelOrder(ctx context.Context, customerID, orderID int64) (domain.Order, error) {
	if s.cancelOrderFunc == nil {
		return domain.Order{}, errors.New("unexpected CancelOrder")
	}
	return s.cancelOrderFunc(ctx, customerID, orderID)
}

func (s *stubOrderService) ConfirmLineReceived(ctx context.Context, customerID, orderID, productID int64) (domain.Order, error) {
	if s.confirmLineReceivedFunc == nil {
		return domain.Order{}, errors.New("unexpected ConfirmLineReceived")
	}
	return s.confirmLineReceivedFunc(ctx, customerID, orderID, productID)
}

func (s *stubOrderService) GetSellerOrder(ctx context.Context, sellerID, orderID int64) (domain.Order, error) {
	if s.getSellerOrderFunc == nil {
		return domain.Order{}, errors.New("unexpected GetSellerOrder")
	}
	return s.getSellerOrderFunc(ctx, sellerID, orderID)
}

func (s *stubOrderService) GetSellerOrders(ctx context.Context, sellerID int64) ([]domain.Order, error) {
	if s.getSellerOrdersFunc == nil {
		return nil, errors.New("unexpected GetSellerOrders")
	}
	return s.getSellerOrdersFunc(ctx, sellerID)
}

func (s *stubOrderService) GetSellerLineItem(ctx context.Context, sellerID, orderID, productID int64) (domain.OrderLine, error) {
	if s.getSellerLineItemFunc == nil {
		return domain.OrderLine{}, errors.New("unexpected GetSellerLineItem")
	}
	return s.getSellerLineItemFunc(ctx, sellerID, orderID, productID)
}

func (s *stubOrderService) UpdateLineItemStatus(ctx context.Context, cmd services.UpdateLineStatusCommand) (domain.OrderLine, error) {
	if s.updateLineItemStatusFunc == nil {
		return domain.OrderLine{}, errors.New("unexpected UpdateLineItemStatus")
	}
	return s.updateLineItemStatusFunc(ctx, cmd)
}

func (s *stubOrderService) AddLineItem(ctx context.Context, orderID, productID int64, quantity int) (domain.OrderLine, error) {
	if s.addLineItemFunc == nil {
		return domain.OrderLine{}, errors.New("unexpected AddLineItem")
	}
	return s.addLineItemFunc(ctx, orderID, productID, quantity)
}

func (s *stubOrderService) RemoveLineItem(ctx context.Context, orderID, productID int64) error {
	if s.removeLineItemFunc == nil {
		return errors.New("unexpected RemoveLineItem")
	}
	return s.removeLineItemFunc(ctx, orderID, productID)
}

func (s *stubOrderService) SetLineStatus(ctx context.Context, orderID, productID int64, status domain.LineStatus) (domain.OrderLine, error) {
	if s.setLineStatusFunc == nil {
		return domain.OrderLine{}, errors.New("unexpected SetLineStatus")
	}
	return s.setLineStatusFunc(ctx, orderID, productID, status)
}

type stubCartService struct {
	getContentFunc func(ctx context.Context, userID int64) ([]domain.CartItem, error)
	addItemFunc    func(ctx context.Context, userID, productID int64) error
	removeItemFunc func(ctx context.Context, userID, productID int64) error
	clearAllFunc   func(ctx context.Context, userID int64) error
	isInCartFunc   func(ctx context.Context, userID, productID int64) (bool, error)
}

func (s *stubCartService) GetContent(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	if s.getContentFunc == nil {
		return nil, errors.New("unexpected GetContent")
	}
	return s.getContentFunc(ctx, userID)
}

func (s *stubCartService) AddItem(ctx context.Context, userID, productID int64) error {
	if s.addItemFunc == nil {
		return errors.New("unexpected AddItem")
	}
	return s.addItemFunc(ctx, userID, productID)
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	if s.removeItemFunc == nil {
		return errors.New("unexpected RemoveItem")
	}
	return s.removeItemFunc(ctx, userID, productID)
}

func (s *stubCartService) ClearAll(ctx context.Context, userID int64) error {
	if s.clearAllFunc == nil {
		return errors.New("unexpected ClearAll")
	}
	return s.clearAllFunc(ctx, userID)
}

func (s *stubCartService) IsInCart(ctx context.Context, userID, productID int64) (bool, error) {
	if s.isInCartFunc == nil {
		return false, errors.New("unexpected IsInCart")
	}
	return s.isInCartFunc(ctx, userID, productID)
}

type stubUserService struct {
	registerFunc     func(ctx context.Context, cmd services.RegisterUserCommand) (domain.User, error)
	authenticateFunc func(ctx context.Context, username, password string) (domain.User, error)
	getUserFunc      func(ctx context.Context, userID int64) (domain.User, error)
	listUsersFunc    func(ctx context.Context, usernameFilter string) ([]domain.User, error)
}

func (s *stubUserService) Register(ctx context.Context, cmd services.RegisterUserCommand) (domain.User, error) {
	if s.registerFunc == nil {
		return domain.User{}, errors.New("unexpected Register")
	}
	return s.registerFunc(ctx, cmd)
}

func (s *stubUserService) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	if s.authenticateFunc == nil {
		return domain.User{}, errors.New("unexpected Authenticate")
	}
	return s.authenticateFunc(ctx, username, password)
}

func (s *stubUserService) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	if s.getUserFunc == nil {
		return domain.User{}, errors.New("unexpected GetUser")
	}
	return s.getUserFunc(ctx, userID)
}

func (s *stubUserService) ListUsers(ctx context.Context, usernameFilter string) ([]domain.User, error) {
	if s.listUsersFunc == nil {
		return nil, errors.New("unexpected ListUsers")
	}
	return s.listUsersFunc(ctx, usernameFilter)
}

var (
	_ services.OrderService = (*stubOrderService)(nil)
	_ services.CartService  = (*stubCartService)(nil)
	_ services.UserService  = (*stubUserService)(nil)
)
