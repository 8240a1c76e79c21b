package services

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/marketloop/api/internal/domain"
	"github.com/marketloop/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: cart repository is required")
	errCartCatalogRequired    = errors.New("cart service: product repository is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartNotFound indicates the referenced product or cart entry does not exist.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due
// to backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// CartServiceDeps wires the repositories for cart operations.
type CartServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Logger   func(context.Context, string, map[string]any)
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Products == nil {
		return nil, errCartCatalogRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		logger:   logger,
	}, nil
}

// GetContent returns every cart entry for the user enriched with product
// detail. An empty cart yields an empty list, never an error.
func (s *cartService) GetContent(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", ErrCartInvalidInput)
	}

	items, err := s.carts.ListItems(ctx, userID)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, nil
}

// AddItem records one more unit of the product in the user's cart. The first
// add inserts a row with quantity 1; repeated adds increment cumulatively.
func (s *cartService) AddItem(ctx context.Context, userID, productID int64) error {
	if userID <= 0 || productID <= 0 {
		return fmt.Errorf("%w: identifiers must be positive", ErrCartInvalidInput)
	}

	exists, err := s.products.ExistsByID(ctx, productID)
	if err != nil {
		return s.translateRepoError(err)
	}
	if !exists {
		return fmt.Errorf("%w: product %d", ErrCartNotFound, productID)
	}

	if err := s.carts.AddItem(ctx, userID, productID); err != nil {
		return s.translateRepoError(err)
	}

	s.logger(ctx, "cart.item_added", map[string]any{
		"userID":    userID,
		"productID": productID,
	})
	return nil
}

// RemoveItem deletes the product's entry from the user's cart regardless of
// its quantity.
func (s *cartService) RemoveItem(ctx context.Context, userID, productID int64) error {
	if userID <= 0 || productID <= 0 {
		return fmt.Errorf("%w: identifiers must be positive", ErrCartInvalidInput)
	}

	inCart, err := s.carts.Contains(ctx, userID, productID)
	if err != nil {
		return s.translateRepoError(err)
	}
	if !inCart {
		return fmt.Errorf("%w: product is not in cart", ErrCartNotFound)
	}

	if err := s.carts.RemoveItem(ctx, userID, productID); err != nil {
		return s.translateRepoError(err)
	}

	s.logger(ctx, "cart.item_removed", map[string]any{
		"userID":    userID,
		"productID": productID,
	})
	return nil
}

// ClearAll deletes every entry of the user's cart. Clearing an empty cart is
// not an error.
func (s *cartService) ClearAll(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user id must be positive", ErrCartInvalidInput)
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

// IsInCart reports whether the user's cart holds the product.
func (s *cartService) IsInCart(ctx context.Context, userID, productID int64) (bool, error) {
	if userID <= 0 || productID <= 0 {
		return false, fmt.Errorf("%w: identifiers must be positive", ErrCartInvalidInput)
	}

	inCart, err := s.carts.Contains(ctx, userID, productID)
	if err != nil {
		return false, s.translateRepoError(err)
	}
	return inCart, nil
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrCartNotFound
		}
		return ErrCartUnavailable
	}
	return ErrCartUnavailable
}
