package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	domain "github.com/marketloop/api/internal/domain"
	"github.com/marketloop/api/internal/repositories"
)

const maxProductTitleLength = 200

var (
	errCatalogRepositoryRequired = errors.New("catalog service: product repository is required")
	errCatalogUsersRequired      = errors.New("catalog service: user repository is required")
)

// ErrCatalogInvalidInput indicates the caller supplied invalid input.
var ErrCatalogInvalidInput = errors.New("catalog service: invalid input")

// ErrCatalogNotFound indicates the requested product does not exist.
var ErrCatalogNotFound = errors.New("catalog service: not found")

// ErrCatalogConflict indicates the product title is already taken.
var ErrCatalogConflict = errors.New("catalog service: conflict")

// ErrCatalogUnavailable indicates the catalog service cannot fulfil the
// request due to backend issues.
var ErrCatalogUnavailable = errors.New("catalog service: unavailable")

// CatalogServiceDeps wires the repositories for catalog operations.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
	Users    repositories.UserRepository
	Logger   func(context.Context, string, map[string]any)
}

type catalogService struct {
	products repositories.ProductRepository
	users    repositories.UserRepository
	sanitize *bluemonday.Policy
	logger   func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errCatalogRepositoryRequired
	}
	if deps.Users == nil {
		return nil, errCatalogUsersRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		products: deps.Products,
		users:    deps.Users,
		sanitize: bluemonday.StrictPolicy(),
		logger:   logger,
	}, nil
}

// CreateProduct registers a new seller-owned product. Titles are stripped of
// markup and must be unique; cost is a positive integer amount.
func (s *catalogService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (domain.Product, error) {
	if cmd.SellerID <= 0 {
		return domain.Product{}, fmt.Errorf("%w: seller id must be positive", ErrCatalogInvalidInput)
	}
	if cmd.Cost <= 0 {
		return domain.Product{}, fmt.Errorf("%w: cost must be positive", ErrCatalogInvalidInput)
	}

	title := strings.TrimSpace(s.sanitize.Sanitize(cmd.Title))
	if title == "" {
		return domain.Product{}, fmt.Errorf("%w: title is required", ErrCatalogInvalidInput)
	}
	if len(title) > maxProductTitleLength {
		return domain.Product{}, fmt.Errorf("%w: title must be %d characters or fewer", ErrCatalogInvalidInput, maxProductTitleLength)
	}

	sellerExists, err := s.users.ExistsByID(ctx, cmd.SellerID)
	if err != nil {
		return domain.Product{}, s.translateRepoError(err)
	}
	if !sellerExists {
		return domain.Product{}, fmt.Errorf("%w: seller %d", ErrCatalogNotFound, cmd.SellerID)
	}

	taken, err := s.products.ExistsByTitle(ctx, title)
	if err != nil {
		return domain.Product{}, s.translateRepoError(err)
	}
	if taken {
		return domain.Product{}, fmt.Errorf("%w: title already taken", ErrCatalogConflict)
	}

	product, err := s.products.Insert(ctx, domain.Product{
		Title:    title,
		SellerID: cmd.SellerID,
		Cost:     cmd.Cost,
	})
	if err != nil {
		if isRepoConflict(err) {
			return domain.Product{}, fmt.Errorf("%w: title already taken", ErrCatalogConflict)
		}
		return domain.Product{}, s.translateRepoError(err)
	}

	s.logger(ctx, "catalog.product_created", map[string]any{
		"productID": product.ID,
		"sellerID":  product.SellerID,
	})
	return product, nil
}

// GetProduct loads a single product by id.
func (s *catalogService) GetProduct(ctx context.Context, productID int64) (domain.Product, error) {
	if productID <= 0 {
		return domain.Product{}, fmt.Errorf("%w: product id must be positive", ErrCatalogInvalidInput)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return domain.Product{}, s.translateRepoError(err)
	}
	return product, nil
}

// ListProducts returns the catalog, optionally narrowed by a title substring.
func (s *catalogService) ListProducts(ctx context.Context, titleFilter string) ([]domain.Product, error) {
	products, err := s.products.List(ctx, repositories.ProductListFilter{
		Title: strings.TrimSpace(titleFilter),
	})
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// ListSellerProducts returns every product owned by the seller.
func (s *catalogService) ListSellerProducts(ctx context.Context, sellerID int64) ([]domain.Product, error) {
	if sellerID <= 0 {
		return nil, fmt.Errorf("%w: seller id must be positive", ErrCatalogInvalidInput)
	}

	products, err := s.products.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

func (s *catalogService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCatalogNotFound
		case repoErr.IsConflict():
			return ErrCatalogConflict
		}
		return ErrCatalogUnavailable
	}
	return ErrCatalogUnavailable
}
