package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/marketloop/api/internal/platform/auth"
	"github.com/marketloop/api/internal/platform/config"
	"github.com/marketloop/api/internal/platform/requestctx"
	"github.com/marketloop/api/internal/repositories"
	"github.com/marketloop/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled via dependency injection in
// NewContainer.
type Services struct {
	Users   services.UserService
	Catalog services.CatalogService
	Cart    services.CartService
	Orders  services.OrderService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring
// provides the Postgres registry, while tests can supply in-memory
// registries.
func NewContainer(cfg config.Config, reg repositories.Registry, logger *zap.Logger) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	if logger == nil {
		logger = requestctx.NoopLogger()
	}

	svc, err := buildServices(reg, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases repository resources such as the connection pool.
func (c *Container) Close() error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close()
}

func buildServices(reg repositories.Registry, logger *zap.Logger) (Services, error) {
	var svc Services

	userSvc, err := services.NewUserService(services.UserServiceDeps{
		Users:          reg.Users(),
		HashPassword:   auth.HashPassword,
		VerifyPassword: auth.VerifyPassword,
		Logger:         eventLogger(logger.Named("users")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build user service: %w", err)
	}
	svc.Users = userSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
		Users:    reg.Users(),
		Logger:   eventLogger(logger.Named("catalog")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:    reg.Carts(),
		Products: reg.Products(),
		Logger:   eventLogger(logger.Named("cart")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   reg.Orders(),
		Carts:    reg.Carts(),
		Products: reg.Products(),
		Tx:       reg,
		Logger:   eventLogger(logger.Named("orders")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	return svc, nil
}

// eventLogger adapts a zap logger to the callback shape services expect,
// stamping the trace id from context when present.
func eventLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(ctx context.Context, event string, fields map[string]any) {
		zapFields := make([]zap.Field, 0, len(fields)+1)
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		if traceID := requestctx.TraceID(ctx); traceID != "" {
			zapFields = append(zapFields, zap.String("traceId", traceID))
		}
		logger.Info(event, zapFields...)
	}
}
