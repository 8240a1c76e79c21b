package postgres

import (
	"database/sql"
	"errors"

	"github.com/marketloop/api/internal/repositories"
)

// Registry bundles the Postgres repositories behind the repositories.Registry
// contract. All repositories share one connection pool and one UnitOfWork.
type Registry struct {
	*store

	users    *UserRepository
	products *ProductRepository
	carts    *CartRepository
	orders   *OrderRepository
}

// NewRegistry builds the repository registry on top of an open connection.
func NewRegistry(db *sql.DB) (*Registry, error) {
	if db == nil {
		return nil, errors.New("postgres: db handle is required")
	}
	s := &store{db: db}
	return &Registry{
		store:    s,
		users:    &UserRepository{store: s},
		products: &ProductRepository{store: s},
		carts:    &CartRepository{store: s},
		orders:   &OrderRepository{store: s},
	}, nil
}

// Close releases the underlying connection pool.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Users returns the user repository.
func (r *Registry) Users() repositories.UserRepository { return r.users }

// Products returns the product repository.
func (r *Registry) Products() repositories.ProductRepository { return r.products }

// Carts returns the cart repository.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }
