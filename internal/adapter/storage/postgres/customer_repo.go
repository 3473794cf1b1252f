package postgres

import (
	"context"
	"errors"
	"fmt"

	"eatoff-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CustomerRepo implements ports.CustomerRepository.
type CustomerRepo struct {
	pool Pool
}

// NewCustomerRepo creates a new CustomerRepo.
func NewCustomerRepo(pool Pool) *CustomerRepo {
	return &CustomerRepo{pool: pool}
}

// GetByID fetches a customer by UUID.
func (r *CustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT id, name, created_at FROM customers WHERE id = $1`

	c := &domain.Customer{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer by id: %w", err)
	}
	return c, nil
}
