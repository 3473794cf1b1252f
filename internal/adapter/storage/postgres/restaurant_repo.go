package postgres

import (
	"context"
	"errors"
	"fmt"

	"eatoff-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RestaurantRepo implements ports.RestaurantRepository. Commission rate
// configuration is owned by admin tooling; this subsystem only reads it.
type RestaurantRepo struct {
	pool Pool
}

// NewRestaurantRepo creates a new RestaurantRepo.
func NewRestaurantRepo(pool Pool) *RestaurantRepo {
	return &RestaurantRepo{pool: pool}
}

// GetByID fetches a restaurant by UUID.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Restaurant, error) {
	query := `SELECT id, name, commission_rate_bp, created_at, updated_at
		FROM restaurants WHERE id = $1`

	rest := &domain.Restaurant{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rest.ID, &rest.Name, &rest.CommissionRateBasis, &rest.CreatedAt, &rest.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get restaurant by id: %w", err)
	}
	return rest, nil
}
