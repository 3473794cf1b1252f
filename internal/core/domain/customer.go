package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the identity slice the settlement core reads when issuing
// tokens. Account management lives elsewhere.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
