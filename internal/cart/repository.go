package cart

import (
	"context"
	"errors"

	"github.com/joshua0006/testraveremedy/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// Repository is the durable mirror behind the in-memory Store. The Store is
// the source of truth within a session; the mirror only has to survive
// restarts and deliver the last written state on session load.
type Repository interface {
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}
