package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/makerstall/payoutsapi/internal/domain"
)

// CreatorRepository defines creator data access methods
type CreatorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Creator, error)
	ListActive(ctx context.Context) ([]*domain.Creator, error)
}

// ProductRepository defines product data access methods
type ProductRepository interface {
	ListActiveByCreatorID(ctx context.Context, creatorID uuid.UUID) ([]*domain.Product, error)
	ListActive(ctx context.Context) ([]*domain.Product, error)
}

// PayoutRepository defines payout data access methods. InsertIfAbsent leans
// on the unique (creator_id, period_start, period_end) constraint rather
// than a read-then-write check, so concurrent batch runs cannot double-pay.
type PayoutRepository interface {
	InsertIfAbsent(ctx context.Context, payout *domain.Payout) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error)
	ExistsForPeriod(ctx context.Context, creatorID uuid.UUID, periodStart, periodEnd time.Time) (bool, error)
	ListByCreatorID(ctx context.Context, creatorID uuid.UUID) ([]*domain.Payout, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Payout, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PayoutStatus) error
}

// Repositories aggregates all repositories
type Repositories struct {
	Creator CreatorRepository
	Product ProductRepository
	Payout  PayoutRepository
}
