package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/domain"
	"github.com/makerstall/payoutsapi/pkg/errors"
)

type payoutRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *sql.DB, logger *zap.Logger) *payoutRepository {
	return &payoutRepository{
		db:     db,
		logger: logger,
	}
}

// InsertIfAbsent writes the payout row unless one already exists for the
// creator and period. The unique constraint on (creator_id, period_start,
// period_end) decides, not a read-then-write check, so concurrent runs are
// safe. Returns false when the row already existed.
func (r *payoutRepository) InsertIfAbsent(ctx context.Context, payout *domain.Payout) (bool, error) {
	query := `
		INSERT INTO payouts (id, creator_id, amount, currency, status, method, period_start, period_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (creator_id, period_start, period_end) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		payout.ID,
		payout.CreatorID,
		payout.Amount,
		payout.Currency,
		payout.Status,
		payout.Method,
		payout.PeriodStart,
		payout.PeriodEnd,
		payout.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert payout",
			zap.String("creator_id", payout.CreatorID.String()),
			zap.Error(err))
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

const payoutColumns = `id, creator_id, amount, currency, status, method, period_start, period_end, created_at`

func (r *payoutRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payout, error) {
	query := `SELECT ` + payoutColumns + ` FROM payouts WHERE id = $1`
	payout, err := scanPayout(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "payout", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get payout", zap.String("payout_id", id.String()), zap.Error(err))
		return nil, err
	}
	return payout, nil
}

func (r *payoutRepository) ExistsForPeriod(ctx context.Context, creatorID uuid.UUID, periodStart, periodEnd time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payouts
			WHERE creator_id = $1 AND period_start = $2 AND period_end = $3
		)
	`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, creatorID, periodStart, periodEnd).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check payout existence",
			zap.String("creator_id", creatorID.String()),
			zap.Error(err))
		return false, err
	}
	return exists, nil
}

func (r *payoutRepository) ListByCreatorID(ctx context.Context, creatorID uuid.UUID) ([]*domain.Payout, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payouts
		WHERE creator_id = $1
		ORDER BY period_start DESC
	`
	return r.list(ctx, query, creatorID)
}

func (r *payoutRepository) List(ctx context.Context, limit, offset int) ([]*domain.Payout, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payouts
		ORDER BY period_start DESC, created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

func (r *payoutRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PayoutStatus) error {
	query := `UPDATE payouts SET status = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update payout status", zap.String("payout_id", id.String()), zap.Error(err))
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &errors.ErrNotFound{Resource: "payout", ID: id.String()}
	}
	return nil
}

func (r *payoutRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Payout, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query payouts", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var payouts []*domain.Payout
	for rows.Next() {
		payout, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		payouts = append(payouts, payout)
	}
	return payouts, rows.Err()
}

func scanPayout(row rowScanner) (*domain.Payout, error) {
	var payout domain.Payout
	err := row.Scan(
		&payout.ID,
		&payout.CreatorID,
		&payout.Amount,
		&payout.Currency,
		&payout.Status,
		&payout.Method,
		&payout.PeriodStart,
		&payout.PeriodEnd,
		&payout.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payout, nil
}
