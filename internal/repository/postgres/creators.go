package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/domain"
	"github.com/makerstall/payoutsapi/pkg/errors"
)

type creatorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCreatorRepository creates a new creator repository
func NewCreatorRepository(db *sql.DB, logger *zap.Logger) *creatorRepository {
	return &creatorRepository{
		db:     db,
		logger: logger,
	}
}

func (r *creatorRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Creator, error) {
	query := `
		SELECT id, name, email, payout_method, payout_currency, commission_rate, min_threshold, is_active, created_at, updated_at
		FROM creators
		WHERE id = $1
	`
	creator, err := scanCreator(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "creator", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get creator", zap.String("creator_id", id.String()), zap.Error(err))
		return nil, err
	}
	return creator, nil
}

func (r *creatorRepository) ListActive(ctx context.Context) ([]*domain.Creator, error) {
	query := `
		SELECT id, name, email, payout_method, payout_currency, commission_rate, min_threshold, is_active, created_at, updated_at
		FROM creators
		WHERE is_active = true
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query creators", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var creators []*domain.Creator
	for rows.Next() {
		creator, err := scanCreator(rows)
		if err != nil {
			return nil, err
		}
		creators = append(creators, creator)
	}
	return creators, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCreator(row rowScanner) (*domain.Creator, error) {
	var creator domain.Creator
	var currency sql.NullString
	err := row.Scan(
		&creator.ID,
		&creator.Name,
		&creator.Email,
		&creator.PayoutMethod,
		&currency,
		&creator.CommissionRate,
		&creator.MinThreshold,
		&creator.IsActive,
		&creator.CreatedAt,
		&creator.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if currency.Valid {
		creator.PayoutCurrency = currency.String
	}
	return &creator, nil
}
