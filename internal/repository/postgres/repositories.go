package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/repository"
)

// NewRepositories creates a new set of repositories
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Creator: NewCreatorRepository(db, logger),
		Product: NewProductRepository(db, logger),
		Payout:  NewPayoutRepository(db, logger),
	}
}
