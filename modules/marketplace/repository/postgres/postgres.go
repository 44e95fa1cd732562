package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/nft-indexer/internal/postgres"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/jackc/pgx/v5"
)

type Repository struct {
	db postgres.DB
	tx pgx.Tx
}

func NewRepository(db postgres.DB) *Repository {
	return &Repository{db: db}
}

var ErrTxAlreadyExists = errors.New("Transaction already exists. Call Commit() or Rollback() first.")

// conn returns the active transaction when one is open, the pool otherwise.
func (r *Repository) conn() postgres.Queryable {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *Repository) BeginMarketplaceTx(ctx context.Context) (datagateway.MarketplaceDataGatewayWithTx, error) {
	if r.tx != nil {
		return nil, errors.WithStack(ErrTxAlreadyExists)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	return &Repository{db: r.db, tx: tx}, nil
}

func (r *Repository) Commit(ctx context.Context) error {
	if r.tx == nil {
		return nil
	}
	if err := r.tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	r.tx = nil
	return nil
}

func (r *Repository) Rollback(ctx context.Context) error {
	if r.tx == nil {
		return nil
	}
	err := r.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return errors.Wrap(err, "failed to rollback transaction")
	}
	if err == nil {
		logger.InfoContext(ctx, "rolled back transaction")
	}
	r.tx = nil
	return nil
}
