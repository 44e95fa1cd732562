package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/jackc/pgx/v5"
)

var _ datagateway.IndexerInfoDataGateway = (*Repository)(nil)

func (r *Repository) GetLatestIndexerState(ctx context.Context) (entity.IndexerState, error) {
	row := r.conn().QueryRow(ctx, `
		SELECT db_version FROM marketplace_indexer_states
		ORDER BY created_at DESC
		LIMIT 1
	`)
	var state entity.IndexerState
	if err := row.Scan(&state.DBVersion); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.IndexerState{}, errors.WithStack(errs.NotFound)
		}
		return entity.IndexerState{}, errors.Wrap(err, "error during query")
	}
	return state, nil
}

func (r *Repository) GetLatestIndexerStats(ctx context.Context) (string, common.Network, error) {
	row := r.conn().QueryRow(ctx, `
		SELECT client_version, network FROM marketplace_indexer_stats
		ORDER BY updated_at DESC
		LIMIT 1
	`)
	var (
		clientVersion string
		network       string
	)
	if err := row.Scan(&clientVersion, &network); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", errors.WithStack(errs.NotFound)
		}
		return "", "", errors.Wrap(err, "error during query")
	}
	return clientVersion, common.Network(network), nil
}

func (r *Repository) SetIndexerState(ctx context.Context, state entity.IndexerState) error {
	_, err := r.conn().Exec(ctx, `
		INSERT INTO marketplace_indexer_states (db_version, created_at)
		VALUES ($1, now())
	`, state.DBVersion)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) UpdateIndexerStats(ctx context.Context, clientVersion string, network common.Network) error {
	_, err := r.conn().Exec(ctx, `
		INSERT INTO marketplace_indexer_stats (client_version, network, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (network) DO UPDATE SET
			client_version = EXCLUDED.client_version,
			updated_at = now()
	`, clientVersion, string(network))
	return errors.Wrap(err, "error during exec")
}
