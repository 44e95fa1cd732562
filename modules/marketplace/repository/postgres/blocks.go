package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/jackc/pgx/v5"
)

var _ datagateway.MarketplaceDataGateway = (*Repository)(nil)

func (r *Repository) GetLatestBlock(ctx context.Context) (types.BlockHeader, error) {
	row := r.conn().QueryRow(ctx, `
		SELECT height, hash, parent_hash, timestamp
		FROM marketplace_indexed_blocks
		ORDER BY height DESC
		LIMIT 1
	`)
	var (
		height           int64
		hash, parentHash string
		timestamp        time.Time
	)
	if err := row.Scan(&height, &hash, &parentHash, &timestamp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.BlockHeader{}, errors.WithStack(errs.NotFound)
		}
		return types.BlockHeader{}, errors.Wrap(err, "error during query")
	}
	return types.BlockHeader{
		Height:     height,
		Hash:       hashFromDB(hash),
		ParentHash: hashFromDB(parentHash),
		Timestamp:  timestamp,
	}, nil
}

func (r *Repository) GetIndexedBlockByHeight(ctx context.Context, height int64) (*entity.IndexedBlock, error) {
	row := r.conn().QueryRow(ctx, `
		SELECT height, hash, parent_hash, timestamp
		FROM marketplace_indexed_blocks
		WHERE height = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, height)
	block, err := scanIndexedBlock(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	return block, nil
}

func (r *Repository) GetIndexedBlocksByHeight(ctx context.Context, height int64) ([]*entity.IndexedBlock, error) {
	rows, err := r.conn().Query(ctx, `
		SELECT height, hash, parent_hash, timestamp
		FROM marketplace_indexed_blocks
		WHERE height = $1
		ORDER BY created_at ASC
	`, height)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	var blocks []*entity.IndexedBlock
	for rows.Next() {
		block, err := scanIndexedBlock(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan indexed block")
		}
		blocks = append(blocks, block)
	}
	return blocks, errors.Wrap(rows.Err(), "error during row iteration")
}

func (r *Repository) CreateIndexedBlock(ctx context.Context, block *entity.IndexedBlock) error {
	_, err := r.conn().Exec(ctx, `
		INSERT INTO marketplace_indexed_blocks (height, hash, parent_hash, timestamp)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (height, hash) DO NOTHING
	`, block.Height, hashToDB(block.Hash), hashToDB(block.ParentHash), block.Timestamp)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) DeleteIndexedBlocksSinceHeight(ctx context.Context, height int64) error {
	_, err := r.conn().Exec(ctx, `
		DELETE FROM marketplace_indexed_blocks WHERE height >= $1
	`, height)
	return errors.Wrap(err, "error during exec")
}

func scanIndexedBlock(row pgx.Row) (*entity.IndexedBlock, error) {
	var (
		block            entity.IndexedBlock
		hash, parentHash string
		timestamp        time.Time
	)
	if err := row.Scan(&block.Height, &hash, &parentHash, &timestamp); err != nil {
		return nil, err
	}
	block.Hash = hashFromDB(hash)
	block.ParentHash = hashFromDB(parentHash)
	block.Timestamp = timestamp
	return &block, nil
}
