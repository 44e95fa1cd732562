package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
)

func (r *Repository) CreateFillEvents(ctx context.Context, fills []*entity.FillEvent) error {
	for _, fill := range fills {
		_, err := r.conn().Exec(ctx, `
			INSERT INTO marketplace_fill_events (
				order_id, order_kind, order_side, maker, taker, contract, token_id, amount,
				currency, currency_price, price, usd_price,
				address, block_height, block_hash, tx_hash, tx_index, log_index, batch_index, timestamp
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			ON CONFLICT (tx_hash, log_index, batch_index) DO NOTHING
		`,
			fill.OrderID, fill.OrderKind, fill.OrderSide,
			addrToDB(fill.Maker), addrToDB(fill.Taker), addrToDB(fill.Contract),
			bigToDB(fill.TokenID), bigToDB(fill.Amount),
			addrToDB(fill.Currency), bigToDB(fill.CurrencyPrice), bigToDB(fill.Price), decimalToDB(fill.USDPrice),
			addrToDB(fill.Base.Address), fill.Base.BlockHeight, hashToDB(fill.Base.BlockHash),
			hashToDB(fill.Base.TxHash), int64(fill.Base.TxIndex), int64(fill.Base.LogIndex), fill.Base.BatchIndex,
			fill.Base.Timestamp,
		)
		if err != nil {
			return errors.Wrap(err, "error during exec")
		}
	}
	return nil
}

func (r *Repository) CreateCancelEvents(ctx context.Context, cancels []*entity.CancelEvent) error {
	for _, cancel := range cancels {
		_, err := r.conn().Exec(ctx, `
			INSERT INTO marketplace_cancel_events (
				order_id, order_kind, maker,
				address, block_height, block_hash, tx_hash, tx_index, log_index, batch_index, timestamp
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (tx_hash, log_index, batch_index) DO NOTHING
		`,
			cancel.OrderID, cancel.OrderKind, addrToDB(cancel.Maker),
			addrToDB(cancel.Base.Address), cancel.Base.BlockHeight, hashToDB(cancel.Base.BlockHash),
			hashToDB(cancel.Base.TxHash), int64(cancel.Base.TxIndex), int64(cancel.Base.LogIndex), cancel.Base.BatchIndex,
			cancel.Base.Timestamp,
		)
		if err != nil {
			return errors.Wrap(err, "error during exec")
		}
	}
	return nil
}

func (r *Repository) CreateNonceCancelEvents(ctx context.Context, cancels []*entity.NonceCancelEvent) error {
	for _, cancel := range cancels {
		_, err := r.conn().Exec(ctx, `
			INSERT INTO marketplace_nonce_cancel_events (
				order_kind, maker, nonce,
				address, block_height, block_hash, tx_hash, tx_index, log_index, batch_index, timestamp
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (tx_hash, log_index, batch_index) DO NOTHING
		`,
			cancel.OrderKind, addrToDB(cancel.Maker), bigToDB(cancel.Nonce),
			addrToDB(cancel.Base.Address), cancel.Base.BlockHeight, hashToDB(cancel.Base.BlockHash),
			hashToDB(cancel.Base.TxHash), int64(cancel.Base.TxIndex), int64(cancel.Base.LogIndex), cancel.Base.BatchIndex,
			cancel.Base.Timestamp,
		)
		if err != nil {
			return errors.Wrap(err, "error during exec")
		}
	}
	return nil
}

func (r *Repository) CreateBulkCancelEvents(ctx context.Context, cancels []*entity.BulkCancelEvent) error {
	for _, cancel := range cancels {
		_, err := r.conn().Exec(ctx, `
			INSERT INTO marketplace_bulk_cancel_events (
				order_kind, maker, min_nonce,
				address, block_height, block_hash, tx_hash, tx_index, log_index, batch_index, timestamp
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (tx_hash, log_index, batch_index) DO NOTHING
		`,
			cancel.OrderKind, addrToDB(cancel.Maker), bigToDB(cancel.MinNonce),
			addrToDB(cancel.Base.Address), cancel.Base.BlockHeight, hashToDB(cancel.Base.BlockHash),
			hashToDB(cancel.Base.TxHash), int64(cancel.Base.TxIndex), int64(cancel.Base.LogIndex), cancel.Base.BatchIndex,
			cancel.Base.Timestamp,
		)
		if err != nil {
			return errors.Wrap(err, "error during exec")
		}
	}
	return nil
}

// DeleteEventsByBlock purges every event row recorded under the exact
// (height, hash) pair. The returned ids cover orders referenced by the purged
// fills and cancels plus orders first saved at that block, so callers can
// revalidate everything the orphaned block influenced.
func (r *Repository) DeleteEventsByBlock(ctx context.Context, height int64, hash ethcommon.Hash) ([]string, error) {
	touched := make(map[string]struct{})
	for _, table := range []string{"marketplace_fill_events", "marketplace_cancel_events", "marketplace_activities"} {
		rows, err := r.conn().Query(ctx, `
			DELETE FROM `+table+`
			WHERE block_height = $1 AND block_hash = $2
			RETURNING order_id
		`, height, hashToDB(hash))
		if err != nil {
			return nil, errors.Wrap(err, "error during query")
		}
		ids, err := scanIDs(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if id != "" {
				touched[id] = struct{}{}
			}
		}
	}

	for _, table := range []string{"marketplace_nonce_cancel_events", "marketplace_bulk_cancel_events"} {
		if _, err := r.conn().Exec(ctx, `
			DELETE FROM `+table+`
			WHERE block_height = $1 AND block_hash = $2
		`, height, hashToDB(hash)); err != nil {
			return nil, errors.Wrap(err, "error during exec")
		}
	}

	orderIDs, err := r.GetOrderIDsByBlock(ctx, height, hash)
	if err != nil {
		return nil, err
	}
	for _, id := range orderIDs {
		touched[id] = struct{}{}
	}

	result := make([]string, 0, len(touched))
	for id := range touched {
		result = append(result, id)
	}
	return result, nil
}
