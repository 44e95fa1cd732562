package postgres

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `
	id, kind, side, maker, taker, zone, source, token_set_id,
	currency, currency_price, price, value, normalized_value,
	fee_bps, fee_breakdown, missing_royalties,
	nonce, salt, fillability_status, approval_status,
	valid_from, valid_until, quantity_remaining, raw_data,
	block_height, block_hash, created_at, updated_at`

func (r *Repository) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	row := r.conn().QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM marketplace_orders
		WHERE id = $1
	`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	return order, nil
}

func (r *Repository) GetOrdersByIDs(ctx context.Context, ids []string) ([]*entity.Order, error) {
	rows, err := r.conn().Query(ctx, `
		SELECT `+orderColumns+`
		FROM marketplace_orders
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	var orders []*entity.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan order")
		}
		orders = append(orders, order)
	}
	return orders, errors.Wrap(rows.Err(), "error during row iteration")
}

func (r *Repository) GetOrderIDsByBlock(ctx context.Context, height int64, hash ethcommon.Hash) ([]string, error) {
	rows, err := r.conn().Query(ctx, `
		SELECT id FROM marketplace_orders
		WHERE block_height = $1 AND block_hash = $2
	`, height, hashToDB(hash))
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *Repository) InsertOrders(ctx context.Context, orders []*entity.Order) (map[string]struct{}, error) {
	inserted := make(map[string]struct{}, len(orders))
	for _, order := range orders {
		args, err := orderArgs(order)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode order %s", order.ID)
		}
		var id string
		err = r.conn().QueryRow(ctx, `
			INSERT INTO marketplace_orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
			ON CONFLICT (id) DO NOTHING
			RETURNING id
		`, args...).Scan(&id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, errors.Wrap(err, "error during exec")
		}
		inserted[id] = struct{}{}
	}
	return inserted, nil
}

func (r *Repository) UpdateOrder(ctx context.Context, order *entity.Order) error {
	feeBreakdown, err := json.Marshal(order.FeeBreakdown)
	if err != nil {
		return errors.Wrap(err, "failed to marshal fee breakdown")
	}
	missingRoyalties, err := json.Marshal(order.MissingRoyalties)
	if err != nil {
		return errors.Wrap(err, "failed to marshal missing royalties")
	}
	var validUntil *time.Time
	if !order.ValidUntil.IsZero() {
		validUntil = &order.ValidUntil
	}
	_, err = r.conn().Exec(ctx, `
		UPDATE marketplace_orders SET
			currency_price = $2, price = $3, value = $4, normalized_value = $5,
			fee_bps = $6, fee_breakdown = $7, missing_royalties = $8,
			fillability_status = $9, approval_status = $10,
			valid_from = $11, valid_until = $12, quantity_remaining = $13, raw_data = $14,
			updated_at = now()
		WHERE id = $1
	`,
		order.ID,
		bigToDB(order.CurrencyPrice), bigToDB(order.Price), bigToDB(order.Value), bigToDB(order.NormalizedValue),
		order.FeeBps, feeBreakdown, missingRoyalties,
		order.FillabilityStatus, order.ApprovalStatus,
		order.ValidFrom, validUntil, bigToDB(order.QuantityRemaining), []byte(order.RawData),
	)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) UpdateOrderStatus(ctx context.Context, id string, fillability entity.FillabilityStatus, approval entity.ApprovalStatus) error {
	_, err := r.conn().Exec(ctx, `
		UPDATE marketplace_orders
		SET fillability_status = $2, approval_status = $3, updated_at = now()
		WHERE id = $1
	`, id, fillability, approval)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) ReduceOrderQuantity(ctx context.Context, id string, amount *big.Int) error {
	_, err := r.conn().Exec(ctx, `
		UPDATE marketplace_orders
		SET quantity_remaining = GREATEST(quantity_remaining - $2::numeric, 0),
			fillability_status = CASE
				WHEN quantity_remaining - $2::numeric <= 0 THEN 'filled'
				ELSE fillability_status
			END,
			updated_at = now()
		WHERE id = $1
	`, id, amount.String())
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) CancelOrder(ctx context.Context, id string) error {
	_, err := r.conn().Exec(ctx, `
		UPDATE marketplace_orders
		SET fillability_status = 'cancelled', updated_at = now()
		WHERE id = $1
	`, id)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) CancelOrdersByNonce(ctx context.Context, kind string, maker ethcommon.Address, nonce *big.Int) ([]string, error) {
	rows, err := r.conn().Query(ctx, `
		UPDATE marketplace_orders
		SET fillability_status = 'cancelled', updated_at = now()
		WHERE kind = $1 AND maker = $2 AND nonce = $3::numeric
			AND fillability_status NOT IN ('cancelled', 'filled')
		RETURNING id
	`, kind, addrToDB(maker), nonce.String())
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *Repository) CancelOrdersBelowNonce(ctx context.Context, kind string, maker ethcommon.Address, minNonce *big.Int) ([]string, error) {
	rows, err := r.conn().Query(ctx, `
		UPDATE marketplace_orders
		SET fillability_status = 'cancelled', updated_at = now()
		WHERE kind = $1 AND maker = $2 AND nonce < $3::numeric
			AND fillability_status NOT IN ('cancelled', 'filled')
		RETURNING id
	`, kind, addrToDB(maker), minNonce.String())
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *Repository) GetTokenSetIDsByContract(ctx context.Context, contract ethcommon.Address) ([]string, error) {
	// All token set id formats carry the contract in the second segment.
	rows, err := r.conn().Query(ctx, `
		SELECT DISTINCT token_set_id FROM marketplace_orders
		WHERE split_part(token_set_id, ':', 2) = $1
	`, addrToDB(contract))
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan id")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "error during row iteration")
}

func orderArgs(order *entity.Order) ([]any, error) {
	feeBreakdown, err := json.Marshal(order.FeeBreakdown)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal fee breakdown")
	}
	missingRoyalties, err := json.Marshal(order.MissingRoyalties)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal missing royalties")
	}
	var validUntil *time.Time
	if !order.ValidUntil.IsZero() {
		validUntil = &order.ValidUntil
	}
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := order.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	return []any{
		order.ID, order.Kind, order.Side, addrToDB(order.Maker), addrToDB(order.Taker), addrToDB(order.Zone), order.Source, order.TokenSetID,
		addrToDB(order.Currency), bigToDB(order.CurrencyPrice), bigToDB(order.Price), bigToDB(order.Value), bigToDB(order.NormalizedValue),
		order.FeeBps, feeBreakdown, missingRoyalties,
		bigToDB(order.Nonce), bigToDB(order.Salt), order.FillabilityStatus, order.ApprovalStatus,
		order.ValidFrom, validUntil, bigToDB(order.QuantityRemaining), []byte(order.RawData),
		order.BlockHeight, hashToDB(order.BlockHash), createdAt, updatedAt,
	}, nil
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var (
		order                              entity.Order
		maker, taker, zone, currency, hash string
		currencyPrice, price               *string
		value, normalizedValue             *string
		nonce, salt, quantity              *string
		feeBreakdown                       []byte
		missingRoyalties                   []byte
		validUntil                         *time.Time
	)
	if err := row.Scan(
		&order.ID, &order.Kind, &order.Side, &maker, &taker, &zone, &order.Source, &order.TokenSetID,
		&currency, &currencyPrice, &price, &value, &normalizedValue,
		&order.FeeBps, &feeBreakdown, &missingRoyalties,
		&nonce, &salt, &order.FillabilityStatus, &order.ApprovalStatus,
		&order.ValidFrom, &validUntil, &quantity, &order.RawData,
		&order.BlockHeight, &hash, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	order.Maker = addrFromDB(maker)
	order.Taker = addrFromDB(taker)
	order.Zone = addrFromDB(zone)
	order.Currency = addrFromDB(currency)
	order.BlockHash = hashFromDB(hash)
	if validUntil != nil {
		order.ValidUntil = *validUntil
	}

	var err error
	if order.CurrencyPrice, err = bigFromDB(currencyPrice); err != nil {
		return nil, err
	}
	if order.Price, err = bigFromDB(price); err != nil {
		return nil, err
	}
	if order.Value, err = bigFromDB(value); err != nil {
		return nil, err
	}
	if order.NormalizedValue, err = bigFromDB(normalizedValue); err != nil {
		return nil, err
	}
	if order.Nonce, err = bigFromDB(nonce); err != nil {
		return nil, err
	}
	if order.Salt, err = bigFromDB(salt); err != nil {
		return nil, err
	}
	if order.QuantityRemaining, err = bigFromDB(quantity); err != nil {
		return nil, err
	}
	if len(feeBreakdown) > 0 {
		if err := json.Unmarshal(feeBreakdown, &order.FeeBreakdown); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal fee breakdown")
		}
	}
	if len(missingRoyalties) > 0 {
		if err := json.Unmarshal(missingRoyalties, &order.MissingRoyalties); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal missing royalties")
		}
	}
	return &order, nil
}
