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
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) ComputeFloorAsk(ctx context.Context, contract ethcommon.Address, tokenID *big.Int) (*entity.FloorAsk, error) {
	row := r.conn().QueryRow(ctx, `
		SELECT id, maker, price, valid_until
		FROM marketplace_orders
		WHERE token_set_id = $1
			AND side = 'sell'
			AND fillability_status = 'fillable'
			AND approval_status = 'approved'
			AND valid_from <= now()
			AND (valid_until IS NULL OR valid_until > now())
		ORDER BY price::numeric ASC
		LIMIT 1
	`, tokenset.SingleTokenID(contract, tokenID))
	var (
		orderID    string
		maker      string
		price      *string
		validUntil *time.Time
	)
	if err := row.Scan(&orderID, &maker, &price, &validUntil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	priceValue, err := bigFromDB(price)
	if err != nil {
		return nil, err
	}
	floorAsk := &entity.FloorAsk{
		Contract:  contract,
		TokenID:   tokenID,
		OrderID:   orderID,
		Maker:     addrFromDB(maker),
		Price:     priceValue,
		UpdatedAt: time.Now(),
	}
	if validUntil != nil {
		floorAsk.ValidUntil = *validUntil
	}
	return floorAsk, nil
}

func (r *Repository) ComputeTopBid(ctx context.Context, tokenSetID string, excludeMaker ethcommon.Address) (*entity.TopBid, error) {
	row := r.conn().QueryRow(ctx, `
		SELECT id, maker, value
		FROM marketplace_orders
		WHERE token_set_id = $1
			AND side = 'buy'
			AND fillability_status = 'fillable'
			AND approval_status = 'approved'
			AND valid_from <= now()
			AND (valid_until IS NULL OR valid_until > now())
			AND ($2 = '' OR maker <> $2)
		ORDER BY value::numeric DESC
		LIMIT 1
	`, tokenSetID, excludeMakerArg(excludeMaker))
	var (
		orderID string
		maker   string
		value   *string
	)
	if err := row.Scan(&orderID, &maker, &value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	bidValue, err := bigFromDB(value)
	if err != nil {
		return nil, err
	}
	return &entity.TopBid{
		TokenSetID: tokenSetID,
		OrderID:    orderID,
		Maker:      addrFromDB(maker),
		Value:      bidValue,
		UpdatedAt:  time.Now(),
	}, nil
}

func excludeMakerArg(maker ethcommon.Address) string {
	if maker == (ethcommon.Address{}) {
		return ""
	}
	return addrToDB(maker)
}

func (r *Repository) GetFloorAsk(ctx context.Context, contract ethcommon.Address, tokenID *big.Int) (*entity.FloorAsk, error) {
	row := r.conn().QueryRow(ctx, `
		SELECT order_id, maker, price, valid_until, updated_at
		FROM marketplace_floor_asks
		WHERE contract = $1 AND token_id = $2::numeric
	`, addrToDB(contract), tokenID.String())
	var (
		floorAsk   entity.FloorAsk
		maker      string
		price      *string
		validUntil *time.Time
	)
	if err := row.Scan(&floorAsk.OrderID, &maker, &price, &validUntil, &floorAsk.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	floorAsk.Contract = contract
	floorAsk.TokenID = tokenID
	floorAsk.Maker = addrFromDB(maker)
	var err error
	if floorAsk.Price, err = bigFromDB(price); err != nil {
		return nil, err
	}
	if validUntil != nil {
		floorAsk.ValidUntil = *validUntil
	}
	return &floorAsk, nil
}

func (r *Repository) SetFloorAsk(ctx context.Context, floorAsk *entity.FloorAsk) error {
	var validUntil *time.Time
	if !floorAsk.ValidUntil.IsZero() {
		validUntil = &floorAsk.ValidUntil
	}
	_, err := r.conn().Exec(ctx, `
		INSERT INTO marketplace_floor_asks (contract, token_id, order_id, maker, price, valid_until, updated_at)
		VALUES ($1, $2::numeric, $3, $4, $5, $6, now())
		ON CONFLICT (contract, token_id) DO UPDATE SET
			order_id = EXCLUDED.order_id,
			maker = EXCLUDED.maker,
			price = EXCLUDED.price,
			valid_until = EXCLUDED.valid_until,
			updated_at = now()
	`, addrToDB(floorAsk.Contract), floorAsk.TokenID.String(), floorAsk.OrderID, addrToDB(floorAsk.Maker), bigToDB(floorAsk.Price), validUntil)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) DeleteFloorAsk(ctx context.Context, contract ethcommon.Address, tokenID *big.Int) error {
	_, err := r.conn().Exec(ctx, `
		DELETE FROM marketplace_floor_asks WHERE contract = $1 AND token_id = $2::numeric
	`, addrToDB(contract), tokenID.String())
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) GetTopBid(ctx context.Context, tokenSetID string) (*entity.TopBid, error) {
	row := r.conn().QueryRow(ctx, `
		SELECT order_id, maker, value, updated_at
		FROM marketplace_top_bids
		WHERE token_set_id = $1
	`, tokenSetID)
	var (
		topBid entity.TopBid
		maker  string
		value  *string
	)
	if err := row.Scan(&topBid.OrderID, &maker, &value, &topBid.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	topBid.TokenSetID = tokenSetID
	topBid.Maker = addrFromDB(maker)
	var err error
	if topBid.Value, err = bigFromDB(value); err != nil {
		return nil, err
	}
	return &topBid, nil
}

func (r *Repository) SetTopBid(ctx context.Context, topBid *entity.TopBid) error {
	_, err := r.conn().Exec(ctx, `
		INSERT INTO marketplace_top_bids (token_set_id, order_id, maker, value, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (token_set_id) DO UPDATE SET
			order_id = EXCLUDED.order_id,
			maker = EXCLUDED.maker,
			value = EXCLUDED.value,
			updated_at = now()
	`, topBid.TokenSetID, topBid.OrderID, addrToDB(topBid.Maker), bigToDB(topBid.Value))
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) DeleteTopBid(ctx context.Context, tokenSetID string) error {
	_, err := r.conn().Exec(ctx, `
		DELETE FROM marketplace_top_bids WHERE token_set_id = $1
	`, tokenSetID)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) CreateOrderEvents(ctx context.Context, events []*entity.OrderEvent) error {
	for _, event := range events {
		var validUntil *time.Time
		if !event.ValidUntil.IsZero() {
			validUntil = &event.ValidUntil
		}
		_, err := r.conn().Exec(ctx, `
			INSERT INTO marketplace_order_events (
				order_id, kind, fillability_status, approval_status,
				price, value, quantity_remaining, valid_until, tx_hash, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			event.OrderID, event.Kind, event.FillabilityStatus, event.ApprovalStatus,
			bigToDB(event.Price), bigToDB(event.Value), bigToDB(event.QuantityRemaining),
			validUntil, hashToDB(event.TxHash), event.CreatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "error during exec")
		}
	}
	return nil
}

func (r *Repository) CreateActivities(ctx context.Context, activities []*entity.Activity) error {
	for _, activity := range activities {
		_, err := r.conn().Exec(ctx, `
			INSERT INTO marketplace_activities (
				kind, order_id, token_set_id, contract, token_id, maker, price, tx_hash,
				block_height, block_hash, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			activity.Kind, activity.OrderID, activity.TokenSetID,
			addrToDB(activity.Contract), bigToDB(activity.TokenID), addrToDB(activity.Maker),
			bigToDB(activity.Price), hashToDB(activity.TxHash),
			activity.BlockHeight, hashToDB(activity.BlockHash), activity.CreatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "error during exec")
		}
	}
	return nil
}

func (r *Repository) GetCollectionRoyalties(ctx context.Context, contract ethcommon.Address) (*entity.CollectionRoyalties, error) {
	row := r.conn().QueryRow(ctx, `
		SELECT recipients FROM marketplace_collection_royalties WHERE contract = $1
	`, addrToDB(contract))
	var recipients []byte
	if err := row.Scan(&recipients); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	royalties := &entity.CollectionRoyalties{Contract: contract}
	if err := json.Unmarshal(recipients, &royalties.Recipients); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal royalty recipients")
	}
	return royalties, nil
}

func (r *Repository) SetCollectionRoyalties(ctx context.Context, royalties *entity.CollectionRoyalties) error {
	recipients, err := json.Marshal(royalties.Recipients)
	if err != nil {
		return errors.Wrap(err, "failed to marshal royalty recipients")
	}
	_, err = r.conn().Exec(ctx, `
		INSERT INTO marketplace_collection_royalties (contract, recipients, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (contract) DO UPDATE SET recipients = EXCLUDED.recipients, updated_at = now()
	`, addrToDB(royalties.Contract), recipients)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) GetCurrency(ctx context.Context, address ethcommon.Address) (*entity.Currency, error) {
	row := r.conn().QueryRow(ctx, `
		SELECT symbol, decimals FROM marketplace_currencies WHERE address = $1
	`, addrToDB(address))
	currency := &entity.Currency{Address: address}
	var decimals int16
	if err := row.Scan(&currency.Symbol, &decimals); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.WithStack(errs.NotFound)
		}
		return nil, errors.Wrap(err, "error during query")
	}
	currency.Decimals = uint8(decimals)
	return currency, nil
}

func (r *Repository) SetCurrency(ctx context.Context, currency *entity.Currency) error {
	_, err := r.conn().Exec(ctx, `
		INSERT INTO marketplace_currencies (address, symbol, decimals)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE SET symbol = EXCLUDED.symbol, decimals = EXCLUDED.decimals
	`, addrToDB(currency.Address), currency.Symbol, int16(currency.Decimals))
	return errors.Wrap(err, "error during exec")
}
