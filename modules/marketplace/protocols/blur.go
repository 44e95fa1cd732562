package protocols

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	commonpkg "github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
)

const (
	subKindBlurOrdersMatched    = "orders-matched"
	subKindBlurOrderCancelled   = "order-cancelled"
	subKindBlurNonceIncremented = "nonce-incremented"
)

type blurFee struct {
	Rate      uint16
	Recipient common.Address
}

type blurOrder struct {
	Trader         common.Address
	Side           uint8
	MatchingPolicy common.Address
	Collection     common.Address
	TokenId        *big.Int
	Amount         *big.Int
	PaymentToken   common.Address
	Price          *big.Int
	ListingTime    *big.Int
	ExpirationTime *big.Int
	Fees           []blurFee
	Salt           *big.Int
	ExtraParams    []byte
}

type blurOrdersMatched struct {
	Sell     blurOrder
	SellHash [32]byte
	Buy      blurOrder
	BuyHash  [32]byte
}

type BlurHandler struct {
	addrs Addresses
}

func NewBlurHandler(addrs Addresses) *BlurHandler {
	return &BlurHandler{addrs: addrs}
}

func (h *BlurHandler) Kind() Kind {
	return KindBlur
}

func (h *BlurHandler) Events() []EventInfo {
	exchange := []common.Address{h.addrs.Blur}
	return []EventInfo{
		{Kind: KindBlur, SubKind: subKindBlurOrdersMatched, Topic: blurABI.Events["OrdersMatched"].ID, NumTopics: 3, Addresses: exchange},
		{Kind: KindBlur, SubKind: subKindBlurOrderCancelled, Topic: blurABI.Events["OrderCancelled"].ID, NumTopics: 1, Addresses: exchange},
		{Kind: KindBlur, SubKind: subKindBlurNonceIncremented, Topic: blurABI.Events["NonceIncremented"].ID, NumTopics: 2, Addresses: exchange},
	}
}

func (h *BlurHandler) HandleEvents(ctx context.Context, batch []EnhancedEvent, data *OnChainData) error {
	for _, ev := range batch {
		var err error
		switch ev.SubKind {
		case subKindBlurOrdersMatched:
			err = h.handleOrdersMatched(ev, data)
		case subKindBlurOrderCancelled:
			err = h.handleOrderCancelled(ev, data)
		case subKindBlurNonceIncremented:
			err = h.handleNonceIncremented(ev, data)
		}
		if err != nil {
			logger.WarnContext(ctx, "skipping undecodable blur event",
				slogx.String("subKind", ev.SubKind),
				slogx.Stringer("txHash", ev.Base.TxHash),
				slogx.Uint64("logIndex", uint64(ev.Base.LogIndex)),
				slogx.Error(err),
			)
		}
	}
	return nil
}

func (h *BlurHandler) handleOrdersMatched(ev EnhancedEvent, data *OnChainData) error {
	var matched blurOrdersMatched
	if err := blurABI.UnpackIntoInterface(&matched, "OrdersMatched", ev.Log.Data); err != nil {
		return errors.Wrap(err, "unpack OrdersMatched")
	}
	price := matched.Sell.Price
	if price == nil || price.Sign() == 0 {
		return errors.New("match carries no payment")
	}

	// The first indexed party initiated the match; if it was the lister the
	// filled order is their listing, otherwise the bid.
	maker := topicAddress(ev.Log, 1)
	taker := topicAddress(ev.Log, 2)
	side := entity.OrderSideSell
	orderHash := common.Hash(matched.SellHash)
	if maker != matched.Sell.Trader {
		side = entity.OrderSideBuy
		orderHash = common.Hash(matched.BuyHash)
	}

	currency := normalizeCurrency(matched.Sell.PaymentToken)
	if currency == commonpkg.ZeroAddress && side == entity.OrderSideBuy {
		// Bids settle in a pooled wrapped token whose address the match log
		// reports as zero. Corroborate with the transaction's fungible
		// transfers: a transfer of exactly the match price names the token.
		for _, transfer := range data.PaymentsFor(ev.Base.TxHash) {
			if transfer.Amount != nil && transfer.Amount.Cmp(price) == 0 {
				currency = transfer.Token
				break
			}
		}
	}

	orderID := orderIDFromHash(orderHash)
	contract := matched.Sell.Collection
	tokenID := matched.Sell.TokenId
	amount := matched.Sell.Amount
	fillCtx := fillContext(orderID, ev.Base)
	data.AddFill(
		entity.FillEvent{
			OrderID:       orderID,
			OrderKind:     KindBlur.String(),
			OrderSide:     side,
			Maker:         maker,
			Taker:         taker,
			Contract:      contract,
			TokenID:       tokenID,
			Amount:        amount,
			Currency:      currency,
			CurrencyPrice: price,
			Price:         price,
			Base:          ev.Base,
		},
		entity.FillInfo{
			Context:   fillCtx,
			OrderID:   orderID,
			OrderSide: side,
			Contract:  contract,
			TokenID:   tokenID,
			Amount:    amount,
			Price:     price,
			Maker:     maker,
			Taker:     taker,
			Base:      ev.Base,
		},
		entity.Trigger{
			Context:     fillCtx,
			Kind:        entity.TriggerSale,
			OrderID:     orderID,
			TokenSetID:  tokenset.SingleTokenID(contract, tokenID),
			Side:        side,
			TxHash:      ev.Base.TxHash,
			TxTimestamp: ev.Base.Timestamp,
			LogIndex:    ev.Base.LogIndex,
			BlockHash:   ev.Base.BlockHash,
		},
	)
	return nil
}

func (h *BlurHandler) handleOrderCancelled(ev EnhancedEvent, data *OnChainData) error {
	values, err := blurABI.Unpack("OrderCancelled", ev.Log.Data)
	if err != nil {
		return errors.Wrap(err, "unpack OrderCancelled")
	}
	rawHash, ok := values[0].([32]byte)
	if !ok {
		return errors.Newf("expected bytes32 order hash, got %T", values[0])
	}
	orderID := orderIDFromHash(common.Hash(rawHash))
	data.AddCancel(
		entity.CancelEvent{
			OrderID:   orderID,
			OrderKind: KindBlur.String(),
			Base:      ev.Base,
		},
		entity.Trigger{
			Context:     cancelContext(orderID, ev.Base),
			Kind:        entity.TriggerCancel,
			OrderID:     orderID,
			TxHash:      ev.Base.TxHash,
			TxTimestamp: ev.Base.Timestamp,
			LogIndex:    ev.Base.LogIndex,
			BlockHash:   ev.Base.BlockHash,
		},
	)
	return nil
}

func (h *BlurHandler) handleNonceIncremented(ev EnhancedEvent, data *OnChainData) error {
	values, err := blurABI.Unpack("NonceIncremented", ev.Log.Data)
	if err != nil {
		return errors.Wrap(err, "unpack NonceIncremented")
	}
	newNonce, err := mustBigInt(values[0])
	if err != nil {
		return err
	}
	data.AddBulkCancel(entity.BulkCancelEvent{
		OrderKind: KindBlur.String(),
		Maker:     topicAddress(ev.Log, 1),
		MinNonce:  newNonce,
		Base:      ev.Base,
	})
	return nil
}
