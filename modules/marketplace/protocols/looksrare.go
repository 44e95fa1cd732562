package protocols

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
)

const (
	subKindLooksRareTakerAsk             = "taker-ask"
	subKindLooksRareTakerBid             = "taker-bid"
	subKindLooksRareCancelAllOrders      = "cancel-all-orders"
	subKindLooksRareCancelMultipleOrders = "cancel-multiple-orders"
)

type looksRareTaker struct {
	OrderHash  [32]byte
	OrderNonce *big.Int
	Currency   common.Address
	Collection common.Address
	TokenId    *big.Int
	Amount     *big.Int
	Price      *big.Int
}

type LooksRareHandler struct {
	addrs Addresses
}

func NewLooksRareHandler(addrs Addresses) *LooksRareHandler {
	return &LooksRareHandler{addrs: addrs}
}

func (h *LooksRareHandler) Kind() Kind {
	return KindLooksRare
}

func (h *LooksRareHandler) Events() []EventInfo {
	exchange := []common.Address{h.addrs.LooksRare}
	return []EventInfo{
		{Kind: KindLooksRare, SubKind: subKindLooksRareTakerAsk, Topic: looksRareABI.Events["TakerAsk"].ID, NumTopics: 4, Addresses: exchange},
		{Kind: KindLooksRare, SubKind: subKindLooksRareTakerBid, Topic: looksRareABI.Events["TakerBid"].ID, NumTopics: 4, Addresses: exchange},
		{Kind: KindLooksRare, SubKind: subKindLooksRareCancelAllOrders, Topic: looksRareABI.Events["CancelAllOrders"].ID, NumTopics: 2, Addresses: exchange},
		{Kind: KindLooksRare, SubKind: subKindLooksRareCancelMultipleOrders, Topic: looksRareABI.Events["CancelMultipleOrders"].ID, NumTopics: 2, Addresses: exchange},
	}
}

func (h *LooksRareHandler) HandleEvents(ctx context.Context, batch []EnhancedEvent, data *OnChainData) error {
	for _, ev := range batch {
		var err error
		switch ev.SubKind {
		case subKindLooksRareTakerAsk:
			// Taker sold into a maker bid.
			err = h.handleTaker(ev, data, "TakerAsk", entity.OrderSideBuy)
		case subKindLooksRareTakerBid:
			// Taker bought a maker listing.
			err = h.handleTaker(ev, data, "TakerBid", entity.OrderSideSell)
		case subKindLooksRareCancelAllOrders:
			err = h.handleCancelAll(ev, data)
		case subKindLooksRareCancelMultipleOrders:
			err = h.handleCancelMultiple(ev, data)
		}
		if err != nil {
			logger.WarnContext(ctx, "skipping undecodable looks-rare event",
				slogx.String("subKind", ev.SubKind),
				slogx.Stringer("txHash", ev.Base.TxHash),
				slogx.Uint64("logIndex", uint64(ev.Base.LogIndex)),
				slogx.Error(err),
			)
		}
	}
	return nil
}

func (h *LooksRareHandler) handleTaker(ev EnhancedEvent, data *OnChainData, eventName string, side entity.OrderSide) error {
	var taker looksRareTaker
	if err := looksRareABI.UnpackIntoInterface(&taker, eventName, ev.Log.Data); err != nil {
		return errors.Wrapf(err, "unpack %s", eventName)
	}
	if taker.Price == nil || taker.Price.Sign() == 0 {
		return errors.New("fill carries no payment")
	}
	takerAddr := topicAddress(ev.Log, 1)
	maker := topicAddress(ev.Log, 2)

	orderID := orderIDFromHash(common.Hash(taker.OrderHash))
	fillCtx := fillContext(orderID, ev.Base)
	data.AddFill(
		entity.FillEvent{
			OrderID:       orderID,
			OrderKind:     KindLooksRare.String(),
			OrderSide:     side,
			Maker:         maker,
			Taker:         takerAddr,
			Contract:      taker.Collection,
			TokenID:       taker.TokenId,
			Amount:        taker.Amount,
			Currency:      normalizeCurrency(taker.Currency),
			CurrencyPrice: taker.Price,
			Price:         taker.Price,
			Base:          ev.Base,
		},
		entity.FillInfo{
			Context:   fillCtx,
			OrderID:   orderID,
			OrderSide: side,
			Contract:  taker.Collection,
			TokenID:   taker.TokenId,
			Amount:    taker.Amount,
			Price:     taker.Price,
			Maker:     maker,
			Taker:     takerAddr,
			Base:      ev.Base,
		},
		entity.Trigger{
			Context:     fillCtx,
			Kind:        entity.TriggerSale,
			OrderID:     orderID,
			TokenSetID:  tokenset.SingleTokenID(taker.Collection, taker.TokenId),
			Side:        side,
			TxHash:      ev.Base.TxHash,
			TxTimestamp: ev.Base.Timestamp,
			LogIndex:    ev.Base.LogIndex,
			BlockHash:   ev.Base.BlockHash,
		},
	)
	return nil
}

func (h *LooksRareHandler) handleCancelAll(ev EnhancedEvent, data *OnChainData) error {
	values, err := looksRareABI.Unpack("CancelAllOrders", ev.Log.Data)
	if err != nil {
		return errors.Wrap(err, "unpack CancelAllOrders")
	}
	newMinNonce, err := mustBigInt(values[0])
	if err != nil {
		return err
	}
	data.AddBulkCancel(entity.BulkCancelEvent{
		OrderKind: KindLooksRare.String(),
		Maker:     topicAddress(ev.Log, 1),
		MinNonce:  newMinNonce,
		Base:      ev.Base,
	})
	return nil
}

func (h *LooksRareHandler) handleCancelMultiple(ev EnhancedEvent, data *OnChainData) error {
	values, err := looksRareABI.Unpack("CancelMultipleOrders", ev.Log.Data)
	if err != nil {
		return errors.Wrap(err, "unpack CancelMultipleOrders")
	}
	nonces, ok := values[0].([]*big.Int)
	if !ok {
		return errors.Newf("expected uint256[] nonces, got %T", values[0])
	}
	maker := topicAddress(ev.Log, 1)
	for i, nonce := range nonces {
		data.AddNonceCancel(entity.NonceCancelEvent{
			OrderKind: KindLooksRare.String(),
			Maker:     maker,
			Nonce:     nonce,
			Base:      ev.Base.WithBatchIndex(i + 1),
		})
	}
	return nil
}
