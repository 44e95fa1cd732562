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
	subKindSeaportOrderFulfilled     = "order-fulfilled"
	subKindSeaportOrderCancelled     = "order-cancelled"
	subKindSeaportCounterIncremented = "counter-incremented"
)

// Seaport conduit item types. 4 and 5 are criteria variants resolved before
// fulfillment, so fulfilled logs only carry 0..3.
const (
	seaportItemNative  = 0
	seaportItemERC20   = 1
	seaportItemERC721  = 2
	seaportItemERC1155 = 3
)

type seaportSpentItem struct {
	ItemType   uint8
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
}

type seaportReceivedItem struct {
	ItemType   uint8
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
	Recipient  common.Address
}

type seaportOrderFulfilled struct {
	OrderHash     [32]byte
	Recipient     common.Address
	Offer         []seaportSpentItem
	Consideration []seaportReceivedItem
}

type SeaportHandler struct {
	addrs Addresses
}

func NewSeaportHandler(addrs Addresses) *SeaportHandler {
	return &SeaportHandler{addrs: addrs}
}

func (h *SeaportHandler) Kind() Kind {
	return KindSeaport
}

func (h *SeaportHandler) Events() []EventInfo {
	return []EventInfo{
		{Kind: KindSeaport, SubKind: subKindSeaportOrderFulfilled, Topic: seaportABI.Events["OrderFulfilled"].ID, NumTopics: 3, Addresses: h.addrs.SeaportAll()},
		{Kind: KindSeaport, SubKind: subKindSeaportOrderCancelled, Topic: seaportABI.Events["OrderCancelled"].ID, NumTopics: 3, Addresses: h.addrs.SeaportAll()},
		{Kind: KindSeaport, SubKind: subKindSeaportCounterIncremented, Topic: seaportABI.Events["CounterIncremented"].ID, NumTopics: 2, Addresses: h.addrs.SeaportAll()},
	}
}

func (h *SeaportHandler) HandleEvents(ctx context.Context, batch []EnhancedEvent, data *OnChainData) error {
	for _, ev := range batch {
		var err error
		switch ev.SubKind {
		case subKindSeaportOrderFulfilled:
			err = h.handleFulfilled(ctx, ev, data)
		case subKindSeaportOrderCancelled:
			err = h.handleCancelled(ctx, ev, data)
		case subKindSeaportCounterIncremented:
			err = h.handleCounterIncremented(ctx, ev, data)
		}
		if err != nil {
			logger.WarnContext(ctx, "skipping undecodable seaport event",
				slogx.String("subKind", ev.SubKind),
				slogx.Stringer("txHash", ev.Base.TxHash),
				slogx.Uint64("logIndex", uint64(ev.Base.LogIndex)),
				slogx.Error(err),
			)
		}
	}
	return nil
}

func (h *SeaportHandler) handleFulfilled(ctx context.Context, ev EnhancedEvent, data *OnChainData) error {
	var fulfilled seaportOrderFulfilled
	if err := seaportABI.UnpackIntoInterface(&fulfilled, "OrderFulfilled", ev.Log.Data); err != nil {
		return errors.Wrap(err, "unpack OrderFulfilled")
	}
	maker := topicAddress(ev.Log, 1)
	orderID := orderIDFromHash(common.Hash(fulfilled.OrderHash))

	offerNFTs := filterSeaportNFTs(fulfilled.Offer)
	switch {
	case len(offerNFTs) == 1:
		// Listing: offerer sold the NFT, payment flows through consideration.
		nft := offerNFTs[0]
		currency, price := sumSeaportPayments(fulfilled.Consideration)
		if price.Sign() == 0 {
			return errors.New("fulfilled listing carries no payment")
		}
		h.addFill(data, ev, fillParams{
			orderID:  orderID,
			side:     entity.OrderSideSell,
			maker:    maker,
			taker:    fulfilled.Recipient,
			contract: nft.Token,
			tokenID:  nft.Identifier,
			amount:   nft.Amount,
			currency: currency,
			price:    price,
		})
	case len(offerNFTs) == 0:
		// Bid: offerer pays, the NFT arrives through consideration.
		nfts := filterSeaportNFTReceipts(fulfilled.Consideration)
		if len(nfts) != 1 {
			return errors.Newf("unsupported bundle of %d nft items", len(nfts))
		}
		var currency common.Address
		price := new(big.Int)
		for _, item := range fulfilled.Offer {
			if item.ItemType == seaportItemNative || item.ItemType == seaportItemERC20 {
				currency = normalizeCurrency(item.Token)
				price.Add(price, item.Amount)
			}
		}
		if price.Sign() == 0 {
			return errors.New("fulfilled bid carries no payment")
		}
		h.addFill(data, ev, fillParams{
			orderID:  orderID,
			side:     entity.OrderSideBuy,
			maker:    maker,
			taker:    fulfilled.Recipient,
			contract: nfts[0].Token,
			tokenID:  nfts[0].Identifier,
			amount:   nfts[0].Amount,
			currency: currency,
			price:    price,
		})
	default:
		return errors.Newf("unsupported bundle of %d nft items", len(offerNFTs))
	}
	return nil
}

type fillParams struct {
	orderID  string
	side     entity.OrderSide
	maker    common.Address
	taker    common.Address
	contract common.Address
	tokenID  *big.Int
	amount   *big.Int
	currency common.Address
	price    *big.Int
}

func (h *SeaportHandler) addFill(data *OnChainData, ev EnhancedEvent, p fillParams) {
	context := fillContext(p.orderID, ev.Base)
	tokenSetID := tokenset.SingleTokenID(p.contract, p.tokenID)
	data.AddFill(
		entity.FillEvent{
			OrderID:       p.orderID,
			OrderKind:     KindSeaport.String(),
			OrderSide:     p.side,
			Maker:         p.maker,
			Taker:         p.taker,
			Contract:      p.contract,
			TokenID:       p.tokenID,
			Amount:        p.amount,
			Currency:      p.currency,
			CurrencyPrice: p.price,
			Price:         p.price,
			Base:          ev.Base,
		},
		entity.FillInfo{
			Context:   context,
			OrderID:   p.orderID,
			OrderSide: p.side,
			Contract:  p.contract,
			TokenID:   p.tokenID,
			Amount:    p.amount,
			Price:     p.price,
			Maker:     p.maker,
			Taker:     p.taker,
			Base:      ev.Base,
		},
		entity.Trigger{
			Context:     context,
			Kind:        entity.TriggerSale,
			OrderID:     p.orderID,
			TokenSetID:  tokenSetID,
			Side:        p.side,
			TxHash:      ev.Base.TxHash,
			TxTimestamp: ev.Base.Timestamp,
			LogIndex:    ev.Base.LogIndex,
			BlockHash:   ev.Base.BlockHash,
		},
	)
}

func (h *SeaportHandler) handleCancelled(_ context.Context, ev EnhancedEvent, data *OnChainData) error {
	values, err := seaportABI.Unpack("OrderCancelled", ev.Log.Data)
	if err != nil {
		return errors.Wrap(err, "unpack OrderCancelled")
	}
	rawHash, ok := values[0].([32]byte)
	if !ok {
		return errors.Newf("expected bytes32 order hash, got %T", values[0])
	}
	orderID := orderIDFromHash(common.Hash(rawHash))
	maker := topicAddress(ev.Log, 1)
	data.AddCancel(
		entity.CancelEvent{
			OrderID:   orderID,
			OrderKind: KindSeaport.String(),
			Maker:     maker,
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

func (h *SeaportHandler) handleCounterIncremented(_ context.Context, ev EnhancedEvent, data *OnChainData) error {
	values, err := seaportABI.Unpack("CounterIncremented", ev.Log.Data)
	if err != nil {
		return errors.Wrap(err, "unpack CounterIncremented")
	}
	newCounter, err := mustBigInt(values[0])
	if err != nil {
		return err
	}
	data.AddBulkCancel(entity.BulkCancelEvent{
		OrderKind: KindSeaport.String(),
		Maker:     topicAddress(ev.Log, 1),
		MinNonce:  newCounter,
		Base:      ev.Base,
	})
	return nil
}

func filterSeaportNFTs(items []seaportSpentItem) []seaportSpentItem {
	out := make([]seaportSpentItem, 0, len(items))
	for _, item := range items {
		if item.ItemType == seaportItemERC721 || item.ItemType == seaportItemERC1155 {
			out = append(out, item)
		}
	}
	return out
}

func filterSeaportNFTReceipts(items []seaportReceivedItem) []seaportReceivedItem {
	out := make([]seaportReceivedItem, 0, len(items))
	for _, item := range items {
		if item.ItemType == seaportItemERC721 || item.ItemType == seaportItemERC1155 {
			out = append(out, item)
		}
	}
	return out
}

// sumSeaportPayments totals every payment-kind consideration item and returns
// the payment currency. Mixed-currency fulfillments keep the first currency
// seen; in practice conduits do not mix currencies within one order.
func sumSeaportPayments(items []seaportReceivedItem) (common.Address, *big.Int) {
	var currency common.Address
	var seen bool
	total := new(big.Int)
	for _, item := range items {
		if item.ItemType != seaportItemNative && item.ItemType != seaportItemERC20 {
			continue
		}
		if !seen {
			currency = normalizeCurrency(item.Token)
			seen = true
		}
		total.Add(total, item.Amount)
	}
	return currency, total
}
