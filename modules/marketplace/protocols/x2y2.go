package protocols

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
)

const (
	subKindX2Y2Inventory = "inventory"
	subKindX2Y2Cancel    = "cancel"
)

// X2Y2 settlement ops. Auction refunds and cancels-by-settlement share the
// same event, distinguished by op.
const (
	x2y2OpCompleteSellOffer = 1
	x2y2OpCompleteBuyOffer  = 2
	x2y2OpCancelOffer       = 3
)

type x2y2Fee struct {
	Percentage *big.Int
	To         common.Address
}

type x2y2SettleDetail struct {
	Op                 uint8
	OrderIdx           *big.Int
	ItemIdx            *big.Int
	Price              *big.Int
	ItemHash           [32]byte
	ExecutionDelegate  common.Address
	DataReplacement    []byte
	BidIncentivePct    *big.Int
	AucMinIncrementPct *big.Int
	AucIncDurationSecs *big.Int
	Fees               []x2y2Fee
}

type x2y2OrderItem struct {
	Price *big.Int
	Data  []byte
}

type x2y2Inventory struct {
	Maker        common.Address
	Taker        common.Address
	OrderSalt    *big.Int
	SettleSalt   *big.Int
	Intent       *big.Int
	DelegateType *big.Int
	Deadline     *big.Int
	Currency     common.Address
	DataMask     []byte
	Item         x2y2OrderItem
	Detail       x2y2SettleDetail
}

// item.data is abi.encode((address token, uint256 tokenId)[]).
var x2y2PairArgs = abi.Arguments{{
	Type: mustNewABIType("tuple[]", []abi.ArgumentMarshaling{
		{Name: "token", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
	}),
}}

func mustNewABIType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}

type X2Y2Handler struct {
	addrs Addresses
}

func NewX2Y2Handler(addrs Addresses) *X2Y2Handler {
	return &X2Y2Handler{addrs: addrs}
}

func (h *X2Y2Handler) Kind() Kind {
	return KindX2Y2
}

func (h *X2Y2Handler) Events() []EventInfo {
	exchange := []common.Address{h.addrs.X2Y2}
	return []EventInfo{
		{Kind: KindX2Y2, SubKind: subKindX2Y2Inventory, Topic: x2y2ABI.Events["EvInventory"].ID, NumTopics: 2, Addresses: exchange},
		{Kind: KindX2Y2, SubKind: subKindX2Y2Cancel, Topic: x2y2ABI.Events["EvCancel"].ID, NumTopics: 2, Addresses: exchange},
	}
}

func (h *X2Y2Handler) HandleEvents(ctx context.Context, batch []EnhancedEvent, data *OnChainData) error {
	for _, ev := range batch {
		var err error
		switch ev.SubKind {
		case subKindX2Y2Inventory:
			err = h.handleInventory(ev, data)
		case subKindX2Y2Cancel:
			h.handleCancel(ev, data)
		}
		if err != nil {
			logger.WarnContext(ctx, "skipping undecodable x2y2 event",
				slogx.String("subKind", ev.SubKind),
				slogx.Stringer("txHash", ev.Base.TxHash),
				slogx.Uint64("logIndex", uint64(ev.Base.LogIndex)),
				slogx.Error(err),
			)
		}
	}
	return nil
}

func (h *X2Y2Handler) handleInventory(ev EnhancedEvent, data *OnChainData) error {
	var inv x2y2Inventory
	if err := x2y2ABI.UnpackIntoInterface(&inv, "EvInventory", ev.Log.Data); err != nil {
		return errors.Wrap(err, "unpack EvInventory")
	}
	orderID := orderIDFromHash(topicHash(ev.Log, 1))

	switch inv.Detail.Op {
	case x2y2OpCancelOffer:
		data.AddCancel(
			entity.CancelEvent{
				OrderID:   orderID,
				OrderKind: KindX2Y2.String(),
				Maker:     inv.Maker,
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
	case x2y2OpCompleteSellOffer, x2y2OpCompleteBuyOffer:
	default:
		return errors.Newf("unknown settle op %d", inv.Detail.Op)
	}

	values, err := x2y2PairArgs.Unpack(inv.Item.Data)
	if err != nil {
		return errors.Wrap(err, "unpack item pairs")
	}
	pairs, ok := values[0].([]struct {
		Token   common.Address `json:"token"`
		TokenId *big.Int       `json:"tokenId"`
	})
	if !ok {
		return errors.Newf("unexpected item pair shape %T", values[0])
	}
	if len(pairs) != 1 {
		return errors.Newf("unsupported bundle of %d items", len(pairs))
	}
	price := inv.Detail.Price
	if price == nil || price.Sign() == 0 {
		return errors.New("fill carries no payment")
	}

	side := entity.OrderSideSell
	if inv.Detail.Op == x2y2OpCompleteBuyOffer {
		side = entity.OrderSideBuy
	}
	contract, tokenID := pairs[0].Token, pairs[0].TokenId
	fillCtx := fillContext(orderID, ev.Base)
	data.AddFill(
		entity.FillEvent{
			OrderID:       orderID,
			OrderKind:     KindX2Y2.String(),
			OrderSide:     side,
			Maker:         inv.Maker,
			Taker:         inv.Taker,
			Contract:      contract,
			TokenID:       tokenID,
			Amount:        big.NewInt(1),
			Currency:      normalizeCurrency(inv.Currency),
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
			Amount:    big.NewInt(1),
			Price:     price,
			Maker:     inv.Maker,
			Taker:     inv.Taker,
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

func (h *X2Y2Handler) handleCancel(ev EnhancedEvent, data *OnChainData) {
	orderID := orderIDFromHash(topicHash(ev.Log, 1))
	data.AddCancel(
		entity.CancelEvent{
			OrderID:   orderID,
			OrderKind: KindX2Y2.String(),
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
}
