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
	subKindElementSellFilled    = "erc721-sell-order-filled"
	subKindElementBuyFilled     = "erc721-buy-order-filled"
	subKindElement721Cancelled  = "erc721-order-cancelled"
	subKindElement1155Cancelled = "erc1155-order-cancelled"
)

type elementOrderFilled struct {
	OrderHash            [32]byte
	Maker                common.Address
	Taker                common.Address
	Nonce                *big.Int
	Erc20Token           common.Address
	Erc20TokenAmount     *big.Int
	PlatformFeeRecipient common.Address
	Erc721Token          common.Address
	Erc721TokenId        *big.Int
}

type ElementHandler struct {
	addrs Addresses
}

func NewElementHandler(addrs Addresses) *ElementHandler {
	return &ElementHandler{addrs: addrs}
}

func (h *ElementHandler) Kind() Kind {
	return KindElement
}

func (h *ElementHandler) Events() []EventInfo {
	exchange := []common.Address{h.addrs.Element}
	return []EventInfo{
		{Kind: KindElement, SubKind: subKindElementSellFilled, Topic: elementABI.Events["ERC721SellOrderFilled"].ID, NumTopics: 1, Addresses: exchange},
		{Kind: KindElement, SubKind: subKindElementBuyFilled, Topic: elementABI.Events["ERC721BuyOrderFilled"].ID, NumTopics: 1, Addresses: exchange},
		{Kind: KindElement, SubKind: subKindElement721Cancelled, Topic: elementABI.Events["ERC721OrderCancelled"].ID, NumTopics: 1, Addresses: exchange},
		{Kind: KindElement, SubKind: subKindElement1155Cancelled, Topic: elementABI.Events["ERC1155OrderCancelled"].ID, NumTopics: 1, Addresses: exchange},
	}
}

func (h *ElementHandler) HandleEvents(ctx context.Context, batch []EnhancedEvent, data *OnChainData) error {
	for _, ev := range batch {
		var err error
		switch ev.SubKind {
		case subKindElementSellFilled:
			err = h.handleFilled(ev, data, "ERC721SellOrderFilled", entity.OrderSideSell)
		case subKindElementBuyFilled:
			err = h.handleFilled(ev, data, "ERC721BuyOrderFilled", entity.OrderSideBuy)
		case subKindElement721Cancelled, subKindElement1155Cancelled:
			err = h.handleCancelled(ev, data)
		}
		if err != nil {
			logger.WarnContext(ctx, "skipping undecodable element event",
				slogx.String("subKind", ev.SubKind),
				slogx.Stringer("txHash", ev.Base.TxHash),
				slogx.Uint64("logIndex", uint64(ev.Base.LogIndex)),
				slogx.Error(err),
			)
		}
	}
	return nil
}

func (h *ElementHandler) handleFilled(ev EnhancedEvent, data *OnChainData, eventName string, side entity.OrderSide) error {
	var filled elementOrderFilled
	if err := elementABI.UnpackIntoInterface(&filled, eventName, ev.Log.Data); err != nil {
		return errors.Wrapf(err, "unpack %s", eventName)
	}
	if filled.Erc20TokenAmount == nil || filled.Erc20TokenAmount.Sign() == 0 {
		return errors.New("fill carries no payment")
	}
	orderID := orderIDFromHash(common.Hash(filled.OrderHash))
	price := filled.Erc20TokenAmount
	fillCtx := fillContext(orderID, ev.Base)
	data.AddFill(
		entity.FillEvent{
			OrderID:       orderID,
			OrderKind:     KindElement.String(),
			OrderSide:     side,
			Maker:         filled.Maker,
			Taker:         filled.Taker,
			Contract:      filled.Erc721Token,
			TokenID:       filled.Erc721TokenId,
			Amount:        big.NewInt(1),
			Currency:      normalizeCurrency(filled.Erc20Token),
			CurrencyPrice: price,
			Price:         price,
			Base:          ev.Base,
		},
		entity.FillInfo{
			Context:   fillCtx,
			OrderID:   orderID,
			OrderSide: side,
			Contract:  filled.Erc721Token,
			TokenID:   filled.Erc721TokenId,
			Amount:    big.NewInt(1),
			Price:     price,
			Maker:     filled.Maker,
			Taker:     filled.Taker,
			Base:      ev.Base,
		},
		entity.Trigger{
			Context:     fillCtx,
			Kind:        entity.TriggerSale,
			OrderID:     orderID,
			TokenSetID:  tokenset.SingleTokenID(filled.Erc721Token, filled.Erc721TokenId),
			Side:        side,
			TxHash:      ev.Base.TxHash,
			TxTimestamp: ev.Base.Timestamp,
			LogIndex:    ev.Base.LogIndex,
			BlockHash:   ev.Base.BlockHash,
		},
	)
	return nil
}

func (h *ElementHandler) handleCancelled(ev EnhancedEvent, data *OnChainData) error {
	eventName := "ERC721OrderCancelled"
	if ev.SubKind == subKindElement1155Cancelled {
		eventName = "ERC1155OrderCancelled"
	}
	values, err := elementABI.Unpack(eventName, ev.Log.Data)
	if err != nil {
		return errors.Wrapf(err, "unpack %s", eventName)
	}
	maker, ok := values[0].(common.Address)
	if !ok {
		return errors.Newf("expected address maker, got %T", values[0])
	}
	nonce, err := mustBigInt(values[1])
	if err != nil {
		return err
	}
	data.AddNonceCancel(entity.NonceCancelEvent{
		OrderKind: KindElement.String(),
		Maker:     maker,
		Nonce:     nonce,
		Base:      ev.Base,
	})
	return nil
}
