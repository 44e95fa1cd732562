package protocols

import (
	"context"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
)

const (
	subKindZeroExERC721Filled     = "erc721-order-filled"
	subKindZeroExERC1155Filled    = "erc1155-order-filled"
	subKindZeroExERC721Cancelled  = "erc721-order-cancelled"
	subKindZeroExERC1155Cancelled = "erc1155-order-cancelled"
)

// 0x v4 trade direction: 0 means the maker sells the NFT, 1 means the maker
// bids on it.
const (
	zeroExDirectionSell = 0
	zeroExDirectionBuy  = 1
)

type zeroExERC721Filled struct {
	Direction        uint8
	Maker            common.Address
	Taker            common.Address
	Nonce            *big.Int
	Erc20Token       common.Address
	Erc20TokenAmount *big.Int
	Erc721Token      common.Address
	Erc721TokenId    *big.Int
	Matcher          common.Address
}

type zeroExERC1155Filled struct {
	Direction         uint8
	Maker             common.Address
	Taker             common.Address
	Nonce             *big.Int
	Erc20Token        common.Address
	Erc20FillAmount   *big.Int
	Erc1155Token      common.Address
	Erc1155TokenId    *big.Int
	Erc1155FillAmount *big.Int
	Matcher           common.Address
}

type ZeroExV4Handler struct {
	addrs Addresses
}

func NewZeroExV4Handler(addrs Addresses) *ZeroExV4Handler {
	return &ZeroExV4Handler{addrs: addrs}
}

func (h *ZeroExV4Handler) Kind() Kind {
	return KindZeroExV4
}

func (h *ZeroExV4Handler) Events() []EventInfo {
	exchange := []common.Address{h.addrs.ZeroExV4}
	return []EventInfo{
		{Kind: KindZeroExV4, SubKind: subKindZeroExERC721Filled, Topic: zeroExV4ABI.Events["ERC721OrderFilled"].ID, NumTopics: 1, Addresses: exchange},
		{Kind: KindZeroExV4, SubKind: subKindZeroExERC1155Filled, Topic: zeroExV4ABI.Events["ERC1155OrderFilled"].ID, NumTopics: 1, Addresses: exchange},
		{Kind: KindZeroExV4, SubKind: subKindZeroExERC721Cancelled, Topic: zeroExV4ABI.Events["ERC721OrderCancelled"].ID, NumTopics: 1, Addresses: exchange},
		{Kind: KindZeroExV4, SubKind: subKindZeroExERC1155Cancelled, Topic: zeroExV4ABI.Events["ERC1155OrderCancelled"].ID, NumTopics: 1, Addresses: exchange},
	}
}

func (h *ZeroExV4Handler) HandleEvents(ctx context.Context, batch []EnhancedEvent, data *OnChainData) error {
	for _, ev := range batch {
		var err error
		switch ev.SubKind {
		case subKindZeroExERC721Filled:
			err = h.handleERC721Filled(ev, data)
		case subKindZeroExERC1155Filled:
			err = h.handleERC1155Filled(ev, data)
		case subKindZeroExERC721Cancelled, subKindZeroExERC1155Cancelled:
			err = h.handleCancelled(ev, data)
		}
		if err != nil {
			logger.WarnContext(ctx, "skipping undecodable zeroex-v4 event",
				slogx.String("subKind", ev.SubKind),
				slogx.Stringer("txHash", ev.Base.TxHash),
				slogx.Uint64("logIndex", uint64(ev.Base.LogIndex)),
				slogx.Error(err),
			)
		}
	}
	return nil
}

func (h *ZeroExV4Handler) handleERC721Filled(ev EnhancedEvent, data *OnChainData) error {
	var filled zeroExERC721Filled
	if err := zeroExV4ABI.UnpackIntoInterface(&filled, "ERC721OrderFilled", ev.Log.Data); err != nil {
		return errors.Wrap(err, "unpack ERC721OrderFilled")
	}
	return h.addFill(ev, data, zeroExFill{
		direction: filled.Direction,
		maker:     filled.Maker,
		taker:     filled.Taker,
		nonce:     filled.Nonce,
		currency:  filled.Erc20Token,
		price:     filled.Erc20TokenAmount,
		contract:  filled.Erc721Token,
		tokenID:   filled.Erc721TokenId,
		amount:    big.NewInt(1),
	})
}

func (h *ZeroExV4Handler) handleERC1155Filled(ev EnhancedEvent, data *OnChainData) error {
	var filled zeroExERC1155Filled
	if err := zeroExV4ABI.UnpackIntoInterface(&filled, "ERC1155OrderFilled", ev.Log.Data); err != nil {
		return errors.Wrap(err, "unpack ERC1155OrderFilled")
	}
	return h.addFill(ev, data, zeroExFill{
		direction: filled.Direction,
		maker:     filled.Maker,
		taker:     filled.Taker,
		nonce:     filled.Nonce,
		currency:  filled.Erc20Token,
		price:     filled.Erc20FillAmount,
		contract:  filled.Erc1155Token,
		tokenID:   filled.Erc1155TokenId,
		amount:    filled.Erc1155FillAmount,
	})
}

type zeroExFill struct {
	direction uint8
	maker     common.Address
	taker     common.Address
	nonce     *big.Int
	currency  common.Address
	price     *big.Int
	contract  common.Address
	tokenID   *big.Int
	amount    *big.Int
}

// 0x has no on-chain order hash; orders are identified off-chain by
// maker+nonce, so fills reference that pair.
func zeroExOrderID(maker common.Address, nonce *big.Int) string {
	return "zeroex-v4:" + strings.ToLower(maker.Hex()) + ":" + nonce.String()
}

func (h *ZeroExV4Handler) addFill(ev EnhancedEvent, data *OnChainData, fill zeroExFill) error {
	if fill.price == nil || fill.price.Sign() == 0 {
		return errors.New("fill carries no payment")
	}
	side := entity.OrderSideSell
	if fill.direction == zeroExDirectionBuy {
		side = entity.OrderSideBuy
	} else if fill.direction != zeroExDirectionSell {
		return errors.Newf("unknown direction %d", fill.direction)
	}

	orderID := zeroExOrderID(fill.maker, fill.nonce)
	fillCtx := fillContext(orderID, ev.Base)
	data.AddFill(
		entity.FillEvent{
			OrderID:       orderID,
			OrderKind:     KindZeroExV4.String(),
			OrderSide:     side,
			Maker:         fill.maker,
			Taker:         fill.taker,
			Contract:      fill.contract,
			TokenID:       fill.tokenID,
			Amount:        fill.amount,
			Currency:      normalizeCurrency(fill.currency),
			CurrencyPrice: fill.price,
			Price:         fill.price,
			Base:          ev.Base,
		},
		entity.FillInfo{
			Context:   fillCtx,
			OrderID:   orderID,
			OrderSide: side,
			Contract:  fill.contract,
			TokenID:   fill.tokenID,
			Amount:    fill.amount,
			Price:     fill.price,
			Maker:     fill.maker,
			Taker:     fill.taker,
			Base:      ev.Base,
		},
		entity.Trigger{
			Context:     fillCtx,
			Kind:        entity.TriggerSale,
			OrderID:     orderID,
			TokenSetID:  tokenset.SingleTokenID(fill.contract, fill.tokenID),
			Side:        side,
			TxHash:      ev.Base.TxHash,
			TxTimestamp: ev.Base.Timestamp,
			LogIndex:    ev.Base.LogIndex,
			BlockHash:   ev.Base.BlockHash,
		},
	)
	return nil
}

func (h *ZeroExV4Handler) handleCancelled(ev EnhancedEvent, data *OnChainData) error {
	eventName := "ERC721OrderCancelled"
	if ev.SubKind == subKindZeroExERC1155Cancelled {
		eventName = "ERC1155OrderCancelled"
	}
	values, err := zeroExV4ABI.Unpack(eventName, ev.Log.Data)
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
		OrderKind: KindZeroExV4.String(),
		Maker:     maker,
		Nonce:     nonce,
		Base:      ev.Base,
	})
	return nil
}
