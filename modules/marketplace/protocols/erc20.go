package protocols

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	commonpkg "github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
)

const (
	subKindERC20Transfer   = "transfer"
	subKindERC20Deposit    = "deposit"
	subKindERC20Withdrawal = "withdrawal"
)

// ERC20Handler never produces domain events of its own. It records the
// transaction's fungible transfers so marketplace handlers in the same batch
// can corroborate a payment currency. The three-topic shape keeps ERC-721
// transfers (four topics, same signature) out.
type ERC20Handler struct {
	weth common.Address
}

func NewERC20Handler(addrs Addresses) *ERC20Handler {
	return &ERC20Handler{weth: addrs.WETH}
}

func (h *ERC20Handler) Kind() Kind {
	return KindERC20
}

func (h *ERC20Handler) Events() []EventInfo {
	weth := []common.Address{h.weth}
	return []EventInfo{
		{Kind: KindERC20, SubKind: subKindERC20Transfer, Topic: erc20ABI.Events["Transfer"].ID, NumTopics: 3},
		{Kind: KindERC20, SubKind: subKindERC20Deposit, Topic: erc20ABI.Events["Deposit"].ID, NumTopics: 2, Addresses: weth},
		{Kind: KindERC20, SubKind: subKindERC20Withdrawal, Topic: erc20ABI.Events["Withdrawal"].ID, NumTopics: 2, Addresses: weth},
	}
}

func (h *ERC20Handler) HandleEvents(ctx context.Context, batch []EnhancedEvent, data *OnChainData) error {
	for _, ev := range batch {
		transfer, err := h.decode(ev)
		if err != nil {
			logger.WarnContext(ctx, "skipping undecodable erc20 event",
				slogx.String("subKind", ev.SubKind),
				slogx.Stringer("txHash", ev.Base.TxHash),
				slogx.Uint64("logIndex", uint64(ev.Base.LogIndex)),
				slogx.Error(err),
			)
			continue
		}
		data.AddPayment(ev.Base.TxHash, transfer)
	}
	return nil
}

func (h *ERC20Handler) decode(ev EnhancedEvent) (PaymentTransfer, error) {
	switch ev.SubKind {
	case subKindERC20Transfer:
		values, err := erc20ABI.Unpack("Transfer", ev.Log.Data)
		if err != nil {
			return PaymentTransfer{}, errors.Wrap(err, "unpack Transfer")
		}
		amount, err := mustBigInt(values[0])
		if err != nil {
			return PaymentTransfer{}, err
		}
		return PaymentTransfer{
			Token:    ev.Log.Address,
			From:     topicAddress(ev.Log, 1),
			To:       topicAddress(ev.Log, 2),
			Amount:   amount,
			LogIndex: ev.Base.LogIndex,
		}, nil
	case subKindERC20Deposit:
		values, err := erc20ABI.Unpack("Deposit", ev.Log.Data)
		if err != nil {
			return PaymentTransfer{}, errors.Wrap(err, "unpack Deposit")
		}
		amount, err := mustBigInt(values[0])
		if err != nil {
			return PaymentTransfer{}, err
		}
		return PaymentTransfer{
			Token:    ev.Log.Address,
			From:     commonpkg.ZeroAddress,
			To:       topicAddress(ev.Log, 1),
			Amount:   amount,
			LogIndex: ev.Base.LogIndex,
		}, nil
	case subKindERC20Withdrawal:
		values, err := erc20ABI.Unpack("Withdrawal", ev.Log.Data)
		if err != nil {
			return PaymentTransfer{}, errors.Wrap(err, "unpack Withdrawal")
		}
		amount, err := mustBigInt(values[0])
		if err != nil {
			return PaymentTransfer{}, err
		}
		return PaymentTransfer{
			Token:    ev.Log.Address,
			From:     topicAddress(ev.Log, 1),
			To:       commonpkg.ZeroAddress,
			Amount:   amount,
			LogIndex: ev.Base.LogIndex,
		}, nil
	default:
		return PaymentTransfer{}, errors.Newf("unknown sub kind %q", ev.SubKind)
	}
}
