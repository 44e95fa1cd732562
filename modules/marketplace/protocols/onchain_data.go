package protocols

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
)

// OnChainData accumulates everything one ingestion pass produced before any
// database write. Handlers append into it; the processor flushes it in one
// transaction so a block is either fully applied or not at all.
type OnChainData struct {
	Fills          []entity.FillEvent
	Cancels        []entity.CancelEvent
	NonceCancels   []entity.NonceCancelEvent
	BulkCancels    []entity.BulkCancelEvent
	Orders         []SaveOrderInput
	FillInfos      []entity.FillInfo
	OrderRefreshes []entity.OrderRefresh
	Triggers       []entity.Trigger

	// tradeRank counts decoded trades per (txHash, pool, swap direction) so
	// trace correlation can find the nth matching inner call of a transaction
	// that swaps several times against the same pool.
	tradeRank map[string]int

	// payments holds the transaction's fungible-token transfers, recorded
	// before marketplace partitions run so their handlers can corroborate a
	// payment currency their own logs do not carry.
	payments map[common.Hash][]PaymentTransfer
}

// PaymentTransfer is one observed fungible transfer (or wrap/unwrap) within a
// transaction that also contains marketplace activity.
type PaymentTransfer struct {
	Token    common.Address
	From     common.Address
	To       common.Address
	Amount   *big.Int
	LogIndex uint
}

// SaveOrderInput carries a decoded on-chain order listing plus the trigger
// metadata the orderbook needs to validate and persist it.
type SaveOrderInput struct {
	Kind     Kind
	Order    entity.Order
	TokenSet TokenSetSpec
	Trigger  entity.Trigger
}

// TokenSetSpec is the unresolved token scope attached to a decoded order.
// Kept separate from the order so resolution failures reject the order
// without partial writes.
type TokenSetSpec struct {
	Kind     string
	Contract common.Address
	TokenID  string
	Root     string
}

func NewOnChainData() *OnChainData {
	return &OnChainData{
		tradeRank: make(map[string]int),
		payments:  make(map[common.Hash][]PaymentTransfer),
	}
}

func (d *OnChainData) AddPayment(txHash common.Hash, transfer PaymentTransfer) {
	d.payments[txHash] = append(d.payments[txHash], transfer)
}

// PaymentsFor returns the transaction's recorded transfers in log-index order.
func (d *OnChainData) PaymentsFor(txHash common.Hash) []PaymentTransfer {
	return d.payments[txHash]
}

// NextTradeRank returns the zero-based rank of the next trade decoded for the
// given transaction, pool and swap direction, then advances the counter. The
// nth swap log of a pool pairs with the nth swap call to that pool; swap-in
// and swap-out use different selectors so they are ranked independently.
// Ranks are assigned in log-index order because handlers consume their batch
// in order.
func (d *OnChainData) NextTradeRank(txHash common.Hash, pool common.Address, subKind string) int {
	key := fmt.Sprintf("%s:%s:%s", txHash.Hex(), pool.Hex(), subKind)
	rank := d.tradeRank[key]
	d.tradeRank[key] = rank + 1
	return rank
}

// AddFill records a sale and its companion fill info and trigger rows.
func (d *OnChainData) AddFill(fill entity.FillEvent, info entity.FillInfo, trigger entity.Trigger) {
	d.Fills = append(d.Fills, fill)
	d.FillInfos = append(d.FillInfos, info)
	d.Triggers = append(d.Triggers, trigger)
}

func (d *OnChainData) AddCancel(cancel entity.CancelEvent, trigger entity.Trigger) {
	d.Cancels = append(d.Cancels, cancel)
	d.Triggers = append(d.Triggers, trigger)
}

func (d *OnChainData) AddNonceCancel(cancel entity.NonceCancelEvent) {
	d.NonceCancels = append(d.NonceCancels, cancel)
}

func (d *OnChainData) AddBulkCancel(cancel entity.BulkCancelEvent) {
	d.BulkCancels = append(d.BulkCancels, cancel)
}

func (d *OnChainData) AddOrder(input SaveOrderInput) {
	d.Orders = append(d.Orders, input)
}

func (d *OnChainData) AddOrderRefresh(refresh entity.OrderRefresh) {
	d.OrderRefreshes = append(d.OrderRefreshes, refresh)
}

func (d *OnChainData) AddTrigger(trigger entity.Trigger) {
	d.Triggers = append(d.Triggers, trigger)
}

// IsEmpty reports whether the pass produced nothing persistable.
func (d *OnChainData) IsEmpty() bool {
	return len(d.Fills) == 0 && len(d.Cancels) == 0 && len(d.NonceCancels) == 0 &&
		len(d.BulkCancels) == 0 && len(d.Orders) == 0 && len(d.FillInfos) == 0 &&
		len(d.OrderRefreshes) == 0 && len(d.Triggers) == 0
}
