package entity

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FloorAsk is the cheapest fillable, approved sell order for one token.
type FloorAsk struct {
	Contract   common.Address
	TokenID    *big.Int
	OrderID    string
	Maker      common.Address
	Price      *big.Int
	ValidUntil time.Time
	UpdatedAt  time.Time
}

// TopBid is the highest-value fillable, approved buy order for a token set,
// excluding the current holder as maker.
type TopBid struct {
	TokenSetID string
	OrderID    string
	Maker      common.Address
	Value      *big.Int
	UpdatedAt  time.Time
}

type ActivityKind string

const (
	ActivityNewSellOrder       ActivityKind = "new-sell-order"
	ActivityNewBuyOrder        ActivityKind = "new-buy-order"
	ActivitySellOrderCancelled ActivityKind = "sell-order-cancelled"
	ActivityBuyOrderCancelled  ActivityKind = "buy-order-cancelled"
	ActivitySale               ActivityKind = "sale"
	ActivityNewTopBid          ActivityKind = "new-top-bid"
	ActivityForcedChange       ActivityKind = "forced-change"
)

// Activity is a downstream change notification. BlockHeight and BlockHash are
// set for activities derived from on-chain events, so a reorg purge can find
// them; queue-derived activities leave them zero.
type Activity struct {
	Kind       ActivityKind
	OrderID    string
	TokenSetID string
	Contract   common.Address
	TokenID    *big.Int
	Maker      common.Address
	Price      *big.Int
	TxHash     common.Hash

	BlockHeight int64
	BlockHash   common.Hash

	CreatedAt time.Time
}

// OrderEvent is a structured audit row capturing the full order snapshot at
// the time a reconciliation touched it.
type OrderEvent struct {
	OrderID           string
	Kind              TriggerKind
	FillabilityStatus FillabilityStatus
	ApprovalStatus    ApprovalStatus
	Price             *big.Int
	Value             *big.Int
	QuantityRemaining *big.Int
	ValidUntil        time.Time
	TxHash            common.Hash
	CreatedAt         time.Time
}
