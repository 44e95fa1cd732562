package entity

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// FillabilityStatus tracks whether an order is currently satisfiable.
// `no-balance` and `no-approval` are recoverable: an explicit revalidation
// trigger re-probes on-chain state and may flip them back to `fillable`.
// `filled`, `cancelled` and `expired` are terminal.
type FillabilityStatus string

const (
	FillabilityFillable  FillabilityStatus = "fillable"
	FillabilityNoBalance FillabilityStatus = "no-balance"
	FillabilityFilled    FillabilityStatus = "filled"
	FillabilityCancelled FillabilityStatus = "cancelled"
	FillabilityExpired   FillabilityStatus = "expired"
)

type ApprovalStatus string

const (
	ApprovalApproved   ApprovalStatus = "approved"
	ApprovalNoApproval ApprovalStatus = "no-approval"
	ApprovalDisabled   ApprovalStatus = "disabled"
)

type FeeKind string

const (
	FeeKindMarketplace FeeKind = "marketplace"
	FeeKindRoyalty     FeeKind = "royalty"
)

type FeeBreakdown struct {
	Kind      FeeKind        `json:"kind"`
	Recipient common.Address `json:"recipient"`
	Bps       int64          `json:"bps"`
}

// Royalty is one missing-royalty entry: the pro-rated share of the bps gap
// between the collection default and the order's built-in royalty.
type Royalty struct {
	Recipient common.Address `json:"recipient"`
	Bps       int64          `json:"bps"`
	Amount    *big.Int       `json:"amount"`
}

// Order is the canonical normalized order record. The id is content-addressed:
// re-saving the same raw payload always derives the same id, making upserts
// idempotent by construction.
type Order struct {
	ID     string
	Kind   string // protocol kind
	Side   OrderSide
	Maker  common.Address
	Taker  common.Address // zero address if public
	Zone   common.Address // zero when the order carries no zone
	Source string

	TokenSetID string

	Currency      common.Address
	CurrencyPrice *big.Int
	// Price/Value/NormalizedValue are native-denominated. For buy orders
	// Value is what the maker effectively nets (price minus fees); for sell
	// orders Value equals Price. NormalizedValue folds in missing royalties.
	Price           *big.Int
	Value           *big.Int
	NormalizedValue *big.Int

	FeeBps           int64
	FeeBreakdown     []FeeBreakdown
	MissingRoyalties []Royalty

	Nonce *big.Int
	Salt  *big.Int

	FillabilityStatus FillabilityStatus
	ApprovalStatus    ApprovalStatus

	ValidFrom  time.Time
	ValidUntil time.Time // zero time means no expiry

	QuantityRemaining *big.Int

	RawData json.RawMessage

	// BlockHeight and BlockHash are set for orders observed on-chain, so a
	// reorg can find and revalidate them.
	BlockHeight int64
	BlockHash   common.Hash
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive reports whether the order should participate in aggregates.
func (o *Order) IsActive() bool {
	return o.FillabilityStatus == FillabilityFillable && o.ApprovalStatus == ApprovalApproved
}
