package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// FillEvent is an append-only fact: an order (or an anonymous on-chain trade)
// was filled. Price is native-denominated; events that cannot be priced are
// dropped before reaching here.
type FillEvent struct {
	OrderID   string // empty for anonymous on-chain fills
	OrderKind string
	OrderSide OrderSide
	Maker     common.Address
	Taker     common.Address
	Contract  common.Address
	TokenID   *big.Int
	Amount    *big.Int

	Currency      common.Address
	CurrencyPrice *big.Int
	Price         *big.Int
	USDPrice      decimal.NullDecimal

	Base BaseEventParams
}

// CancelEvent cancels a single order.
type CancelEvent struct {
	OrderID   string
	OrderKind string
	Maker     common.Address
	Base      BaseEventParams
}

// NonceCancelEvent cancels every order of a maker carrying one specific nonce.
type NonceCancelEvent struct {
	OrderKind string
	Maker     common.Address
	Nonce     *big.Int
	Base      BaseEventParams
}

// BulkCancelEvent cancels every order of a maker with nonce below MinNonce.
type BulkCancelEvent struct {
	OrderKind string
	Maker     common.Address
	MinNonce  *big.Int
	Base      BaseEventParams
}

// FillInfo is the denormalized fill fact handed to aggregate and activity
// consumers. Context doubles as the reconciliation dedup key.
type FillInfo struct {
	Context   string
	OrderID   string
	OrderSide OrderSide
	Contract  common.Address
	TokenID   *big.Int
	Amount    *big.Int
	Price     *big.Int
	Maker     common.Address
	Taker     common.Address
	Base      BaseEventParams
}

// OrderRefresh asks the order book to re-read protocol state (e.g. pool
// reserves) and refresh the stored order for it.
type OrderRefresh struct {
	Kind string
	ID   string         // order id, if known
	Pool common.Address // pool/contract whose state changed
	Base BaseEventParams
}
