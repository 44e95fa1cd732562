package orderbook

import (
	"encoding/json"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
)

// RawOrder is one protocol-specific order payload submitted for validation.
type RawOrder struct {
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
}

type Metadata struct {
	Source string `json:"source,omitempty"`
	// Trusted ingestion paths (our own on-chain observations) may skip the
	// on-chain fillability probe.
	Trusted bool `json:"trusted,omitempty"`
}

// parsedOrder is the protocol-independent intermediate the gates operate on.
// Parsers produce it; nothing outside this package sees it.
type parsedOrder struct {
	kind  string
	side  entity.OrderSide
	maker ethcommon.Address
	taker ethcommon.Address

	conduit  ethcommon.Address
	zone     ethcommon.Address
	cosigner ethcommon.Address
	// usesOffChainCancellation marks orders whose zone implements
	// cancellation-by-replacement keyed through the salt.
	usesOffChainCancellation bool

	currency ethcommon.Address
	price    *big.Int

	fees []entity.FeeBreakdown

	nonce *big.Int
	salt  *big.Int

	validFrom  time.Time
	validUntil time.Time

	quantity        *big.Int
	partialFillable bool

	tokenSet  tokenset.Spec
	signature []byte

	rawData json.RawMessage
}

// parser converts one protocol's raw payload. A nil error with a non-nil
// order means structurally valid; decode failures map to invalid-format.
type parser func(raw RawOrder) (*parsedOrder, error)
