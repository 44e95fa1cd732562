package entity

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BaseEventParams are the immutable facts about one log. Created once during
// classification, never mutated afterwards.
type BaseEventParams struct {
	Address     common.Address
	BlockHeight int64
	BlockHash   common.Hash
	TxHash      common.Hash
	TxIndex     uint
	LogIndex    uint

	// BatchIndex disambiguates multiple logical events produced from a single
	// log, e.g. a pool swap filling several token ids. In-memory only.
	BatchIndex int

	Timestamp time.Time
}

// WithBatchIndex returns a copy with the given batch index.
func (p BaseEventParams) WithBatchIndex(i int) BaseEventParams {
	p.BatchIndex = i
	return p
}
