package entity

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// IndexedBlock is a block row keyed by (height, hash). During a reorg two rows
// can temporarily exist for the same height; the reorg monitor resolves which
// one is canonical.
type IndexedBlock struct {
	Height     int64
	Hash       common.Hash
	ParentHash common.Hash
	Timestamp  time.Time
}
