package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

type BlockHeader struct {
	Hash       common.Hash
	ParentHash common.Hash
	Height     int64
	Timestamp  time.Time
}

// Block is one ingestion unit: a block header plus every matched log emitted in
// that block, in log-index order.
type Block struct {
	Header BlockHeader
	Logs   []ethtypes.Log
}

func (b *Block) BlockHeader() BlockHeader {
	return b.Header
}

func ParseHeader(src *ethtypes.Header) BlockHeader {
	return BlockHeader{
		Hash:       src.Hash(),
		ParentHash: src.ParentHash,
		Height:     src.Number.Int64(),
		Timestamp:  time.Unix(int64(src.Time), 0).UTC(),
	}
}
