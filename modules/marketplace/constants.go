package marketplace

import (
	"github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/core/types"
)

const (
	Version   = "v0.0.1"
	DBVersion = 1
)

// startingBlockHeader marks the block before the first one this module
// indexes. The hash is left zero: the indexer skips parent-link validation on
// a fresh start and the reorg monitor takes over from the first synced block.
var startingBlockHeader = map[common.Network]types.BlockHeader{
	common.NetworkMainnet: {
		// Seaport 1.1 deployment era; earlier blocks carry none of the
		// registered protocol events.
		Height: 14946473,
	},
	common.NetworkSepolia: {
		Height: 2_500_000,
	},
}
