package protocols

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlock(logs ...ethtypes.Log) types.Block {
	return types.Block{
		Header: types.BlockHeader{
			Hash:      common.HexToHash("0xb10c"),
			Height:    100,
			Timestamp: time.Unix(1_700_000_000, 0).UTC(),
		},
		Logs: logs,
	}
}

func TestBatchBlock(t *testing.T) {
	registry := testRegistry()
	txA := common.HexToHash("0xaa")
	txB := common.HexToHash("0xbb")

	seaportLog := func(tx common.Hash, index uint) ethtypes.Log {
		return ethtypes.Log{
			Address:     testEmitter,
			Topics:      []common.Hash{testTopicA, {}, {}},
			TxHash:      tx,
			Index:       index,
			BlockNumber: 100,
		}
	}
	erc20Log := func(tx common.Hash, index uint) ethtypes.Log {
		return ethtypes.Log{
			Address:     otherEmitter,
			Topics:      []common.Hash{testTopicB, {}, {}},
			TxHash:      tx,
			Index:       index,
			BlockNumber: 100,
		}
	}

	t.Run("groups per transaction preserving log order", func(t *testing.T) {
		batches := BatchBlock(registry, testBlock(
			seaportLog(txA, 1),
			erc20Log(txA, 2),
			seaportLog(txB, 3),
			seaportLog(txA, 4),
		))
		require.Len(t, batches, 2)

		batchA := batches[0]
		assert.Equal(t, txA, batchA.TxHash)
		require.Len(t, batchA.ByKind[KindSeaport], 2)
		assert.Equal(t, uint(1), batchA.ByKind[KindSeaport][0].Base.LogIndex)
		assert.Equal(t, uint(4), batchA.ByKind[KindSeaport][1].Base.LogIndex)
		require.Len(t, batchA.ByKind[KindERC20], 1)

		assert.Equal(t, txB, batches[1].TxHash)
	})

	t.Run("drops erc20-only batches", func(t *testing.T) {
		batches := BatchBlock(registry, testBlock(
			erc20Log(txA, 1),
			erc20Log(txA, 2),
			seaportLog(txB, 3),
		))
		require.Len(t, batches, 1)
		assert.Equal(t, txB, batches[0].TxHash)
	})

	t.Run("skips removed and unmatched logs", func(t *testing.T) {
		removed := seaportLog(txA, 1)
		removed.Removed = true
		unmatched := ethtypes.Log{
			Address: otherEmitter,
			Topics:  []common.Hash{common.HexToHash("0xff")},
			TxHash:  txA,
		}
		assert.Empty(t, BatchBlock(registry, testBlock(removed, unmatched)))
	})

	t.Run("base params carry block context", func(t *testing.T) {
		block := testBlock(seaportLog(txA, 7))
		batches := BatchBlock(registry, block)
		require.Len(t, batches, 1)
		base := batches[0].ByKind[KindSeaport][0].Base
		assert.Equal(t, block.Header.Hash, base.BlockHash)
		assert.Equal(t, int64(100), base.BlockHeight)
		assert.Equal(t, block.Header.Timestamp, base.Timestamp)
		assert.Equal(t, 1, base.BatchIndex)
	})
}
