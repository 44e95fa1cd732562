package protocols

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	poolA     = common.HexToAddress("0xAAA0000000000000000000000000000000000001")
	poolB     = common.HexToAddress("0xBBB0000000000000000000000000000000000002")
	poolNFT   = common.HexToAddress("0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d")
	swapTaker = common.HexToAddress("0x7777777777777777777777777777777777777777")
)

type fakeChainClient struct {
	trace *types.CallTrace
}

func (f *fakeChainClient) GetTransactionTrace(_ context.Context, _ common.Hash) (*types.CallTrace, error) {
	return f.trace, nil
}

func (f *fakeChainClient) GetTransactionReceipt(_ context.Context, _ common.Hash) (*ethtypes.Receipt, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChainClient) CallContract(_ context.Context, _ common.Address, data []byte) ([]byte, error) {
	if bytes.Equal(data, selPairNFT[:]) {
		return common.LeftPadBytes(poolNFT.Bytes(), 32), nil
	}
	return nil, errors.Newf("unexpected contract call %x", data)
}

func specificSwapCall(t *testing.T, pool common.Address, value int64, tokenIDs ...int64) types.CallTrace {
	t.Helper()
	ids := make([]*big.Int, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		ids = append(ids, big.NewInt(id))
	}
	packed, err := sudoswapSwapArgs.Pack(ids, big.NewInt(0), common.Address{}, false, common.Address{})
	require.NoError(t, err)
	return types.CallTrace{
		Type:  "CALL",
		From:  swapTaker,
		To:    pool,
		Value: (*hexutil.Big)(big.NewInt(value)),
		Input: append(selSwapTokenForSpecificNFTs[:], packed...),
	}
}

func swapOutEvent(tx common.Hash, pool common.Address, logIndex uint) EnhancedEvent {
	return EnhancedEvent{
		Kind:    KindSudoswap,
		SubKind: subKindSudoswapSwapOut,
		Base: entity.BaseEventParams{
			Address:  pool,
			TxHash:   tx,
			LogIndex: logIndex,
		},
		Log: ethtypes.Log{Address: pool, TxHash: tx, Index: logIndex},
	}
}

func TestSudoswapTraceCorrelation(t *testing.T) {
	tx := common.HexToHash("0xdead")

	t.Run("one swap against each of two pools", func(t *testing.T) {
		chain := &fakeChainClient{trace: &types.CallTrace{
			Type: "CALL",
			Calls: []types.CallTrace{
				specificSwapCall(t, poolA, 1_000, 11),
				specificSwapCall(t, poolB, 2_000, 22),
			},
		}}
		h := NewSudoswapHandler(chain)
		data := NewOnChainData()

		err := h.HandleEvents(context.Background(), []EnhancedEvent{
			swapOutEvent(tx, poolA, 1),
			swapOutEvent(tx, poolB, 2),
		}, data)
		require.NoError(t, err)

		// Ranks count per pool, so each event pairs with its pool's only call.
		require.Len(t, data.Fills, 2)
		assert.Equal(t, poolA, data.Fills[0].Maker)
		assert.Equal(t, int64(11), data.Fills[0].TokenID.Int64())
		assert.Equal(t, int64(1_000), data.Fills[0].Price.Int64())
		assert.Equal(t, poolB, data.Fills[1].Maker)
		assert.Equal(t, int64(22), data.Fills[1].TokenID.Int64())
		assert.Equal(t, int64(2_000), data.Fills[1].Price.Int64())
	})

	t.Run("two swaps against the same pool rank in order", func(t *testing.T) {
		chain := &fakeChainClient{trace: &types.CallTrace{
			Type: "CALL",
			Calls: []types.CallTrace{
				specificSwapCall(t, poolA, 1_000, 11),
				specificSwapCall(t, poolA, 3_000, 33),
			},
		}}
		h := NewSudoswapHandler(chain)
		data := NewOnChainData()

		err := h.HandleEvents(context.Background(), []EnhancedEvent{
			swapOutEvent(tx, poolA, 1),
			swapOutEvent(tx, poolA, 2),
		}, data)
		require.NoError(t, err)

		require.Len(t, data.Fills, 2)
		assert.Equal(t, int64(11), data.Fills[0].TokenID.Int64())
		assert.Equal(t, int64(33), data.Fills[1].TokenID.Int64())
	})
}

func TestNextTradeRank(t *testing.T) {
	tx := common.HexToHash("0x01")
	otherTx := common.HexToHash("0x02")
	data := NewOnChainData()

	assert.Equal(t, 0, data.NextTradeRank(tx, poolA, subKindSudoswapSwapOut))
	assert.Equal(t, 1, data.NextTradeRank(tx, poolA, subKindSudoswapSwapOut))

	// Other pools, directions and transactions keep independent counters.
	assert.Equal(t, 0, data.NextTradeRank(tx, poolB, subKindSudoswapSwapOut))
	assert.Equal(t, 0, data.NextTradeRank(tx, poolA, subKindSudoswapSwapIn))
	assert.Equal(t, 0, data.NextTradeRank(otherTx, poolA, subKindSudoswapSwapOut))
}
