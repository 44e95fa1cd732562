package protocols

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testTopicA   = common.HexToHash("0x01")
	testTopicB   = common.HexToHash("0x02")
	testEmitter  = common.HexToAddress("0x00000000006c3852cbEf3e08E8dF289169EdE581")
	otherEmitter = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register(EventInfo{
		Kind:      KindSeaport,
		SubKind:   "order-fulfilled",
		Topic:     testTopicA,
		NumTopics: 3,
		Addresses: []common.Address{testEmitter},
	})
	r.Register(EventInfo{
		Kind:      KindERC20,
		SubKind:   "transfer",
		Topic:     testTopicB,
		NumTopics: 3,
	})
	return r
}

func TestRegistryMatch(t *testing.T) {
	r := testRegistry()

	t.Run("matches topic, count and address", func(t *testing.T) {
		matches := r.Match(ethtypes.Log{
			Address: testEmitter,
			Topics:  []common.Hash{testTopicA, {}, {}},
		})
		require.Len(t, matches, 1)
		assert.Equal(t, KindSeaport, matches[0].Kind)
	})

	t.Run("rejects wrong topic count", func(t *testing.T) {
		matches := r.Match(ethtypes.Log{
			Address: testEmitter,
			Topics:  []common.Hash{testTopicA, {}},
		})
		assert.Empty(t, matches)
	})

	t.Run("rejects non-allow-listed emitter", func(t *testing.T) {
		matches := r.Match(ethtypes.Log{
			Address: otherEmitter,
			Topics:  []common.Hash{testTopicA, {}, {}},
		})
		assert.Empty(t, matches)
	})

	t.Run("empty address list matches any emitter", func(t *testing.T) {
		matches := r.Match(ethtypes.Log{
			Address: otherEmitter,
			Topics:  []common.Hash{testTopicB, {}, {}},
		})
		require.Len(t, matches, 1)
		assert.Equal(t, KindERC20, matches[0].Kind)
	})

	t.Run("no topics", func(t *testing.T) {
		assert.Empty(t, r.Match(ethtypes.Log{Address: testEmitter}))
	})
}

func TestRegistryTopics(t *testing.T) {
	r := testRegistry()
	// A second registration on an existing topic must not duplicate the filter.
	r.Register(EventInfo{
		Kind:      KindElement,
		SubKind:   "erc721-sell",
		Topic:     testTopicA,
		NumTopics: 1,
	})
	topics := r.Topics()
	assert.Len(t, topics, 2)
	assert.Contains(t, topics, testTopicA)
	assert.Contains(t, topics, testTopicB)
}

func TestHandlerOrder(t *testing.T) {
	ordered := HandlerOrder([]Kind{KindSeaport, KindERC20, KindBlur})
	require.Len(t, ordered, 3)
	assert.Equal(t, KindERC20, ordered[0])
	assert.Equal(t, []Kind{KindSeaport, KindBlur}, ordered[1:])

	assert.Equal(t, []Kind{KindSeaport}, HandlerOrder([]Kind{KindSeaport}))
	assert.Empty(t, HandlerOrder(nil))
}
