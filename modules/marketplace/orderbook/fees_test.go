package orderbook

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	royaltyRecipientA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	royaltyRecipientB = common.HexToAddress("0x2222222222222222222222222222222222222222")
	marketplaceFeeRcv = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func TestTotalFeeBps(t *testing.T) {
	fees := []entity.FeeBreakdown{
		{Kind: entity.FeeKindMarketplace, Recipient: marketplaceFeeRcv, Bps: 250},
		{Kind: entity.FeeKindRoyalty, Recipient: royaltyRecipientA, Bps: 500},
	}
	assert.Equal(t, int64(750), totalFeeBps(fees))
	assert.Equal(t, int64(0), totalFeeBps(nil))
}

func TestBuiltInRoyaltyBps(t *testing.T) {
	fees := []entity.FeeBreakdown{
		{Kind: entity.FeeKindMarketplace, Recipient: marketplaceFeeRcv, Bps: 250},
		{Kind: entity.FeeKindRoyalty, Recipient: royaltyRecipientA, Bps: 300},
		{Kind: entity.FeeKindRoyalty, Recipient: royaltyRecipientB, Bps: 200},
	}
	assert.Equal(t, int64(500), builtInRoyaltyBps(fees))
}

func TestMissingRoyaltyBps(t *testing.T) {
	defaults := &entity.CollectionRoyalties{
		Contract: common.HexToAddress("0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D"),
		Recipients: []entity.RoyaltyRecipient{
			{Recipient: royaltyRecipientA, Bps: 500},
		},
	}

	t.Run("order below collection default", func(t *testing.T) {
		missing := missingRoyaltyBps(defaults, 250)
		require.Len(t, missing, 1)
		assert.Equal(t, royaltyRecipientA, missing[0].Recipient)
		assert.Equal(t, int64(250), missing[0].Bps)
	})

	t.Run("order meets collection default", func(t *testing.T) {
		assert.Empty(t, missingRoyaltyBps(defaults, 500))
		assert.Empty(t, missingRoyaltyBps(defaults, 700))
	})

	t.Run("no defaults configured", func(t *testing.T) {
		assert.Empty(t, missingRoyaltyBps(nil, 0))
		assert.Empty(t, missingRoyaltyBps(&entity.CollectionRoyalties{}, 0))
	})

	t.Run("gap split pro-rata across recipients", func(t *testing.T) {
		split := &entity.CollectionRoyalties{
			Recipients: []entity.RoyaltyRecipient{
				{Recipient: royaltyRecipientA, Bps: 300},
				{Recipient: royaltyRecipientB, Bps: 200},
			},
		}
		missing := missingRoyaltyBps(split, 250)
		require.Len(t, missing, 2)
		// gap = 250, shares are floor(250*300/500) and floor(250*200/500)
		assert.Equal(t, int64(150), missing[0].Bps)
		assert.Equal(t, int64(100), missing[1].Bps)
	})

	t.Run("floor division drops remainder bps", func(t *testing.T) {
		split := &entity.CollectionRoyalties{
			Recipients: []entity.RoyaltyRecipient{
				{Recipient: royaltyRecipientA, Bps: 333},
				{Recipient: royaltyRecipientB, Bps: 333},
			},
		}
		missing := missingRoyaltyBps(split, 111)
		require.Len(t, missing, 2)
		var total int64
		for _, m := range missing {
			total += m.Bps
		}
		// 555 bps gap cannot split evenly; the lost bps are accepted.
		assert.LessOrEqual(t, total, int64(555))
		assert.Greater(t, total, int64(0))
	})
}

func TestApplyBps(t *testing.T) {
	price := big.NewInt(1_000_000)
	assert.Equal(t, int64(25_000), applyBps(price, 250).Int64())
	assert.Equal(t, int64(0), applyBps(price, 0).Int64())
	// floor division
	assert.Equal(t, int64(0), applyBps(big.NewInt(3), 250).Int64())
}

func TestComputeValues(t *testing.T) {
	price := big.NewInt(1_000_000)
	missing := []entity.Royalty{{Recipient: royaltyRecipientA, Bps: 250}}

	t.Run("sell order nets full price, normalized adds missing royalties", func(t *testing.T) {
		value, normalized := computeValues(entity.OrderSideSell, price, 500, missing)
		assert.Equal(t, int64(1_000_000), value.Int64())
		assert.Equal(t, int64(1_025_000), normalized.Int64())
	})

	t.Run("buy order nets price minus fees, normalized subtracts missing royalties", func(t *testing.T) {
		value, normalized := computeValues(entity.OrderSideBuy, price, 500, missing)
		assert.Equal(t, int64(950_000), value.Int64())
		assert.Equal(t, int64(925_000), normalized.Int64())
	})

	t.Run("missing royalty amounts are materialized", func(t *testing.T) {
		m := []entity.Royalty{{Recipient: royaltyRecipientA, Bps: 250}}
		computeValues(entity.OrderSideSell, price, 0, m)
		require.NotNil(t, m[0].Amount)
		assert.Equal(t, int64(25_000), m[0].Amount.Int64())
	})

	t.Run("input price is not mutated", func(t *testing.T) {
		original := new(big.Int).Set(price)
		computeValues(entity.OrderSideBuy, price, 500, missing)
		assert.Zero(t, price.Cmp(original))
	})
}
