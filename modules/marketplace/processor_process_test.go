package marketplace

import (
	"context"
	"math/big"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActivityDG struct {
	datagateway.MarketplaceDataGateway

	activities []*entity.Activity
}

func (f *fakeActivityDG) CreateActivities(_ context.Context, activities []*entity.Activity) error {
	f.activities = append(f.activities, activities...)
	return nil
}

func TestRecordSaleActivities(t *testing.T) {
	blockHash := ethcommon.HexToHash("0xaaaa000000000000000000000000000000000000000000000000000000000001")
	txHash := ethcommon.HexToHash("0xbbbb000000000000000000000000000000000000000000000000000000000002")
	contract := ethcommon.HexToAddress("0x1111111111111111111111111111111111111111")
	maker := ethcommon.HexToAddress("0x2222222222222222222222222222222222222222")

	fill := &entity.FillEvent{
		OrderID:   "0xorder",
		OrderKind: "seaport-v1.5",
		OrderSide: entity.OrderSideSell,
		Maker:     maker,
		Contract:  contract,
		TokenID:   big.NewInt(42),
		Amount:    big.NewInt(1),
		Price:     big.NewInt(1_000_000),
		Base: entity.BaseEventParams{
			BlockHeight: 19_000_000,
			BlockHash:   blockHash,
			TxHash:      txHash,
			Timestamp:   time.Unix(1_700_000_000, 0),
		},
	}

	dg := &fakeActivityDG{}
	p := &Processor{}
	require.NoError(t, p.recordSaleActivities(context.Background(), dg, []*entity.FillEvent{fill}))

	require.Len(t, dg.activities, 1)
	activity := dg.activities[0]
	assert.Equal(t, entity.ActivitySale, activity.Kind)
	assert.Equal(t, "0xorder", activity.OrderID)
	assert.Equal(t, contract, activity.Contract)

	// The reorg purge locates activity rows by block coordinates, so a sale
	// activity must carry the same (height, hash) pair as its fill event.
	assert.Equal(t, fill.Base.BlockHeight, activity.BlockHeight)
	assert.Equal(t, fill.Base.BlockHash, activity.BlockHash)
}
