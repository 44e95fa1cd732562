package orderbook

import (
	"context"
	"math/big"
	"testing"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTopBidDG struct {
	datagateway.MarketplaceDataGateway

	excludedMakers []ethcommon.Address
	topBid         *entity.TopBid
}

func (f *fakeTopBidDG) ComputeTopBid(_ context.Context, _ string, excludeMaker ethcommon.Address) (*entity.TopBid, error) {
	f.excludedMakers = append(f.excludedMakers, excludeMaker)
	return f.topBid, nil
}

type fakeOwnerProber struct {
	FillabilityProber

	owner    ethcommon.Address
	ownerErr error
}

func (f *fakeOwnerProber) OwnerOf(_ context.Context, _ ethcommon.Address, _ *big.Int) (ethcommon.Address, error) {
	return f.owner, f.ownerErr
}

func TestTopBidForToken(t *testing.T) {
	contract := ethcommon.HexToAddress("0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D")
	holder := ethcommon.HexToAddress("0x8888888888888888888888888888888888888888")
	bidder := ethcommon.HexToAddress("0x9999999999999999999999999999999999999999")
	tokenSetID := "contract:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d"

	t.Run("current holder is excluded as maker", func(t *testing.T) {
		dg := &fakeTopBidDG{topBid: &entity.TopBid{
			TokenSetID: tokenSetID,
			OrderID:    "o1",
			Maker:      bidder,
			Value:      big.NewInt(500),
		}}
		book := &OrderBook{dg: dg, prober: &fakeOwnerProber{owner: holder}}

		topBid, err := book.TopBidForToken(context.Background(), tokenSetID, contract, big.NewInt(1234))
		require.NoError(t, err)
		assert.Equal(t, "o1", topBid.OrderID)
		require.Len(t, dg.excludedMakers, 1)
		assert.Equal(t, holder, dg.excludedMakers[0])
	})

	t.Run("unresolvable holder serves without exclusion", func(t *testing.T) {
		dg := &fakeTopBidDG{topBid: &entity.TopBid{
			TokenSetID: tokenSetID,
			OrderID:    "o1",
			Maker:      bidder,
			Value:      big.NewInt(500),
		}}
		book := &OrderBook{dg: dg, prober: &fakeOwnerProber{ownerErr: errors.New("execution reverted")}}

		_, err := book.TopBidForToken(context.Background(), tokenSetID, contract, big.NewInt(1234))
		require.NoError(t, err)
		require.Len(t, dg.excludedMakers, 1)
		assert.Equal(t, ethcommon.Address{}, dg.excludedMakers[0])
	})
}
