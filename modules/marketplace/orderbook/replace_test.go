package orderbook

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReplaceDG struct {
	datagateway.MarketplaceDataGateway

	orders    map[string]*entity.Order
	cancelled []string
}

func (f *fakeReplaceDG) GetOrder(_ context.Context, id string) (*entity.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, errors.WithStack(errs.NotFound)
	}
	return order, nil
}

func (f *fakeReplaceDG) CancelOrder(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func TestCancelReplaced(t *testing.T) {
	maker := ethcommon.HexToAddress("0x1111111111111111111111111111111111111111")
	cancellationZone := ethcommon.HexToAddress("0x2222222222222222222222222222222222222222")
	otherZone := ethcommon.HexToAddress("0x3333333333333333333333333333333333333333")
	opts := Options{CancellationZones: map[ethcommon.Address]struct{}{cancellationZone: {}}}

	newOrder := &entity.Order{
		ID:    "0xnew",
		Kind:  "seaport-v1.5",
		Maker: maker,
		Zone:  cancellationZone,
	}

	t.Run("replaces order in a cancellation zone", func(t *testing.T) {
		dg := &fakeReplaceDG{orders: map[string]*entity.Order{
			"0xold": {ID: "0xold", Kind: "seaport-v1.5", Maker: maker, Zone: cancellationZone, Side: entity.OrderSideSell},
		}}
		book := &OrderBook{dg: dg, opts: opts}

		var triggers []entity.Trigger
		require.NoError(t, book.cancelReplaced(context.Background(), "0xold", newOrder, &triggers))
		assert.Equal(t, []string{"0xold"}, dg.cancelled)
		require.Len(t, triggers, 1)
		assert.Equal(t, entity.TriggerCancel, triggers[0].Kind)
		assert.Equal(t, "0xold", triggers[0].OrderID)
	})

	t.Run("leaves orders outside cancellation zones alone", func(t *testing.T) {
		dg := &fakeReplaceDG{orders: map[string]*entity.Order{
			"0xold": {ID: "0xold", Kind: "seaport-v1.5", Maker: maker, Zone: otherZone, Side: entity.OrderSideSell},
		}}
		book := &OrderBook{dg: dg, opts: opts}

		var triggers []entity.Trigger
		require.NoError(t, book.cancelReplaced(context.Background(), "0xold", newOrder, &triggers))
		assert.Empty(t, dg.cancelled)
		assert.Empty(t, triggers)
	})

	t.Run("leaves other makers' orders alone", func(t *testing.T) {
		dg := &fakeReplaceDG{orders: map[string]*entity.Order{
			"0xold": {ID: "0xold", Kind: "seaport-v1.5", Maker: ethcommon.HexToAddress("0x4444444444444444444444444444444444444444"), Zone: cancellationZone},
		}}
		book := &OrderBook{dg: dg, opts: opts}

		var triggers []entity.Trigger
		require.NoError(t, book.cancelReplaced(context.Background(), "0xold", newOrder, &triggers))
		assert.Empty(t, dg.cancelled)
	})

	t.Run("unknown replaced id is a no-op", func(t *testing.T) {
		dg := &fakeReplaceDG{orders: map[string]*entity.Order{}}
		book := &OrderBook{dg: dg, opts: opts}

		var triggers []entity.Trigger
		require.NoError(t, book.cancelReplaced(context.Background(), "0xmissing", newOrder, &triggers))
		assert.Empty(t, dg.cancelled)
	})
}
