package reconcile

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/orderbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTokenSetID    = "token:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d:1234"
	testContractSetID = "contract:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d"
)

// fakeDG stubs only the methods the reconciler touches; calling anything else
// panics through the embedded nil interface.
type fakeDG struct {
	datagateway.MarketplaceDataGateway

	orders map[string]*entity.Order

	floorAsk *entity.FloorAsk
	topBid   *entity.TopBid
	cached   *entity.TopBid

	setFloorAsks   []*entity.FloorAsk
	deletedFloors  int
	setTopBids     []*entity.TopBid
	deletedTopBids int
	statusUpdates  []entity.FillabilityStatus
	orderEvents    []*entity.OrderEvent
	activities     []*entity.Activity
}

func (f *fakeDG) GetOrder(_ context.Context, id string) (*entity.Order, error) {
	if order, ok := f.orders[id]; ok {
		return order, nil
	}
	return nil, errors.WithStack(errs.NotFound)
}

func (f *fakeDG) ComputeFloorAsk(_ context.Context, _ ethcommon.Address, _ *big.Int) (*entity.FloorAsk, error) {
	if f.floorAsk == nil {
		return nil, errors.WithStack(errs.NotFound)
	}
	return f.floorAsk, nil
}

func (f *fakeDG) SetFloorAsk(_ context.Context, floorAsk *entity.FloorAsk) error {
	f.setFloorAsks = append(f.setFloorAsks, floorAsk)
	return nil
}

func (f *fakeDG) DeleteFloorAsk(_ context.Context, _ ethcommon.Address, _ *big.Int) error {
	f.deletedFloors++
	return nil
}

func (f *fakeDG) ComputeTopBid(_ context.Context, _ string, _ ethcommon.Address) (*entity.TopBid, error) {
	if f.topBid == nil {
		return nil, errors.WithStack(errs.NotFound)
	}
	return f.topBid, nil
}

func (f *fakeDG) GetTopBid(_ context.Context, _ string) (*entity.TopBid, error) {
	if f.cached == nil {
		return nil, errors.WithStack(errs.NotFound)
	}
	return f.cached, nil
}

func (f *fakeDG) SetTopBid(_ context.Context, topBid *entity.TopBid) error {
	f.setTopBids = append(f.setTopBids, topBid)
	return nil
}

func (f *fakeDG) DeleteTopBid(_ context.Context, _ string) error {
	f.deletedTopBids++
	return nil
}

func (f *fakeDG) UpdateOrderStatus(_ context.Context, _ string, fillability entity.FillabilityStatus, _ entity.ApprovalStatus) error {
	f.statusUpdates = append(f.statusUpdates, fillability)
	return nil
}

func (f *fakeDG) CreateOrderEvents(_ context.Context, events []*entity.OrderEvent) error {
	f.orderEvents = append(f.orderEvents, events...)
	return nil
}

func (f *fakeDG) CreateActivities(_ context.Context, activities []*entity.Activity) error {
	f.activities = append(f.activities, activities...)
	return nil
}

type fakeProber struct {
	result orderbook.ProbeResult
	err    error
	calls  int
}

func (f *fakeProber) ProbeSell(_ context.Context, _, _ ethcommon.Address, _, _ *big.Int, _ ethcommon.Address) (orderbook.ProbeResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeProber) ProbeBuy(_ context.Context, _, _ ethcommon.Address, _ *big.Int, _ ethcommon.Address) (orderbook.ProbeResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeProber) OwnerOf(_ context.Context, _ ethcommon.Address, _ *big.Int) (ethcommon.Address, error) {
	return ethcommon.Address{}, errors.New("not implemented")
}

func newTestReconciler(dg *fakeDG, prober orderbook.FillabilityProber) *Reconciler {
	return New(dg, nil, prober, Config{})
}

func activeOrder(id, tokenSetID string, side entity.OrderSide) *entity.Order {
	return &entity.Order{
		ID:                id,
		Side:              side,
		TokenSetID:        tokenSetID,
		Maker:             ethcommon.HexToAddress("0xaaaaAAAaaAAAAaaaAaaAaAaaAAAAaaaaaaaAAaAa"),
		Price:             big.NewInt(100),
		Value:             big.NewInt(100),
		QuantityRemaining: big.NewInt(1),
		FillabilityStatus: entity.FillabilityFillable,
		ApprovalStatus:    entity.ApprovalApproved,
	}
}

func TestProcessTriggerFloorAsk(t *testing.T) {
	t.Run("recompute stores the new floor", func(t *testing.T) {
		dg := &fakeDG{
			orders: map[string]*entity.Order{
				"o1": activeOrder("o1", testTokenSetID, entity.OrderSideSell),
			},
			floorAsk: &entity.FloorAsk{OrderID: "o1", Price: big.NewInt(100)},
		}
		r := newTestReconciler(dg, &fakeProber{})

		err := r.processTrigger(context.Background(), entity.Trigger{
			Context: "new-order-o1",
			Kind:    entity.TriggerNewOrder,
			OrderID: "o1",
		})
		require.NoError(t, err)
		require.Len(t, dg.setFloorAsks, 1)
		assert.Equal(t, "o1", dg.setFloorAsks[0].OrderID)
		// side effects: audit row plus new-sell-order activity
		assert.Len(t, dg.orderEvents, 1)
		require.Len(t, dg.activities, 1)
		assert.Equal(t, entity.ActivityNewSellOrder, dg.activities[0].Kind)
	})

	t.Run("empty book clears the floor", func(t *testing.T) {
		dg := &fakeDG{
			orders: map[string]*entity.Order{
				"o1": activeOrder("o1", testTokenSetID, entity.OrderSideSell),
			},
		}
		r := newTestReconciler(dg, &fakeProber{})

		err := r.processTrigger(context.Background(), entity.Trigger{
			Context: "cancelled-o1",
			Kind:    entity.TriggerCancel,
			OrderID: "o1",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, dg.deletedFloors)
		assert.Empty(t, dg.setFloorAsks)
	})

	t.Run("broad sell scope carries no per-token floor", func(t *testing.T) {
		dg := &fakeDG{
			orders: map[string]*entity.Order{
				"o1": activeOrder("o1", testContractSetID, entity.OrderSideSell),
			},
		}
		r := newTestReconciler(dg, &fakeProber{})

		err := r.processTrigger(context.Background(), entity.Trigger{
			Context: "new-order-o1",
			Kind:    entity.TriggerNewOrder,
			OrderID: "o1",
		})
		require.NoError(t, err)
		assert.Empty(t, dg.setFloorAsks)
		assert.Zero(t, dg.deletedFloors)
	})
}

func TestProcessTriggerTopBid(t *testing.T) {
	t.Run("unchanged value writes nothing", func(t *testing.T) {
		bid := &entity.TopBid{TokenSetID: testContractSetID, OrderID: "o1", Value: big.NewInt(500)}
		dg := &fakeDG{
			orders: map[string]*entity.Order{
				"o1": activeOrder("o1", testContractSetID, entity.OrderSideBuy),
			},
			topBid: bid,
			cached: &entity.TopBid{TokenSetID: testContractSetID, OrderID: "o1", Value: big.NewInt(500)},
		}
		r := newTestReconciler(dg, &fakeProber{})

		err := r.processTrigger(context.Background(), entity.Trigger{
			Context: "reprice-o1",
			Kind:    entity.TriggerReprice,
			OrderID: "o1",
		})
		require.NoError(t, err)
		assert.Empty(t, dg.setTopBids)
		// the audit row is still written
		assert.Len(t, dg.orderEvents, 1)
	})

	t.Run("changed value stores the bid and records activity", func(t *testing.T) {
		dg := &fakeDG{
			orders: map[string]*entity.Order{
				"o2": activeOrder("o2", testContractSetID, entity.OrderSideBuy),
			},
			topBid: &entity.TopBid{TokenSetID: testContractSetID, OrderID: "o2", Value: big.NewInt(700)},
			cached: &entity.TopBid{TokenSetID: testContractSetID, OrderID: "o1", Value: big.NewInt(500)},
		}
		r := newTestReconciler(dg, &fakeProber{})

		err := r.processTrigger(context.Background(), entity.Trigger{
			Context: "new-order-o2",
			Kind:    entity.TriggerNewOrder,
			OrderID: "o2",
		})
		require.NoError(t, err)
		require.Len(t, dg.setTopBids, 1)
		assert.Equal(t, "o2", dg.setTopBids[0].OrderID)

		var kinds []entity.ActivityKind
		for _, a := range dg.activities {
			kinds = append(kinds, a.Kind)
		}
		assert.Contains(t, kinds, entity.ActivityNewTopBid)
	})

	t.Run("revalidation with empty book clears the cache", func(t *testing.T) {
		dg := &fakeDG{
			orders: map[string]*entity.Order{
				"o1": activeOrder("o1", testContractSetID, entity.OrderSideBuy),
			},
			cached: &entity.TopBid{TokenSetID: testContractSetID, OrderID: "o1", Value: big.NewInt(500)},
		}
		r := newTestReconciler(dg, &fakeProber{})

		err := r.processTrigger(context.Background(), entity.Trigger{
			Context: "revalidation-o1",
			Kind:    entity.TriggerRevalidation,
			OrderID: "o1",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, dg.deletedTopBids)
	})

	t.Run("single-token buy scope skips top bid", func(t *testing.T) {
		dg := &fakeDG{
			orders: map[string]*entity.Order{
				"o1": activeOrder("o1", testTokenSetID, entity.OrderSideBuy),
			},
			topBid: &entity.TopBid{TokenSetID: testTokenSetID, OrderID: "o1", Value: big.NewInt(500)},
		}
		r := newTestReconciler(dg, &fakeProber{})

		err := r.processTrigger(context.Background(), entity.Trigger{
			Context: "new-order-o1",
			Kind:    entity.TriggerNewOrder,
			OrderID: "o1",
		})
		require.NoError(t, err)
		assert.Empty(t, dg.setTopBids)
	})
}

func TestProcessTriggerWithoutScope(t *testing.T) {
	dg := &fakeDG{orders: map[string]*entity.Order{}}
	r := newTestReconciler(dg, &fakeProber{})

	// A fill of an order this indexer never stored resolves to no scope.
	err := r.processTrigger(context.Background(), entity.Trigger{
		Context: "filled-unknown",
		Kind:    entity.TriggerSale,
		OrderID: "unknown",
	})
	require.NoError(t, err)
	assert.Empty(t, dg.orderEvents)
	assert.Empty(t, dg.activities)
}

func TestRevalidateOrder(t *testing.T) {
	t.Run("expired fillable order flips to expired", func(t *testing.T) {
		order := activeOrder("o1", testTokenSetID, entity.OrderSideSell)
		order.ValidUntil = time.Now().Add(-time.Hour)
		dg := &fakeDG{orders: map[string]*entity.Order{"o1": order}}
		prober := &fakeProber{}
		r := newTestReconciler(dg, prober)

		require.NoError(t, r.revalidateOrder(context.Background(), order))
		require.Len(t, dg.statusUpdates, 1)
		assert.Equal(t, entity.FillabilityExpired, dg.statusUpdates[0])
		assert.Zero(t, prober.calls)
	})

	t.Run("recoverable order re-probes and recovers", func(t *testing.T) {
		order := activeOrder("o1", testTokenSetID, entity.OrderSideSell)
		order.FillabilityStatus = entity.FillabilityNoBalance
		dg := &fakeDG{orders: map[string]*entity.Order{"o1": order}}
		prober := &fakeProber{result: orderbook.ProbeResult{HasBalance: true, HasApproval: true}}
		r := newTestReconciler(dg, prober)

		require.NoError(t, r.revalidateOrder(context.Background(), order))
		assert.Equal(t, 1, prober.calls)
		require.Len(t, dg.statusUpdates, 1)
		assert.Equal(t, entity.FillabilityFillable, dg.statusUpdates[0])
		assert.Equal(t, entity.FillabilityFillable, order.FillabilityStatus)
	})

	t.Run("unchanged probe result writes nothing", func(t *testing.T) {
		order := activeOrder("o1", testTokenSetID, entity.OrderSideSell)
		order.FillabilityStatus = entity.FillabilityNoBalance
		order.ApprovalStatus = entity.ApprovalNoApproval
		dg := &fakeDG{orders: map[string]*entity.Order{"o1": order}}
		prober := &fakeProber{result: orderbook.ProbeResult{HasBalance: false, HasApproval: false}}
		r := newTestReconciler(dg, prober)

		require.NoError(t, r.revalidateOrder(context.Background(), order))
		assert.Empty(t, dg.statusUpdates)
	})

	t.Run("terminal orders are left alone", func(t *testing.T) {
		order := activeOrder("o1", testTokenSetID, entity.OrderSideSell)
		order.FillabilityStatus = entity.FillabilityCancelled
		dg := &fakeDG{orders: map[string]*entity.Order{"o1": order}}
		prober := &fakeProber{}
		r := newTestReconciler(dg, prober)

		require.NoError(t, r.revalidateOrder(context.Background(), order))
		assert.Zero(t, prober.calls)
		assert.Empty(t, dg.statusUpdates)
	})
}
