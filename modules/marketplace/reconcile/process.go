package reconcile

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/orderbook"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
)

// processTrigger resolves the trigger's order context and dispatches the
// side-specific recomputation.
func (r *Reconciler) processTrigger(ctx context.Context, trigger entity.Trigger) error {
	var order *entity.Order
	if trigger.OrderID != "" {
		var err error
		order, err = r.dg.GetOrder(ctx, trigger.OrderID)
		if err != nil && !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "load triggering order")
		}
	}
	if order != nil {
		// Triggers enqueued with only an id re-derive scope from the order.
		if trigger.TokenSetID == "" {
			trigger.TokenSetID = order.TokenSetID
		}
		if trigger.Side == "" {
			trigger.Side = order.Side
		}
	}
	if trigger.TokenSetID == "" {
		// Orders this indexer never stored (foreign fills) have nothing to
		// recompute against.
		logger.DebugContext(ctx, "trigger without resolvable scope, nothing to reconcile",
			slogx.String("context", trigger.Context),
			slogx.String("orderId", trigger.OrderID),
		)
		return nil
	}

	if trigger.Kind == entity.TriggerRevalidation && order != nil {
		if err := r.revalidateOrder(ctx, order); err != nil {
			return err
		}
	}

	switch trigger.Side {
	case entity.OrderSideSell:
		if err := r.recomputeFloorAsk(ctx, trigger); err != nil {
			return err
		}
	case entity.OrderSideBuy:
		if !tokenset.IsSingleToken(trigger.TokenSetID) {
			if err := r.recomputeTopBid(ctx, trigger); err != nil {
				return err
			}
		}
	}

	return r.emitSideEffects(ctx, trigger, order)
}

// revalidateOrder re-probes on-chain state for degraded orders and applies
// time-based expiry. Only no-balance and no-approval are recoverable.
func (r *Reconciler) revalidateOrder(ctx context.Context, order *entity.Order) error {
	if !order.ValidUntil.IsZero() && order.ValidUntil.Before(time.Now()) {
		switch order.FillabilityStatus {
		case entity.FillabilityFillable, entity.FillabilityNoBalance:
			return errors.Wrap(
				r.dg.UpdateOrderStatus(ctx, order.ID, entity.FillabilityExpired, order.ApprovalStatus),
				"expire order",
			)
		}
		return nil
	}

	recoverable := order.FillabilityStatus == entity.FillabilityNoBalance ||
		(order.FillabilityStatus == entity.FillabilityFillable && order.ApprovalStatus == entity.ApprovalNoApproval)
	if !recoverable {
		return nil
	}

	probe, err := r.probeOrder(ctx, order)
	if err != nil {
		return errors.Wrap(err, "re-probe order")
	}
	fillability := entity.FillabilityNoBalance
	if probe.HasBalance {
		fillability = entity.FillabilityFillable
	}
	approval := entity.ApprovalNoApproval
	if probe.HasApproval {
		approval = entity.ApprovalApproved
	}
	if fillability == order.FillabilityStatus && approval == order.ApprovalStatus {
		return nil
	}
	if err := r.dg.UpdateOrderStatus(ctx, order.ID, fillability, approval); err != nil {
		return errors.Wrap(err, "update revalidated order status")
	}
	order.FillabilityStatus = fillability
	order.ApprovalStatus = approval
	return nil
}

func (r *Reconciler) probeOrder(ctx context.Context, order *entity.Order) (orderbook.ProbeResult, error) {
	if order.Side == entity.OrderSideBuy {
		return r.prober.ProbeBuy(ctx, order.Maker, order.Currency, order.Price, ethcommon.Address{})
	}
	contract, tokenID, err := tokenset.ParseSingleToken(order.TokenSetID)
	if err != nil {
		// Broad sell scopes cannot be probed token by token.
		return orderbook.ProbeResult{HasBalance: true, HasApproval: true}, nil
	}
	return r.prober.ProbeSell(ctx, order.Maker, contract, tokenID, order.QuantityRemaining, ethcommon.Address{})
}

func (r *Reconciler) recomputeFloorAsk(ctx context.Context, trigger entity.Trigger) error {
	contract, tokenID, err := tokenset.ParseSingleToken(trigger.TokenSetID)
	if err != nil {
		// Broader sell scopes carry no per-token floor.
		return nil
	}
	floorAsk, err := r.dg.ComputeFloorAsk(ctx, contract, tokenID)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errors.Wrap(r.dg.DeleteFloorAsk(ctx, contract, tokenID), "clear floor ask")
		}
		return errors.Wrap(err, "compute floor ask")
	}
	return errors.Wrap(r.dg.SetFloorAsk(ctx, floorAsk), "store floor ask")
}

// recomputeTopBid writes only when the ranked value actually changed, so
// repeated triggers on an unchanged book do not fan out downstream.
//
// The cache ranks without a holder exclusion: a set-level bid covers many
// tokens with many holders, so no single maker can be excluded here. Token
// reads apply the exclusion at serve time (orderbook.TopBidForToken).
func (r *Reconciler) recomputeTopBid(ctx context.Context, trigger entity.Trigger) error {
	topBid, err := r.dg.ComputeTopBid(ctx, trigger.TokenSetID, ethcommon.Address{})
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "compute top bid")
		}
		if trigger.Kind == entity.TriggerRevalidation {
			// Revalidation exists to fix stale aggregates; an empty result
			// must still clear whatever is cached.
			return errors.Wrap(r.dg.DeleteTopBid(ctx, trigger.TokenSetID), "clear top bid")
		}
		current, err := r.dg.GetTopBid(ctx, trigger.TokenSetID)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				return nil
			}
			return errors.Wrap(err, "read cached top bid")
		}
		if current.OrderID == trigger.OrderID || trigger.Kind == entity.TriggerCancel || trigger.Kind == entity.TriggerSale {
			return errors.Wrap(r.dg.DeleteTopBid(ctx, trigger.TokenSetID), "clear top bid")
		}
		return nil
	}

	current, err := r.dg.GetTopBid(ctx, trigger.TokenSetID)
	if err == nil && current.OrderID == topBid.OrderID && current.Value.Cmp(topBid.Value) == 0 {
		return nil
	}
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "read cached top bid")
	}
	if err := r.dg.SetTopBid(ctx, topBid); err != nil {
		return errors.Wrap(err, "store top bid")
	}
	return errors.Wrap(r.dg.CreateActivities(ctx, []*entity.Activity{{
		Kind:       entity.ActivityNewTopBid,
		OrderID:    topBid.OrderID,
		TokenSetID: topBid.TokenSetID,
		Maker:      topBid.Maker,
		Price:      topBid.Value,
		CreatedAt:  time.Now(),
	}}), "record top bid activity")
}

// emitSideEffects writes the audit row and, for the trigger kinds that
// warrant it, an activity notification. Sale activities are written by fill
// processing, not here.
func (r *Reconciler) emitSideEffects(ctx context.Context, trigger entity.Trigger, order *entity.Order) error {
	if order == nil {
		return nil
	}
	event := &entity.OrderEvent{
		OrderID:           order.ID,
		Kind:              trigger.Kind,
		FillabilityStatus: order.FillabilityStatus,
		ApprovalStatus:    order.ApprovalStatus,
		Price:             order.Price,
		Value:             order.Value,
		QuantityRemaining: order.QuantityRemaining,
		ValidUntil:        order.ValidUntil,
		TxHash:            trigger.TxHash,
		CreatedAt:         time.Now(),
	}
	if err := r.dg.CreateOrderEvents(ctx, []*entity.OrderEvent{event}); err != nil {
		return errors.Wrap(err, "record order event")
	}

	var activityKind entity.ActivityKind
	switch trigger.Kind {
	case entity.TriggerCancel:
		activityKind = entity.ActivitySellOrderCancelled
		if order.Side == entity.OrderSideBuy {
			activityKind = entity.ActivityBuyOrderCancelled
		}
	case entity.TriggerNewOrder, entity.TriggerReprice:
		if !order.IsActive() {
			return nil
		}
		activityKind = entity.ActivityNewSellOrder
		if order.Side == entity.OrderSideBuy {
			activityKind = entity.ActivityNewBuyOrder
		}
	default:
		return nil
	}

	activity := &entity.Activity{
		Kind:       activityKind,
		OrderID:    order.ID,
		TokenSetID: order.TokenSetID,
		Maker:      order.Maker,
		Price:      order.Price,
		TxHash:     trigger.TxHash,
		CreatedAt:  time.Now(),
	}
	if contract, tokenID, err := tokenset.ParseSingleToken(order.TokenSetID); err == nil {
		activity.Contract = contract
		activity.TokenID = tokenID
	}
	return errors.Wrap(r.dg.CreateActivities(ctx, []*entity.Activity{activity}), "record activity")
}
