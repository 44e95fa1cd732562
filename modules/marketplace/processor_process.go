package marketplace

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/gaze-network/nft-indexer/modules/marketplace/currency"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/protocols"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
	"github.com/gaze-network/nft-indexer/pkg/reportingclient"
)

func (p *Processor) Process(ctx context.Context, inputs []*types.Block) error {
	for _, block := range inputs {
		if err := p.processBlock(ctx, block); err != nil {
			return errors.Wrapf(err, "failed to process block %d", block.Header.Height)
		}
	}
	return nil
}

func (p *Processor) processBlock(ctx context.Context, block *types.Block) error {
	data := protocols.NewOnChainData()
	for _, batch := range protocols.BatchBlock(p.registry, *block) {
		for _, kind := range protocols.HandlerOrder(batch.Kinds()) {
			handler, ok := p.registry.Handler(kind)
			if !ok {
				continue
			}
			if err := handler.HandleEvents(ctx, batch.ByKind[kind], data); err != nil {
				return errors.Wrapf(err, "handler %s failed, tx: %s", kind, batch.TxHash)
			}
		}
	}

	// Pricing and attribution talk to external services, so they run before
	// the database transaction opens.
	fills := p.enrichFills(ctx, data)

	if err := p.flushBlock(ctx, block, data, fills); err != nil {
		return errors.WithStack(err)
	}

	if p.monitor != nil {
		if err := p.monitor.OnBlockIngested(ctx, &entity.IndexedBlock{
			Height:     block.Header.Height,
			Hash:       block.Header.Hash,
			ParentHash: block.Header.ParentHash,
			Timestamp:  block.Header.Timestamp,
		}); err != nil {
			return errors.Wrap(err, "failed to schedule reorg checks")
		}
	}

	if p.reportingClient != nil {
		payload := reportingclient.SubmitBlockReportPayload{
			Type:          "marketplace",
			ClientVersion: Version,
			DBVersion:     DBVersion,
			Network:       p.network,
			BlockHeight:   uint64(block.Header.Height),
			BlockHash:     block.Header.Hash,
		}
		if err := p.reportingClient.SubmitBlockReport(ctx, payload); err != nil {
			logger.WarnContext(ctx, "failed to submit block report", slogx.Error(err))
		}
	}
	return nil
}

// enrichFills converts fill prices to native units, attributes each fill to a
// marketplace source and corrects router takers to the transaction sender.
// Fills the oracle cannot price are dropped, never stored unpriced.
func (p *Processor) enrichFills(ctx context.Context, data *protocols.OnChainData) []*entity.FillEvent {
	senders := make(map[ethcommon.Hash]ethcommon.Address)
	fills := make([]*entity.FillEvent, 0, len(data.Fills))
	for i := range data.Fills {
		fill := data.Fills[i]

		prices, err := p.converter.ToNative(ctx, fill.Currency, fill.CurrencyPrice, fill.Base.Timestamp)
		if err != nil {
			if errors.Is(err, currency.ErrPriceUnavailable) {
				logger.WarnContext(ctx, "dropping fill with unpriceable currency",
					slogx.Stringer("currency", fill.Currency),
					slogx.Stringer("txHash", fill.Base.TxHash),
					slogx.Uint64("logIndex", uint64(fill.Base.LogIndex)),
				)
				continue
			}
			logger.ErrorContext(ctx, "price oracle lookup failed, dropping fill", err,
				slogx.Stringer("txHash", fill.Base.TxHash),
			)
			continue
		}
		fill.Price = prices.NativePrice
		fill.USDPrice = prices.USDPrice

		if p.sources.IsRouter(fill.Taker) {
			fill.Taker = p.sources.OverrideTaker(fill.Taker, p.txSender(ctx, senders, fill.Base.TxHash))
		}
		fills = append(fills, &fill)
	}
	return fills
}

// txSender resolves the transaction sender through the call trace, cached per
// transaction. A failed trace returns the zero address, which leaves router
// takers untouched.
func (p *Processor) txSender(ctx context.Context, cache map[ethcommon.Hash]ethcommon.Address, txHash ethcommon.Hash) ethcommon.Address {
	if sender, ok := cache[txHash]; ok {
		return sender
	}
	trace, err := p.chain.GetTransactionTrace(ctx, txHash)
	if err != nil {
		logger.WarnContext(ctx, "failed to resolve transaction sender",
			slogx.Stringer("txHash", txHash),
			slogx.Error(err),
		)
		cache[txHash] = ethcommon.Address{}
		return ethcommon.Address{}
	}
	cache[txHash] = trace.From
	return trace.From
}

// flushBlock applies everything one block produced in a single transaction:
// the block row, the event facts, their order-state consequences and the
// reconcile triggers. A block is either fully applied or not at all.
func (p *Processor) flushBlock(ctx context.Context, block *types.Block, data *protocols.OnChainData, fills []*entity.FillEvent) error {
	tx, err := p.marketplaceDg.BeginMarketplaceTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			logger.ErrorContext(ctx, "failed to rollback transaction", err)
		}
	}()

	if err := tx.CreateIndexedBlock(ctx, &entity.IndexedBlock{
		Height:     block.Header.Height,
		Hash:       block.Header.Hash,
		ParentHash: block.Header.ParentHash,
		Timestamp:  block.Header.Timestamp,
	}); err != nil {
		return errors.Wrap(err, "failed to create indexed block")
	}

	triggers := append([]entity.Trigger{}, data.Triggers...)

	if len(fills) > 0 {
		if err := tx.CreateFillEvents(ctx, fills); err != nil {
			return errors.Wrap(err, "failed to create fill events")
		}
		if err := p.applyFills(ctx, tx, fills); err != nil {
			return errors.WithStack(err)
		}
	}

	if len(data.Cancels) > 0 {
		cancels := make([]*entity.CancelEvent, 0, len(data.Cancels))
		for i := range data.Cancels {
			cancels = append(cancels, &data.Cancels[i])
		}
		if err := tx.CreateCancelEvents(ctx, cancels); err != nil {
			return errors.Wrap(err, "failed to create cancel events")
		}
		for _, cancel := range cancels {
			if err := tx.CancelOrder(ctx, cancel.OrderID); err != nil {
				return errors.Wrapf(err, "failed to cancel order %s", cancel.OrderID)
			}
		}
	}

	nonceTriggers, err := p.applyNonceCancels(ctx, tx, data)
	if err != nil {
		return errors.WithStack(err)
	}
	triggers = append(triggers, nonceTriggers...)

	for _, refresh := range data.OrderRefreshes {
		triggers = append(triggers, entity.Trigger{
			Context:     fmt.Sprintf("reprice-%s-%d", refresh.ID, refresh.Base.BlockHeight),
			Kind:        entity.TriggerReprice,
			OrderID:     refresh.ID,
			TxHash:      refresh.Base.TxHash,
			TxTimestamp: refresh.Base.Timestamp,
			LogIndex:    refresh.Base.LogIndex,
			BlockHash:   refresh.Base.BlockHash,
		})
	}

	if len(fills) > 0 {
		if err := p.recordSaleActivities(ctx, tx, fills); err != nil {
			return errors.WithStack(err)
		}
	}

	orderTriggers, err := p.saveDecodedOrders(ctx, tx, data)
	if err != nil {
		return errors.WithStack(err)
	}
	triggers = append(triggers, orderTriggers...)

	if len(triggers) > 0 {
		// The repository serves both gateways, so triggers land in the same
		// transaction as the facts that caused them.
		queue, ok := tx.(datagateway.QueueDataGateway)
		if !ok {
			return errors.New("transactional datagateway does not serve the reconcile queue")
		}
		if err := queue.EnqueueTriggers(ctx, triggers); err != nil {
			return errors.Wrap(err, "failed to enqueue triggers")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// applyFills reduces remaining quantities on known orders. Fills referencing
// orders this indexer never stored are kept as anonymous facts.
func (p *Processor) applyFills(ctx context.Context, tx datagateway.MarketplaceDataGateway, fills []*entity.FillEvent) error {
	for _, fill := range fills {
		if fill.OrderID == "" {
			continue
		}
		if _, err := tx.GetOrder(ctx, fill.OrderID); err != nil {
			continue
		}
		if err := tx.ReduceOrderQuantity(ctx, fill.OrderID, fill.Amount); err != nil {
			return errors.Wrapf(err, "failed to reduce quantity of order %s", fill.OrderID)
		}
	}
	return nil
}

// applyNonceCancels persists nonce and bulk cancel facts and flips the
// affected orders, emitting one cancel trigger per order actually touched.
func (p *Processor) applyNonceCancels(ctx context.Context, tx datagateway.MarketplaceDataGateway, data *protocols.OnChainData) ([]entity.Trigger, error) {
	var triggers []entity.Trigger

	if len(data.NonceCancels) > 0 {
		cancels := make([]*entity.NonceCancelEvent, 0, len(data.NonceCancels))
		for i := range data.NonceCancels {
			cancels = append(cancels, &data.NonceCancels[i])
		}
		if err := tx.CreateNonceCancelEvents(ctx, cancels); err != nil {
			return nil, errors.Wrap(err, "failed to create nonce cancel events")
		}
		for _, cancel := range cancels {
			affected, err := tx.CancelOrdersByNonce(ctx, cancel.OrderKind, cancel.Maker, cancel.Nonce)
			if err != nil {
				return nil, errors.Wrap(err, "failed to cancel orders by nonce")
			}
			triggers = append(triggers, cancelTriggers(affected, cancel.Base)...)
		}
	}

	if len(data.BulkCancels) > 0 {
		cancels := make([]*entity.BulkCancelEvent, 0, len(data.BulkCancels))
		for i := range data.BulkCancels {
			cancels = append(cancels, &data.BulkCancels[i])
		}
		if err := tx.CreateBulkCancelEvents(ctx, cancels); err != nil {
			return nil, errors.Wrap(err, "failed to create bulk cancel events")
		}
		for _, cancel := range cancels {
			affected, err := tx.CancelOrdersBelowNonce(ctx, cancel.OrderKind, cancel.Maker, cancel.MinNonce)
			if err != nil {
				return nil, errors.Wrap(err, "failed to cancel orders below nonce")
			}
			triggers = append(triggers, cancelTriggers(affected, cancel.Base)...)
		}
	}

	return triggers, nil
}

// saveDecodedOrders persists order listings decoded straight from chain state.
// Resolution failures skip the order; on-chain listings have no submitter to
// report a rejection to.
func (p *Processor) saveDecodedOrders(ctx context.Context, tx datagateway.MarketplaceDataGateway, data *protocols.OnChainData) ([]entity.Trigger, error) {
	var triggers []entity.Trigger
	for _, input := range data.Orders {
		spec := tokenset.Spec{
			Kind:     tokenset.Kind(input.TokenSet.Kind),
			Contract: input.TokenSet.Contract,
		}
		if input.TokenSet.TokenID != "" {
			tokenID, ok := new(big.Int).SetString(input.TokenSet.TokenID, 10)
			if !ok {
				logger.WarnContext(ctx, "skipping decoded order with malformed token id",
					slogx.String("orderId", input.Order.ID),
					slogx.String("tokenId", input.TokenSet.TokenID),
				)
				continue
			}
			spec.TokenID = tokenID
		}
		set, err := tokenset.Resolve(spec)
		if err != nil {
			logger.WarnContext(ctx, "skipping decoded order with unresolvable token set",
				slogx.String("orderId", input.Order.ID),
				slogx.Error(err),
			)
			continue
		}

		order := input.Order
		order.TokenSetID = set.ID
		inserted, err := tx.InsertOrders(ctx, []*entity.Order{&order})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to insert decoded order %s", order.ID)
		}
		if _, ok := inserted[order.ID]; !ok {
			if err := tx.UpdateOrder(ctx, &order); err != nil {
				return nil, errors.Wrapf(err, "failed to update decoded order %s", order.ID)
			}
		}
		trigger := input.Trigger
		trigger.TokenSetID = set.ID
		triggers = append(triggers, trigger)
	}
	return triggers, nil
}

func (p *Processor) recordSaleActivities(ctx context.Context, tx datagateway.MarketplaceDataGateway, fills []*entity.FillEvent) error {
	activities := make([]*entity.Activity, 0, len(fills))
	for _, fill := range fills {
		activities = append(activities, &entity.Activity{
			Kind:        entity.ActivitySale,
			OrderID:     fill.OrderID,
			TokenSetID:  tokenset.SingleTokenID(fill.Contract, fill.TokenID),
			Contract:    fill.Contract,
			TokenID:     fill.TokenID,
			Maker:       fill.Maker,
			Price:       fill.Price,
			TxHash:      fill.Base.TxHash,
			BlockHeight: fill.Base.BlockHeight,
			BlockHash:   fill.Base.BlockHash,
			CreatedAt:   fill.Base.Timestamp,
		})
	}
	return errors.Wrap(tx.CreateActivities(ctx, activities), "failed to record sale activities")
}

func cancelTriggers(orderIDs []string, base entity.BaseEventParams) []entity.Trigger {
	triggers := make([]entity.Trigger, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		triggers = append(triggers, entity.Trigger{
			Context:     fmt.Sprintf("cancelled-%s-%s-%d", orderID, strings.ToLower(base.TxHash.Hex()), base.LogIndex),
			Kind:        entity.TriggerCancel,
			OrderID:     orderID,
			TxHash:      base.TxHash,
			TxTimestamp: base.Timestamp,
			LogIndex:    base.LogIndex,
			BlockHash:   base.BlockHash,
		})
	}
	return triggers
}

func revalidationContext(orderID string, height int64) string {
	return fmt.Sprintf("revalidation-%s-%d", orderID, height)
}
