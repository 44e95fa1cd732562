package marketplace

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/core/indexer"
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/gaze-network/nft-indexer/modules/marketplace/attribution"
	"github.com/gaze-network/nft-indexer/modules/marketplace/currency"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/protocols"
	"github.com/gaze-network/nft-indexer/modules/marketplace/reorg"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/reportingclient"
	"golang.org/x/sync/errgroup"
)

var _ indexer.Processor[*types.Block] = (*Processor)(nil)

type Processor struct {
	marketplaceDg datagateway.MarketplaceDataGateway
	indexerInfoDg datagateway.IndexerInfoDataGateway
	queueDg       datagateway.QueueDataGateway
	registry      *protocols.Registry
	converter     *currency.Converter
	sources       *attribution.Registry
	chain         protocols.ChainClient
	// monitor is nil during backfill: historical ranges are assumed final.
	monitor         *reorg.Monitor
	network         common.Network
	reportingClient *reportingclient.ReportingClient

	cleanupFuncs []func(context.Context) error
}

func NewProcessor(
	marketplaceDg datagateway.MarketplaceDataGateway,
	indexerInfoDg datagateway.IndexerInfoDataGateway,
	queueDg datagateway.QueueDataGateway,
	registry *protocols.Registry,
	converter *currency.Converter,
	sources *attribution.Registry,
	chain protocols.ChainClient,
	monitor *reorg.Monitor,
	network common.Network,
	reportingClient *reportingclient.ReportingClient,
	cleanupFuncs []func(context.Context) error,
) *Processor {
	return &Processor{
		marketplaceDg:   marketplaceDg,
		indexerInfoDg:   indexerInfoDg,
		queueDg:         queueDg,
		registry:        registry,
		converter:       converter,
		sources:         sources,
		chain:           chain,
		monitor:         monitor,
		network:         network,
		reportingClient: reportingClient,
		cleanupFuncs:    cleanupFuncs,
	}
}

func (p *Processor) Name() string {
	return "Marketplace"
}

func (p *Processor) VerifyStates(ctx context.Context) error {
	indexerState, err := p.indexerInfoDg.GetLatestIndexerState(ctx)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "failed to get latest indexer state")
	}
	if errors.Is(err, errs.NotFound) {
		if err := p.indexerInfoDg.SetIndexerState(ctx, entity.IndexerState{
			DBVersion: DBVersion,
		}); err != nil {
			return errors.Wrap(err, "failed to set indexer state")
		}
	} else if indexerState.DBVersion != DBVersion {
		return errors.Wrapf(errs.ConflictSetting, "db version mismatch: current version is %d. Please migrate to version %d", indexerState.DBVersion, DBVersion)
	}

	_, network, err := p.indexerInfoDg.GetLatestIndexerStats(ctx)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "failed to get latest indexer stats")
	}
	if err == nil && network != p.network {
		return errors.Wrapf(errs.ConflictSetting, "network mismatch: latest indexed network is %s, configured network is %s. If you want to change the network, please reset the database", network, p.network)
	}
	if err := p.indexerInfoDg.UpdateIndexerStats(ctx, Version, p.network); err != nil {
		return errors.Wrap(err, "failed to update indexer stats")
	}
	return nil
}

func (p *Processor) CurrentBlock(ctx context.Context) (types.BlockHeader, error) {
	blockHeader, err := p.marketplaceDg.GetLatestBlock(ctx)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return startingBlockHeader[p.network], nil
		}
		return types.BlockHeader{}, errors.Wrap(err, "failed to get latest block")
	}
	return blockHeader, nil
}

func (p *Processor) GetIndexedBlock(ctx context.Context, height int64) (types.BlockHeader, error) {
	block, err := p.marketplaceDg.GetIndexedBlockByHeight(ctx, height)
	if err != nil {
		return types.BlockHeader{}, errors.Wrap(err, "failed to get indexed block")
	}
	return types.BlockHeader{
		Height:     block.Height,
		Hash:       block.Hash,
		ParentHash: block.ParentHash,
		Timestamp:  block.Timestamp,
	}, nil
}

// RevertData purges derived state from the given height (inclusive) so the
// range can be re-indexed. Orders touched by purged events get revalidation
// triggers instead of hard deletes: order state is re-derived, not rolled back.
func (p *Processor) RevertData(ctx context.Context, from int64) error {
	tx, err := p.marketplaceDg.BeginMarketplaceTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			logger.ErrorContext(ctx, "failed to rollback transaction", err)
		}
	}()

	blocks := make([]*entity.IndexedBlock, 0)
	latest, err := tx.GetLatestBlock(ctx)
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "failed to get latest block")
	}
	if err == nil {
		for height := from; height <= latest.Height; height++ {
			rows, err := tx.GetIndexedBlocksByHeight(ctx, height)
			if err != nil {
				return errors.Wrapf(err, "failed to get indexed blocks, height: %d", height)
			}
			blocks = append(blocks, rows...)
		}
	}

	touched := make(map[string]struct{})
	for _, block := range blocks {
		orderIDs, err := tx.DeleteEventsByBlock(ctx, block.Height, block.Hash)
		if err != nil {
			return errors.Wrapf(err, "failed to delete events, height: %d", block.Height)
		}
		for _, id := range orderIDs {
			touched[id] = struct{}{}
		}
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := tx.DeleteIndexedBlocksSinceHeight(ectx, from); err != nil {
			return errors.Wrap(err, "failed to delete indexed blocks")
		}
		return nil
	})
	eg.Go(func() error {
		if err := p.queueDg.DeleteBlockChecksSinceHeight(ectx, from); err != nil {
			return errors.Wrap(err, "failed to delete block checks")
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return errors.Wrap(err, "failed to revert data")
	}

	if len(touched) > 0 {
		triggers := make([]entity.Trigger, 0, len(touched))
		for orderID := range touched {
			triggers = append(triggers, entity.Trigger{
				Context: revalidationContext(orderID, from),
				Kind:    entity.TriggerRevalidation,
				OrderID: orderID,
			})
		}
		if err := p.queueDg.EnqueueTriggers(ctx, triggers); err != nil {
			return errors.Wrap(err, "failed to enqueue revalidation triggers")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (p *Processor) Shutdown(ctx context.Context) error {
	var errList []error
	for _, cleanup := range p.cleanupFuncs {
		if err := cleanup(ctx); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Wrap(errors.Join(errList...), "cleanup failed")
}
