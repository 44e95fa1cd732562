package reorg

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
)

type Config struct {
	// CheckDelays is the standard recheck schedule applied to every realtime
	// block.
	CheckDelays []time.Duration
	// AcceleratedDelays are added when a competing block is already visible
	// at the same height.
	AcceleratedDelays []time.Duration
	PollInterval      time.Duration
}

func (c Config) withDefaults() Config {
	if len(c.CheckDelays) == 0 {
		c.CheckDelays = []time.Duration{time.Minute, 5 * time.Minute, 10 * time.Minute}
	}
	if len(c.AcceleratedDelays) == 0 {
		c.AcceleratedDelays = []time.Duration{10 * time.Second, 30 * time.Second}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	return c
}

// HeaderSource resolves the currently canonical header at a height.
type HeaderSource interface {
	GetBlockHeader(ctx context.Context, height int64) (types.BlockHeader, error)
}

// Monitor schedules delayed hash rechecks for ingested blocks and purges
// derived state tied to blocks that fell off the canonical chain. It covers
// the window after the realtime indexer already advanced past a height: the
// walk-back reorg handling only sees reorgs at the tip, while the monitor
// catches ones that surface minutes later.
type Monitor struct {
	dg     datagateway.MarketplaceDataGateway
	queue  datagateway.QueueDataGateway
	source HeaderSource
	cfg    Config
}

func NewMonitor(dg datagateway.MarketplaceDataGateway, queue datagateway.QueueDataGateway, source HeaderSource, cfg Config) *Monitor {
	return &Monitor{
		dg:     dg,
		queue:  queue,
		source: source,
		cfg:    cfg.withDefaults(),
	}
}

// OnBlockIngested schedules the standard recheck ladder for the block, plus
// the accelerated one when a competing block already exists at that height.
func (m *Monitor) OnBlockIngested(ctx context.Context, block *entity.IndexedBlock) error {
	delays := m.cfg.CheckDelays
	rows, err := m.dg.GetIndexedBlocksByHeight(ctx, block.Height)
	if err != nil {
		return errors.Wrap(err, "look up competing blocks")
	}
	if len(rows) > 1 {
		logger.WarnContext(ctx, "competing blocks observed at height",
			slogx.Int64("height", block.Height),
			slogx.Stringer("hash", block.Hash),
		)
		delays = append(append([]time.Duration{}, m.cfg.AcceleratedDelays...), delays...)
	}

	now := time.Now()
	checks := make([]entity.BlockCheck, 0, len(delays))
	for _, delay := range delays {
		checks = append(checks, entity.BlockCheck{
			Height:  block.Height,
			Hash:    block.Hash,
			CheckAt: now.Add(delay),
		})
	}
	return errors.Wrap(m.queue.ScheduleBlockChecks(ctx, checks), "schedule block checks")
}

// Run executes due rechecks until the context ends.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-ticker.C:
		}
		if err := m.runOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.ErrorContext(ctx, "reorg check pass failed", err)
		}
	}
}

func (m *Monitor) runOnce(ctx context.Context) error {
	checks, err := m.queue.DueBlockChecks(ctx, time.Now(), 64)
	if err != nil {
		return errors.Wrap(err, "fetch due block checks")
	}
	for _, check := range checks {
		if err := m.recheck(ctx, check); err != nil {
			return err
		}
		if err := m.queue.DeleteBlockCheck(ctx, check.ID); err != nil {
			return errors.Wrap(err, "delete block check")
		}
	}
	return nil
}

func (m *Monitor) recheck(ctx context.Context, check *entity.BlockCheck) error {
	canonical, err := m.source.GetBlockHeader(ctx, check.Height)
	if err != nil {
		return errors.Wrapf(err, "fetch canonical header at height %d", check.Height)
	}
	if canonical.Hash == check.Hash {
		return nil
	}

	logger.WarnContext(ctx, "block orphaned, purging derived state",
		slogx.Int64("height", check.Height),
		slogx.Stringer("orphanedHash", check.Hash),
		slogx.Stringer("canonicalHash", canonical.Hash),
	)
	orderIDs, err := m.dg.DeleteEventsByBlock(ctx, check.Height, check.Hash)
	if err != nil {
		return errors.Wrap(err, "purge orphaned block events")
	}
	if len(orderIDs) == 0 {
		return nil
	}

	// Orders whose events vanished must be re-derived from canonical state.
	triggers := make([]entity.Trigger, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		triggers = append(triggers, entity.Trigger{
			Context:   fmt.Sprintf("revalidation-%s-%d", orderID, check.Height),
			Kind:      entity.TriggerRevalidation,
			OrderID:   orderID,
			BlockHash: check.Hash,
		})
	}
	return errors.Wrap(m.queue.EnqueueTriggers(ctx, triggers), "enqueue revalidation triggers")
}
