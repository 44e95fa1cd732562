package reconcile

import (
	"context"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/orderbook"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Workers      int
	PollInterval time.Duration
	JobTimeout   time.Duration
	MaxAttempts  int32
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 8
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	return c
}

const retryBackoffBase = 5 * time.Second

// Reconciler drains the trigger queue and keeps the floor-ask and top-bid
// aggregates consistent with order state. Jobs are claimed in batches and
// processed concurrently; jobs sharing a context never coexist in the queue,
// so two workers cannot race on the same cause.
type Reconciler struct {
	dg     datagateway.MarketplaceDataGateway
	queue  datagateway.QueueDataGateway
	prober orderbook.FillabilityProber
	cfg    Config
}

func New(dg datagateway.MarketplaceDataGateway, queue datagateway.QueueDataGateway, prober orderbook.FillabilityProber, cfg Config) *Reconciler {
	return &Reconciler{
		dg:     dg,
		queue:  queue,
		prober: prober,
		cfg:    cfg.withDefaults(),
	}
}

// Run polls for due jobs until the context ends.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-ticker.C:
		}
		if err := r.runOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logger.ErrorContext(ctx, "reconcile pass failed", err)
		}
	}
}

func (r *Reconciler) runOnce(ctx context.Context) error {
	// Workers that died mid-job leave processing rows behind; return them to
	// the pool before claiming.
	requeued, err := r.queue.RequeueStuckJobs(ctx, time.Now().Add(-2*r.cfg.JobTimeout))
	if err != nil {
		return errors.Wrap(err, "requeue stuck jobs")
	}
	if requeued > 0 {
		logger.WarnContext(ctx, "requeued stuck reconcile jobs", slogx.Int64("count", requeued))
	}

	jobs, err := r.queue.ClaimJobs(ctx, int32(r.cfg.Workers*4), time.Now())
	if err != nil {
		return errors.Wrap(err, "claim jobs")
	}
	if len(jobs) == 0 {
		return nil
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.Workers)
	for _, job := range jobs {
		job := job
		eg.Go(func() error {
			r.runJob(egctx, job)
			return nil
		})
	}
	return eg.Wait()
}

func (r *Reconciler) runJob(ctx context.Context, job *entity.ReconcileJob) {
	jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	defer cancel()

	err := r.processTrigger(jobCtx, job.Trigger)
	if err == nil {
		if err := r.queue.CompleteJob(ctx, job.ID); err != nil {
			logger.ErrorContext(ctx, "failed to complete reconcile job", err, slogx.Int64("jobId", job.ID))
		}
		return
	}

	attempts := job.Attempts + 1
	dead := attempts >= r.cfg.MaxAttempts
	backoff := time.Duration(float64(retryBackoffBase) * math.Pow(2, float64(job.Attempts)))
	logger.WarnContext(ctx, "reconcile job failed",
		slogx.Int64("jobId", job.ID),
		slogx.String("context", job.Trigger.Context),
		slogx.Int("attempts", int(attempts)),
		slogx.Bool("dead", dead),
		slogx.Error(err),
	)
	if err := r.queue.FailJob(ctx, job.ID, err.Error(), time.Now().Add(backoff), dead); err != nil {
		logger.ErrorContext(ctx, "failed to record reconcile job failure", err, slogx.Int64("jobId", job.ID))
	}
}
