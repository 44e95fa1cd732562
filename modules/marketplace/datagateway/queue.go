package datagateway

import (
	"context"
	"time"

	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
)

// QueueDataGateway is the durable reconcile queue. Delivery is at-least-once;
// job identity equals the trigger context, so re-enqueueing a cause that
// already has a pending job is a no-op.
type QueueDataGateway interface {
	// EnqueueTriggers inserts one job per trigger, skipping triggers whose
	// context already has a pending or processing job.
	EnqueueTriggers(ctx context.Context, triggers []entity.Trigger) error
	// ClaimJobs atomically moves up to limit due pending jobs to processing
	// and returns them. Claimed jobs are invisible to other workers.
	ClaimJobs(ctx context.Context, limit int32, now time.Time) ([]*entity.ReconcileJob, error)
	CompleteJob(ctx context.Context, id int64) error
	// FailJob records the error and either reschedules the job after runAfter
	// or, when dead, parks it for manual inspection.
	FailJob(ctx context.Context, id int64, jobErr string, runAfter time.Time, dead bool) error
	// RequeueStuckJobs returns processing jobs older than the cutoff to
	// pending, covering workers that died mid-job.
	RequeueStuckJobs(ctx context.Context, cutoff time.Time) (int64, error)

	ScheduleBlockChecks(ctx context.Context, checks []entity.BlockCheck) error
	DueBlockChecks(ctx context.Context, now time.Time, limit int32) ([]*entity.BlockCheck, error)
	DeleteBlockCheck(ctx context.Context, id int64) error
	DeleteBlockChecksSinceHeight(ctx context.Context, height int64) error
}
