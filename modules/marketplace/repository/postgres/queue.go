package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/jackc/pgx/v5"
)

var _ datagateway.QueueDataGateway = (*Repository)(nil)

func (r *Repository) EnqueueTriggers(ctx context.Context, triggers []entity.Trigger) error {
	for _, trigger := range triggers {
		_, err := r.conn().Exec(ctx, `
			INSERT INTO marketplace_reconcile_jobs (
				context, kind, order_id, token_set_id, side,
				tx_hash, tx_timestamp, log_index, block_hash,
				status, attempts, run_after, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', 0, now(), now())
			ON CONFLICT (context) WHERE status IN ('pending', 'processing') DO NOTHING
		`,
			trigger.Context, trigger.Kind, trigger.OrderID, trigger.TokenSetID, trigger.Side,
			hashToDB(trigger.TxHash), trigger.TxTimestamp, int64(trigger.LogIndex), hashToDB(trigger.BlockHash),
		)
		if err != nil {
			return errors.Wrap(err, "error during exec")
		}
	}
	return nil
}

const reconcileJobColumns = `
	id, context, kind, order_id, token_set_id, side,
	tx_hash, tx_timestamp, log_index, block_hash,
	status, attempts, COALESCE(last_err, ''), run_after, created_at`

func (r *Repository) ClaimJobs(ctx context.Context, limit int32, now time.Time) ([]*entity.ReconcileJob, error) {
	rows, err := r.conn().Query(ctx, `
		UPDATE marketplace_reconcile_jobs
		SET status = 'processing', claimed_at = now()
		WHERE id IN (
			SELECT id FROM marketplace_reconcile_jobs
			WHERE status = 'pending' AND run_after <= $1
			ORDER BY run_after ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+reconcileJobColumns+`
	`, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	var jobs []*entity.ReconcileJob
	for rows.Next() {
		job, err := scanReconcileJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan reconcile job")
		}
		jobs = append(jobs, job)
	}
	return jobs, errors.Wrap(rows.Err(), "error during row iteration")
}

func (r *Repository) CompleteJob(ctx context.Context, id int64) error {
	_, err := r.conn().Exec(ctx, `
		UPDATE marketplace_reconcile_jobs
		SET status = 'done'
		WHERE id = $1
	`, id)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) FailJob(ctx context.Context, id int64, jobErr string, runAfter time.Time, dead bool) error {
	status := entity.JobPending
	if dead {
		status = entity.JobDead
	}
	_, err := r.conn().Exec(ctx, `
		UPDATE marketplace_reconcile_jobs
		SET status = $2, attempts = attempts + 1, last_err = $3, run_after = $4
		WHERE id = $1
	`, id, status, jobErr, runAfter)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) RequeueStuckJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.conn().Exec(ctx, `
		UPDATE marketplace_reconcile_jobs
		SET status = 'pending', run_after = now()
		WHERE status = 'processing' AND claimed_at < $1
	`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "error during exec")
	}
	return tag.RowsAffected(), nil
}

func scanReconcileJob(row pgx.Row) (*entity.ReconcileJob, error) {
	var (
		job             entity.ReconcileJob
		txHash, blkHash string
		logIndex        int64
	)
	if err := row.Scan(
		&job.ID, &job.Trigger.Context, &job.Trigger.Kind, &job.Trigger.OrderID, &job.Trigger.TokenSetID, &job.Trigger.Side,
		&txHash, &job.Trigger.TxTimestamp, &logIndex, &blkHash,
		&job.Status, &job.Attempts, &job.LastErr, &job.RunAfter, &job.CreatedAt,
	); err != nil {
		return nil, err
	}
	job.Trigger.TxHash = hashFromDB(txHash)
	job.Trigger.BlockHash = hashFromDB(blkHash)
	job.Trigger.LogIndex = uint(logIndex)
	return &job, nil
}

func (r *Repository) ScheduleBlockChecks(ctx context.Context, checks []entity.BlockCheck) error {
	for _, check := range checks {
		_, err := r.conn().Exec(ctx, `
			INSERT INTO marketplace_block_checks (height, hash, check_at)
			VALUES ($1, $2, $3)
		`, check.Height, hashToDB(check.Hash), check.CheckAt)
		if err != nil {
			return errors.Wrap(err, "error during exec")
		}
	}
	return nil
}

func (r *Repository) DueBlockChecks(ctx context.Context, now time.Time, limit int32) ([]*entity.BlockCheck, error) {
	rows, err := r.conn().Query(ctx, `
		SELECT id, height, hash, check_at
		FROM marketplace_block_checks
		WHERE check_at <= $1
		ORDER BY check_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	var checks []*entity.BlockCheck
	for rows.Next() {
		var (
			check entity.BlockCheck
			hash  string
		)
		if err := rows.Scan(&check.ID, &check.Height, &hash, &check.CheckAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan block check")
		}
		check.Hash = hashFromDB(hash)
		checks = append(checks, &check)
	}
	return checks, errors.Wrap(rows.Err(), "error during row iteration")
}

func (r *Repository) DeleteBlockCheck(ctx context.Context, id int64) error {
	_, err := r.conn().Exec(ctx, `
		DELETE FROM marketplace_block_checks WHERE id = $1
	`, id)
	return errors.Wrap(err, "error during exec")
}

func (r *Repository) DeleteBlockChecksSinceHeight(ctx context.Context, height int64) error {
	_, err := r.conn().Exec(ctx, `
		DELETE FROM marketplace_block_checks WHERE height >= $1
	`, height)
	return errors.Wrap(err, "error during exec")
}
