package entity

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type TriggerKind string

const (
	TriggerNewOrder     TriggerKind = "new-order"
	TriggerSale         TriggerKind = "sale"
	TriggerCancel       TriggerKind = "cancel"
	TriggerReprice      TriggerKind = "reprice"
	TriggerRevalidation TriggerKind = "revalidation"
	TriggerBootstrap    TriggerKind = "bootstrap"
)

// Trigger is the cause of a reconciliation job. Context is deterministic,
// derived from the cause (e.g. "filled-<orderId>-<txHash>"), and doubles as
// the job identity: two triggers with the same context collapse to at most
// one pending job.
type Trigger struct {
	Context    string
	Kind       TriggerKind
	OrderID    string
	TokenSetID string
	Side       OrderSide

	TxHash      common.Hash
	TxTimestamp time.Time
	LogIndex    uint
	BlockHash   common.Hash
}

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	// JobDead is a job that exhausted its retry budget and awaits manual
	// inspection. Never silently dropped.
	JobDead JobStatus = "dead"
)

// ReconcileJob is a durable queue row wrapping a Trigger.
type ReconcileJob struct {
	ID        int64
	Trigger   Trigger
	Status    JobStatus
	Attempts  int32
	LastErr   string
	RunAfter  time.Time
	CreatedAt time.Time
}

// BlockCheck is a scheduled reorg recheck for one (height, hash) pair.
type BlockCheck struct {
	ID      int64
	Height  int64
	Hash    common.Hash
	CheckAt time.Time
}
