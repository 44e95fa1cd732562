package indexer

import (
	"context"

	"github.com/gaze-network/nft-indexer/core/types"
)

type IndexerWorker interface {
	Run(ctx context.Context) error
}

// Input is one unit of data consumed by the generic indexer.
type Input interface {
	BlockHeader() types.BlockHeader
}

type Processor[T Input] interface {
	Name() string

	// Process processes the input data and indexes it.
	Process(ctx context.Context, inputs []T) error

	// CurrentBlock returns the latest indexed block header.
	CurrentBlock(ctx context.Context) (types.BlockHeader, error)

	// GetIndexedBlock returns the indexed block header by the specified block height.
	GetIndexedBlock(ctx context.Context, height int64) (types.BlockHeader, error)

	// RevertData reverts synced data from the specified block height (inclusive) for re-indexing.
	RevertData(ctx context.Context, from int64) error

	// Shutdown gracefully stops the processor.
	Shutdown(ctx context.Context) error
}
