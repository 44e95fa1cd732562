package datagateway

import (
	"context"

	"github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
)

type IndexerInfoDataGateway interface {
	GetLatestIndexerState(ctx context.Context) (entity.IndexerState, error)
	GetLatestIndexerStats(ctx context.Context) (version string, network common.Network, err error)
	SetIndexerState(ctx context.Context, state entity.IndexerState) error
	UpdateIndexerStats(ctx context.Context, clientVersion string, network common.Network) error
}
