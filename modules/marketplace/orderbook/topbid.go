package orderbook

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
)

// TopBidForToken returns the best standing bid on the token set with the
// token's current holder excluded as maker. The set-level top bid cache cannot
// bind a holder because a set spans many tokens, so the exclusion happens here
// when a concrete token is asked about.
func (b *OrderBook) TopBidForToken(ctx context.Context, tokenSetID string, contract ethcommon.Address, tokenID *big.Int) (*entity.TopBid, error) {
	holder, err := b.prober.OwnerOf(ctx, contract, tokenID)
	if err != nil {
		// ERC-1155 tokens have no single owner; serve the unexcluded bid.
		logger.DebugContext(ctx, "token holder not resolvable, serving top bid without maker exclusion",
			slogx.Stringer("contract", contract),
			slogx.String("tokenId", tokenID.String()),
			slogx.Error(err),
		)
		holder = ethcommon.Address{}
	}

	topBid, err := b.dg.ComputeTopBid(ctx, tokenSetID, holder)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return topBid, nil
}
