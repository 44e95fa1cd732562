package protocols

import (
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
)

// BatchBlock classifies one block's logs against the registry and groups the
// matches per transaction. Within a batch, events keep ascending log-index
// order; batchIndex numbers same-log matches starting at 1.
//
// A batch whose only partition is erc20 is discarded: bare token transfers
// carry no marketplace meaning on their own and are only consulted as payment
// corroboration next to another protocol's events in the same transaction.
func BatchBlock(registry *Registry, block types.Block) []*EventsBatch {
	var batches []*EventsBatch
	byTx := make(map[string]*EventsBatch)

	for _, log := range block.Logs {
		if log.Removed {
			continue
		}
		matches := registry.Match(log)
		if len(matches) == 0 {
			continue
		}

		key := log.TxHash.Hex()
		batch, ok := byTx[key]
		if !ok {
			batch = &EventsBatch{TxHash: log.TxHash}
			byTx[key] = batch
			batches = append(batches, batch)
		}

		base := entity.BaseEventParams{
			Address:     log.Address,
			BlockHeight: int64(log.BlockNumber),
			BlockHash:   block.Header.Hash,
			TxHash:      log.TxHash,
			TxIndex:     log.TxIndex,
			LogIndex:    log.Index,
			Timestamp:   block.Header.Timestamp,
		}
		for i, info := range matches {
			batch.add(EnhancedEvent{
				Kind:    info.Kind,
				SubKind: info.SubKind,
				Base:    base.WithBatchIndex(i + 1),
				Log:     log,
			})
		}
	}

	kept := batches[:0]
	for _, batch := range batches {
		kinds := batch.Kinds()
		if len(kinds) == 1 && kinds[0] == KindERC20 {
			continue
		}
		kept = append(kept, batch)
	}
	return kept
}
