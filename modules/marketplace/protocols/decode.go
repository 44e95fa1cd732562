package protocols

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	commonpkg "github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
)

func topicAddress(log ethtypes.Log, i int) common.Address {
	if i >= len(log.Topics) {
		return common.Address{}
	}
	return common.BytesToAddress(log.Topics[i].Bytes())
}

func topicHash(log ethtypes.Log, i int) common.Hash {
	if i >= len(log.Topics) {
		return common.Hash{}
	}
	return log.Topics[i]
}

// normalizeCurrency folds the 0xeeee…eeee native sentinel some protocols emit
// into the zero address, so native pricing has exactly one representation.
func normalizeCurrency(currency common.Address) common.Address {
	if currency == commonpkg.NativeCurrencySentinel {
		return commonpkg.ZeroAddress
	}
	return currency
}

// orderIDFromHash renders a protocol order hash as the canonical lowercase id.
func orderIDFromHash(hash common.Hash) string {
	return strings.ToLower(hash.Hex())
}

// Deterministic reconciliation contexts. Two events describing the same cause
// must derive the same context so duplicate jobs collapse in the queue.

func fillContext(orderID string, base entity.BaseEventParams) string {
	return fmt.Sprintf("filled-%s-%s-%d-%d", orderID, strings.ToLower(base.TxHash.Hex()), base.LogIndex, base.BatchIndex)
}

func cancelContext(orderID string, base entity.BaseEventParams) string {
	return fmt.Sprintf("cancelled-%s-%s-%d", orderID, strings.ToLower(base.TxHash.Hex()), base.LogIndex)
}

func mustBigInt(v interface{}) (*big.Int, error) {
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		return nil, errors.Newf("expected *big.Int, got %T", v)
	}
	return n, nil
}
