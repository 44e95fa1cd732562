package royalty

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
)

const cacheTTL = 10 * time.Minute

type cacheEntry struct {
	royalties *entity.CollectionRoyalties
	fetchedAt time.Time
}

// Registry is a read-through cache over the collection royalty configuration.
// Collections without configured royalties are cached as absent so validation
// does not hammer the store for unconfigured collections.
type Registry struct {
	dg datagateway.MarketplaceDataGateway

	mu    sync.RWMutex
	cache map[ethcommon.Address]cacheEntry
}

func NewRegistry(dg datagateway.MarketplaceDataGateway) *Registry {
	return &Registry{
		dg:    dg,
		cache: make(map[ethcommon.Address]cacheEntry),
	}
}

// Get returns the collection's default royalties, or nil when none are
// configured.
func (r *Registry) Get(ctx context.Context, contract ethcommon.Address) (*entity.CollectionRoyalties, error) {
	r.mu.RLock()
	entry, ok := r.cache[contract]
	r.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < cacheTTL {
		return entry.royalties, nil
	}

	royalties, err := r.dg.GetCollectionRoyalties(ctx, contract)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			royalties = nil
		} else {
			return nil, errors.Wrap(err, "fetch collection royalties")
		}
	}

	r.mu.Lock()
	r.cache[contract] = cacheEntry{royalties: royalties, fetchedAt: time.Now()}
	r.mu.Unlock()
	return royalties, nil
}

// Set persists the configuration and refreshes the cache in place.
func (r *Registry) Set(ctx context.Context, royalties *entity.CollectionRoyalties) error {
	if err := r.dg.SetCollectionRoyalties(ctx, royalties); err != nil {
		return errors.Wrap(err, "persist collection royalties")
	}
	r.mu.Lock()
	r.cache[royalties.Contract] = cacheEntry{royalties: royalties, fetchedAt: time.Now()}
	r.mu.Unlock()
	return nil
}
