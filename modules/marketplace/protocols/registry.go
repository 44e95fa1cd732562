package protocols

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/common/errs"
)

// eventSource couples a handler with the log shapes it consumes.
type eventSource interface {
	Handler
	Events() []EventInfo
}

// NewDefaultRegistry wires every supported protocol for the network. The set
// is static; adding a protocol means adding a handler here.
func NewDefaultRegistry(network common.Network, chain ChainClient) (*Registry, error) {
	addrs, ok := AddressesForNetwork(network)
	if !ok {
		return nil, errors.Wrapf(errs.Unsupported, "no protocol addresses for network %q", network)
	}

	registry := NewRegistry()
	sources := []eventSource{
		NewERC20Handler(addrs),
		NewSeaportHandler(addrs),
		NewZeroExV4Handler(addrs),
		NewLooksRareHandler(addrs),
		NewX2Y2Handler(addrs),
		NewElementHandler(addrs),
		NewBlurHandler(addrs),
		NewSudoswapHandler(chain),
	}
	for _, source := range sources {
		for _, info := range source.Events() {
			registry.Register(info)
		}
		registry.RegisterHandler(source)
	}
	return registry, nil
}

// HandlerOrder sorts a batch's partitions so payment corroboration runs before
// the marketplace kinds that consume it.
func HandlerOrder(kinds []Kind) []Kind {
	ordered := make([]Kind, 0, len(kinds))
	for _, kind := range kinds {
		if kind == KindERC20 {
			ordered = append(ordered, kind)
		}
	}
	for _, kind := range kinds {
		if kind != KindERC20 {
			ordered = append(ordered, kind)
		}
	}
	return ordered
}
