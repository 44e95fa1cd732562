package attribution

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Registry attributes fills to a marketplace source and corrects takers that
// are really aggregator routers. When a router fills an order, the log-level
// taker is the router contract; the economic taker is whoever called it.
type Registry struct {
	routers map[ethcommon.Address]string
	sources map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		routers: map[ethcommon.Address]string{
			// Reservoir router and the common aggregators.
			ethcommon.HexToAddress("0xC2c862322E9c97D6244a3506655DA95F05246Fd8"): "reservoir.tools",
			ethcommon.HexToAddress("0x00000000005228B791a99a61f36A130d50600106"): "looksrare.org",
			ethcommon.HexToAddress("0x39da41747a83aeE658334415666f3EF92DD0D541"): "blur.io",
			ethcommon.HexToAddress("0x1E0049783F008A0085193E00003D00cd54003c71"): "opensea.io",
		},
		sources: map[string]string{
			"seaport":    "opensea.io",
			"zeroex-v4":  "coinbase.com",
			"looks-rare": "looksrare.org",
			"x2y2":       "x2y2.io",
			"element":    "element.market",
			"blur":       "blur.io",
			"sudoswap":   "sudoswap.xyz",
		},
	}
}

// SourceForKind names the marketplace a protocol kind belongs to. Unknown
// kinds attribute to the protocol kind itself.
func (r *Registry) SourceForKind(kind string) string {
	if source, ok := r.sources[kind]; ok {
		return source
	}
	return kind
}

func (r *Registry) IsRouter(addr ethcommon.Address) bool {
	_, ok := r.routers[addr]
	return ok
}

// OverrideTaker swaps a router taker for the transaction sender when known.
// A zero txFrom leaves the taker untouched.
func (r *Registry) OverrideTaker(taker, txFrom ethcommon.Address) ethcommon.Address {
	if r.IsRouter(taker) && txFrom != (ethcommon.Address{}) {
		return txFrom
	}
	return taker
}
