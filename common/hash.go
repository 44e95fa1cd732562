package common

import "github.com/ethereum/go-ethereum/common"

var (
	// ZeroHash is the zero value of a 32-byte hash.
	ZeroHash = common.Hash{}

	// ZeroAddress is the zero address, used as the "public taker" sentinel on orders.
	ZeroAddress = common.Address{}

	// NativeCurrencySentinel is the pseudo-address several marketplaces emit for the
	// chain's native currency. It is mapped to ZeroAddress before pricing.
	NativeCurrencySentinel = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
)
