package protocols

import (
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/common"
)

// Addresses is the per-network contract address book consulted for log
// filtering and source attribution. Sudoswap pools are factory-deployed and
// therefore matched by topic only.
type Addresses struct {
	Seaport11 ethcommon.Address
	Seaport14 ethcommon.Address
	Seaport15 ethcommon.Address
	ZeroExV4  ethcommon.Address
	LooksRare ethcommon.Address
	X2Y2      ethcommon.Address
	Element   ethcommon.Address
	Blur      ethcommon.Address
	WETH      ethcommon.Address
}

func (a Addresses) SeaportAll() []ethcommon.Address {
	return []ethcommon.Address{a.Seaport11, a.Seaport14, a.Seaport15}
}

var addressesByNetwork = map[common.Network]Addresses{
	common.NetworkMainnet: {
		Seaport11: ethcommon.HexToAddress("0x00000000006c3852cbEf3e08E8dF289169EdE581"),
		Seaport14: ethcommon.HexToAddress("0x00000000000001ad428e4906aE43D8F9852d0dD6"),
		Seaport15: ethcommon.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"),
		ZeroExV4:  ethcommon.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF"),
		LooksRare: ethcommon.HexToAddress("0x59728544B08AB483533076417FbBB2fD0B17CE3a"),
		X2Y2:      ethcommon.HexToAddress("0x74312363e45DCaBA76c59ec49a7Aa8A65a67EeD3"),
		Element:   ethcommon.HexToAddress("0x20F780A973856B93f63670377900C1d2a50a77c4"),
		Blur:      ethcommon.HexToAddress("0x000000000000Ad05Ccc4F10045630fb830B95127"),
		WETH:      ethcommon.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
	},
	common.NetworkSepolia: {
		Seaport14: ethcommon.HexToAddress("0x00000000000001ad428e4906aE43D8F9852d0dD6"),
		Seaport15: ethcommon.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"),
		ZeroExV4:  ethcommon.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF"),
		WETH:      ethcommon.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"),
	},
}

func AddressesForNetwork(network common.Network) (Addresses, bool) {
	addrs, ok := addressesByNetwork[network]
	return addrs, ok
}
