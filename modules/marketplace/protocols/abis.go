package protocols

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

func mustABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

var seaportABI = mustABI(`[
	{"anonymous":false,"name":"OrderFulfilled","type":"event","inputs":[
		{"indexed":false,"name":"orderHash","type":"bytes32"},
		{"indexed":true,"name":"offerer","type":"address"},
		{"indexed":true,"name":"zone","type":"address"},
		{"indexed":false,"name":"recipient","type":"address"},
		{"indexed":false,"name":"offer","type":"tuple[]","components":[
			{"name":"itemType","type":"uint8"},
			{"name":"token","type":"address"},
			{"name":"identifier","type":"uint256"},
			{"name":"amount","type":"uint256"}]},
		{"indexed":false,"name":"consideration","type":"tuple[]","components":[
			{"name":"itemType","type":"uint8"},
			{"name":"token","type":"address"},
			{"name":"identifier","type":"uint256"},
			{"name":"amount","type":"uint256"},
			{"name":"recipient","type":"address"}]}]},
	{"anonymous":false,"name":"OrderCancelled","type":"event","inputs":[
		{"indexed":false,"name":"orderHash","type":"bytes32"},
		{"indexed":true,"name":"offerer","type":"address"},
		{"indexed":true,"name":"zone","type":"address"}]},
	{"anonymous":false,"name":"CounterIncremented","type":"event","inputs":[
		{"indexed":false,"name":"newCounter","type":"uint256"},
		{"indexed":true,"name":"offerer","type":"address"}]}
]`)

var zeroExV4ABI = mustABI(`[
	{"anonymous":false,"name":"ERC721OrderFilled","type":"event","inputs":[
		{"indexed":false,"name":"direction","type":"uint8"},
		{"indexed":false,"name":"maker","type":"address"},
		{"indexed":false,"name":"taker","type":"address"},
		{"indexed":false,"name":"nonce","type":"uint256"},
		{"indexed":false,"name":"erc20Token","type":"address"},
		{"indexed":false,"name":"erc20TokenAmount","type":"uint256"},
		{"indexed":false,"name":"erc721Token","type":"address"},
		{"indexed":false,"name":"erc721TokenId","type":"uint256"},
		{"indexed":false,"name":"matcher","type":"address"}]},
	{"anonymous":false,"name":"ERC1155OrderFilled","type":"event","inputs":[
		{"indexed":false,"name":"direction","type":"uint8"},
		{"indexed":false,"name":"maker","type":"address"},
		{"indexed":false,"name":"taker","type":"address"},
		{"indexed":false,"name":"nonce","type":"uint256"},
		{"indexed":false,"name":"erc20Token","type":"address"},
		{"indexed":false,"name":"erc20FillAmount","type":"uint256"},
		{"indexed":false,"name":"erc1155Token","type":"address"},
		{"indexed":false,"name":"erc1155TokenId","type":"uint256"},
		{"indexed":false,"name":"erc1155FillAmount","type":"uint128"},
		{"indexed":false,"name":"matcher","type":"address"}]},
	{"anonymous":false,"name":"ERC721OrderCancelled","type":"event","inputs":[
		{"indexed":false,"name":"maker","type":"address"},
		{"indexed":false,"name":"nonce","type":"uint256"}]},
	{"anonymous":false,"name":"ERC1155OrderCancelled","type":"event","inputs":[
		{"indexed":false,"name":"maker","type":"address"},
		{"indexed":false,"name":"nonce","type":"uint256"}]}
]`)

var looksRareABI = mustABI(`[
	{"anonymous":false,"name":"TakerAsk","type":"event","inputs":[
		{"indexed":false,"name":"orderHash","type":"bytes32"},
		{"indexed":false,"name":"orderNonce","type":"uint256"},
		{"indexed":true,"name":"taker","type":"address"},
		{"indexed":true,"name":"maker","type":"address"},
		{"indexed":true,"name":"strategy","type":"address"},
		{"indexed":false,"name":"currency","type":"address"},
		{"indexed":false,"name":"collection","type":"address"},
		{"indexed":false,"name":"tokenId","type":"uint256"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"price","type":"uint256"}]},
	{"anonymous":false,"name":"TakerBid","type":"event","inputs":[
		{"indexed":false,"name":"orderHash","type":"bytes32"},
		{"indexed":false,"name":"orderNonce","type":"uint256"},
		{"indexed":true,"name":"taker","type":"address"},
		{"indexed":true,"name":"maker","type":"address"},
		{"indexed":true,"name":"strategy","type":"address"},
		{"indexed":false,"name":"currency","type":"address"},
		{"indexed":false,"name":"collection","type":"address"},
		{"indexed":false,"name":"tokenId","type":"uint256"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"price","type":"uint256"}]},
	{"anonymous":false,"name":"CancelAllOrders","type":"event","inputs":[
		{"indexed":true,"name":"user","type":"address"},
		{"indexed":false,"name":"newMinNonce","type":"uint256"}]},
	{"anonymous":false,"name":"CancelMultipleOrders","type":"event","inputs":[
		{"indexed":true,"name":"user","type":"address"},
		{"indexed":false,"name":"orderNonces","type":"uint256[]"}]}
]`)

var x2y2ABI = mustABI(`[
	{"anonymous":false,"name":"EvInventory","type":"event","inputs":[
		{"indexed":true,"name":"itemHash","type":"bytes32"},
		{"indexed":false,"name":"maker","type":"address"},
		{"indexed":false,"name":"taker","type":"address"},
		{"indexed":false,"name":"orderSalt","type":"uint256"},
		{"indexed":false,"name":"settleSalt","type":"uint256"},
		{"indexed":false,"name":"intent","type":"uint256"},
		{"indexed":false,"name":"delegateType","type":"uint256"},
		{"indexed":false,"name":"deadline","type":"uint256"},
		{"indexed":false,"name":"currency","type":"address"},
		{"indexed":false,"name":"dataMask","type":"bytes"},
		{"indexed":false,"name":"item","type":"tuple","components":[
			{"name":"price","type":"uint256"},
			{"name":"data","type":"bytes"}]},
		{"indexed":false,"name":"detail","type":"tuple","components":[
			{"name":"op","type":"uint8"},
			{"name":"orderIdx","type":"uint256"},
			{"name":"itemIdx","type":"uint256"},
			{"name":"price","type":"uint256"},
			{"name":"itemHash","type":"bytes32"},
			{"name":"executionDelegate","type":"address"},
			{"name":"dataReplacement","type":"bytes"},
			{"name":"bidIncentivePct","type":"uint256"},
			{"name":"aucMinIncrementPct","type":"uint256"},
			{"name":"aucIncDurationSecs","type":"uint256"},
			{"name":"fees","type":"tuple[]","components":[
				{"name":"percentage","type":"uint256"},
				{"name":"to","type":"address"}]}]}]},
	{"anonymous":false,"name":"EvCancel","type":"event","inputs":[
		{"indexed":true,"name":"itemHash","type":"bytes32"}]}
]`)

var elementABI = mustABI(`[
	{"anonymous":false,"name":"ERC721SellOrderFilled","type":"event","inputs":[
		{"indexed":false,"name":"orderHash","type":"bytes32"},
		{"indexed":false,"name":"maker","type":"address"},
		{"indexed":false,"name":"taker","type":"address"},
		{"indexed":false,"name":"nonce","type":"uint256"},
		{"indexed":false,"name":"erc20Token","type":"address"},
		{"indexed":false,"name":"erc20TokenAmount","type":"uint256"},
		{"indexed":false,"name":"platformFeeRecipient","type":"address"},
		{"indexed":false,"name":"erc721Token","type":"address"},
		{"indexed":false,"name":"erc721TokenId","type":"uint256"}]},
	{"anonymous":false,"name":"ERC721BuyOrderFilled","type":"event","inputs":[
		{"indexed":false,"name":"orderHash","type":"bytes32"},
		{"indexed":false,"name":"maker","type":"address"},
		{"indexed":false,"name":"taker","type":"address"},
		{"indexed":false,"name":"nonce","type":"uint256"},
		{"indexed":false,"name":"erc20Token","type":"address"},
		{"indexed":false,"name":"erc20TokenAmount","type":"uint256"},
		{"indexed":false,"name":"platformFeeRecipient","type":"address"},
		{"indexed":false,"name":"erc721Token","type":"address"},
		{"indexed":false,"name":"erc721TokenId","type":"uint256"}]},
	{"anonymous":false,"name":"ERC721OrderCancelled","type":"event","inputs":[
		{"indexed":false,"name":"maker","type":"address"},
		{"indexed":false,"name":"nonce","type":"uint256"}]},
	{"anonymous":false,"name":"ERC1155OrderCancelled","type":"event","inputs":[
		{"indexed":false,"name":"maker","type":"address"},
		{"indexed":false,"name":"nonce","type":"uint256"}]}
]`)

var blurABI = mustABI(`[
	{"anonymous":false,"name":"OrdersMatched","type":"event","inputs":[
		{"indexed":true,"name":"maker","type":"address"},
		{"indexed":true,"name":"taker","type":"address"},
		{"indexed":false,"name":"sell","type":"tuple","components":[
			{"name":"trader","type":"address"},
			{"name":"side","type":"uint8"},
			{"name":"matchingPolicy","type":"address"},
			{"name":"collection","type":"address"},
			{"name":"tokenId","type":"uint256"},
			{"name":"amount","type":"uint256"},
			{"name":"paymentToken","type":"address"},
			{"name":"price","type":"uint256"},
			{"name":"listingTime","type":"uint256"},
			{"name":"expirationTime","type":"uint256"},
			{"name":"fees","type":"tuple[]","components":[
				{"name":"rate","type":"uint16"},
				{"name":"recipient","type":"address"}]},
			{"name":"salt","type":"uint256"},
			{"name":"extraParams","type":"bytes"}]},
		{"indexed":false,"name":"sellHash","type":"bytes32"},
		{"indexed":false,"name":"buy","type":"tuple","components":[
			{"name":"trader","type":"address"},
			{"name":"side","type":"uint8"},
			{"name":"matchingPolicy","type":"address"},
			{"name":"collection","type":"address"},
			{"name":"tokenId","type":"uint256"},
			{"name":"amount","type":"uint256"},
			{"name":"paymentToken","type":"address"},
			{"name":"price","type":"uint256"},
			{"name":"listingTime","type":"uint256"},
			{"name":"expirationTime","type":"uint256"},
			{"name":"fees","type":"tuple[]","components":[
				{"name":"rate","type":"uint16"},
				{"name":"recipient","type":"address"}]},
			{"name":"salt","type":"uint256"},
			{"name":"extraParams","type":"bytes"}]},
		{"indexed":false,"name":"buyHash","type":"bytes32"}]},
	{"anonymous":false,"name":"OrderCancelled","type":"event","inputs":[
		{"indexed":false,"name":"hash","type":"bytes32"}]},
	{"anonymous":false,"name":"NonceIncremented","type":"event","inputs":[
		{"indexed":true,"name":"trader","type":"address"},
		{"indexed":false,"name":"newNonce","type":"uint256"}]}
]`)

var sudoswapABI = mustABI(`[
	{"anonymous":false,"name":"SwapNFTInPair","type":"event","inputs":[]},
	{"anonymous":false,"name":"SwapNFTOutPair","type":"event","inputs":[]},
	{"anonymous":false,"name":"SpotPriceUpdate","type":"event","inputs":[
		{"indexed":false,"name":"newSpotPrice","type":"uint128"}]},
	{"anonymous":false,"name":"TokenDeposit","type":"event","inputs":[
		{"indexed":false,"name":"amount","type":"uint256"}]},
	{"anonymous":false,"name":"TokenWithdrawal","type":"event","inputs":[
		{"indexed":false,"name":"amount","type":"uint256"}]},
	{"anonymous":false,"name":"NFTWithdrawal","type":"event","inputs":[]}
]`)

var erc20ABI = mustABI(`[
	{"anonymous":false,"name":"Transfer","type":"event","inputs":[
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"value","type":"uint256"}]},
	{"anonymous":false,"name":"Deposit","type":"event","inputs":[
		{"indexed":true,"name":"dst","type":"address"},
		{"indexed":false,"name":"wad","type":"uint256"}]},
	{"anonymous":false,"name":"Withdrawal","type":"event","inputs":[
		{"indexed":true,"name":"src","type":"address"},
		{"indexed":false,"name":"wad","type":"uint256"}]}
]`)
