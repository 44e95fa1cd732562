package httphandler

import (
	"github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/orderbook"
)

type HttpHandler struct {
	network common.Network
	dg      datagateway.MarketplaceDataGateway
	book    *orderbook.OrderBook
}

func New(network common.Network, dg datagateway.MarketplaceDataGateway, book *orderbook.OrderBook) *HttpHandler {
	return &HttpHandler{
		network: network,
		dg:      dg,
		book:    book,
	}
}

type HttpResponse[T any] struct {
	Error  *string `json:"error"`
	Result *T      `json:"result,omitempty"`
}
