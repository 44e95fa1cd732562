package api

import (
	"github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/api/httphandler"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/orderbook"
)

func NewHTTPHandler(network common.Network, dg datagateway.MarketplaceDataGateway, book *orderbook.OrderBook) *httphandler.HttpHandler {
	return httphandler.New(network, dg, book)
}
