package datagateway

import (
	"context"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
)

type MarketplaceDataGateway interface {
	MarketplaceReaderDataGateway
	MarketplaceWriterDataGateway

	// BeginMarketplaceTx returns a new MarketplaceDataGateway with transaction enabled. All write operations performed in this datagateway must be committed to persist changes.
	BeginMarketplaceTx(ctx context.Context) (MarketplaceDataGatewayWithTx, error)
}

type MarketplaceDataGatewayWithTx interface {
	MarketplaceDataGateway
	Tx
}

type MarketplaceReaderDataGateway interface {
	GetLatestBlock(ctx context.Context) (types.BlockHeader, error)
	GetIndexedBlockByHeight(ctx context.Context, height int64) (*entity.IndexedBlock, error)
	// GetIndexedBlocksByHeight returns every block row recorded for the height.
	// More than one row means a competing block was observed.
	GetIndexedBlocksByHeight(ctx context.Context, height int64) ([]*entity.IndexedBlock, error)

	// GetOrder returns the order by id. Returns errs.NotFound if the order does not exist.
	GetOrder(ctx context.Context, id string) (*entity.Order, error)
	GetOrdersByIDs(ctx context.Context, ids []string) ([]*entity.Order, error)
	// GetOrderIDsByBlock returns ids of orders first saved at the given block.
	GetOrderIDsByBlock(ctx context.Context, height int64, hash ethcommon.Hash) ([]string, error)

	// ComputeFloorAsk derives the cheapest fillable approved sell order for the
	// token. Returns errs.NotFound when no such order exists.
	ComputeFloorAsk(ctx context.Context, contract ethcommon.Address, tokenID *big.Int) (*entity.FloorAsk, error)
	// ComputeTopBid derives the highest-value fillable approved buy order for
	// the token set, excluding orders made by excludeMaker (pass the zero
	// address to exclude nobody). Returns errs.NotFound when no such order exists.
	ComputeTopBid(ctx context.Context, tokenSetID string, excludeMaker ethcommon.Address) (*entity.TopBid, error)
	GetFloorAsk(ctx context.Context, contract ethcommon.Address, tokenID *big.Int) (*entity.FloorAsk, error)
	GetTopBid(ctx context.Context, tokenSetID string) (*entity.TopBid, error)
	// GetTokenSetIDsByContract lists token sets referencing the contract, used
	// to force-refresh aggregates when revalidation finds nothing to rank.
	GetTokenSetIDsByContract(ctx context.Context, contract ethcommon.Address) ([]string, error)

	// GetCollectionRoyalties returns errs.NotFound when the collection has no
	// configured default royalties.
	GetCollectionRoyalties(ctx context.Context, contract ethcommon.Address) (*entity.CollectionRoyalties, error)
	// GetCurrency returns errs.NotFound for unknown payment tokens.
	GetCurrency(ctx context.Context, address ethcommon.Address) (*entity.Currency, error)
}

type MarketplaceWriterDataGateway interface {
	CreateIndexedBlock(ctx context.Context, block *entity.IndexedBlock) error
	DeleteIndexedBlocksSinceHeight(ctx context.Context, height int64) error

	// InsertOrders inserts with do-nothing-on-conflict semantics and reports
	// which ids were actually inserted. Order ids are content-derived, so a
	// conflict means an idempotent replay.
	InsertOrders(ctx context.Context, orders []*entity.Order) (inserted map[string]struct{}, err error)
	UpdateOrder(ctx context.Context, order *entity.Order) error
	UpdateOrderStatus(ctx context.Context, id string, fillability entity.FillabilityStatus, approval entity.ApprovalStatus) error
	// ReduceOrderQuantity subtracts the filled amount; the order flips to
	// filled when quantityRemaining reaches zero.
	ReduceOrderQuantity(ctx context.Context, id string, amount *big.Int) error
	// CancelOrder marks the order cancelled. Missing ids are ignored: cancels
	// may reference orders this indexer never saw.
	CancelOrder(ctx context.Context, id string) error
	// CancelOrdersByNonce cancels the maker's orders of the kind carrying
	// exactly the nonce and returns the affected ids.
	CancelOrdersByNonce(ctx context.Context, kind string, maker ethcommon.Address, nonce *big.Int) ([]string, error)
	// CancelOrdersBelowNonce cancels the maker's orders of the kind with nonce
	// strictly below minNonce and returns the affected ids.
	CancelOrdersBelowNonce(ctx context.Context, kind string, maker ethcommon.Address, minNonce *big.Int) ([]string, error)

	CreateFillEvents(ctx context.Context, fills []*entity.FillEvent) error
	CreateCancelEvents(ctx context.Context, cancels []*entity.CancelEvent) error
	CreateNonceCancelEvents(ctx context.Context, cancels []*entity.NonceCancelEvent) error
	CreateBulkCancelEvents(ctx context.Context, cancels []*entity.BulkCancelEvent) error
	// DeleteEventsByBlock removes every derived event row tied to the exact
	// (height, hash) pair and returns the ids of orders those rows touched.
	DeleteEventsByBlock(ctx context.Context, height int64, hash ethcommon.Hash) (orderIDs []string, err error)

	SetFloorAsk(ctx context.Context, floorAsk *entity.FloorAsk) error
	DeleteFloorAsk(ctx context.Context, contract ethcommon.Address, tokenID *big.Int) error
	SetTopBid(ctx context.Context, topBid *entity.TopBid) error
	DeleteTopBid(ctx context.Context, tokenSetID string) error

	CreateOrderEvents(ctx context.Context, events []*entity.OrderEvent) error
	CreateActivities(ctx context.Context, activities []*entity.Activity) error

	SetCollectionRoyalties(ctx context.Context, royalties *entity.CollectionRoyalties) error
	SetCurrency(ctx context.Context, currency *entity.Currency) error
}
