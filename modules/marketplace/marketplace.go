package marketplace

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/core/datasources"
	"github.com/gaze-network/nft-indexer/core/indexer"
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/gaze-network/nft-indexer/internal/config"
	"github.com/gaze-network/nft-indexer/internal/postgres"
	marketplaceapi "github.com/gaze-network/nft-indexer/modules/marketplace/api"
	"github.com/gaze-network/nft-indexer/modules/marketplace/attribution"
	"github.com/gaze-network/nft-indexer/modules/marketplace/currency"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/orderbook"
	"github.com/gaze-network/nft-indexer/modules/marketplace/protocols"
	"github.com/gaze-network/nft-indexer/modules/marketplace/reconcile"
	"github.com/gaze-network/nft-indexer/modules/marketplace/reorg"
	marketplacepostgres "github.com/gaze-network/nft-indexer/modules/marketplace/repository/postgres"
	"github.com/gaze-network/nft-indexer/modules/marketplace/royalty"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/reportingclient"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

func New(injector do.Injector) (indexer.IndexerWorker, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	reportingClient := do.MustInvoke[*reportingclient.ReportingClient](injector)
	mktConf := conf.Modules.Marketplace

	var (
		marketplaceDg datagateway.MarketplaceDataGateway
		indexerInfoDg datagateway.IndexerInfoDataGateway
		queueDg       datagateway.QueueDataGateway
	)
	var cleanupFuncs []func(context.Context) error
	switch strings.ToLower(mktConf.Database) {
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, mktConf.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "Invalid Postgres configuration for indexer")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
			pg.Close()
			return nil
		})
		repo := marketplacepostgres.NewRepository(pg)
		marketplaceDg = repo
		indexerInfoDg = repo
		queueDg = repo
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for indexer is not supported", mktConf.Database)
	}

	var ethereumDatasource datasources.Datasource[*types.Block]
	var chainClient protocols.ChainClient
	var headerSource reorg.HeaderSource
	switch strings.ToLower(mktConf.Datasource) {
	case "ethereum-node":
		client := do.MustInvoke[*ethclient.Client](injector)
		rpcClient := do.MustInvoke[*rpc.Client](injector)

		// The registry needs a chain client before it can produce the topic
		// filter, so the filtered datasource is built in a second step.
		chainNode := datasources.NewEthereumNode(client, rpcClient, datasources.LogFilter{})
		chainClient = chainNode
		headerSource = chainNode

		registry, err := protocols.NewDefaultRegistry(conf.Network, chainClient)
		if err != nil {
			return nil, errors.Wrap(err, "can't build protocol registry")
		}
		ethereumDatasource = datasources.NewEthereumNode(client, rpcClient, datasources.LogFilter{
			Topics: registry.Topics(),
		})

		worker, err := assemble(ctx, assembleParams{
			conf:            conf,
			registry:        registry,
			marketplaceDg:   marketplaceDg,
			indexerInfoDg:   indexerInfoDg,
			queueDg:         queueDg,
			chainClient:     chainClient,
			headerSource:    headerSource,
			datasource:      ethereumDatasource,
			reportingClient: reportingClient,
			cleanupFuncs:    cleanupFuncs,
			injector:        injector,
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return worker, nil
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q datasource is not supported", mktConf.Datasource)
	}
}

type assembleParams struct {
	conf            config.Config
	registry        *protocols.Registry
	marketplaceDg   datagateway.MarketplaceDataGateway
	indexerInfoDg   datagateway.IndexerInfoDataGateway
	queueDg         datagateway.QueueDataGateway
	chainClient     protocols.ChainClient
	headerSource    reorg.HeaderSource
	datasource      datasources.Datasource[*types.Block]
	reportingClient *reportingclient.ReportingClient
	cleanupFuncs    []func(context.Context) error
	injector        do.Injector
}

func assemble(ctx context.Context, p assembleParams) (indexer.IndexerWorker, error) {
	mktConf := p.conf.Modules.Marketplace

	converter, err := currency.NewConverter(mktConf.PriceOracle.URL)
	if err != nil {
		return nil, errors.Wrap(err, "can't create currency converter")
	}
	sources := attribution.NewRegistry()
	royalties := royalty.NewRegistry(p.marketplaceDg)
	prober := orderbook.NewChainProber(p.chainClient)
	book := orderbook.New(p.marketplaceDg, p.queueDg, royalties, converter, prober, orderBookOptions(p.conf))

	var monitor *reorg.Monitor
	if !mktConf.Backfill {
		monitor = reorg.NewMonitor(p.marketplaceDg, p.queueDg, p.headerSource, reorg.Config{
			CheckDelays:       mktConf.Reorg.CheckDelays,
			AcceleratedDelays: mktConf.Reorg.AcceleratedDelays,
		})
	}

	processor := NewProcessor(p.marketplaceDg, p.indexerInfoDg, p.queueDg, p.registry, converter, sources, p.chainClient, monitor, p.conf.Network, p.reportingClient, p.cleanupFuncs)
	if err := processor.VerifyStates(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	if p.reportingClient != nil {
		if err := p.reportingClient.SubmitNodeReport(ctx, "marketplace", p.conf.Network); err != nil {
			return nil, errors.Wrap(err, "can't submit node report")
		}
	}

	reconciler := reconcile.New(p.marketplaceDg, p.queueDg, prober, reconcile.Config{
		Workers:      mktConf.Reconcile.Workers,
		PollInterval: mktConf.Reconcile.PollInterval,
		JobTimeout:   mktConf.Reconcile.JobTimeout,
		MaxAttempts:  mktConf.Reconcile.MaxAttempts,
	})

	// Mount API
	apiHandlers := lo.Uniq(mktConf.APIHandlers)
	for _, handler := range apiHandlers {
		switch handler { // TODO: support more handlers (e.g. gRPC)
		case "http":
			httpServer := do.MustInvoke[*fiber.App](p.injector)
			httpHandler := marketplaceapi.NewHTTPHandler(p.conf.Network, p.marketplaceDg, book)
			if err := httpHandler.Mount(httpServer); err != nil {
				return nil, errors.Wrap(err, "can't mount Marketplace API")
			}
			logger.InfoContext(ctx, "Mounted HTTP handler")
		default:
			return nil, errors.Wrapf(errs.Unsupported, "%q API handler is not supported", handler)
		}
	}

	return &worker{
		indexer:    indexer.New(processor, p.datasource),
		reconciler: reconciler,
		monitor:    monitor,
	}, nil
}

// worker runs the block indexer alongside the reconcile workers and the reorg
// monitor. A failure in any of them stops the whole module.
type worker struct {
	indexer    indexer.IndexerWorker
	reconciler *reconcile.Reconciler
	monitor    *reorg.Monitor
}

func (w *worker) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return errors.WithStack(w.indexer.Run(ctx))
	})
	eg.Go(func() error {
		return errors.WithStack(w.reconciler.Run(ctx))
	})
	if w.monitor != nil {
		eg.Go(func() error {
			return errors.WithStack(w.monitor.Run(ctx))
		})
	}
	return errors.WithStack(eg.Wait())
}

// orderBookOptions builds the submission allow-lists for the network. The
// conduit and zone sets track contracts OpenSea actually deploys; bids must be
// funded in WETH because native tokens cannot be escrowed.
func orderBookOptions(conf config.Config) orderbook.Options {
	opts := orderbook.Options{
		KnownConduits: map[ethcommon.Address]struct{}{
			ethcommon.HexToAddress("0x1E0049783F008A0085193E00003D00cd54003c71"): {},
		},
		KnownZones: map[ethcommon.Address]struct{}{
			ethcommon.HexToAddress("0x004C00500000aD104D7DBd00e3ae0A5C00560C00"): {},
			ethcommon.HexToAddress("0x000056F7000000EcE9003ca63978907a00FFD100"): {},
			ethcommon.HexToAddress("0x000000e7Ec00e7B300774b00001314B8610022b8"): {},
		},
		KnownCosigners: map[ethcommon.Address]struct{}{},
		CancellationZones: map[ethcommon.Address]struct{}{
			ethcommon.HexToAddress("0x000000e7Ec00e7B300774b00001314B8610022b8"): {},
		},
		AllowedBidCurrencies: map[ethcommon.Address]struct{}{},
	}
	if addrs, ok := protocols.AddressesForNetwork(conf.Network); ok {
		opts.AllowedBidCurrencies[addrs.WETH] = struct{}{}
	}
	return opts
}
