package datasources

import (
	"context"
	"math/big"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/gaze-network/nft-indexer/internal/subscription"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
	cstream "github.com/planxnx/concurrent-stream"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	// chunkSize is the max block range fetched as one unit. Block headers for the
	// whole chunk are prefetched concurrently, so keep this small.
	chunkSize = 32

	// headerFetchConcurrency bounds parallel header requests within one chunk.
	headerFetchConcurrency = 16
)

// LogFilter selects the logs an EthereumNodeDatasource fetches.
// Topics are matched against topic0; an empty Addresses list matches every emitter.
type LogFilter struct {
	Topics    []common.Hash
	Addresses []common.Address
}

// Make sure to implement the Datasource interface
var _ Datasource[*types.Block] = (*EthereumNodeDatasource)(nil)

// EthereumNodeDatasource fetches logs and block headers from an Ethereum
// execution node. A block range is always fetched wholesale: an RPC failure
// fails the whole round and the caller's scheduler retries it.
type EthereumNodeDatasource struct {
	client    *ethclient.Client
	rpcClient *rpc.Client
	filter    LogFilter
}

func NewEthereumNode(client *ethclient.Client, rpcClient *rpc.Client, filter LogFilter) *EthereumNodeDatasource {
	return &EthereumNodeDatasource{
		client:    client,
		rpcClient: rpcClient,
		filter:    filter,
	}
}

func (d *EthereumNodeDatasource) Name() string {
	return "ethereum_node"
}

// Fetch fetches blocks with matched logs for the given height range.
//
//   - from: block height to start fetching, if -1, it will start from genesis block
//   - to: block height to stop fetching, if -1, it will fetch until the latest block
func (d *EthereumNodeDatasource) Fetch(ctx context.Context, from, to int64) ([]*types.Block, error) {
	ch := make(chan []*types.Block)
	subscription, err := d.FetchAsync(ctx, from, to, ch)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer subscription.Unsubscribe()

	blocks := make([]*types.Block, 0)
	for {
		select {
		case b := <-ch:
			blocks = append(blocks, b...)
		case <-subscription.Done():
			sort.Slice(blocks, func(i, j int) bool { return blocks[i].Header.Height < blocks[j].Header.Height })
			return blocks, nil
		case err := <-subscription.Err():
			if err != nil {
				return nil, errors.Wrap(err, "got error while fetch async")
			}
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "context done")
		}
	}
}

// FetchAsync fetches blocks with matched logs asynchronously (non-blocking)
func (d *EthereumNodeDatasource) FetchAsync(ctx context.Context, from, to int64, ch chan<- []*types.Block) (*subscription.ClientSubscription[[]*types.Block], error) {
	from, to, skip, err := d.prepareRange(ctx, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare fetch range")
	}

	subscription := subscription.NewSubscription(ch)
	if skip {
		if err := subscription.UnsubscribeWithContext(ctx); err != nil {
			return nil, errors.Wrap(err, "failed to unsubscribe")
		}
		return subscription.Client(), nil
	}

	heights := make([]int64, 0, to-from+1)
	for h := from; h <= to; h++ {
		heights = append(heights, h)
	}

	out := make(chan []*types.Block)
	stream := cstream.NewStream(ctx, 4, out)

	// Wait for stream to finish and close out channel
	go func() {
		defer close(out)
		_ = stream.Wait()
	}()

	// Fan-out blocks to subscription channel
	go func() {
		defer subscription.Unsubscribe()
		for {
			select {
			case data, ok := <-out:
				if !ok {
					return
				}
				if len(data) == 0 {
					continue
				}
				if err := subscription.Send(ctx, data); err != nil {
					logger.ErrorContext(ctx, "failed while dispatch blocks",
						err,
						slogx.Int64("start", data[0].Header.Height),
						slogx.Int64("end", data[len(data)-1].Header.Height),
					)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Fetch chunks in order until all heights are done or the subscription ends.
	go func() {
		defer stream.Close()
		done := subscription.Done()
		chunks := lo.Chunk(heights, chunkSize)
		for _, chunk := range chunks {
			chunk := chunk
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			default:
				if len(chunk) == 0 {
					continue
				}
				stream.Go(func() []*types.Block {
					fromHeight, toHeight := chunk[0], chunk[len(chunk)-1]
					blocks, err := d.fetchChunk(ctx, fromHeight, toHeight)
					if err != nil {
						logger.ErrorContext(ctx, "failed to fetch chunk",
							err,
							slogx.Int64("from_height", fromHeight),
							slogx.Int64("to_height", toHeight),
						)
						if err := subscription.SendError(ctx, errors.Wrapf(err, "failed to fetch chunk: from_height: %d, to_height: %d", fromHeight, toHeight)); err != nil {
							logger.ErrorContext(ctx, "failed to send error", err)
						}
						return nil
					}
					return blocks
				})
			}
		}
	}()

	return subscription.Client(), nil
}

// fetchChunk fetches all matched logs for [from, to] in one getLogs call and
// prefetches every header in the range concurrently, so later per-log handling
// never needs a metadata round-trip.
func (d *EthereumNodeDatasource) fetchChunk(ctx context.Context, from, to int64) ([]*types.Block, error) {
	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(from),
		ToBlock:   big.NewInt(to),
		Addresses: d.filter.Addresses,
	}
	if len(d.filter.Topics) > 0 {
		query.Topics = [][]common.Hash{d.filter.Topics}
	}

	logs, err := d.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to filter logs")
	}

	headers := make([]types.BlockHeader, to-from+1)
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(headerFetchConcurrency)
	for h := from; h <= to; h++ {
		h := h
		eg.Go(func() error {
			header, err := d.client.HeaderByNumber(ectx, big.NewInt(h))
			if err != nil {
				return errors.Wrapf(err, "failed to get header, height: %d", h)
			}
			headers[h-from] = types.ParseHeader(header)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.WithStack(err)
	}

	logsByBlock := lo.GroupBy(logs, func(log ethtypes.Log) int64 { return int64(log.BlockNumber) })
	blocks := make([]*types.Block, 0, len(headers))
	for _, header := range headers {
		blockLogs := logsByBlock[header.Height]
		sort.SliceStable(blockLogs, func(i, j int) bool { return blockLogs[i].Index < blockLogs[j].Index })
		blocks = append(blocks, &types.Block{
			Header: header,
			Logs:   blockLogs,
		})
	}
	return blocks, nil
}

func (d *EthereumNodeDatasource) GetBlockHeader(ctx context.Context, height int64) (types.BlockHeader, error) {
	header, err := d.client.HeaderByNumber(ctx, big.NewInt(height))
	if err != nil {
		return types.BlockHeader{}, errors.Wrapf(err, "failed to get header, height: %d", height)
	}
	return types.ParseHeader(header), nil
}

// GetTransactionTrace fetches the call trace of a transaction via
// debug_traceTransaction with the callTracer. The result is an unreliable
// oracle: callers must tolerate missing or truncated frames.
func (d *EthereumNodeDatasource) GetTransactionTrace(ctx context.Context, txHash common.Hash) (*types.CallTrace, error) {
	var trace types.CallTrace
	err := d.rpcClient.CallContext(ctx, &trace, "debug_traceTransaction", txHash, map[string]any{
		"tracer": "callTracer",
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to trace transaction %s", txHash)
	}
	return &trace, nil
}

func (d *EthereumNodeDatasource) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	receipt, err := d.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get receipt for %s", txHash)
	}
	return receipt, nil
}

// CallContract executes a read-only contract call at the latest block.
func (d *EthereumNodeDatasource) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	result, err := d.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "contract call to %s failed", to)
	}
	return result, nil
}

func (d *EthereumNodeDatasource) prepareRange(ctx context.Context, fromHeight, toHeight int64) (start, end int64, skip bool, err error) {
	start = fromHeight
	end = toHeight

	latestBlockHeight, err := d.client.BlockNumber(ctx)
	if err != nil {
		return -1, -1, false, errors.Wrap(err, "failed to get latest block number")
	}

	// set start to genesis block height
	if start < 0 {
		start = 0
	}

	// set end to current block height if
	// - end is -1
	// - end is greater than current block height
	if end < 0 || end > int64(latestBlockHeight) {
		end = int64(latestBlockHeight)
	}

	// if start is greater than end, skip this round
	if start > end {
		return -1, -1, true, nil
	}

	return start, end, false, nil
}
