package protocols

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	commonpkg "github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
)

const (
	subKindSudoswapSwapIn          = "swap-nft-in-pair"
	subKindSudoswapSwapOut         = "swap-nft-out-pair"
	subKindSudoswapSpotPriceUpdate = "spot-price-update"
	subKindSudoswapTokenDeposit    = "token-deposit"
	subKindSudoswapTokenWithdrawal = "token-withdrawal"
	subKindSudoswapNFTWithdrawal   = "nft-withdrawal"
)

func selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

var (
	selSwapTokenForAnyNFTs      = selector("swapTokenForAnyNFTs(uint256,uint256,address,bool,address)")
	selSwapTokenForSpecificNFTs = selector("swapTokenForSpecificNFTs(uint256[],uint256,address,bool,address)")
	selSwapNFTsForToken         = selector("swapNFTsForToken(uint256[],uint256,address,bool,address)")
	selPairNFT                  = selector("nft()")
	selPairToken                = selector("token()")
)

// swapTokenForSpecificNFTs and swapNFTsForToken share one calldata shape.
var sudoswapSwapArgs = abi.Arguments{
	{Type: mustNewABIType("uint256[]", nil)},
	{Type: mustNewABIType("uint256", nil)},
	{Type: mustNewABIType("address", nil)},
	{Type: mustNewABIType("bool", nil)},
	{Type: mustNewABIType("address", nil)},
}

// SudoswapHandler decodes bonding-curve pool swaps. Pool swap logs carry no
// arguments, so every fill is reconstructed by correlating the log with the
// transaction's call trace: the n-th swap log of a pool pairs with the n-th
// swap call to that pool.
type SudoswapHandler struct {
	chain ChainClient

	mu       sync.Mutex
	poolNFTs map[common.Address]common.Address
}

func NewSudoswapHandler(chain ChainClient) *SudoswapHandler {
	return &SudoswapHandler{
		chain:    chain,
		poolNFTs: make(map[common.Address]common.Address),
	}
}

func (h *SudoswapHandler) Kind() Kind {
	return KindSudoswap
}

// Pools are factory-deployed, so matching is by topic alone and every decoded
// fill must additionally survive trace correlation.
func (h *SudoswapHandler) Events() []EventInfo {
	return []EventInfo{
		{Kind: KindSudoswap, SubKind: subKindSudoswapSwapIn, Topic: sudoswapABI.Events["SwapNFTInPair"].ID, NumTopics: 1},
		{Kind: KindSudoswap, SubKind: subKindSudoswapSwapOut, Topic: sudoswapABI.Events["SwapNFTOutPair"].ID, NumTopics: 1},
		{Kind: KindSudoswap, SubKind: subKindSudoswapSpotPriceUpdate, Topic: sudoswapABI.Events["SpotPriceUpdate"].ID, NumTopics: 1},
		{Kind: KindSudoswap, SubKind: subKindSudoswapTokenDeposit, Topic: sudoswapABI.Events["TokenDeposit"].ID, NumTopics: 1},
		{Kind: KindSudoswap, SubKind: subKindSudoswapTokenWithdrawal, Topic: sudoswapABI.Events["TokenWithdrawal"].ID, NumTopics: 1},
		{Kind: KindSudoswap, SubKind: subKindSudoswapNFTWithdrawal, Topic: sudoswapABI.Events["NFTWithdrawal"].ID, NumTopics: 1},
	}
}

func (h *SudoswapHandler) HandleEvents(ctx context.Context, batch []EnhancedEvent, data *OnChainData) error {
	for _, ev := range batch {
		var err error
		switch ev.SubKind {
		case subKindSudoswapSwapIn, subKindSudoswapSwapOut:
			err = h.handleSwap(ctx, ev, data)
		case subKindSudoswapSpotPriceUpdate, subKindSudoswapTokenDeposit,
			subKindSudoswapTokenWithdrawal, subKindSudoswapNFTWithdrawal:
			data.AddOrderRefresh(entity.OrderRefresh{
				Kind: KindSudoswap.String(),
				ID:   sudoswapOrderID(ev.Log.Address),
				Pool: ev.Log.Address,
				Base: ev.Base,
			})
		}
		if err != nil {
			logger.WarnContext(ctx, "skipping sudoswap swap without usable trace",
				slogx.String("subKind", ev.SubKind),
				slogx.Stringer("pool", ev.Log.Address),
				slogx.Stringer("txHash", ev.Base.TxHash),
				slogx.Uint64("logIndex", uint64(ev.Base.LogIndex)),
				slogx.Error(err),
			)
		}
	}
	return nil
}

func sudoswapOrderID(pool common.Address) string {
	return "sudoswap:" + strings.ToLower(pool.Hex())
}

func (h *SudoswapHandler) handleSwap(ctx context.Context, ev EnhancedEvent, data *OnChainData) error {
	pool := ev.Log.Address
	rank := data.NextTradeRank(ev.Base.TxHash, pool, ev.SubKind)

	trace, err := h.chain.GetTransactionTrace(ctx, ev.Base.TxHash)
	if err != nil {
		return errors.Wrap(err, "fetch transaction trace")
	}
	if trace == nil {
		return errors.New("no trace available")
	}

	var call *types.CallTrace
	var poolIsSeller bool
	switch ev.SubKind {
	case subKindSudoswapSwapOut:
		// Pool sent NFTs out: its sell side was taken.
		poolIsSeller = true
		call = trace.FindNthCall(pool, selSwapTokenForSpecificNFTs, rank)
		if call == nil {
			if anyCall := trace.FindNthCall(pool, selSwapTokenForAnyNFTs, rank); anyCall != nil {
				return errors.New("any-nft swap carries no token ids in calldata")
			}
			return errors.New("matching swap call not found in trace")
		}
	case subKindSudoswapSwapIn:
		// Pool received NFTs: its buy side was taken.
		call = trace.FindNthCall(pool, selSwapNFTsForToken, rank)
		if call == nil {
			return errors.New("matching swap call not found in trace")
		}
	}
	if call.Error != "" {
		return errors.Newf("swap call reverted: %s", call.Error)
	}

	tokenIDs, err := decodeSwapTokenIDs(call.Input)
	if err != nil {
		return err
	}
	if len(tokenIDs) == 0 {
		return errors.New("swap call names no token ids")
	}

	total, currency, err := h.swapTotal(ctx, pool, call)
	if err != nil {
		return err
	}
	if total.Sign() == 0 {
		return errors.New("swap carries no payment")
	}

	nft, err := h.poolNFT(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "resolve pool collection")
	}

	side := entity.OrderSideBuy
	taker := call.From
	if poolIsSeller {
		side = entity.OrderSideSell
	}

	// Multi-leg swaps average the lump-sum price per token; integer division
	// loses a remainder, which is folded into the first leg so the legs still
	// sum to the on-chain total.
	count := big.NewInt(int64(len(tokenIDs)))
	perLeg := new(big.Int).Div(total, count)
	remainder := new(big.Int).Mod(total, count)

	orderID := sudoswapOrderID(pool)
	for i, tokenID := range tokenIDs {
		legPrice := new(big.Int).Set(perLeg)
		if i == 0 {
			legPrice.Add(legPrice, remainder)
		}
		base := ev.Base.WithBatchIndex(i + 1)
		fillCtx := fillContext(orderID, base)
		data.AddFill(
			entity.FillEvent{
				OrderID:       orderID,
				OrderKind:     KindSudoswap.String(),
				OrderSide:     side,
				Maker:         pool,
				Taker:         taker,
				Contract:      nft,
				TokenID:       tokenID,
				Amount:        big.NewInt(1),
				Currency:      currency,
				CurrencyPrice: legPrice,
				Price:         legPrice,
				Base:          base,
			},
			entity.FillInfo{
				Context:   fillCtx,
				OrderID:   orderID,
				OrderSide: side,
				Contract:  nft,
				TokenID:   tokenID,
				Amount:    big.NewInt(1),
				Price:     legPrice,
				Maker:     pool,
				Taker:     taker,
				Base:      base,
			},
			entity.Trigger{
				Context:     fillCtx,
				Kind:        entity.TriggerSale,
				OrderID:     orderID,
				TokenSetID:  tokenset.SingleTokenID(nft, tokenID),
				Side:        side,
				TxHash:      base.TxHash,
				TxTimestamp: base.Timestamp,
				LogIndex:    base.LogIndex,
				BlockHash:   base.BlockHash,
			},
		)
	}

	// Reserves moved, so the pool's standing order needs a re-read.
	data.AddOrderRefresh(entity.OrderRefresh{
		Kind: KindSudoswap.String(),
		ID:   orderID,
		Pool: pool,
		Base: ev.Base,
	})
	return nil
}

func decodeSwapTokenIDs(input []byte) ([]*big.Int, error) {
	if len(input) < 4 {
		return nil, errors.New("calldata shorter than a selector")
	}
	values, err := sudoswapSwapArgs.Unpack(input[4:])
	if err != nil {
		return nil, errors.Wrap(err, "unpack swap calldata")
	}
	ids, ok := values[0].([]*big.Int)
	if !ok {
		return nil, errors.Newf("expected uint256[] token ids, got %T", values[0])
	}
	return ids, nil
}

// swapTotal derives the lump-sum paid. Native pools carry it as call value;
// token pools report it in the swap's return data.
func (h *SudoswapHandler) swapTotal(ctx context.Context, pool common.Address, call *types.CallTrace) (*big.Int, common.Address, error) {
	if call.Value != nil && call.Value.ToInt().Sign() > 0 {
		return call.Value.ToInt(), commonpkg.ZeroAddress, nil
	}
	if len(call.Output) < 32 {
		return nil, common.Address{}, errors.New("swap call output truncated")
	}
	total := new(big.Int).SetBytes(call.Output[:32])

	raw, err := h.chain.CallContract(ctx, pool, selPairToken[:])
	if err != nil {
		return nil, common.Address{}, errors.Wrap(err, "read pool token")
	}
	if len(raw) < 32 {
		return nil, common.Address{}, errors.New("pool token read truncated")
	}
	return total, common.BytesToAddress(raw[12:32]), nil
}

func (h *SudoswapHandler) poolNFT(ctx context.Context, pool common.Address) (common.Address, error) {
	h.mu.Lock()
	if nft, ok := h.poolNFTs[pool]; ok {
		h.mu.Unlock()
		return nft, nil
	}
	h.mu.Unlock()

	raw, err := h.chain.CallContract(ctx, pool, selPairNFT[:])
	if err != nil {
		return common.Address{}, err
	}
	if len(raw) < 32 {
		return common.Address{}, errors.New("pool nft read truncated")
	}
	nft := common.BytesToAddress(raw[12:32])

	h.mu.Lock()
	h.poolNFTs[pool] = nft
	h.mu.Unlock()
	return nft, nil
}
