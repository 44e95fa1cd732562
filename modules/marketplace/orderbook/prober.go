package orderbook

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gaze-network/nft-indexer/modules/marketplace/protocols"
)

type ProbeResult struct {
	HasBalance  bool
	HasApproval bool
}

// FillabilityProber re-checks on-chain that a maker can actually deliver what
// the order promises. Probe errors are infrastructure failures and propagate;
// a clean probe with missing balance or approval is a business outcome.
type FillabilityProber interface {
	ProbeSell(ctx context.Context, maker, contract ethcommon.Address, tokenID, quantity *big.Int, operator ethcommon.Address) (ProbeResult, error)
	ProbeBuy(ctx context.Context, maker, currency ethcommon.Address, amount *big.Int, operator ethcommon.Address) (ProbeResult, error)
	// OwnerOf resolves the current ERC-721 holder of a token. Errors for
	// contracts without a single owner (ERC-1155).
	OwnerOf(ctx context.Context, contract ethcommon.Address, tokenID *big.Int) (ethcommon.Address, error)
}

var (
	selOwnerOf          = crypto.Keccak256([]byte("ownerOf(uint256)"))[:4]
	selBalanceOf1155    = crypto.Keccak256([]byte("balanceOf(address,uint256)"))[:4]
	selIsApprovedForAll = crypto.Keccak256([]byte("isApprovedForAll(address,address)"))[:4]
	selBalanceOf20      = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	selAllowance        = crypto.Keccak256([]byte("allowance(address,address)"))[:4]
)

func packAddress(addr ethcommon.Address) []byte {
	word := make([]byte, 32)
	copy(word[12:], addr.Bytes())
	return word
}

func packUint(v *big.Int) []byte {
	word := make([]byte, 32)
	v.FillBytes(word)
	return word
}

// ChainProber probes token state through raw contract reads.
type ChainProber struct {
	chain protocols.ChainClient
}

func NewChainProber(chain protocols.ChainClient) *ChainProber {
	return &ChainProber{chain: chain}
}

func (p *ChainProber) ProbeSell(ctx context.Context, maker, contract ethcommon.Address, tokenID, quantity *big.Int, operator ethcommon.Address) (ProbeResult, error) {
	hasBalance, err := p.probeNFTBalance(ctx, maker, contract, tokenID, quantity)
	if err != nil {
		return ProbeResult{}, err
	}
	hasApproval, err := p.probeOperatorApproval(ctx, maker, contract, operator)
	if err != nil {
		return ProbeResult{}, err
	}
	return ProbeResult{HasBalance: hasBalance, HasApproval: hasApproval}, nil
}

func (p *ChainProber) ProbeBuy(ctx context.Context, maker, currency ethcommon.Address, amount *big.Int, operator ethcommon.Address) (ProbeResult, error) {
	raw, err := p.chain.CallContract(ctx, currency, append(append([]byte{}, selBalanceOf20...), packAddress(maker)...))
	if err != nil {
		return ProbeResult{}, errors.Wrap(err, "read currency balance")
	}
	if len(raw) < 32 {
		return ProbeResult{}, errors.New("currency balance read truncated")
	}
	balance := new(big.Int).SetBytes(raw[:32])

	data := append(append(append([]byte{}, selAllowance...), packAddress(maker)...), packAddress(operator)...)
	raw, err = p.chain.CallContract(ctx, currency, data)
	if err != nil {
		return ProbeResult{}, errors.Wrap(err, "read currency allowance")
	}
	if len(raw) < 32 {
		return ProbeResult{}, errors.New("currency allowance read truncated")
	}
	allowance := new(big.Int).SetBytes(raw[:32])

	return ProbeResult{
		HasBalance:  balance.Cmp(amount) >= 0,
		HasApproval: allowance.Cmp(amount) >= 0,
	}, nil
}

func (p *ChainProber) OwnerOf(ctx context.Context, contract ethcommon.Address, tokenID *big.Int) (ethcommon.Address, error) {
	raw, err := p.chain.CallContract(ctx, contract, append(append([]byte{}, selOwnerOf...), packUint(tokenID)...))
	if err != nil {
		return ethcommon.Address{}, errors.Wrap(err, "read token owner")
	}
	if len(raw) < 32 {
		return ethcommon.Address{}, errors.New("token owner read truncated")
	}
	return ethcommon.BytesToAddress(raw[12:32]), nil
}

// probeNFTBalance tries ownerOf first and falls back to the 1155 balance read
// when the contract does not implement it.
func (p *ChainProber) probeNFTBalance(ctx context.Context, maker, contract ethcommon.Address, tokenID, quantity *big.Int) (bool, error) {
	raw, err := p.chain.CallContract(ctx, contract, append(append([]byte{}, selOwnerOf...), packUint(tokenID)...))
	if err == nil && len(raw) >= 32 {
		return ethcommon.BytesToAddress(raw[12:32]) == maker, nil
	}

	data := append(append(append([]byte{}, selBalanceOf1155...), packAddress(maker)...), packUint(tokenID)...)
	raw, err = p.chain.CallContract(ctx, contract, data)
	if err != nil {
		return false, errors.Wrap(err, "read token balance")
	}
	if len(raw) < 32 {
		return false, errors.New("token balance read truncated")
	}
	balance := new(big.Int).SetBytes(raw[:32])
	return balance.Cmp(quantity) >= 0, nil
}

func (p *ChainProber) probeOperatorApproval(ctx context.Context, maker, contract, operator ethcommon.Address) (bool, error) {
	if operator == (ethcommon.Address{}) {
		// No conduit named; nothing to verify against.
		return true, nil
	}
	data := append(append(append([]byte{}, selIsApprovedForAll...), packAddress(maker)...), packAddress(operator)...)
	raw, err := p.chain.CallContract(ctx, contract, data)
	if err != nil {
		return false, errors.Wrap(err, "read operator approval")
	}
	if len(raw) < 32 {
		return false, errors.New("operator approval read truncated")
	}
	return raw[31] == 1, nil
}
