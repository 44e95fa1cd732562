package tokenset

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gaze-network/nft-indexer/common/errs"
)

type Kind string

const (
	KindSingleToken Kind = "token"
	KindContract    Kind = "contract"
	KindTokenRange  Kind = "range"
	KindTokenList   Kind = "list"
	KindAttribute   Kind = "attribute"
)

// Spec describes the scope an order targets, before resolution. Exactly one
// shape must be populated; anything else fails resolution.
type Spec struct {
	Kind     Kind
	Contract common.Address

	TokenID *big.Int // single token

	RangeStart *big.Int // token range, inclusive
	RangeEnd   *big.Int

	TokenIDs []*big.Int // explicit list, content-addressed by merkle root

	AttributeKey   string // attribute filter
	AttributeValue string
}

// TokenSet is a resolved, persistable token set. ID formats:
//
//	token:<contract>:<tokenId>
//	contract:<contract>
//	range:<contract>:<start>:<end>
//	list:<contract>:<merkleRoot>
//	attribute:<contract>:<key>:<value>
type TokenSet struct {
	ID       string
	Kind     Kind
	Contract common.Address

	// TokenIDs is populated for list sets only; membership of the other kinds
	// is derivable from the id itself.
	TokenIDs []*big.Int
}

// Resolve maps a spec to exactly one token set. Failure to resolve is a
// terminal business rejection, surfaced by the caller as `invalid-token-set`.
func Resolve(spec Spec) (TokenSet, error) {
	if spec.Contract == (common.Address{}) {
		return TokenSet{}, errors.Wrap(errs.InvalidArgument, "token set requires a contract")
	}

	switch spec.Kind {
	case KindSingleToken:
		if spec.TokenID == nil {
			return TokenSet{}, errors.Wrap(errs.InvalidArgument, "single-token set requires a token id")
		}
		return TokenSet{
			ID:       SingleTokenID(spec.Contract, spec.TokenID),
			Kind:     KindSingleToken,
			Contract: spec.Contract,
		}, nil
	case KindContract:
		return TokenSet{
			ID:       ContractWideID(spec.Contract),
			Kind:     KindContract,
			Contract: spec.Contract,
		}, nil
	case KindTokenRange:
		if spec.RangeStart == nil || spec.RangeEnd == nil || spec.RangeStart.Cmp(spec.RangeEnd) > 0 {
			return TokenSet{}, errors.Wrap(errs.InvalidArgument, "invalid token range")
		}
		return TokenSet{
			ID:       fmt.Sprintf("range:%s:%s:%s", strings.ToLower(spec.Contract.Hex()), spec.RangeStart, spec.RangeEnd),
			Kind:     KindTokenRange,
			Contract: spec.Contract,
		}, nil
	case KindTokenList:
		if len(spec.TokenIDs) == 0 {
			return TokenSet{}, errors.Wrap(errs.InvalidArgument, "empty token list")
		}
		root := MerkleRoot(spec.TokenIDs)
		return TokenSet{
			ID:       fmt.Sprintf("list:%s:%s", strings.ToLower(spec.Contract.Hex()), root.Hex()),
			Kind:     KindTokenList,
			Contract: spec.Contract,
			TokenIDs: spec.TokenIDs,
		}, nil
	case KindAttribute:
		if spec.AttributeKey == "" {
			return TokenSet{}, errors.Wrap(errs.InvalidArgument, "attribute set requires a key")
		}
		return TokenSet{
			ID:       fmt.Sprintf("attribute:%s:%s:%s", strings.ToLower(spec.Contract.Hex()), spec.AttributeKey, spec.AttributeValue),
			Kind:     KindAttribute,
			Contract: spec.Contract,
		}, nil
	default:
		return TokenSet{}, errors.Wrapf(errs.Unsupported, "unknown token set kind %q", spec.Kind)
	}
}

func SingleTokenID(contract common.Address, tokenID *big.Int) string {
	return fmt.Sprintf("token:%s:%s", strings.ToLower(contract.Hex()), tokenID)
}

func ContractWideID(contract common.Address) string {
	return fmt.Sprintf("contract:%s", strings.ToLower(contract.Hex()))
}

// IsSingleToken reports whether the id refers to exactly one token.
func IsSingleToken(id string) bool {
	return strings.HasPrefix(id, "token:")
}

// ParseSingleToken extracts (contract, tokenId) from a single-token id.
func ParseSingleToken(id string) (common.Address, *big.Int, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 || parts[0] != "token" {
		return common.Address{}, nil, errors.Wrapf(errs.InvalidArgument, "not a single-token set id: %q", id)
	}
	tokenID, ok := new(big.Int).SetString(parts[2], 10)
	if !ok {
		return common.Address{}, nil, errors.Wrapf(errs.InvalidArgument, "invalid token id in %q", id)
	}
	return common.HexToAddress(parts[1]), tokenID, nil
}

// MerkleRoot computes the keccak256 merkle root over the sorted token ids.
// Single-leaf trees return the leaf hash. Odd nodes are promoted unpaired.
func MerkleRoot(tokenIDs []*big.Int) common.Hash {
	leaves := make([][]byte, 0, len(tokenIDs))
	sorted := make([]*big.Int, len(tokenIDs))
	copy(sorted, tokenIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })
	for _, id := range sorted {
		leaf := make([]byte, 32)
		id.FillBytes(leaf)
		leaves = append(leaves, crypto.Keccak256(leaf))
	}

	for len(leaves) > 1 {
		next := make([][]byte, 0, (len(leaves)+1)/2)
		for i := 0; i < len(leaves); i += 2 {
			if i+1 == len(leaves) {
				next = append(next, leaves[i])
				continue
			}
			// hash sorted pair so proofs are order-independent
			a, b := leaves[i], leaves[i+1]
			if string(a) > string(b) {
				a, b = b, a
			}
			next = append(next, crypto.Keccak256(a, b))
		}
		leaves = next
	}
	return common.BytesToHash(leaves[0])
}
