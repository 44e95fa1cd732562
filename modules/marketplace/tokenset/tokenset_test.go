package tokenset

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContract = common.HexToAddress("0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D")

func TestResolve(t *testing.T) {
	type testcase struct {
		name        string
		input       Spec
		expectedID  string
		shouldError bool
	}
	testcases := []testcase{
		{
			name: "single token",
			input: Spec{
				Kind:     KindSingleToken,
				Contract: testContract,
				TokenID:  big.NewInt(1234),
			},
			expectedID: "token:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d:1234",
		},
		{
			name: "contract wide",
			input: Spec{
				Kind:     KindContract,
				Contract: testContract,
			},
			expectedID: "contract:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d",
		},
		{
			name: "token range",
			input: Spec{
				Kind:       KindTokenRange,
				Contract:   testContract,
				RangeStart: big.NewInt(100),
				RangeEnd:   big.NewInt(200),
			},
			expectedID: "range:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d:100:200",
		},
		{
			name: "attribute",
			input: Spec{
				Kind:           KindAttribute,
				Contract:       testContract,
				AttributeKey:   "Fur",
				AttributeValue: "Gold",
			},
			expectedID: "attribute:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d:Fur:Gold",
		},
		{
			name: "missing contract",
			input: Spec{
				Kind:    KindSingleToken,
				TokenID: big.NewInt(1),
			},
			shouldError: true,
		},
		{
			name: "single token without token id",
			input: Spec{
				Kind:     KindSingleToken,
				Contract: testContract,
			},
			shouldError: true,
		},
		{
			name: "inverted range",
			input: Spec{
				Kind:       KindTokenRange,
				Contract:   testContract,
				RangeStart: big.NewInt(200),
				RangeEnd:   big.NewInt(100),
			},
			shouldError: true,
		},
		{
			name: "empty token list",
			input: Spec{
				Kind:     KindTokenList,
				Contract: testContract,
			},
			shouldError: true,
		},
		{
			name: "attribute without key",
			input: Spec{
				Kind:     KindAttribute,
				Contract: testContract,
			},
			shouldError: true,
		},
		{
			name: "unknown kind",
			input: Spec{
				Kind:     Kind("bundle"),
				Contract: testContract,
			},
			shouldError: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			set, err := Resolve(tc.input)
			if tc.shouldError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedID, set.ID)
			assert.Equal(t, tc.input.Kind, set.Kind)
			assert.Equal(t, tc.input.Contract, set.Contract)
		})
	}
}

func TestResolveTokenListContentAddressed(t *testing.T) {
	setA, err := Resolve(Spec{
		Kind:     KindTokenList,
		Contract: testContract,
		TokenIDs: []*big.Int{big.NewInt(3), big.NewInt(1), big.NewInt(2)},
	})
	require.NoError(t, err)

	setB, err := Resolve(Spec{
		Kind:     KindTokenList,
		Contract: testContract,
		TokenIDs: []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)},
	})
	require.NoError(t, err)

	// The id is derived from the sorted token ids, so ordering cannot split
	// equivalent lists into different sets.
	assert.Equal(t, setA.ID, setB.ID)

	setC, err := Resolve(Spec{
		Kind:     KindTokenList,
		Contract: testContract,
		TokenIDs: []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(4)},
	})
	require.NoError(t, err)
	assert.NotEqual(t, setA.ID, setC.ID)
}

func TestMerkleRoot(t *testing.T) {
	single := MerkleRoot([]*big.Int{big.NewInt(42)})
	assert.NotEqual(t, common.Hash{}, single)

	// Pair hashing is order-independent.
	pairAB := MerkleRoot([]*big.Int{big.NewInt(1), big.NewInt(2)})
	pairBA := MerkleRoot([]*big.Int{big.NewInt(2), big.NewInt(1)})
	assert.Equal(t, pairAB, pairBA)

	// An odd leaf is promoted, not dropped.
	triple := MerkleRoot([]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)})
	assert.NotEqual(t, pairAB, triple)
}

func TestParseSingleToken(t *testing.T) {
	id := SingleTokenID(testContract, big.NewInt(7777))
	contract, tokenID, err := ParseSingleToken(id)
	require.NoError(t, err)
	assert.Equal(t, testContract, contract)
	assert.Equal(t, int64(7777), tokenID.Int64())

	_, _, err = ParseSingleToken(ContractWideID(testContract))
	assert.ErrorIs(t, err, errs.InvalidArgument)

	_, _, err = ParseSingleToken("token:0xabc:notanumber")
	assert.ErrorIs(t, err, errs.InvalidArgument)
}

func TestIsSingleToken(t *testing.T) {
	assert.True(t, IsSingleToken(SingleTokenID(testContract, big.NewInt(1))))
	assert.False(t, IsSingleToken(ContractWideID(testContract)))
	assert.False(t, IsSingleToken("range:0xabc:1:10"))
}
