package postgres

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Addresses and hashes are stored as lowercase hex text; arbitrary-precision
// amounts as NUMERIC scanned through text.

func addrToDB(addr ethcommon.Address) string {
	return strings.ToLower(addr.Hex())
}

func addrFromDB(s string) ethcommon.Address {
	return ethcommon.HexToAddress(s)
}

func hashToDB(hash ethcommon.Hash) string {
	return strings.ToLower(hash.Hex())
}

func hashFromDB(s string) ethcommon.Hash {
	return ethcommon.HexToHash(s)
}

func bigToDB(n *big.Int) *string {
	if n == nil {
		return nil
	}
	s := n.String()
	return &s
}

func bigFromDB(s *string) (*big.Int, error) {
	if s == nil {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil, errors.Newf("malformed numeric %q", *s)
	}
	return n, nil
}

func decimalToDB(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func decimalFromDB(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, errors.Wrapf(err, "malformed decimal %q", *s)
	}
	return decimal.NewNullDecimal(d), nil
}
