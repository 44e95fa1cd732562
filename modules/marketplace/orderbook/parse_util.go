package orderbook

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// parseBig accepts decimal and 0x-prefixed hex strings. Empty strings parse
// to zero, matching payloads that omit optional numeric fields.
func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, errors.Newf("malformed integer %q", s)
	}
	if n.Sign() < 0 {
		return nil, errors.Newf("negative integer %q", s)
	}
	return n, nil
}

func parseSignature(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("missing signature")
	}
	sig, err := hexutil.Decode(s)
	if err != nil {
		return nil, errors.Wrap(err, "malformed signature")
	}
	return sig, nil
}
