package orderbook

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// deriveOrderID content-addresses an order from its canonical parameters.
// The same raw payload always parses to the same parameters, so replaying a
// payload derives the same id and the insert collapses to a no-op.
func deriveOrderID(p *parsedOrder, tokenSetID string) string {
	canonical := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%d|%d|%s",
		p.kind,
		p.side,
		strings.ToLower(p.maker.Hex()),
		strings.ToLower(p.taker.Hex()),
		tokenSetID,
		strings.ToLower(p.currency.Hex()),
		p.price,
		p.quantity,
		p.validFrom.Unix(),
		p.validUntil.Unix(),
		nonceOrSalt(p),
	)
	return strings.ToLower(crypto.Keccak256Hash([]byte(canonical)).Hex())
}

func nonceOrSalt(p *parsedOrder) string {
	var nonce, salt string
	if p.nonce != nil {
		nonce = p.nonce.String()
	}
	if p.salt != nil {
		salt = p.salt.String()
	}
	return nonce + "|" + salt
}
