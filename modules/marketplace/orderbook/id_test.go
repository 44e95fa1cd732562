package orderbook

import (
	"math/big"
	"strings"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/stretchr/testify/assert"
)

func sampleParsedOrder() *parsedOrder {
	return &parsedOrder{
		kind:       "seaport",
		side:       entity.OrderSideSell,
		maker:      ethcommon.HexToAddress("0xaaaaAAAaaAAAAaaaAaaAaAaaAAAAaaaaaaaAAaAa"),
		taker:      ethcommon.Address{},
		currency:   ethcommon.Address{},
		price:      big.NewInt(1_000_000_000_000_000_000),
		quantity:   big.NewInt(1),
		validFrom:  time.Unix(1_700_000_000, 0),
		validUntil: time.Unix(1_700_086_400, 0),
		nonce:      big.NewInt(12),
		salt:       big.NewInt(99),
	}
}

func TestDeriveOrderID(t *testing.T) {
	const tokenSetID = "token:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d:1234"

	t.Run("deterministic", func(t *testing.T) {
		a := deriveOrderID(sampleParsedOrder(), tokenSetID)
		b := deriveOrderID(sampleParsedOrder(), tokenSetID)
		assert.Equal(t, a, b)
	})

	t.Run("shape", func(t *testing.T) {
		id := deriveOrderID(sampleParsedOrder(), tokenSetID)
		assert.True(t, strings.HasPrefix(id, "0x"))
		assert.Len(t, id, 66)
		assert.Equal(t, strings.ToLower(id), id)
	})

	t.Run("sensitive to every canonical parameter", func(t *testing.T) {
		base := deriveOrderID(sampleParsedOrder(), tokenSetID)

		mutations := map[string]func(*parsedOrder){
			"kind":       func(p *parsedOrder) { p.kind = "zeroex-v4" },
			"side":       func(p *parsedOrder) { p.side = entity.OrderSideBuy },
			"maker":      func(p *parsedOrder) { p.maker = ethcommon.HexToAddress("0xbbbb") },
			"price":      func(p *parsedOrder) { p.price = big.NewInt(2) },
			"quantity":   func(p *parsedOrder) { p.quantity = big.NewInt(5) },
			"validFrom":  func(p *parsedOrder) { p.validFrom = p.validFrom.Add(time.Second) },
			"validUntil": func(p *parsedOrder) { p.validUntil = p.validUntil.Add(time.Second) },
			"nonce":      func(p *parsedOrder) { p.nonce = big.NewInt(13) },
			"salt":       func(p *parsedOrder) { p.salt = big.NewInt(100) },
		}
		for name, mutate := range mutations {
			p := sampleParsedOrder()
			mutate(p)
			assert.NotEqual(t, base, deriveOrderID(p, tokenSetID), "mutating %s must change the id", name)
		}

		assert.NotEqual(t, base, deriveOrderID(sampleParsedOrder(), "contract:0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d"))
	})

	t.Run("nil nonce and salt are distinguishable", func(t *testing.T) {
		p := sampleParsedOrder()
		p.nonce = nil
		p.salt = nil
		a := deriveOrderID(p, tokenSetID)

		q := sampleParsedOrder()
		q.nonce = nil
		q.salt = big.NewInt(0)
		b := deriveOrderID(q, tokenSetID)
		assert.NotEqual(t, a, b)
	})

	t.Run("signature does not participate", func(t *testing.T) {
		p := sampleParsedOrder()
		p.signature = []byte{0x01, 0x02}
		q := sampleParsedOrder()
		q.signature = []byte{0x03, 0x04}
		// Two submissions of the same order with re-signed payloads must
		// collapse to one stored row.
		assert.Equal(t, deriveOrderID(p, tokenSetID), deriveOrderID(q, tokenSetID))
	})
}
