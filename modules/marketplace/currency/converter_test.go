package currency

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cachedConverter(currency ethcommon.Address, at time.Time, quote oracleResponse) *Converter {
	return &Converter{
		rates: map[cacheKey]oracleResponse{
			{currency: currency, bucket: at.Truncate(rateBucket).Unix()}: quote,
		},
	}
}

func strptr(s string) *string { return &s }

func uint8ptr(v uint8) *uint8 { return &v }

func TestToNative(t *testing.T) {
	usdc := ethcommon.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	at := time.Unix(1_700_000_000, 0)

	t.Run("native currency passes through", func(t *testing.T) {
		c := &Converter{rates: map[cacheKey]oracleResponse{}}
		prices, err := c.ToNative(context.Background(), ethcommon.Address{}, big.NewInt(123), at)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(123), prices.NativePrice)
		assert.False(t, prices.USDPrice.Valid)
	})

	t.Run("usd price scales by currency decimals", func(t *testing.T) {
		c := cachedConverter(usdc, at, oracleResponse{
			NativePrice: strptr("400000000"),
			USDPrice:    strptr("1"),
			Decimals:    uint8ptr(6),
		})

		// 5 USDC in base units.
		prices, err := c.ToNative(context.Background(), usdc, big.NewInt(5_000_000), at)
		require.NoError(t, err)
		require.True(t, prices.USDPrice.Valid)
		assert.Equal(t, "5", prices.USDPrice.Decimal.String())
		assert.Equal(t, "2000000000000000", prices.NativePrice.String())
	})

	t.Run("missing native rate is terminal", func(t *testing.T) {
		c := cachedConverter(usdc, at, oracleResponse{USDPrice: strptr("1")})
		_, err := c.ToNative(context.Background(), usdc, big.NewInt(1), at)
		assert.True(t, errors.Is(err, ErrPriceUnavailable))
	})
}
