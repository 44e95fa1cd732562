package currency

import (
	"context"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/common"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/pkg/decimals"
	"github.com/gaze-network/nft-indexer/pkg/httpclient"
	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable is returned when the oracle cannot produce a native
// reference price. Price-bearing records must be dropped in that case, never
// stored unpriced.
var ErrPriceUnavailable = errors.New("native price unavailable")

// Prices is one oracle quotation for a currency amount at a timestamp.
type Prices struct {
	NativePrice *big.Int
	USDPrice    decimal.NullDecimal
}

type oracleResponse struct {
	NativePrice *string `json:"nativePrice"`
	USDPrice    *string `json:"usdPrice"`
	Decimals    *uint8  `json:"decimals"`
}

type cacheKey struct {
	currency ethcommon.Address
	bucket   int64
}

// Converter normalizes currency-denominated amounts to the native reference
// unit through the price oracle. Quotes are cached per five-minute bucket
// since oracle granularity is coarser than block granularity.
type Converter struct {
	client *httpclient.Client

	mu    sync.RWMutex
	rates map[cacheKey]oracleResponse
}

const rateBucket = 5 * time.Minute

func NewConverter(oracleURL string) (*Converter, error) {
	client, err := httpclient.New(oracleURL)
	if err != nil {
		return nil, errors.Wrap(err, "create price oracle client")
	}
	return &Converter{
		client: client,
		rates:  make(map[cacheKey]oracleResponse),
	}, nil
}

// ToNative converts the amount to native units at the given timestamp. The
// native sentinel and the zero address both denote the native currency and
// pass through unconverted.
func (c *Converter) ToNative(ctx context.Context, currency ethcommon.Address, amount *big.Int, at time.Time) (Prices, error) {
	if amount == nil {
		return Prices{}, errors.Wrap(errs.InvalidArgument, "amount is required")
	}
	if currency == common.NativeCurrencySentinel {
		currency = common.ZeroAddress
	}
	if currency == common.ZeroAddress {
		return Prices{NativePrice: new(big.Int).Set(amount)}, nil
	}

	quote, err := c.quote(ctx, currency, at)
	if err != nil {
		return Prices{}, err
	}
	if quote.NativePrice == nil {
		return Prices{}, errors.Wrapf(ErrPriceUnavailable, "currency %s", strings.ToLower(currency.Hex()))
	}
	rate, err := decimal.NewFromString(*quote.NativePrice)
	if err != nil {
		return Prices{}, errors.Wrapf(err, "malformed native rate %q", *quote.NativePrice)
	}

	native := decimal.NewFromBigInt(amount, 0).Mul(rate).Floor().BigInt()
	prices := Prices{NativePrice: native}
	if quote.USDPrice != nil {
		usdRate, err := decimal.NewFromString(*quote.USDPrice)
		if err == nil {
			// USD rates are quoted per whole token, so the base-unit
			// amount scales down by the currency's decimals first.
			dec := uint8(18)
			if quote.Decimals != nil {
				dec = *quote.Decimals
			}
			prices.USDPrice = decimal.NewNullDecimal(decimals.ToDecimal(amount, dec).Mul(usdRate))
		}
	}
	return prices, nil
}

func (c *Converter) quote(ctx context.Context, currency ethcommon.Address, at time.Time) (oracleResponse, error) {
	key := cacheKey{currency: currency, bucket: at.Truncate(rateBucket).Unix()}
	c.mu.RLock()
	cached, ok := c.rates[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	query := url.Values{}
	query.Set("currency", strings.ToLower(currency.Hex()))
	query.Set("timestamp", strconv.FormatInt(at.Unix(), 10))
	resp, err := c.client.Get(ctx, "/v1/prices", httpclient.RequestOptions{Query: query})
	if err != nil {
		return oracleResponse{}, errors.Wrap(err, "query price oracle")
	}
	if resp.StatusCode() != 200 {
		return oracleResponse{}, errors.Newf("price oracle returned status %d", resp.StatusCode())
	}
	var out oracleResponse
	if err := resp.UnmarshalBody(&out); err != nil {
		return oracleResponse{}, errors.Wrap(err, "decode price oracle response")
	}

	c.mu.Lock()
	c.rates[key] = out
	c.mu.Unlock()
	return out, nil
}
