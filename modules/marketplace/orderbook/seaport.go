package orderbook

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
	"github.com/samber/lo"
)

// Seaport order types 1 (partial open) and 3 (partial restricted) allow
// partial fills.
const (
	seaportOrderTypePartialOpen       = 1
	seaportOrderTypePartialRestricted = 3
)

type seaportPayloadFee struct {
	Recipient ethcommon.Address `json:"recipient"`
	Bps       int64             `json:"bps"`
	Kind      string            `json:"kind"`
}

type seaportPayload struct {
	Offerer      ethcommon.Address   `json:"offerer"`
	Zone         ethcommon.Address   `json:"zone"`
	Conduit      ethcommon.Address   `json:"conduit"`
	Cosigner     ethcommon.Address   `json:"cosigner"`
	Taker        ethcommon.Address   `json:"taker"`
	Side         string              `json:"side"`
	TokenSetKind string              `json:"tokenSetKind"`
	Contract     ethcommon.Address   `json:"contract"`
	TokenID      string              `json:"tokenId"`
	RangeStart   string              `json:"rangeStart"`
	RangeEnd     string              `json:"rangeEnd"`
	TokenIDs     []string            `json:"tokenIds"`
	AttributeKey string              `json:"attributeKey"`
	AttributeVal string              `json:"attributeValue"`
	PaymentToken ethcommon.Address   `json:"paymentToken"`
	Price        string              `json:"price"`
	Fees         []seaportPayloadFee `json:"fees"`
	Counter      string              `json:"counter"`
	Salt         string              `json:"salt"`
	StartTime    int64               `json:"startTime"`
	EndTime      int64               `json:"endTime"`
	Amount       string              `json:"amount"`
	OrderType    int                 `json:"orderType"`
	Signature    string              `json:"signature"`
}

func parseSeaportOrder(raw RawOrder) (*parsedOrder, error) {
	var payload seaportPayload
	if err := json.Unmarshal(raw.Data, &payload); err != nil {
		return nil, errors.Wrap(err, "decode seaport payload")
	}

	side, err := parseOrderSide(payload.Side)
	if err != nil {
		return nil, err
	}
	price, err := parseBig(payload.Price)
	if err != nil {
		return nil, err
	}
	counter, err := parseBig(payload.Counter)
	if err != nil {
		return nil, err
	}
	salt, err := parseBig(payload.Salt)
	if err != nil {
		return nil, err
	}
	amount, err := parseBig(payload.Amount)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		amount = big.NewInt(1)
	}
	signature, err := parseSignature(payload.Signature)
	if err != nil {
		return nil, err
	}
	spec, err := parseTokenSetSpec(payload)
	if err != nil {
		return nil, err
	}

	fees := lo.Map(payload.Fees, func(fee seaportPayloadFee, _ int) entity.FeeBreakdown {
		kind := entity.FeeKindMarketplace
		if fee.Kind == string(entity.FeeKindRoyalty) {
			kind = entity.FeeKindRoyalty
		}
		return entity.FeeBreakdown{Kind: kind, Recipient: fee.Recipient, Bps: fee.Bps}
	})

	partial := payload.OrderType == seaportOrderTypePartialOpen || payload.OrderType == seaportOrderTypePartialRestricted
	var validUntil time.Time
	if payload.EndTime > 0 {
		validUntil = time.Unix(payload.EndTime, 0)
	}

	return &parsedOrder{
		kind:            "seaport",
		side:            side,
		maker:           payload.Offerer,
		taker:           payload.Taker,
		conduit:         payload.Conduit,
		zone:            payload.Zone,
		cosigner:        payload.Cosigner,
		currency:        payload.PaymentToken,
		price:           price,
		fees:            fees,
		nonce:           counter,
		salt:            salt,
		validFrom:       time.Unix(payload.StartTime, 0),
		validUntil:      validUntil,
		quantity:        amount,
		partialFillable: partial,
		tokenSet:        spec,
		signature:       signature,
		rawData:         raw.Data,
	}, nil
}

func parseOrderSide(side string) (entity.OrderSide, error) {
	switch side {
	case "sell":
		return entity.OrderSideSell, nil
	case "buy":
		return entity.OrderSideBuy, nil
	default:
		return "", errors.Newf("unknown order side %q", side)
	}
}

func parseTokenSetSpec(payload seaportPayload) (tokenset.Spec, error) {
	spec := tokenset.Spec{Contract: payload.Contract}
	switch tokenset.Kind(payload.TokenSetKind) {
	case tokenset.KindSingleToken, "":
		tokenID, err := parseBig(payload.TokenID)
		if err != nil {
			return tokenset.Spec{}, err
		}
		spec.Kind = tokenset.KindSingleToken
		spec.TokenID = tokenID
	case tokenset.KindContract:
		spec.Kind = tokenset.KindContract
	case tokenset.KindTokenRange:
		start, err := parseBig(payload.RangeStart)
		if err != nil {
			return tokenset.Spec{}, err
		}
		end, err := parseBig(payload.RangeEnd)
		if err != nil {
			return tokenset.Spec{}, err
		}
		spec.Kind = tokenset.KindTokenRange
		spec.RangeStart = start
		spec.RangeEnd = end
	case tokenset.KindTokenList:
		ids := make([]*big.Int, 0, len(payload.TokenIDs))
		for _, s := range payload.TokenIDs {
			id, err := parseBig(s)
			if err != nil {
				return tokenset.Spec{}, err
			}
			ids = append(ids, id)
		}
		spec.Kind = tokenset.KindTokenList
		spec.TokenIDs = ids
	case tokenset.KindAttribute:
		spec.Kind = tokenset.KindAttribute
		spec.AttributeKey = payload.AttributeKey
		spec.AttributeValue = payload.AttributeVal
	default:
		return tokenset.Spec{}, errors.Newf("unknown token set kind %q", payload.TokenSetKind)
	}
	return spec, nil
}
