package orderbook

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
)

// LooksRare routes a fixed protocol fee to its fee recipient; royalties are
// whatever the maker left on the table below minPercentageToAsk.
const looksRareProtocolFeeBps = 200

var looksRareProtocolFeeRecipient = ethcommon.HexToAddress("0x5924A28caAF1cc016617874a2f0C3710d881f3c1")

type looksRarePayload struct {
	IsOrderAsk         bool              `json:"isOrderAsk"`
	Signer             ethcommon.Address `json:"signer"`
	Collection         ethcommon.Address `json:"collection"`
	Price              string            `json:"price"`
	TokenID            string            `json:"tokenId"`
	Amount             string            `json:"amount"`
	Strategy           ethcommon.Address `json:"strategy"`
	Currency           ethcommon.Address `json:"currency"`
	Nonce              string            `json:"nonce"`
	StartTime          int64             `json:"startTime"`
	EndTime            int64             `json:"endTime"`
	MinPercentageToAsk int64             `json:"minPercentageToAsk"`
	V                  uint8             `json:"v"`
	R                  string            `json:"r"`
	S                  string            `json:"s"`
}

func parseLooksRareOrder(raw RawOrder) (*parsedOrder, error) {
	var payload looksRarePayload
	if err := json.Unmarshal(raw.Data, &payload); err != nil {
		return nil, errors.Wrap(err, "decode looks-rare payload")
	}

	price, err := parseBig(payload.Price)
	if err != nil {
		return nil, err
	}
	tokenID, err := parseBig(payload.TokenID)
	if err != nil {
		return nil, err
	}
	amount, err := parseBig(payload.Amount)
	if err != nil {
		return nil, err
	}
	nonce, err := parseBig(payload.Nonce)
	if err != nil {
		return nil, err
	}
	signature, err := assembleRSV(payload.R, payload.S, payload.V)
	if err != nil {
		return nil, err
	}

	fees := []entity.FeeBreakdown{{
		Kind:      entity.FeeKindMarketplace,
		Recipient: looksRareProtocolFeeRecipient,
		Bps:       looksRareProtocolFeeBps,
	}}
	// minPercentageToAsk bounds what the maker accepts net; the slack above
	// the protocol fee is the built-in royalty allowance.
	if royaltyBps := 10000 - payload.MinPercentageToAsk - looksRareProtocolFeeBps; royaltyBps > 0 && payload.MinPercentageToAsk > 0 {
		fees = append(fees, entity.FeeBreakdown{
			Kind: entity.FeeKindRoyalty,
			Bps:  royaltyBps,
		})
	}

	side := entity.OrderSideBuy
	if payload.IsOrderAsk {
		side = entity.OrderSideSell
	}
	var validUntil time.Time
	if payload.EndTime > 0 {
		validUntil = time.Unix(payload.EndTime, 0)
	}

	return &parsedOrder{
		kind:  "looks-rare",
		side:  side,
		maker: payload.Signer,
		// The strategy contract plays the conduit role: it must be one we
		// understand or fills will not execute as modeled.
		conduit:    payload.Strategy,
		currency:   payload.Currency,
		price:      price,
		fees:       fees,
		nonce:      nonce,
		salt:       nonce,
		validFrom:  time.Unix(payload.StartTime, 0),
		validUntil: validUntil,
		quantity:   amount,
		tokenSet: tokenset.Spec{
			Kind:     tokenset.KindSingleToken,
			Contract: payload.Collection,
			TokenID:  tokenID,
		},
		signature: signature,
		rawData:   raw.Data,
	}, nil
}

func assembleRSV(r, s string, v uint8) ([]byte, error) {
	rBytes, err := hexutil.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "malformed signature r")
	}
	sBytes, err := hexutil.Decode(s)
	if err != nil {
		return nil, errors.Wrap(err, "malformed signature s")
	}
	if len(rBytes) != 32 || len(sBytes) != 32 {
		return nil, errors.New("signature components must be 32 bytes")
	}
	sig := make([]byte, 65)
	copy(sig[:32], rBytes)
	copy(sig[32:64], sBytes)
	sig[64] = v
	return sig, nil
}
