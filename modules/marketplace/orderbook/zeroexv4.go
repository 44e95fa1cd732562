package orderbook

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
)

type zeroExPayloadFee struct {
	Recipient ethcommon.Address `json:"recipient"`
	Amount    string            `json:"amount"`
}

type zeroExPayload struct {
	Direction        int                `json:"direction"`
	Maker            ethcommon.Address  `json:"maker"`
	Taker            ethcommon.Address  `json:"taker"`
	Expiry           int64              `json:"expiry"`
	Nonce            string             `json:"nonce"`
	Erc20Token       ethcommon.Address  `json:"erc20Token"`
	Erc20TokenAmount string             `json:"erc20TokenAmount"`
	Fees             []zeroExPayloadFee `json:"fees"`
	NFT              ethcommon.Address  `json:"nft"`
	NFTID            string             `json:"nftId"`
	NFTAmount        string             `json:"nftAmount"`
	Signature        string             `json:"signature"`
}

// 0x v4 fees are absolute amounts on top of the base price. The canonical
// model wants bps of the full price, so price = base + fees and each fee's
// bps is its floor share of that.
func parseZeroExV4Order(raw RawOrder) (*parsedOrder, error) {
	var payload zeroExPayload
	if err := json.Unmarshal(raw.Data, &payload); err != nil {
		return nil, errors.Wrap(err, "decode zeroex-v4 payload")
	}

	base, err := parseBig(payload.Erc20TokenAmount)
	if err != nil {
		return nil, err
	}
	nonce, err := parseBig(payload.Nonce)
	if err != nil {
		return nil, err
	}
	tokenID, err := parseBig(payload.NFTID)
	if err != nil {
		return nil, err
	}
	amount, err := parseBig(payload.NFTAmount)
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

	price := new(big.Int).Set(base)
	feeAmounts := make([]*big.Int, 0, len(payload.Fees))
	for _, fee := range payload.Fees {
		feeAmount, err := parseBig(fee.Amount)
		if err != nil {
			return nil, err
		}
		feeAmounts = append(feeAmounts, feeAmount)
		price.Add(price, feeAmount)
	}

	fees := make([]entity.FeeBreakdown, 0, len(payload.Fees))
	if price.Sign() > 0 {
		for i, fee := range payload.Fees {
			bps := new(big.Int).Mul(feeAmounts[i], bpsDenominator)
			bps.Div(bps, price)
			fees = append(fees, entity.FeeBreakdown{
				Kind:      entity.FeeKindMarketplace,
				Recipient: fee.Recipient,
				Bps:       bps.Int64(),
			})
		}
	}

	side := entity.OrderSideSell
	if payload.Direction == 1 {
		side = entity.OrderSideBuy
	}
	var validUntil time.Time
	if payload.Expiry > 0 {
		validUntil = time.Unix(payload.Expiry, 0)
	}

	return &parsedOrder{
		kind:     "zeroex-v4",
		side:     side,
		maker:    payload.Maker,
		taker:    payload.Taker,
		currency: payload.Erc20Token,
		price:    price,
		fees:     fees,
		nonce:    nonce,
		// 0x orders have no distinct salt; the nonce fills both roles.
		salt:            nonce,
		validUntil:      validUntil,
		quantity:        amount,
		partialFillable: side == entity.OrderSideSell && amount.Cmp(big.NewInt(1)) > 0,
		tokenSet: tokenset.Spec{
			Kind:     tokenset.KindSingleToken,
			Contract: payload.NFT,
			TokenID:  tokenID,
		},
		signature: signature,
		rawData:   raw.Data,
	}, nil
}
