package httphandler

import (
	"math/big"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
	"github.com/gofiber/fiber/v2"
)

type getTopBidResult struct {
	TokenSetID string `json:"tokenSetId"`
	OrderID    string `json:"orderId"`
	Maker      string `json:"maker"`
	Value      string `json:"value"`
}

type getTopBidResponse = HttpResponse[getTopBidResult]

// GetTopBid serves the best standing bid covering a token, with the token's
// current holder excluded as maker. token_set_id defaults to the token's
// contract-wide set.
func (h *HttpHandler) GetTopBid(ctx *fiber.Ctx) (err error) {
	contractHex := ctx.Query("contract")
	tokenIDRaw := ctx.Query("token_id")
	if contractHex == "" || tokenIDRaw == "" {
		return errs.NewPublicError("contract and token_id are required")
	}
	if !ethcommon.IsHexAddress(contractHex) {
		return errs.NewPublicError("invalid contract address")
	}
	contract := ethcommon.HexToAddress(contractHex)
	tokenID, ok := new(big.Int).SetString(tokenIDRaw, 10)
	if !ok {
		return errs.NewPublicError("invalid token_id")
	}

	tokenSetID := ctx.Query("token_set_id")
	if tokenSetID == "" {
		tokenSetID = tokenset.ContractWideID(contract)
	}

	topBid, err := h.book.TopBidForToken(ctx.UserContext(), tokenSetID, contract, tokenID)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return errs.NewPublicError("no bid found")
		}
		return errors.Wrap(err, "error during TopBidForToken")
	}

	resp := getTopBidResponse{
		Result: &getTopBidResult{
			TokenSetID: topBid.TokenSetID,
			OrderID:    topBid.OrderID,
			Maker:      topBid.Maker.Hex(),
			Value:      topBid.Value.String(),
		},
	}

	return errors.WithStack(ctx.JSON(resp))
}
