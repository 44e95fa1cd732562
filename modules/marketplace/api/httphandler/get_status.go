package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gofiber/fiber/v2"
)

type getStatusResult struct {
	Network     string `json:"network"`
	BlockHeight int64  `json:"blockHeight"`
	BlockHash   string `json:"blockHash"`
}

type getStatusResponse = HttpResponse[getStatusResult]

func (h *HttpHandler) GetStatus(ctx *fiber.Ctx) (err error) {
	result := getStatusResult{
		Network:     h.network.String(),
		BlockHeight: -1,
	}
	blockHeader, err := h.dg.GetLatestBlock(ctx.UserContext())
	if err != nil && !errors.Is(err, errs.NotFound) {
		return errors.Wrap(err, "error during GetLatestBlock")
	}
	if err == nil {
		result.BlockHeight = blockHeader.Height
		result.BlockHash = blockHeader.Hash.String()
	}

	resp := getStatusResponse{
		Result: &result,
	}

	return errors.WithStack(ctx.JSON(resp))
}
