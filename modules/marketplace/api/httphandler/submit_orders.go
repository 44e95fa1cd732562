package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/modules/marketplace/orderbook"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type submitOrdersRequest struct {
	Kind   string               `json:"kind"`
	Orders []orderbook.RawOrder `json:"orders"`
}

type submitOrderResult struct {
	ID         string `json:"id,omitempty"`
	Status     string `json:"status"`
	Unfillable bool   `json:"unfillable,omitempty"`
}

type submitOrdersResult struct {
	Results []submitOrderResult `json:"results"`
}

type submitOrdersResponse = HttpResponse[submitOrdersResult]

func (h *HttpHandler) SubmitOrders(ctx *fiber.Ctx) (err error) {
	var req submitOrdersRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.NewPublicError("invalid request body")
	}
	if req.Kind == "" || len(req.Orders) == 0 {
		return errs.NewPublicError("kind and orders are required")
	}

	results, err := h.book.SaveOrders(ctx.UserContext(), req.Kind, req.Orders)
	if err != nil {
		if errors.Is(err, errs.Unsupported) {
			return errs.NewPublicError("unsupported order kind")
		}
		return errors.Wrap(err, "error during SaveOrders")
	}

	resp := submitOrdersResponse{
		Result: &submitOrdersResult{
			Results: lo.Map(results, func(result orderbook.SaveResult, _ int) submitOrderResult {
				return submitOrderResult{
					ID:         result.ID,
					Status:     string(result.Status),
					Unfillable: result.Unfillable,
				}
			}),
		},
	}

	return errors.WithStack(ctx.JSON(resp))
}
