package httphandler

import "github.com/gofiber/fiber/v2"

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/v2/marketplace")

	r.Get("/block", h.GetCurrentBlock)
	r.Get("/status", h.GetStatus)
	r.Get("/top-bid", h.GetTopBid)
	r.Post("/orders", h.SubmitOrders)
	return nil
}
