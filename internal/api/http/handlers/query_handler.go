package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"go.uber.org/zap"
)

const queryNotConfigured = "Query endpoint is not configured"

// QueryHandler forwards query requests to the query engine. The caller's
// Authorization header travels with the request so the engine derives the
// same role and current_user_id settings from the token.
type QueryHandler struct {
	upstream string
	logger   *zap.Logger
}

// NewQueryHandler constructs handler. An empty upstream answers every query
// with a protocol-level error.
func NewQueryHandler(upstream string, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{upstream: upstream, logger: logger}
}

// Forward handles POST /graphql.
func (h *QueryHandler) Forward(c *fiber.Ctx) error {
	if h.upstream == "" {
		return c.JSON(fiber.Map{
			"data":   nil,
			"errors": []fiber.Map{{"message": queryNotConfigured}},
		})
	}

	c.Request().Header.Del(fiber.HeaderConnection)
	if err := proxy.Do(c, h.upstream); err != nil {
		h.logger.Error("query upstream failed", zap.String("upstream", h.upstream), zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "Query engine unavailable")
	}
	c.Response().Header.Del(fiber.HeaderServer)
	return nil
}
