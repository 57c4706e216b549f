package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader names the header carrying the request identifier.
const RequestIDHeader = "X-Request-ID"

// RequestID ensures each request carries a stable identifier for tracing.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
			c.Set(RequestIDHeader, reqID)
		}
		c.Locals(RequestIDHeader, reqID)
		return c.Next()
	}
}
