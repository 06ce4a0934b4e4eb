package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rosterhub/backend/pkg/logger"
)

func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := logger.GenerateRequestID()
		c.Locals("requestID", requestID)

		err := c.Next()

		latency := time.Since(start)
		statusCode := c.Response().StatusCode()
		userID := logger.GetUserIDFromContext(c)

		details := map[string]interface{}{
			"method":       c.Method(),
			"path":         c.Path(),
			"status_code":  statusCode,
			"latency_ms":   latency.Milliseconds(),
			"ip":           c.IP(),
			"request_body": logger.GetRequestBodySummary(c),
			"request_id":   requestID,
		}

		if userID != nil {
			if statusCode >= 400 {
				logger.ErrorWithUser(*userID, "http_request", err, details)
			} else {
				logger.InfoWithUser(*userID, "http_request", details)
			}
		} else {
			if statusCode >= 400 {
				logger.Error("http_request", err, details)
			} else {
				logger.Info("http_request", details)
			}
		}

		return err
	}
}

// SecurityLogger records every denial and not-found outcome. Because denied
// and absent resources render identically to the caller, this log is the
// only place the two cases stay distinguishable for operators.
func SecurityLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		statusCode := c.Response().StatusCode()
		userID := logger.GetUserIDFromContext(c)

		if statusCode == fiber.StatusForbidden || statusCode == fiber.StatusNotFound {
			reason := "access_denied"
			if statusCode == fiber.StatusNotFound {
				reason = "not_found"
			}

			details := map[string]interface{}{
				"method": c.Method(),
				"path":   c.Path(),
				"ip":     c.IP(),
				"reason": reason,
			}

			if userID != nil {
				logger.WarnWithUser(*userID, reason, details)
			} else {
				logger.Warn(reason+"_unauthenticated", details)
			}
		}

		return err
	}
}
