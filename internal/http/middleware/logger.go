package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"blogapi/internal/logger"
)

// Logger writes one structured line per request and hands a request-scoped
// logger (carrying request_id) to downstream code through the user context.
//
// Errors returned by the chain are passed to the app's ErrorHandler here so
// the logged status is the one the client receives.
func Logger(base *zap.Logger) fiber.Handler {
	if base == nil {
		base = logger.L()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqLog := base.With(logger.RequestID(GetRequestID(c)))
		c.SetUserContext(logger.ToContext(c.UserContext(), reqLog))

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []zap.Field{
			logger.Method(c.Method()),
			logger.Path(c.Path()),
			logger.Status(status),
			zap.Float64("latency", float64(time.Since(start).Microseconds())/1000),
			logger.ClientIP(c.IP()),
		}
		// The auth gate may have replaced the context logger with one that
		// also carries the user id.
		reqLog = logger.From(c.UserContext())

		if ce := reqLog.Check(levelFor(status), "http_request"); ce != nil {
			ce.Write(fields...)
		}
		return nil
	}
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= fiber.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= fiber.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
