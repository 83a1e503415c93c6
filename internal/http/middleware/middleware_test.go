package middleware

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"blogapi/internal/apperr"
	"blogapi/internal/logger"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString(GetRequestID(c))
	})

	t.Run("should generate new request id if not present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		ridHeader := resp.Header.Get(RequestIDHeader)
		assert.NotEmpty(t, ridHeader)

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, ridHeader, buf.String())
	})

	t.Run("should preserve existing request id", func(t *testing.T) {
		existingID := "test-id-123"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, existingID)

		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, existingID, resp.Header.Get(RequestIDHeader))

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, existingID, buf.String())
	})

	t.Run("should replace an oversized request id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("a", 200))

		resp, _ := app.Test(req)

		rid := resp.Header.Get(RequestIDHeader)
		assert.NotEmpty(t, rid)
		assert.Len(t, rid, 36)
	})
}

func TestValidRequestID(t *testing.T) {
	assert.True(t, validRequestID("abc-123"))
	assert.False(t, validRequestID(""))
	assert.False(t, validRequestID("has space"))
	assert.False(t, validRequestID("line\nbreak"))
	assert.False(t, validRequestID(strings.Repeat("x", maxRequestIDLen+1)))
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if apperr.Kind(err) == apperr.ErrNotFound {
				return c.Status(fiber.StatusNotFound).SendString(err.Error())
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})

	app.Use(RequestID())
	app.Use(Logger(zap.New(core)))

	app.Get("/test", func(c *fiber.Ctx) error {
		logger.From(c.UserContext()).Info("inside handler")
		return c.SendStatus(fiber.StatusAccepted)
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperr.New(apperr.ErrNotFound, "Post not found")
	})

	t.Run("logs one line per request", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "rid-1")
		resp, _ := app.Test(req)
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

		inside := logs.FilterMessage("inside handler").All()
		require.Len(t, inside, 1)
		assert.Equal(t, "rid-1", inside[0].ContextMap()["request_id"])

		entries := logs.FilterMessage("http_request").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, "rid-1", fields["request_id"])
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, "/test", fields["path"])
		assert.Equal(t, int64(fiber.StatusAccepted), fields["status"])
		assert.Contains(t, fields, "latency")
	})

	t.Run("handles chain errors before logging", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest("GET", "/missing", nil))
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		entries := logs.FilterMessage("http_request").FilterField(zap.String("path", "/missing")).All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, int64(fiber.StatusNotFound), entries[0].ContextMap()["status"])
	})
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, levelFor(200))
	assert.Equal(t, zapcore.WarnLevel, levelFor(401))
	assert.Equal(t, zapcore.ErrorLevel, levelFor(503))
}
