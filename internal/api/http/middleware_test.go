package http

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func newTestApp(t *testing.T) (*fiber.App, *observability.Metrics) {
	t.Helper()
	app := fiber.New()
	metrics := observability.NewMetrics()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	return app, metrics
}

func decodeErrorEnvelope(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var payload struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&payload))
	require.NotNil(t, payload.Error)
	return payload.Error
}

func TestErrorMiddlewareRendersDomainError(t *testing.T) {
	app, _ := newTestApp(t)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("ticket", map[string]any{"id": "t1"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	envelope := decodeErrorEnvelope(t, resp.Body)
	assert.Equal(t, "NOT_FOUND", envelope["code"])
	assert.Equal(t, "ticket not found", envelope["message"])
	details, ok := envelope["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "t1", details["id"])
}

func TestErrorMiddlewareHidesInternalDetails(t *testing.T) {
	app, _ := newTestApp(t)
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("kaboom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	envelope := decodeErrorEnvelope(t, resp.Body)
	assert.Equal(t, "INTERNAL_ERROR", envelope["code"])
	assert.NotContains(t, envelope["message"], "kaboom")
}

func TestRequestLoggerCountsRequests(t *testing.T) {
	app, metrics := newTestApp(t)
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, int64(3), metrics.RequestCount("/ping", "GET", fiber.StatusOK))
}
