package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/config"
	"github.com/noah-isme/edutrack-api/internal/handler"
	"github.com/noah-isme/edutrack-api/internal/router"
)

func TestHealthReportsDependencies(t *testing.T) {
	cases := []struct {
		name   string
		redis  error
		status int
		state  string
	}{
		{name: "healthy", status: http.StatusOK, state: "up"},
		{name: "degraded", redis: errors.New("connection refused"), status: http.StatusServiceUnavailable, state: "down"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			router.Register(app, config.Config{AppName: "EduTrack Test", AppEnv: "test"}, router.Dependencies{
				DisableMetrics: true,
				HealthProbes: map[string]handler.HealthProbe{
					"database": func(context.Context) error { return nil },
					"redis":    func(context.Context) error { return tc.redis },
				},
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, "EduTrack Test", resp.Header.Get("X-Application"))

			var envelope apiEnvelope
			require.NoError(t, jsonDecode(resp, &envelope))
			var payload handler.HealthResponse
			decodeData(t, envelope, &payload)
			require.Equal(t, "up", payload.Dependencies["database"])
			require.Equal(t, tc.state, payload.Dependencies["redis"])
		})
	}
}

func TestMetricsEndpointIsMounted(t *testing.T) {
	app := fiber.New()
	router.Register(app, config.Config{AppName: "EduTrack Test"}, router.Dependencies{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
