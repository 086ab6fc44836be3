package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/service"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrAttemptStartConflict, http.StatusConflict},
		{fmt.Errorf("start: %w", service.ErrAttemptStartConflict), http.StatusConflict},
		{service.ErrAttemptAlreadySubmitted, http.StatusConflict},
		{service.ErrLastQuestion, http.StatusConflict},
		{service.ErrQuestionNotFound, http.StatusNotFound},
		{service.ErrNotAStudent, http.StatusForbidden},
		{service.ErrPointsExceedMaximum, http.StatusUnprocessableEntity},
		{errUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error {
			return writeError(c, zerolog.Nop(), tc.err)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
		require.NoError(t, err)
		require.Equal(t, tc.want, resp.StatusCode, tc.err.Error())
		resp.Body.Close()
	}
}
