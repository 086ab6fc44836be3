package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/models"
)

func TestAuthHandlerLogin(t *testing.T) {
	env := setupAPI(t)

	status, envelope := env.call(t, nil, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    env.teacher.Email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, status, envelope.Message)

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		User        struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	decodeData(t, envelope, &resp)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, "teacher", resp.User.Role)
}

func TestAuthHandlerRejectsBadCredentials(t *testing.T) {
	env := setupAPI(t)

	status, _ := env.call(t, nil, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    env.teacher.Email,
		"password": "not-the-password",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	status, envelope := env.call(t, nil, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "nope"})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Contains(t, envelope.Errors, "email")

	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", env.student.ID).
		Update("status", models.UserStatusSuspended).Error)
	status, _ = env.call(t, nil, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    env.student.Email,
		"password": testPassword,
	})
	require.Equal(t, http.StatusForbidden, status)
}
