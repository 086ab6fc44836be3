package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edutrack-api/internal/dto"
	"github.com/noah-isme/edutrack-api/internal/models"
)

func TestLoginIssuesVerifiableToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", env.teacher.ID).Update("password_hash", hash).Error)

	auth := NewAuthService(env.store.Users, TokenConfig{Secret: "test-secret", Issuer: "edutrack", TTL: time.Hour}, NewValidator(), zerolog.Nop())

	resp, err := auth.Login(ctx, dto.LoginRequest{Email: env.teacher.Email, Password: "s3cret-pass"})
	require.NoError(t, err)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, env.teacher.ID, resp.User.ID)

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)
	require.True(t, token.Valid)
	require.Equal(t, env.teacher.ID.String(), claims.Subject)
	require.Equal(t, string(models.RoleTeacher), claims.Role)
	require.Equal(t, env.tenant.ID.String(), claims.InstitutionID)
	require.Equal(t, "edutrack", claims.Issuer)

	_, err = auth.Login(ctx, dto.LoginRequest{Email: env.teacher.Email, Password: "wrong-pass"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, dto.LoginRequest{Email: "nobody@harbour.test", Password: "s3cret-pass"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", env.teacher.ID).Update("status", models.UserStatusSuspended).Error)
	_, err = auth.Login(ctx, dto.LoginRequest{Email: env.teacher.Email, Password: "s3cret-pass"})
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestLoginValidatesInput(t *testing.T) {
	env := newTestEnv(t, nil)
	auth := NewAuthService(env.store.Users, TokenConfig{Secret: "test-secret"}, NewValidator(), zerolog.Nop())

	_, err := auth.Login(context.Background(), dto.LoginRequest{Email: "not-an-email", Password: "x"})
	fields := ValidationFields(err)
	require.Contains(t, fields, "email")
	require.Contains(t, fields, "password")
}
