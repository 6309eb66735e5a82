package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/support-router/internal/auth"
	"github.com/spec-kit/support-router/internal/config"
	"github.com/spec-kit/support-router/internal/domain"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

func TestLoginOperator(t *testing.T) {
	hash, err := auth.HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		OperatorUsername:      "operator",
		OperatorPasswordHash:  hash,
	})

	token, meta, err := svc.LoginOperator(context.Background(), " operator ", "s3cret!")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, domain.OperatorRoleAdmin, meta.Role)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.SubjectID)

	_, _, err = svc.LoginOperator(context.Background(), "operator", "wrong")
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToDomainError(err).HTTPStatus)

	_, _, err = svc.LoginOperator(context.Background(), "admin", "s3cret!")
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToDomainError(err).HTTPStatus)
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	svc := NewAuthService(config.AuthConfig{JWTSecret: "x", OperatorUsername: "operator"})
	_, _, err := svc.LoginOperator(context.Background(), "operator", "")
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToDomainError(err).HTTPStatus)
}
