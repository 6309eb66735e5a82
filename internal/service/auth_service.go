package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/spec-kit/support-router/internal/auth"
	"github.com/spec-kit/support-router/internal/config"
	"github.com/spec-kit/support-router/internal/domain"
	apperrors "github.com/spec-kit/support-router/pkg/util"
)

// AuthService authenticates the operator account guarding the admin API.
type AuthService struct {
	username     string
	passwordHash string
	tokenMgr     *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig) *AuthService {
	return &AuthService{
		username:     cfg.OperatorUsername,
		passwordHash: cfg.OperatorPasswordHash,
		tokenMgr:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// LoginOperator verifies credentials and issues an admin token. Login is
// disabled while no password hash is configured.
func (s *AuthService) LoginOperator(_ context.Context, username, password string) (string, domain.Token, error) {
	if s.passwordHash == "" {
		return "", domain.Token{}, apperrors.NewUnauthorized("operator login disabled")
	}
	username = strings.TrimSpace(username)
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passErr := auth.ComparePassword(s.passwordHash, password)
	if !userOK || passErr != nil {
		return "", domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}

	signed, meta, err := s.tokenMgr.GenerateToken(s.username, domain.OperatorRoleAdmin)
	if err != nil {
		return "", domain.Token{}, apperrors.NewInternalError(err)
	}
	return signed, meta, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
