// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package auth implements the single-user login flow.

A Shelfmark instance has one owner and, optionally, one password. When
AUTH_PASSWORD_HASH is unset the instance is open and every endpoint is
public. When set, POST /auth/login exchanges the password for a signed
session token that the mutating endpoints require. There are no user
records, registrations, or refresh tokens.
*/
package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/LaMia-3/shelfmark/internal/platform/apperr"
	"github.com/LaMia-3/shelfmark/internal/platform/constants"
	"github.com/LaMia-3/shelfmark/internal/platform/sec"
)

// TokenProvider defines the contract for minting session tokens.
type TokenProvider interface {
	// GenerateSessionToken creates a signed token for the owner.
	//
	// # Parameters
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an error if signing fails.
	GenerateSessionToken(timeToLive time.Duration) (string, error)
}

// Service verifies the owner password and issues session tokens.
type Service struct {
	passwordHash string
	tokens       TokenProvider
	logger       *slog.Logger
}

// NewService constructs the auth [Service]. An empty passwordHash marks
// an open instance.
func NewService(passwordHash string, tokens TokenProvider, logger *slog.Logger) *Service {
	return &Service{
		passwordHash: passwordHash,
		tokens:       tokens,
		logger:       logger,
	}
}

// Enabled reports whether a password is configured.
func (service *Service) Enabled() bool {
	return service.passwordHash != ""
}

// Session represents a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

/*
Login verifies the owner password and issues a session token.

# Parameters
  - password: The plain-text password from the login form.

# Returns
  - A pointer to [Session] containing the signed token.
  - Returns [apperr.Unauthorized] when the password does not match, or
    when no password is configured at all (an open instance has nothing
    to log in to).
*/
func (service *Service) Login(password string) (*Session, error) {
	if !service.Enabled() {
		return nil, apperr.Unauthorized("Login is disabled on an open instance")
	}

	// Bcrypt's comparison is constant-time; the generic message keeps the
	// response identical for every wrong password.
	if !sec.CheckPasswordHash(password, service.passwordHash) {
		service.logger.Warn("login_failed")
		return nil, apperr.Unauthorized("Invalid password")
	}

	token, err := service.tokens.GenerateSessionToken(constants.SessionTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_token_generation_failed: %w", err)
	}

	service.logger.Info("login_succeeded")
	return &Session{
		Token:     token,
		ExpiresAt: time.Now().Add(constants.SessionTokenTTL),
	}, nil
}
