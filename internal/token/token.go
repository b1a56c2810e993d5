// Package token implements the token service (spec section 4.6): mint,
// verify, and single-use-bind short-lived job tokens. JWT handling is
// grounded in spencerandtheteagues-apex-build-platform's
// internal/auth/jwt.go (github.com/golang-jwt/jwt/v5); claims and
// single-use semantics are grounded in original_source's
// backend/services/websocket/middleware/jwt_manager.py.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/codr/codr/internal/redisconn"
	"github.com/codr/codr/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// claims is the JWT claim set minted for one job: {job_id, iat, exp, jti}.
type claims struct {
	JobID string `json:"job_id"`
	Jti   string `json:"jti"`
	jwt.RegisteredClaims
}

// Service mints and verifies job tokens and enforces single-use redemption
// against the bus keyspace (used_token:{jti}).
type Service struct {
	client            *redisconn.Client
	logger            *logrus.Entry
	secret            []byte
	expirationMinutes int
}

// New constructs a Service. client may be nil for components that only
// mint/verify without redemption tracking, but mark_used/is_used will then
// always behave as "not used" (the fail-open path).
func New(client *redisconn.Client, secret string, expirationMinutes int, logger *logrus.Entry) *Service {
	return &Service{
		client:            client,
		logger:            logger,
		secret:            []byte(secret),
		expirationMinutes: expirationMinutes,
	}
}

// Mint creates a new job-scoped token.
func (s *Service) Mint(jobID string) (types.MintedToken, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(s.expirationMinutes) * time.Minute)

	c := claims{
		JobID: jobID,
		Jti:   uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return types.MintedToken{}, fmt.Errorf("token: sign: %w", err)
	}

	return types.MintedToken{JobID: jobID, Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify decodes and validates a token, checking signature, expiration,
// and that its job_id claim matches expectedJobID.
func (s *Service) Verify(token, expectedJobID string) (types.JobTokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return types.JobTokenClaims{}, fmt.Errorf("invalid job token: %w", err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return types.JobTokenClaims{}, fmt.Errorf("invalid job token")
	}
	if c.JobID != expectedJobID {
		return types.JobTokenClaims{}, fmt.Errorf("token job_id mismatch")
	}
	return types.JobTokenClaims{JobID: c.JobID, Jti: c.Jti}, nil
}

func usedKey(jti string) string {
	return fmt.Sprintf("used_token:%s", jti)
}

// MarkUsed records jti as redeemed with a TTL matching the token lifetime.
// A bus error here is logged, not propagated — a failure to record usage
// must not block the execution the client already authenticated for.
func (s *Service) MarkUsed(ctx context.Context, jti string) {
	if s.client == nil {
		return
	}
	ttl := time.Duration(s.expirationMinutes) * time.Minute
	if err := s.client.Raw().SetEX(ctx, usedKey(jti), "1", ttl).Err(); err != nil {
		s.logger.WithError(err).Warn("failed to mark job token as used")
	}
}

// IsUsed reports whether jti has already been redeemed. This is the
// explicit fail-open trade-off documented in spec section 4.6/9(c): if the
// bus is unreachable, the check reports "not used" rather than blocking
// the client, trading a theoretical replay window during an outage for
// availability.
func (s *Service) IsUsed(ctx context.Context, jti string) bool {
	if s.client == nil {
		return false
	}
	n, err := s.client.Raw().Exists(ctx, usedKey(jti)).Result()
	if err != nil {
		s.logger.WithError(err).Warn("failed to check job token usage; failing open")
		return false
	}
	return n > 0
}
