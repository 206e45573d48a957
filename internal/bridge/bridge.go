// Package bridge converts a provider access token into a signed custom
// token that can be redeemed exactly once for a local session. The token is
// minted for the user's stable Discord ID, never for the rotating access
// token itself.
package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/authbridge/discord-bridge/internal/logger"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// CustomTokenAudience is the fixed audience claim of minted custom tokens,
// matching the identity-toolkit custom token format.
const CustomTokenAudience = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"

// CustomTokenTTL is the custom token lifetime. The format caps it at one
// hour.
const CustomTokenTTL = time.Hour

// UserResolver resolves the stable user ID behind a provider access token.
type UserResolver interface {
	ResolveUserID(ctx context.Context, accessToken string) (string, error)
}

// Result is the tagged outcome of a bridge call: either CustomToken is set,
// or Reason is. Never both.
type Result struct {
	CustomToken string
	Reason      string
}

// OK reports whether the bridge call succeeded.
func (r Result) OK() bool {
	return r.Reason == ""
}

// Service mints custom tokens with a service credential.
type Service struct {
	cred     *ServiceCredential
	resolver UserResolver
	now      func() time.Time
}

type ServiceParams struct {
	fx.In

	Credential *ServiceCredential
	Resolver   UserResolver
}

func NewService(params ServiceParams) *Service {
	return &Service{
		cred:     params.Credential,
		resolver: params.Resolver,
		now:      time.Now,
	}
}

// CreateToken resolves the user behind the access token and mints a custom
// token for them. Failures are folded into the Result rather than returned,
// so callers must branch on it explicitly before using the token.
func (s *Service) CreateToken(ctx context.Context, accessToken string) Result {
	if accessToken == "" {
		return Result{Reason: "access token is required"}
	}

	userID, err := s.resolver.ResolveUserID(ctx, accessToken)
	if err != nil {
		logger.Error("Failed to resolve user for access token", zap.Error(err))
		return Result{Reason: fmt.Sprintf("failed to resolve user: %v", err)}
	}

	token, err := s.MintCustomToken(userID)
	if err != nil {
		logger.Error("Failed to mint custom token", zap.String("user_id", userID), zap.Error(err))
		return Result{Reason: fmt.Sprintf("failed to mint custom token: %v", err)}
	}

	return Result{CustomToken: token}
}

// MintCustomToken signs a short-lived custom token for the given user ID.
func (s *Service) MintCustomToken(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"iss": s.cred.ClientEmail,
		"sub": s.cred.ClientEmail,
		"aud": CustomTokenAudience,
		"uid": userID,
		"iat": now.Unix(),
		"exp": now.Add(CustomTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if s.cred.PrivateKeyID != "" {
		token.Header["kid"] = s.cred.PrivateKeyID
	}

	signed, err := token.SignedString(s.cred.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign custom token: %w", err)
	}
	return signed, nil
}
