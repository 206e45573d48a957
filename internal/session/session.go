// Package session redeems bridged custom tokens for browser sessions. A
// session is a signed, expiring token carried in an HttpOnly cookie; there
// is no server-side session store.
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/authbridge/discord-bridge/internal/bridge"
	"github.com/authbridge/discord-bridge/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
)

const (
	sessionIssuer   = "discord-bridge"
	sessionAudience = "discord-bridge/session"
)

// Session is the authenticated identity carried by a verified session token.
type Session struct {
	UserID    string
	ExpiresAt time.Time
}

// Manager verifies custom tokens and issues session tokens, both signed with
// the same service credential.
type Manager struct {
	cred       *bridge.ServiceCredential
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

func NewManager(cfg *config.SessionConfig, cred *bridge.ServiceCredential) *Manager {
	return &Manager{
		cred:       cred,
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		secure:     cfg.SecureCookie,
		now:        time.Now,
	}
}

// Establish redeems a custom token for a session token. The custom token
// must be signed by the service credential, unexpired, and carry a uid
// claim; anything else fails the redemption.
func (m *Manager) Establish(customToken string) (string, error) {
	parsed, err := jwt.Parse(customToken,
		func(t *jwt.Token) (interface{}, error) { return m.cred.PublicKey(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(bridge.CustomTokenAudience),
		jwt.WithIssuer(m.cred.ClientEmail),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("invalid custom token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid custom token: unexpected claims type")
	}
	uid, _ := claims["uid"].(string)
	if uid == "" {
		return "", fmt.Errorf("invalid custom token: missing uid claim")
	}

	return m.mintSessionToken(uid)
}

// Verify checks a session token and returns the session it carries.
func (m *Manager) Verify(sessionToken string) (*Session, error) {
	parsed, err := jwt.Parse(sessionToken,
		func(t *jwt.Token) (interface{}, error) { return m.cred.PublicKey(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(sessionAudience),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid session token: unexpected claims type")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("invalid session token: missing subject")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("invalid session token: missing expiry")
	}

	return &Session{UserID: sub, ExpiresAt: exp.Time}, nil
}

// FromRequest extracts and verifies the session cookie on a request.
func (m *Manager) FromRequest(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, fmt.Errorf("no session cookie: %w", err)
	}
	return m.Verify(cookie.Value)
}

// Cookie wraps a session token in the session cookie.
func (m *Manager) Cookie(sessionToken string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    sessionToken,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) mintSessionToken(userID string) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"iss": sessionIssuer,
		"aud": sessionAudience,
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(m.ttl).Unix(),
	}

	signed, err := m.cred.SignClaims(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Module provides the session manager
var Module = fx.Module("session",
	fx.Provide(
		NewManager,
	),
)
