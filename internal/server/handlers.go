package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/authbridge/discord-bridge/internal/bridge"
	"github.com/authbridge/discord-bridge/internal/httputil"
	"github.com/authbridge/discord-bridge/internal/logger"
	"github.com/authbridge/discord-bridge/internal/session"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Provider is the slice of the Discord client the handlers need.
type Provider interface {
	AuthCodeURL() string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
}

// TokenBridge converts a provider access token into a custom token result.
type TokenBridge interface {
	CreateToken(ctx context.Context, accessToken string) bridge.Result
}

// Handler holds the relay's HTTP handlers. Every dependency is passed in;
// there are no package-level client instances.
type Handler struct {
	provider Provider
	bridge   TokenBridge
	sessions *session.Manager
}

func NewHandler(provider Provider, tokenBridge TokenBridge, sessions *session.Manager) *Handler {
	return &Handler{
		provider: provider,
		bridge:   tokenBridge,
		sessions: sessions,
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>discord-bridge</title></head>
<body>
<h1>discord-bridge</h1>
<p><a href="/auth/discord">Login with Discord</a></p>
</body>
</html>
`

// HandleIndex serves the public entry page.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

// HandleLoginStart redirects the browser to the provider consent screen.
func (h *Handler) HandleLoginStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	http.Redirect(w, r, h.provider.AuthCodeURL(), http.StatusFound)
}

// HandleCallback receives the authorization code and runs the relay:
// exchange the code, bridge the access token, and hand the custom token to
// the session page. Each step is sequential and unretried; the first
// failure ends the attempt.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteError(w, "invalid_request", `missing required query parameter "code"`, http.StatusBadRequest)
		return
	}

	token, err := h.provider.ExchangeCode(r.Context(), code)
	if err != nil {
		logger.Error("Failed to exchange authorization code", zap.Error(err))
		httputil.WriteError(w, "invalid_grant", "failed to exchange authorization code", http.StatusBadGateway)
		return
	}

	result := h.bridge.CreateToken(r.Context(), token.AccessToken)
	if !result.OK() {
		logger.Error("Token bridge returned an error", zap.String("reason", result.Reason))
		httputil.WriteError(w, "server_error", result.Reason, http.StatusBadGateway)
		return
	}

	q := url.Values{}
	q.Set("custom_token", result.CustomToken)
	http.Redirect(w, r, "/login?"+q.Encode(), http.StatusFound)
}

// HandleLogin establishes a session from the custom token in the query
// string. Success navigates to the protected area; any failure navigates
// back to the public entry page with no further diagnostic.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	customToken := r.URL.Query().Get("custom_token")
	if customToken == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	sessionToken, err := h.sessions.Establish(customToken)
	if err != nil {
		logger.Warn("Failed to establish session from custom token", zap.Error(err))
		http.SetCookie(w, h.sessions.ClearCookie())
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	http.SetCookie(w, h.sessions.Cookie(sessionToken))
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// HandleLogout clears the session cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	http.SetCookie(w, h.sessions.ClearCookie())
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleAdmin serves the protected page. RequireSession has already put the
// session on the context.
func (h *Handler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := SessionFromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html><body><h1>Admin</h1><p>Logged in as Discord user %s.</p><p><a href=\"/logout\">Logout</a></p></body></html>\n",
		template.HTMLEscapeString(sess.UserID))
}

// createTokenRequest is the token-bridge RPC request body.
type createTokenRequest struct {
	AccessToken string `json:"access_token"`
}

// createTokenResponse is the token-bridge RPC response. On success only
// CustomToken is set; on error the reason and the offending access token
// are echoed back.
type createTokenResponse struct {
	Status      string `json:"status"`
	CustomToken string `json:"customToken,omitempty"`
	Error       string `json:"error,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// HandleCreateToken is the callable token-bridge RPC. Minting failures are
// caught and returned as a structured error payload rather than a failed
// request.
func (h *Handler) HandleCreateToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, "invalid_request", "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccessToken == "" {
		httputil.WriteError(w, "invalid_request", "access_token is required", http.StatusBadRequest)
		return
	}

	result := h.bridge.CreateToken(r.Context(), req.AccessToken)
	if !result.OK() {
		httputil.WriteJSON(w, createTokenResponse{
			Status:      "error",
			Error:       result.Reason,
			AccessToken: req.AccessToken,
		})
		return
	}

	httputil.WriteJSON(w, createTokenResponse{
		Status:      "success",
		CustomToken: result.CustomToken,
	})
}

// HandleHealthz reports liveness.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer func() {
		_ = r.Body.Close()
	}()
	return json.NewDecoder(r.Body).Decode(v)
}
