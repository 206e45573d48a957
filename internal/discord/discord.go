// Package discord implements the OAuth2 client side of the relay: building
// the consent URL, exchanging authorization codes for access tokens, and
// resolving the authenticated user's stable ID.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/authbridge/discord-bridge/internal/config"
	"github.com/authbridge/discord-bridge/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Endpoint is Discord's OAuth2 authorization and token endpoint pair.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/api/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

const defaultAPIBaseURL = "https://discord.com/api"

// requestTimeout bounds every outbound call to Discord. There is no retry;
// a failed exchange fails the whole login attempt.
const requestTimeout = 30 * time.Second

// User is the subset of Discord's /users/@me response the bridge needs. ID
// is the snowflake that stays stable across token rotations.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

type Client struct {
	oauth2Config *oauth2.Config
	apiBaseURL   string
}

func NewClient(cfg *config.DiscordConfig) *Client {
	return &Client{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     Endpoint,
			Scopes:       cfg.Scopes,
		},
		apiBaseURL: defaultAPIBaseURL,
	}
}

// AuthCodeURL returns the consent URL the browser is sent to. Pure string
// construction; the caller performs the navigation.
func (c *Client) AuthCodeURL() string {
	return c.oauth2Config.AuthCodeURL("")
}

// ExchangeCode trades an authorization code for an access token with a
// single server-to-server POST to the token endpoint.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	token, err := c.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// FetchUser resolves the authenticated user behind an access token via
// /users/@me.
func (c *Client) FetchUser(ctx context.Context, token *oauth2.Token) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return c.getUser(ctx, client)
}

// ResolveUserID resolves the stable user ID behind a raw access token.
func (c *Client) ResolveUserID(ctx context.Context, accessToken string) (string, error) {
	user, err := c.FetchUser(ctx, &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (c *Client) getUser(ctx context.Context, client *http.Client) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed with status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("user info response contained no id")
	}

	return &user, nil
}
