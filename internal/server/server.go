// Package server wires the relay's HTTP surface: the redirect chain from
// consent screen to session cookie, the token-bridge RPC, and the pages on
// either end of the flow.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/authbridge/discord-bridge/internal/bridge"
	"github.com/authbridge/discord-bridge/internal/config"
	"github.com/authbridge/discord-bridge/internal/discord"
	"github.com/authbridge/discord-bridge/internal/logger"
	"github.com/authbridge/discord-bridge/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server hosts the authentication relay over HTTP.
type Server struct {
	config   *config.Config
	handler  *Handler
	sessions *session.Manager
}

func NewServer(cfg *config.Config, client *discord.Client, tokenBridge *bridge.Service, sessions *session.Manager) *Server {
	return &Server{
		config:   cfg,
		handler:  NewHandler(client, tokenBridge, sessions),
		sessions: sessions,
	}
}

// Routes builds the relay's handler stack.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handler.HandleIndex)
	mux.HandleFunc("/auth/discord", s.handler.HandleLoginStart)
	mux.HandleFunc("/auth/discord/callback", s.handler.HandleCallback)
	mux.HandleFunc("/login", s.handler.HandleLogin)
	mux.HandleFunc("/logout", s.handler.HandleLogout)
	mux.Handle("/admin", RequireSession(s.sessions)(http.HandlerFunc(s.handler.HandleAdmin)))
	mux.Handle("/api/createToken", CORSWithOrigins(s.config.Server.AllowOrigins)(http.HandlerFunc(s.handler.HandleCreateToken)))
	mux.HandleFunc("/healthz", s.handler.HandleHealthz)

	return RequestLogger(mux)
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}

	// Channel for server errors
	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting server", zap.String("address", addr))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// Module provides the HTTP server
var Module = fx.Module("server",
	fx.Provide(
		NewServer,
	),
)
