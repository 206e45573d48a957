package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"

	"github.com/authbridge/discord-bridge/internal/bridge"
	"github.com/authbridge/discord-bridge/internal/config"
	"github.com/authbridge/discord-bridge/internal/discord"
	"github.com/authbridge/discord-bridge/internal/logger"
	"github.com/authbridge/discord-bridge/internal/server"
	"github.com/authbridge/discord-bridge/internal/session"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "discord-bridge",
	Short: "Bridge Discord OAuth2 logins into local sessions",
	Long: `discord-bridge runs the authorization-code relay: it sends users to
Discord's consent screen, exchanges the returned code for an access token,
mints a signed custom token for the user's stable Discord ID, and redeems
that token for a session cookie.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags()
	rootCmd.Flags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
}

const fxTimeout = 15 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *server.Server
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(
			func(c *config.Config) *config.DiscordConfig { return &c.Discord },
			func(c *config.Config) *config.BridgeConfig { return &c.Bridge },
			func(c *config.Config) *config.SessionConfig { return &c.Session },
		),
		discord.Module,
		bridge.Module,
		session.Module,
		server.Module,
		fx.Populate(&srv),
	)

	startCtx, cancelStart := context.WithTimeout(ctx, fxTimeout)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	defer func() {
		stopCtx, cancelStop := context.WithTimeout(context.Background(), fxTimeout)
		defer cancelStop()
		_ = app.Stop(stopCtx)
	}()

	return srv.Start(ctx)
}
