package bridge

import (
	"github.com/authbridge/discord-bridge/internal/config"
	"github.com/authbridge/discord-bridge/internal/discord"
	"go.uber.org/fx"
)

// Module provides the token bridge dependencies
var Module = fx.Module("bridge",
	fx.Provide(
		NewService,
		func(cfg *config.BridgeConfig) (*ServiceCredential, error) {
			return LoadServiceCredential(cfg.CredentialsFile)
		},
		fx.Annotate(
			func(c *discord.Client) *discord.Client { return c },
			fx.As(new(UserResolver)),
		),
	),
)
