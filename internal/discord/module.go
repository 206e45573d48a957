package discord

import (
	"go.uber.org/fx"
)

// Module provides the Discord OAuth2 client
var Module = fx.Module("discord",
	fx.Provide(
		NewClient,
	),
)
