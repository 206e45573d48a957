package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("discord-bridge version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Discord DiscordConfig `mapstructure:"discord"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
	Session SessionConfig `mapstructure:"session"`
}

type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	BaseURL      string   `mapstructure:"base_url"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// DiscordConfig holds the OAuth2 application credentials registered with
// Discord. RedirectURI must match the redirect configured in the Discord
// developer portal exactly, including scheme and path.
type DiscordConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURI  string   `mapstructure:"redirect_uri"`
	Scopes       []string `mapstructure:"scopes"`
}

// BridgeConfig points at the service credential used to sign custom tokens.
type BridgeConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type SessionConfig struct {
	CookieName   string        `mapstructure:"cookie_name"`
	TTL          time.Duration `mapstructure:"ttl"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

// MissingParameterError reports a required configuration key that was not
// provided by flag, environment, or config file.
type MissingParameterError struct {
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required configuration parameter %q", e.Parameter)
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("config", "", "Path to the config file")
	pflag.String("server.host", "", "Host to bind the HTTP server to")
	pflag.Int("server.port", 0, "Port to bind the HTTP server to")
	// Note: no pflag.Parse() here as it's called in main.go
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("DISCORD_BRIDGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	setDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/discord-bridge")

		// The config file is optional; environment variables and flags
		// can carry everything.
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("discord.scopes", []string{"identify"})
	viper.SetDefault("session.cookie_name", "bridge_session")
	viper.SetDefault("session.ttl", "12h")

	// Keys without defaults must be bound explicitly or Unmarshal won't
	// see env-only values.
	for _, key := range []string{
		"server.base_url",
		"server.allow_origins",
		"logging.output_path",
		"discord.client_id",
		"discord.client_secret",
		"discord.redirect_uri",
		"bridge.credentials_file",
	} {
		_ = viper.BindEnv(key)
	}
}

// validate checks the keys the relay cannot run without. Each absent key is
// reported as a MissingParameterError so callers can branch on the type.
func (c *Config) validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"discord.client_id", c.Discord.ClientID},
		{"discord.client_secret", c.Discord.ClientSecret},
		{"discord.redirect_uri", c.Discord.RedirectURI},
		{"bridge.credentials_file", c.Bridge.CredentialsFile},
	}
	for _, req := range required {
		if req.value == "" {
			return &MissingParameterError{Parameter: req.key}
		}
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	return nil
}
