package config

import (
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/taskrelay/pkg/domain/types"
	"github.com/secmon-lab/taskrelay/pkg/service/dispatch"
	"github.com/urfave/cli/v3"
)

// ChannelFile is the TOML document that binds remote channel names to webhook URLs
//
//	[channels]
//	NOTION = "https://hooks.example.com/notion"
type ChannelFile struct {
	Channels map[string]string `toml:"channels"`
}

// Validate checks that every binding names a remote channel and a usable URL
func (c *ChannelFile) Validate() error {
	for name, raw := range c.Channels {
		if types.ClassifyChannel(name).IsLocal() {
			return goerr.Wrap(ErrInvalidConfig, "local channel cannot be bound to a webhook", goerr.V(ChannelKey, name))
		}
		if err := validateWebhookURL(raw); err != nil {
			return goerr.Wrap(err, "invalid webhook URL", goerr.V(ChannelKey, name))
		}
	}
	return nil
}

func validateWebhookURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return goerr.Wrap(ErrInvalidConfig, "failed to parse URL", goerr.V("error", err.Error()))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return goerr.Wrap(ErrInvalidConfig, "webhook URL must be http or https", goerr.V("scheme", u.Scheme))
	}
	if u.Host == "" {
		return goerr.Wrap(ErrInvalidConfig, "webhook URL has no host")
	}
	return nil
}

// LoadChannelFile loads channel bindings from a TOML file
func LoadChannelFile(path string) (*ChannelFile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrConfigNotFound, "channel file not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read channel file", goerr.V(ConfigPathKey, path))
	}

	var file ChannelFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML channel file", goerr.V(ConfigPathKey, path))
	}

	if err := file.Validate(); err != nil {
		return nil, goerr.Wrap(err, "channel file validation failed", goerr.V(ConfigPathKey, path))
	}

	return &file, nil
}

// Channel holds CLI flags for remote channel resolution
type Channel struct {
	channelFile string
	envFiles    []string
	envPrefix   string
}

// Flags returns CLI flags for channel configuration
func (c *Channel) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "channel-file",
			Usage:       "TOML file binding remote channel names to webhook URLs",
			Category:    "Channel",
			Sources:     cli.EnvVars("TASKRELAY_CHANNEL_FILE"),
			Destination: &c.channelFile,
		},
		&cli.StringSliceFlag{
			Name:        "env-file",
			Usage:       "dotenv file(s) to load before resolving channels from the environment",
			Category:    "Channel",
			Sources:     cli.EnvVars("TASKRELAY_ENV_FILE"),
			Destination: &c.envFiles,
		},
		&cli.StringFlag{
			Name:        "channel-env-prefix",
			Usage:       "Prefix of environment variables holding webhook URLs (e.g. WEBHOOK_ makes NOTION resolve WEBHOOK_NOTION)",
			Category:    "Channel",
			Sources:     cli.EnvVars("TASKRELAY_CHANNEL_ENV_PREFIX"),
			Destination: &c.envPrefix,
		},
	}
}

func (c Channel) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("channel_file", c.channelFile),
		slog.Any("env_files", c.envFiles),
		slog.String("env_prefix", c.envPrefix),
	)
}

// Configure builds the channel resolver. Bindings from the channel file win
// over environment variables.
func (c *Channel) Configure() (dispatch.ChannelResolver, error) {
	if len(c.envFiles) > 0 {
		if err := godotenv.Load(c.envFiles...); err != nil {
			return nil, goerr.Wrap(err, "failed to load env file", goerr.V("files", c.envFiles))
		}
	}

	chain := dispatch.ChainResolver{}
	if c.channelFile != "" {
		file, err := LoadChannelFile(c.channelFile)
		if err != nil {
			return nil, err
		}
		chain = append(chain, dispatch.MapResolver(file.Channels))
	}
	chain = append(chain, dispatch.EnvResolver{Prefix: c.envPrefix})

	return chain, nil
}
