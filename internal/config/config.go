package config

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/nft-indexer/common"
	marketplaceconfig "github.com/gaze-network/nft-indexer/modules/marketplace/config"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
	"github.com/gaze-network/nft-indexer/pkg/middleware/requestcontext"
	"github.com/gaze-network/nft-indexer/pkg/middleware/requestlogger"
	"github.com/gaze-network/nft-indexer/pkg/reportingclient"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configOnce sync.Once
	config     = &Config{
		Logger: logger.Config{
			Output: "text",
		},
		EthereumNode: EthereumNodeClient{
			URL: "http://127.0.0.1:8545",
		},
	}
)

type Config struct {
	Logger        logger.Config          `mapstructure:"logger"`
	Network       common.Network         `mapstructure:"network"`
	EthereumNode  EthereumNodeClient     `mapstructure:"ethereum_node"`
	HTTPServer    HTTPServerConfig       `mapstructure:"http_server"`
	APIOnly       bool                   `mapstructure:"api_only"`
	EnableModules []string               `mapstructure:"enable_modules"`
	Reporting     reportingclient.Config `mapstructure:"reporting"`
	Modules       Modules                `mapstructure:"modules"`
}

type EthereumNodeClient struct {
	URL string `mapstructure:"url"`
}

type HTTPServerConfig struct {
	Port      int                               `mapstructure:"port"`
	Logger    requestlogger.Config              `mapstructure:"logger"`
	RequestIP requestcontext.WithClientIPConfig `mapstructure:"request_ip"`
}

type Modules struct {
	Marketplace marketplaceconfig.Config `mapstructure:"marketplace"`
}

// BindPFlag binds a command-line flag to a configuration key.
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("Failed to bind flag to configuration", slogx.Error(err), slog.String("key", key))
	}
}

// Parse loads the configuration from the given file (or ./config.yaml by
// default) with environment variable overrides.
func Parse(configFile string) Config {
	ctx := logger.WithContext(context.Background(), slog.String("package", "config"))
	configOnce.Do(func() {
		if configFile != "" {
			viper.SetConfigFile(configFile)
		} else {
			viper.AddConfigPath("./")
			viper.SetConfigName("config")
		}

		viper.AutomaticEnv()
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		if err := viper.ReadInConfig(); err != nil {
			var errNotfound viper.ConfigFileNotFoundError
			if errors.As(err, &errNotfound) {
				logger.WarnContext(ctx, "config file not found, use default value", slogx.Error(err))
			} else {
				logger.PanicContext(ctx, "invalid config file", slogx.Error(err))
			}
		}

		if err := viper.Unmarshal(&config); err != nil {
			logger.PanicContext(ctx, "failed to unmarshal config", slogx.Error(err))
		}
	})

	return *config
}

// Load returns the parsed configuration. Parse must have been called first;
// otherwise defaults are returned.
func Load() Config {
	return Parse("")
}
