package config

import (
	"time"

	"github.com/gaze-network/nft-indexer/internal/postgres"
)

type Config struct {
	Database    string          `mapstructure:"database"`
	Postgres    postgres.Config `mapstructure:"postgres"`
	Datasource  string          `mapstructure:"datasource"`
	APIHandlers []string        `mapstructure:"api_handlers"`

	// Backfill disables the reorg monitor: historical ranges are assumed final.
	Backfill bool `mapstructure:"backfill"`

	PriceOracle PriceOracleConfig `mapstructure:"price_oracle"`
	Reconcile   ReconcileConfig   `mapstructure:"reconcile"`
	Reorg       ReorgConfig       `mapstructure:"reorg"`
}

type PriceOracleConfig struct {
	URL string `mapstructure:"url"`
}

type ReconcileConfig struct {
	Workers      int           `mapstructure:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	JobTimeout   time.Duration `mapstructure:"job_timeout"`
	MaxAttempts  int32         `mapstructure:"max_attempts"`
}

type ReorgConfig struct {
	// CheckDelays is the recheck schedule applied to every realtime-synced block.
	CheckDelays []time.Duration `mapstructure:"check_delays"`

	// AcceleratedDelays is the additional schedule applied when two blocks are
	// observed at the same height.
	AcceleratedDelays []time.Duration `mapstructure:"accelerated_delays"`
}
