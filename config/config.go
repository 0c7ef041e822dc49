package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

const (
	defaultEventSignature    = "TokensLocked(address,uint256,uint256,uint256)"
	defaultMaxBlockRangeSize = 1000
	defaultRangeShrinkFactor = 2
	defaultRangeRetries      = 1
	defaultPollInterval      = 15 * time.Second
	defaultBackoffInitial    = 5 * time.Second
	defaultBackoffMax        = 5 * time.Minute
	defaultFallbackGasPrice  = 20
	defaultStateDir          = "state"
)

type RPCConfig struct {
	Host    string   `yaml:"host"`
	Timeout Duration `yaml:"timeout"`
}

type ChainConfig struct {
	RPC                *RPCConfig `yaml:"rpc"`
	ChainID            string     `yaml:"chain_id"`
	BlockTime          Duration   `yaml:"block_time"`
	BlockIndexInterval Duration   `yaml:"block_index_interval"`
}

type SourceConfig struct {
	ChainName          string       `yaml:"chain"`
	Chain              *ChainConfig `yaml:"-"`
	Address            string       `yaml:"address"`
	EventSignature     string       `yaml:"event_signature"`
	StartBlock         uint         `yaml:"start_block"`
	BlockConfirmations uint         `yaml:"required_block_confirmations"`
	MaxBlockRangeSize  uint         `yaml:"max_block_range_size"`
	RangeShrinkFactor  uint         `yaml:"range_shrink_factor"`
	RangeRetries       uint         `yaml:"range_retries"`
}

func (c *SourceConfig) ContractAddress() common.Address {
	return common.HexToAddress(c.Address)
}

type DestinationConfig struct {
	ChainName string       `yaml:"chain"`
	Chain     *ChainConfig `yaml:"-"`
	Address   string       `yaml:"address"`
}

func (c *DestinationConfig) ContractAddress() common.Address {
	return common.HexToAddress(c.Address)
}

type BackoffConfig struct {
	Initial Duration `yaml:"initial"`
	Max     Duration `yaml:"max"`
}

type GasOracleConfig struct {
	URL                  string   `yaml:"url"`
	Timeout              Duration `yaml:"timeout"`
	FallbackGasPriceGwei uint64   `yaml:"fallback_gas_price_gwei"`
}

type RelayConfig struct {
	ID          string             `yaml:"-"`
	Source      *SourceConfig      `yaml:"source"`
	Destination *DestinationConfig `yaml:"destination"`
	Backoff     *BackoffConfig     `yaml:"backoff"`
	GasOracle   *GasOracleConfig   `yaml:"gas_oracle"`
}

// PollInterval is the voluntary suspension time between scan cycles,
// taken from the source chain's block index interval.
func (c *RelayConfig) PollInterval() time.Duration {
	if c.Source.Chain != nil && c.Source.Chain.BlockIndexInterval.Duration > 0 {
		return c.Source.Chain.BlockIndexInterval.Duration
	}
	return defaultPollInterval
}

type DBConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"database"`
}

type PresenterConfig struct {
	Host string `yaml:"host"`
}

type Config struct {
	Chains         map[string]*ChainConfig `yaml:"chains"`
	Relays         map[string]*RelayConfig `yaml:"relays"`
	DBConfig       *DBConfig               `yaml:"postgres"`
	StateDir       string                  `yaml:"state_dir"`
	RawLogLevel    string                  `yaml:"log_level"`
	LogLevel       logrus.Level            `yaml:"-"`
	DisabledRelays []string                `yaml:"disabled_relays"`
	EnabledRelays  []string                `yaml:"enabled_relays"`
	Presenter      *PresenterConfig        `yaml:"presenter"`
}

func (cfg *Config) init() error {
	if len(cfg.Relays) == 0 {
		return fmt.Errorf("no relays configured")
	}
	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir
	}
	cfg.LogLevel = logrus.InfoLevel
	if cfg.RawLogLevel != "" {
		level, err := logrus.ParseLevel(cfg.RawLogLevel)
		if err != nil {
			return fmt.Errorf("can't parse log level: %w", err)
		}
		cfg.LogLevel = level
	}
	for id, relay := range cfg.Relays {
		relay.ID = id
		if err := relay.init(cfg.Chains); err != nil {
			return fmt.Errorf("invalid relay %q config: %w", id, err)
		}
	}
	for _, id := range cfg.EnabledRelays {
		if _, ok := cfg.Relays[id]; !ok {
			return fmt.Errorf("unknown relay %q in enabled_relays", id)
		}
	}
	return nil
}

func (c *RelayConfig) init(chains map[string]*ChainConfig) error {
	if c.Source == nil || c.Destination == nil {
		return fmt.Errorf("both source and destination must be configured")
	}
	var ok bool
	if c.Source.Chain, ok = chains[c.Source.ChainName]; !ok {
		return fmt.Errorf("unknown source chain %q", c.Source.ChainName)
	}
	if c.Destination.Chain, ok = chains[c.Destination.ChainName]; !ok {
		return fmt.Errorf("unknown destination chain %q", c.Destination.ChainName)
	}
	if !common.IsHexAddress(c.Source.Address) {
		return fmt.Errorf("invalid source contract address %q", c.Source.Address)
	}
	if !common.IsHexAddress(c.Destination.Address) {
		return fmt.Errorf("invalid destination contract address %q", c.Destination.Address)
	}
	if c.Source.EventSignature == "" {
		c.Source.EventSignature = defaultEventSignature
	}
	if c.Source.StartBlock == 0 {
		c.Source.StartBlock = 1
	}
	if c.Source.MaxBlockRangeSize == 0 {
		c.Source.MaxBlockRangeSize = defaultMaxBlockRangeSize
	}
	if c.Source.RangeShrinkFactor < 2 {
		c.Source.RangeShrinkFactor = defaultRangeShrinkFactor
	}
	if c.Source.RangeRetries == 0 {
		c.Source.RangeRetries = defaultRangeRetries
	}
	if c.Backoff == nil {
		c.Backoff = &BackoffConfig{}
	}
	if c.Backoff.Initial.Duration <= 0 {
		c.Backoff.Initial.Duration = defaultBackoffInitial
	}
	if c.Backoff.Max.Duration < c.Backoff.Initial.Duration {
		c.Backoff.Max.Duration = defaultBackoffMax
	}
	if c.GasOracle == nil {
		c.GasOracle = &GasOracleConfig{}
	}
	if c.GasOracle.FallbackGasPriceGwei == 0 {
		c.GasOracle.FallbackGasPriceGwei = defaultFallbackGasPrice
	}
	return nil
}

func ReadConfig(blob []byte) (*Config, error) {
	cfg := new(Config)
	if err := parseYaml(cfg, blob); err != nil {
		return nil, err
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadConfigWithEnv expands ${VAR} references in the raw yaml before parsing,
// so secrets like RPC keys can be kept out of the config file.
func ReadConfigWithEnv(blob []byte) (*Config, error) {
	return ReadConfig([]byte(os.ExpandEnv(string(blob))))
}

func ReadConfigFromFile(path string) (*Config, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read config file: %w", err)
	}
	return ReadConfigWithEnv(blob)
}
