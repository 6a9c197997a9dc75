package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// LogFormatPlain is a format for colored text
	LogFormatPlain = "plain"
	// LogFormatJSON is a format for json output
	LogFormatJSON = "json"

	// TransportMemory keeps gossip in process.
	TransportMemory = "memory"
	// TransportGossipSub joins a libp2p gossipsub topic.
	TransportGossipSub = "gossipsub"

	// TxSinkLog writes crafted transactions to the node log.
	TxSinkLog = "log"
	// TxSinkKafka publishes crafted transactions to a Kafka topic.
	TxSinkKafka = "kafka"

	// BuiltinBarter only matches two intents directly.
	BuiltinBarter = "builtin:barter"
	// BuiltinCycle matches closed exchange cycles.
	BuiltinCycle = "builtin:cycle"
)

// NOTE: Most of the structs & relevant comments + the
// default configuration options were used to manually
// generate the config.toml. Please reflect any changes
// made here in the defaultConfigTemplate constant in
// config/toml.go
// NOTE: libs/cli must know to look in the config dir!
var (
	DefaultIntentdDir = ".intentd"
	defaultConfigDir  = "config"
	defaultDataDir    = "data"

	defaultConfigFileName = "config.toml"
	defaultRulesFileName  = "rules.toml"
	defaultHolderKeyName  = "holder_key.json"

	defaultConfigFilePath = filepath.Join(defaultConfigDir, defaultConfigFileName)
	defaultRulesFilePath  = filepath.Join(defaultConfigDir, defaultRulesFileName)
	defaultHolderKeyPath  = filepath.Join(defaultConfigDir, defaultHolderKeyName)
)

// Config defines the top level configuration for an intentd node
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	P2P             *P2PConfig             `mapstructure:"p2p"`
	Gossip          *GossipConfig          `mapstructure:"gossip"`
	TxSink          *TxSinkConfig          `mapstructure:"tx-sink"`
	Instrumentation *InstrumentationConfig `mapstructure:"instrumentation"`
}

// DefaultConfig returns a default configuration for an intentd node
func DefaultConfig() *Config {
	return &Config{
		BaseConfig:      DefaultBaseConfig(),
		P2P:             DefaultP2PConfig(),
		Gossip:          DefaultGossipConfig(),
		TxSink:          DefaultTxSinkConfig(),
		Instrumentation: DefaultInstrumentationConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	return &Config{
		BaseConfig:      TestBaseConfig(),
		P2P:             TestP2PConfig(),
		Gossip:          TestGossipConfig(),
		TxSink:          DefaultTxSinkConfig(),
		Instrumentation: TestInstrumentationConfig(),
	}
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	cfg.P2P.RootDir = root
	cfg.Gossip.SetRoot(root)
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.P2P.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [p2p] section")
	}
	if err := cfg.Gossip.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [gossip] section")
	}
	if err := cfg.TxSink.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [tx-sink] section")
	}
	return errors.Wrap(
		cfg.Instrumentation.ValidateBasic(),
		"error in [instrumentation] section",
	)
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for an intentd node
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home"`

	// A custom human readable name for this node
	Moniker string `mapstructure:"moniker"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log-format"`

	// Path to the JSON file holding the ed25519 key used by sign-intent
	HolderKey string `mapstructure:"holder-key-file"`
}

// DefaultBaseConfig returns a default base configuration for an intentd node
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		Moniker:   defaultMoniker,
		LogLevel:  DefaultLogLevel,
		LogFormat: LogFormatPlain,
		HolderKey: defaultHolderKeyPath,
	}
}

// TestBaseConfig returns a base configuration for testing an intentd node
func TestBaseConfig() BaseConfig {
	cfg := DefaultBaseConfig()
	cfg.LogLevel = "debug"
	return cfg
}

// ConfigFile returns the full path to the config.toml file
func (cfg BaseConfig) ConfigFile() string {
	return rootify(defaultConfigFilePath, cfg.RootDir)
}

// HolderKeyFile returns the full path to the holder key file
func (cfg BaseConfig) HolderKeyFile() string {
	return rootify(cfg.HolderKey, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case LogFormatPlain, LogFormatJSON:
	default:
		return errors.New("unknown log-format (must be 'plain' or 'json')")
	}
	return nil
}

// DefaultLogLevel defines a default log level as INFO.
const DefaultLogLevel = "info"

//-----------------------------------------------------------------------------
// P2PConfig

// P2PConfig defines the configuration options for the gossip transport
type P2PConfig struct { //nolint: maligned
	RootDir string `mapstructure:"home"`

	// Transport: memory | gossipsub
	Transport string `mapstructure:"transport"`

	// Multiaddrs for the libp2p host to listen on
	ListenAddresses []string `mapstructure:"listen-addresses"`

	// Multiaddrs (with /p2p/<peer id>) dialed on start
	BootstrapPeers []string `mapstructure:"bootstrap-peers"`

	// Gossipsub topic intents are published on
	Topic string `mapstructure:"topic"`

	// Maximum size of a message accepted from or published to the topic
	MaxMessageBytes int `mapstructure:"max-message-bytes"`

	// Capacity of the inbound envelope buffer
	RecvBufferSize int `mapstructure:"recv-buffer-size"`
}

// DefaultP2PConfig returns a default configuration for the gossip transport
func DefaultP2PConfig() *P2PConfig {
	return &P2PConfig{
		Transport:       TransportGossipSub,
		ListenAddresses: []string{"/ip4/0.0.0.0/tcp/26656"},
		BootstrapPeers:  []string{},
		Topic:           "intentd/intents/v1",
		MaxMessageBytes: 64 * 1024, // 64kB
		RecvBufferSize:  1024,
	}
}

// TestP2PConfig returns a configuration for testing the gossip transport
func TestP2PConfig() *P2PConfig {
	cfg := DefaultP2PConfig()
	cfg.Transport = TransportMemory
	cfg.ListenAddresses = []string{"/ip4/127.0.0.1/tcp/0"}
	cfg.RecvBufferSize = 64
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *P2PConfig) ValidateBasic() error {
	switch cfg.Transport {
	case TransportMemory, TransportGossipSub:
	default:
		return fmt.Errorf("unknown transport %q (must be %q or %q)", cfg.Transport, TransportMemory, TransportGossipSub)
	}
	if cfg.Topic == "" {
		return errors.New("topic can't be empty")
	}
	if cfg.MaxMessageBytes <= 0 {
		return errors.New("max-message-bytes must be positive")
	}
	if cfg.RecvBufferSize < 0 {
		return errors.New("recv-buffer-size can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// GossipConfig

// GossipConfig configures intent ingestion. A nil or disabled Matchmaker
// puts the node in relay mode.
type GossipConfig struct {
	// Largest raw message ParseRawMsg will decode
	MaxMsgBytes int `mapstructure:"max-msg-bytes"`

	// Number of concurrent decode and admission workers
	Workers int `mapstructure:"workers"`

	Matchmaker *MatchmakerConfig `mapstructure:"matchmaker"`
}

// DefaultGossipConfig returns a default configuration with matching enabled.
func DefaultGossipConfig() *GossipConfig {
	return &GossipConfig{
		MaxMsgBytes: 4096,
		Workers:     4,
		Matchmaker:  DefaultMatchmakerConfig(),
	}
}

func TestGossipConfig() *GossipConfig {
	cfg := DefaultGossipConfig()
	cfg.Workers = 2
	cfg.Matchmaker = TestMatchmakerConfig()
	return cfg
}

// SetRoot sets the root of the matchmaker config, if any.
func (cfg *GossipConfig) SetRoot(root string) {
	if cfg.Matchmaker != nil {
		cfg.Matchmaker.RootDir = root
	}
}

// MatchingEnabled reports whether the node runs a matchmaker.
func (cfg *GossipConfig) MatchingEnabled() bool {
	return cfg != nil && cfg.Matchmaker != nil && cfg.Matchmaker.Enabled
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *GossipConfig) ValidateBasic() error {
	if cfg.MaxMsgBytes <= 0 {
		return errors.New("max-msg-bytes must be positive")
	}
	if cfg.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if cfg.Matchmaker != nil {
		return errors.Wrap(cfg.Matchmaker.ValidateBasic(), "error in [gossip.matchmaker] section")
	}
	return nil
}

//-----------------------------------------------------------------------------
// MatchmakerConfig

// MatchmakerConfig defines the configuration of the local matchmaking
// engine.
type MatchmakerConfig struct {
	RootDir string `mapstructure:"home"`

	Enabled bool `mapstructure:"enabled"`

	// Matching rule set: builtin:barter, builtin:cycle or the path of a
	// TOML rules file. Relative paths are resolved against the home
	// directory.
	RuleSource string `mapstructure:"rule-source"`

	// Maximum number of pending intents
	MempoolCapacity int `mapstructure:"mempool-capacity"`

	// Caps the rule set's max-cycle-length when positive
	MaxCycleLength int `mapstructure:"max-cycle-length"`

	// Capacity of the crafted transaction channel
	TxBufferSize int `mapstructure:"tx-buffer-size"`

	// Number of match attempts that may wait for the matchmaker
	QueueSize int `mapstructure:"queue-size"`

	// Intents must expire within this duration of admission. Consumed
	// intents are remembered until they expire, so 0 (accept intents that
	// never expire) lets that set grow without bound.
	MaxIntentLifetime time.Duration `mapstructure:"max-intent-lifetime"`

	// Number of verified signatures cached by the admission filter. 0
	// disables the cache.
	SignatureCacheSize int `mapstructure:"signature-cache-size"`

	// How often expired intents are purged. 0 disables the sweep.
	PurgeInterval time.Duration `mapstructure:"purge-interval"`
}

// DefaultMatchmakerConfig returns a default configuration for the matchmaker.
func DefaultMatchmakerConfig() *MatchmakerConfig {
	return &MatchmakerConfig{
		Enabled:            true,
		RuleSource:         BuiltinCycle,
		MempoolCapacity:    10000,
		MaxCycleLength:     0,
		TxBufferSize:       100,
		QueueSize:          1000,
		MaxIntentLifetime:  24 * time.Hour,
		SignatureCacheSize: 100000,
		PurgeInterval:      30 * time.Second,
	}
}

// TestMatchmakerConfig returns a configuration for testing the matchmaker.
func TestMatchmakerConfig() *MatchmakerConfig {
	cfg := DefaultMatchmakerConfig()
	cfg.MempoolCapacity = 100
	cfg.TxBufferSize = 10
	cfg.QueueSize = 10
	cfg.MaxIntentLifetime = 0
	cfg.SignatureCacheSize = 100
	cfg.PurgeInterval = 0
	return cfg
}

// RuleFile returns the full path of the rules file, or "" for builtin
// rule sets.
func (cfg *MatchmakerConfig) RuleFile() string {
	if cfg.RuleSource == "" || strings.HasPrefix(cfg.RuleSource, "builtin:") {
		return ""
	}
	return rootify(cfg.RuleSource, cfg.RootDir)
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *MatchmakerConfig) ValidateBasic() error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.RuleSource == "" {
		return errors.New("rule-source can't be empty")
	}
	if cfg.MempoolCapacity <= 0 {
		return errors.New("mempool-capacity must be positive")
	}
	if cfg.MaxCycleLength < 0 {
		return errors.New("max-cycle-length can't be negative")
	}
	if cfg.MaxCycleLength == 1 {
		return errors.New("max-cycle-length must be at least 2")
	}
	if cfg.TxBufferSize <= 0 {
		return errors.New("tx-buffer-size must be positive")
	}
	if cfg.QueueSize < 0 {
		return errors.New("queue-size can't be negative")
	}
	if cfg.MaxIntentLifetime < 0 {
		return errors.New("max-intent-lifetime can't be negative")
	}
	if cfg.SignatureCacheSize < 0 {
		return errors.New("signature-cache-size can't be negative")
	}
	if cfg.PurgeInterval < 0 {
		return errors.New("purge-interval can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// TxSinkConfig

// TxSinkConfig selects where crafted transactions are submitted.
type TxSinkConfig struct {
	// Sink type: log | kafka
	Type string `mapstructure:"type"`

	// Kafka broker addresses
	Brokers []string `mapstructure:"brokers"`

	// Kafka topic
	Topic string `mapstructure:"topic"`

	// Timeout of a single submission
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

// DefaultTxSinkConfig returns a sink that logs transactions.
func DefaultTxSinkConfig() *TxSinkConfig {
	return &TxSinkConfig{
		Type:         TxSinkLog,
		Brokers:      []string{"127.0.0.1:9092"},
		Topic:        "intentd.txs",
		WriteTimeout: 10 * time.Second,
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *TxSinkConfig) ValidateBasic() error {
	switch cfg.Type {
	case TxSinkLog:
	case TxSinkKafka:
		if len(cfg.Brokers) == 0 {
			return errors.New("brokers can't be empty for the kafka sink")
		}
		if cfg.Topic == "" {
			return errors.New("topic can't be empty for the kafka sink")
		}
	default:
		return fmt.Errorf("unknown type %q (must be %q or %q)", cfg.Type, TxSinkLog, TxSinkKafka)
	}
	if cfg.WriteTimeout < 0 {
		return errors.New("write-timeout can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// InstrumentationConfig

// InstrumentationConfig defines the configuration for metrics reporting.
type InstrumentationConfig struct {
	// When true, Prometheus metrics are served under /metrics on
	// PrometheusListenAddr.
	// Check out the documentation for the list of available metrics.
	Prometheus bool `mapstructure:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	PrometheusListenAddr string `mapstructure:"prometheus-listen-addr"`

	// Maximum number of simultaneous connections.
	// If you want to accept a larger number than the default, make sure
	// you increase your OS limits.
	// 0 - unlimited.
	MaxOpenConnections int `mapstructure:"max-open-connections"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace"`
}

// DefaultInstrumentationConfig returns a default configuration for metrics
// reporting.
func DefaultInstrumentationConfig() *InstrumentationConfig {
	return &InstrumentationConfig{
		Prometheus:           false,
		PrometheusListenAddr: ":26660",
		MaxOpenConnections:   3,
		Namespace:            "intentd",
	}
}

// TestInstrumentationConfig returns a default configuration for metrics
// reporting.
func TestInstrumentationConfig() *InstrumentationConfig {
	return DefaultInstrumentationConfig()
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *InstrumentationConfig) ValidateBasic() error {
	if cfg.MaxOpenConnections < 0 {
		return errors.New("max-open-connections can't be negative")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Utils

// helper function to make config creation independent of root dir
func rootify(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

//-----------------------------------------------------------------------------
// Moniker

var defaultMoniker = getDefaultMoniker()

// getDefaultMoniker returns a default moniker, which is the host name. If runtime
// fails to get the host name, "anonymous" will be returned.
func getDefaultMoniker() string {
	moniker, err := os.Hostname()
	if err != nil {
		moniker = "anonymous"
	}
	return moniker
}
