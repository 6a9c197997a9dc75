package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/creachadair/atomicfile"

	tmos "github.com/gossipnet/intentd/libs/os"
)

// defaultDirPerm is the default permissions used when creating directories.
const defaultDirPerm = 0700

var configTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("configFileTemplate").Funcs(template.FuncMap{
		"QuoteList": quoteList,
	})
	if configTemplate, err = tmpl.Parse(defaultConfigTemplate); err != nil {
		panic(err)
	}
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

/****** these are for production settings ***********/

// EnsureRoot creates the root, config, and data directories if they don't exist,
// and panics if it fails.
func EnsureRoot(rootDir string) {
	if err := tmos.EnsureDir(rootDir, defaultDirPerm); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		panic(err.Error())
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultDataDir), defaultDirPerm); err != nil {
		panic(err.Error())
	}
}

// WriteConfigFile renders config using the template and writes it to
// the default config path under rootDir.
// This function is called by cmd/intentd/commands/init.go
func WriteConfigFile(rootDir string, config *Config) error {
	return config.WriteToTemplate(filepath.Join(rootDir, defaultConfigFilePath))
}

// WriteToTemplate writes the config to the exact file specified by
// the path, in the default toml template and does not mangle the path
// or filename at all.
func (cfg *Config) WriteToTemplate(path string) error {
	var buffer bytes.Buffer

	if err := configTemplate.Execute(&buffer, cfg); err != nil {
		return err
	}

	return writeFile(path, buffer.Bytes(), 0644)
}

// WriteRulesFile writes the sample matching rules to the default rules
// path under rootDir unless the file already exists. It returns the path.
func WriteRulesFile(rootDir string) (string, error) {
	path := filepath.Join(rootDir, defaultRulesFilePath)
	if tmos.FileExists(path) {
		return path, nil
	}
	return path, writeFile(path, []byte(defaultRulesTemplate), 0644)
}

// DefaultRulesFile is the rules path written by WriteRulesFile, relative
// to the home directory.
func DefaultRulesFile() string {
	return defaultRulesFilePath
}

func writeDefaultConfigFileIfNone(rootDir string) error {
	configFilePath := filepath.Join(rootDir, defaultConfigFilePath)
	if !tmos.FileExists(configFilePath) {
		return WriteConfigFile(rootDir, DefaultConfig())
	}
	return nil
}

func writeFile(filePath string, contents []byte, mode os.FileMode) error {
	if _, err := atomicfile.WriteAll(filePath, bytes.NewReader(contents), mode); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go
const defaultConfigTemplate = `# This is a TOML config file.
# For more information, see https://github.com/toml-lang/toml

# NOTE: Any path below can be absolute (e.g. "/var/intentd/data") or
# relative to the home directory (e.g. "data"). The home directory is
# "$HOME/.intentd" by default, but could be changed via $INTENTD_HOME env
# variable or --home cmd flag.

#######################################################################
###                   Main Base Config Options                      ###
#######################################################################

# A custom human readable name for this node
moniker = "{{ .BaseConfig.Moniker }}"

# Output level for logging, including package level options
log-level = "{{ .BaseConfig.LogLevel }}"

# Output format: 'plain' (colored text) or 'json'
log-format = "{{ .BaseConfig.LogFormat }}"

# Path to the JSON file holding the ed25519 key used by sign-intent
holder-key-file = "{{ .BaseConfig.HolderKey }}"

#######################################################################
###                 Advanced Configuration Options                  ###
#######################################################################

#######################################################
###           P2P Configuration Options             ###
#######################################################
[p2p]

# Transport: memory | gossipsub
# * memory keeps gossip within the process (standalone and testing)
# * gossipsub joins the intent topic of a libp2p mesh
transport = "{{ .P2P.Transport }}"

# Multiaddrs the libp2p host listens on
listen-addresses = {{ QuoteList .P2P.ListenAddresses }}

# Multiaddrs, including the /p2p/<peer id> suffix, dialed on start
bootstrap-peers = {{ QuoteList .P2P.BootstrapPeers }}

# Gossipsub topic intents are published on
topic = "{{ .P2P.Topic }}"

# Maximum size of a gossip message
max-message-bytes = {{ .P2P.MaxMessageBytes }}

# Capacity of the inbound message buffer
recv-buffer-size = {{ .P2P.RecvBufferSize }}

#######################################################
###          Gossip Intent Configuration Options    ###
#######################################################
[gossip]

# Largest raw intent message that will be decoded
max-msg-bytes = {{ .Gossip.MaxMsgBytes }}

# Number of concurrent decode and admission workers
workers = {{ .Gossip.Workers }}
{{ with .Gossip.Matchmaker }}
# Set enabled = false to run a relay-only node
[gossip.matchmaker]

enabled = {{ .Enabled }}

# builtin:barter | builtin:cycle | path of a TOML rules file
rule-source = "{{ .RuleSource }}"

# Maximum number of pending intents
mempool-capacity = {{ .MempoolCapacity }}

# Caps the rule set's max-cycle-length when positive
max-cycle-length = {{ .MaxCycleLength }}

# Capacity of the crafted transaction channel
tx-buffer-size = {{ .TxBufferSize }}

# Number of match attempts that may wait for the matchmaker
queue-size = {{ .QueueSize }}

# Intents must expire within this duration of admission (0 accepts
# intents that never expire)
max-intent-lifetime = "{{ .MaxIntentLifetime }}"

# Number of verified signatures cached by the admission filter (0 disables)
signature-cache-size = {{ .SignatureCacheSize }}

# How often expired intents are purged (0 disables)
purge-interval = "{{ .PurgeInterval }}"
{{ end }}
#######################################################
###          Tx Sink Configuration Options          ###
#######################################################
[tx-sink]

# Sink type: log | kafka
type = "{{ .TxSink.Type }}"

# Kafka broker addresses
brokers = {{ QuoteList .TxSink.Brokers }}

# Kafka topic crafted transactions are published on
topic = "{{ .TxSink.Topic }}"

# Timeout of a single submission
write-timeout = "{{ .TxSink.WriteTimeout }}"

#######################################################
###       Instrumentation Configuration Options     ###
#######################################################
[instrumentation]

# When true, Prometheus metrics are served under /metrics on
# PrometheusListenAddr.
# Check out the documentation for the list of available metrics.
prometheus = {{ .Instrumentation.Prometheus }}

# Address to listen for Prometheus collector(s) connections
prometheus-listen-addr = "{{ .Instrumentation.PrometheusListenAddr }}"

# Maximum number of simultaneous connections.
# If you want to accept a larger number than the default, make sure
# you increase your OS limits.
# 0 - unlimited.
max-open-connections = {{ .Instrumentation.MaxOpenConnections }}

# Instrumentation namespace
namespace = "{{ .Instrumentation.Namespace }}"
`

const defaultRulesTemplate = `# Matching rules.
# policy: barter matches two intents directly, cycle matches closed
# exchange cycles of up to max-cycle-length intents.
policy = "cycle"
max-cycle-length = 4
max-search-steps = 20000
distinct-holders = true

# Known assets. When the list is empty any well formed denom is accepted.
[[assets]]
denom = "XAN"
max-amount = 1000000000

[[assets]]
denom = "BTC"
max-amount = 2100000000000000

[[assets]]
denom = "ETH"
max-amount = 1000000000000
`

/****** these are for test settings ***********/

// ResetTestRoot creates a fresh home directory under dir with the test
// configuration and the sample rules file.
func ResetTestRoot(dir, testName string) (*Config, error) {
	// create a unique, concurrency-safe test directory under os.TempDir()
	rootDir, err := os.MkdirTemp(dir, fmt.Sprintf("%s_", testName))
	if err != nil {
		return nil, err
	}
	// ensure config and data subdirs are created
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultConfigDir), defaultDirPerm); err != nil {
		return nil, err
	}
	if err := tmos.EnsureDir(filepath.Join(rootDir, defaultDataDir), defaultDirPerm); err != nil {
		return nil, err
	}

	// Write default config file if missing.
	if err := writeDefaultConfigFileIfNone(rootDir); err != nil {
		return nil, err
	}
	if _, err := WriteRulesFile(rootDir); err != nil {
		return nil, err
	}

	config := TestConfig().SetRoot(rootDir)
	return config, nil
}
