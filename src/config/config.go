package config

import (
	"crypto/ecdsa"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/validation"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the agent's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"
)

// Default configuration values.
const (
	DefaultLogLevel                = "debug"
	DefaultServiceAddr             = "127.0.0.1:8000"
	DefaultGossipAddr              = "127.0.0.1:2443"
	DefaultGossipRealm             = "badges"
	DefaultGRPCAddr                = "127.0.0.1:9000"
	DefaultResponseTimeout         = 5000 * time.Millisecond
	DefaultCacheSize               = 10000
	DefaultStore                   = false
	DefaultRequireCreatorSignature = false
	DefaultStrictCreatorLinks      = false
	DefaultAllowForeignAssertions  = false
	DefaultLegacyBadges            = false
)

// Config contains all the configuration properties of a badges node.
type Config struct {
	// DataDir is the top-level directory containing the configuration and
	// data of the node
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, also writes info and debug logs to files with this
	// prefix.
	LogFile string `mapstructure:"log-file"`

	// Moniker is the nick recorded in the agent's identity entry.
	Moniker string `mapstructure:"moniker"`

	// Store activates persistant storage.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// CacheSize sizes the in-memory maps of the store.
	CacheSize int `mapstructure:"cache-size"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// GossipAddr is the address:port where this node serves a WAMP router
	// for replication. Leave empty to not run a router.
	GossipAddr string `mapstructure:"gossip-listen"`

	// GossipURL is the websocket URL of the WAMP router to replicate through.
	// When empty and GossipAddr is set, the node connects to its own router.
	GossipURL string `mapstructure:"gossip-url"`

	// GossipRealm is the WAMP realm shared by the peers of a network.
	GossipRealm string `mapstructure:"gossip-realm"`

	// GossipCertFile and GossipKeyFile enable TLS on the WAMP router.
	GossipCertFile string `mapstructure:"gossip-cert"`
	GossipKeyFile  string `mapstructure:"gossip-key"`

	// GossipCAFile is a PEM bundle used to verify a remote router.
	GossipCAFile string `mapstructure:"gossip-ca"`

	// NoGossip disables replication.
	NoGossip bool `mapstructure:"no-gossip"`

	// GRPCAddr is the address:port of the gRPC entry service. Leave empty to
	// disable it.
	GRPCAddr string `mapstructure:"grpc-listen"`

	// ResponseTimeout bounds remote calls.
	ResponseTimeout time.Duration `mapstructure:"timeout"`

	// RequireCreatorSignature rejects badge classes not signed by their
	// creator.
	RequireCreatorSignature bool `mapstructure:"require-creator-signature"`

	// StrictCreatorLinks checks creator->badge_class links against the class.
	StrictCreatorLinks bool `mapstructure:"strict-creator-links"`

	// AllowForeignAssertions accepts assertions outside the recipient's chain.
	AllowForeignAssertions bool `mapstructure:"allow-foreign-assertions"`

	// LegacyBadges enables the mutable badge workflow.
	LegacyBadges bool `mapstructure:"legacy-badges"`

	// Key is the private key of the agent.
	Key *ecdsa.PrivateKey

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:                 DefaultDataDir(),
		LogLevel:                DefaultLogLevel,
		ServiceAddr:             DefaultServiceAddr,
		GossipAddr:              DefaultGossipAddr,
		GossipRealm:             DefaultGossipRealm,
		GRPCAddr:                DefaultGRPCAddr,
		ResponseTimeout:         DefaultResponseTimeout,
		CacheSize:               DefaultCacheSize,
		Store:                   DefaultStore,
		DatabaseDir:             DefaultDatabaseDir(),
		RequireCreatorSignature: DefaultRequireCreatorSignature,
		StrictCreatorLinks:      DefaultStrictCreatorLinks,
		AllowForeignAssertions:  DefaultAllowForeignAssertions,
		LegacyBadges:            DefaultLegacyBadges,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests. Network services are disabled.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.DataDir = ""
	config.DatabaseDir = ""
	config.NoService = true
	config.NoGossip = true
	config.GossipAddr = ""
	config.GRPCAddr = ""
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// Policy returns the validation rules selected by the configuration.
func (c *Config) Policy() validation.Policy {
	return validation.Policy{
		RequireCreatorSignature: c.RequireCreatorSignature,
		StrictCreatorLinks:      c.StrictCreatorLinks,
		AllowForeignAssertions:  c.AllowForeignAssertions,
	}
}

// SetLogger replaces the logger returned by Logger.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// Logger returns a formatted logrus Entry, with prefix set to "badges".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "badges")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir returns the default data directory for the OS: ~/.badges,
// ~/Library/Badges on macOS and %APPDATA%/Badges on Windows. It is empty when
// no home directory can be found.
func DefaultDataDir() string {
	home := HomeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Badges")
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Badges")
	default:
		return filepath.Join(home, ".badges")
	}
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level. Unknown levels map to
// debug.
func LogLevel(l string) logrus.Level {
	level, err := logrus.ParseLevel(l)
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}
