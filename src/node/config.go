package node

import (
	"testing"

	"github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Config holds the settings of a Node.
type Config struct {
	Policy   validation.Policy
	Logger   *logrus.Logger
	Registry prometheus.Registerer
}

// NewConfig returns a Config.
func NewConfig(policy validation.Policy, logger *logrus.Logger, registry prometheus.Registerer) *Config {
	return &Config{
		Policy:   policy,
		Logger:   logger,
		Registry: registry,
	}
}

// DefaultConfig returns the canonical rule set, a debug logger and a private
// metrics registry.
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel
	return NewConfig(validation.Policy{}, logger, prometheus.NewRegistry())
}

// TestConfig returns a Config that logs through t.
func TestConfig(t testing.TB) *Config {
	return NewConfig(validation.Policy{}, common.NewTestLogger(t, logrus.DebugLevel), prometheus.NewRegistry())
}
