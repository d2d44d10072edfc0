package commands

import (
	"github.com/peerbadge/badges/src/config"
)

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Badges  config.Config `mapstructure:",squash"`
	Discard bool          `mapstructure:"discard"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Badges:  *config.NewDefaultConfig(),
		Discard: false,
	}
}
