package commands

import (
	"io"

	"github.com/peerbadge/badges/src/config"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for badges
var RootCmd = &cobra.Command{
	Use:              "badges",
	Short:            "peer-to-peer badges",
	TraverseChildren: true,
}

// newLogger builds the node logger. When a log file prefix is configured, info
// and debug entries are also written to <prefix>_info.log and
// <prefix>_debug.log.
func newLogger(conf *CLIConfig) *logrus.Logger {
	logger := logrus.New()
	logger.Level = config.LogLevel(conf.Badges.LogLevel)
	logger.Formatter = new(prefixed.TextFormatter)

	if conf.Badges.LogFile == "" {
		return logger
	}

	pathMap := lfshook.PathMap{
		logrus.InfoLevel:  conf.Badges.LogFile + "_info.log",
		logrus.DebugLevel: conf.Badges.LogFile + "_debug.log",
	}

	if conf.Discard {
		logger.Out = io.Discard
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{},
	))

	return logger
}
