package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/peerbadge/badges/src/engine"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a badges node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runBadges,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runBadges(cmd *cobra.Command, args []string) error {
	e := engine.NewEngine(&_config.Badges)

	if err := e.Init(); err != nil {
		_config.Badges.Logger().WithError(err).Error("Cannot initialize engine")
		return err
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		e.Shutdown()
	}()

	return e.Run()
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Badges.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Badges.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Badges.LogFile, "Prefix of the info and debug log files")
	cmd.Flags().Bool("discard", _config.Discard, "Only log to files when --log-file is set")
	cmd.Flags().String("moniker", _config.Badges.Moniker, "Nick recorded in the agent identity")

	// Store
	cmd.Flags().Bool("store", _config.Badges.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.Badges.DatabaseDir, "Dabatabase directory")
	cmd.Flags().Int("cache-size", _config.Badges.CacheSize, "Capacity hint of the in-memory store")

	// Service
	cmd.Flags().Bool("no-service", _config.Badges.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Badges.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().String("grpc-listen", _config.Badges.GRPCAddr, "Listen IP:Port for the gRPC entry service. Empty to disable")

	// Gossip
	cmd.Flags().Bool("no-gossip", _config.Badges.NoGossip, "Disable replication")
	cmd.Flags().StringP("gossip-listen", "l", _config.Badges.GossipAddr, "Listen IP:Port for the WAMP router. Empty to not run one")
	cmd.Flags().StringP("gossip-url", "g", _config.Badges.GossipURL, "Websocket URL of a remote WAMP router")
	cmd.Flags().String("gossip-realm", _config.Badges.GossipRealm, "WAMP realm of the network")
	cmd.Flags().String("gossip-cert", _config.Badges.GossipCertFile, "TLS certificate of the WAMP router")
	cmd.Flags().String("gossip-key", _config.Badges.GossipKeyFile, "TLS key of the WAMP router")
	cmd.Flags().String("gossip-ca", _config.Badges.GossipCAFile, "CA bundle to verify the remote WAMP router")
	cmd.Flags().DurationP("timeout", "t", _config.Badges.ResponseTimeout, "Timeout of remote calls")

	// Validation rules
	cmd.Flags().Bool("require-creator-signature", _config.Badges.RequireCreatorSignature, "Reject badge classes not signed by their creator")
	cmd.Flags().Bool("strict-creator-links", _config.Badges.StrictCreatorLinks, "Check creator links against the badge class")
	cmd.Flags().Bool("allow-foreign-assertions", _config.Badges.AllowForeignAssertions, "Accept assertions committed outside their recipient's chain")
	cmd.Flags().Bool("legacy-badges", _config.Badges.LegacyBadges, "Enable the mutable badge workflow")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Badges.SetDataDir(_config.Badges.DataDir)

	_config.Badges.SetLogger(newLogger(_config))

	logFields := logrus.Fields{
		"badges.DataDir":                 _config.Badges.DataDir,
		"badges.LogLevel":                _config.Badges.LogLevel,
		"badges.Moniker":                 _config.Badges.Moniker,
		"badges.Store":                   _config.Badges.Store,
		"badges.ServiceAddr":             _config.Badges.ServiceAddr,
		"badges.GRPCAddr":                _config.Badges.GRPCAddr,
		"badges.GossipAddr":              _config.Badges.GossipAddr,
		"badges.GossipURL":               _config.Badges.GossipURL,
		"badges.GossipRealm":             _config.Badges.GossipRealm,
		"badges.ResponseTimeout":         _config.Badges.ResponseTimeout,
		"badges.RequireCreatorSignature": _config.Badges.RequireCreatorSignature,
		"badges.StrictCreatorLinks":      _config.Badges.StrictCreatorLinks,
		"badges.AllowForeignAssertions":  _config.Badges.AllowForeignAssertions,
		"badges.LegacyBadges":            _config.Badges.LegacyBadges,
	}

	if _config.Badges.Store {
		logFields["badges.DatabaseDir"] = _config.Badges.DatabaseDir
		logFields["badges.CacheSize"] = _config.Badges.CacheSize
	}

	_config.Badges.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/badges.toml (.json, .yaml also work)
	viper.SetConfigName("badges")
	viper.AddConfigPath(_config.Badges.DataDir)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Badges.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Badges.Logger().Debugf("No config file found in: %s", _config.Badges.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
