package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/peerbadge/badges/src/config"
	"github.com/peerbadge/badges/src/net/wamp"
	"github.com/spf13/cobra"
)

// NewRouterCmd runs a standalone WAMP router that nodes replicate through
// with --gossip-url.
func NewRouterCmd() *cobra.Command {
	var address, realm, certFile, keyFile, logLevel string

	cmd := &cobra.Command{
		Use:   "router",
		Short: "Run a gossip router without a node",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := NewDefaultCLIConfig()
			conf.Badges.LogLevel = logLevel
			logger := newLogger(conf).WithField("prefix", "router")

			server, err := wamp.NewServer(address, realm, certFile, keyFile, logger)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.Run() }()

			//Prepare sigCh to relay SIGINT and SIGTERM system calls
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case <-sigCh:
			case err := <-errCh:
				return err
			}

			server.Shutdown()

			return nil
		},
	}

	cmd.Flags().StringVarP(&address, "listen", "l", config.DefaultGossipAddr, "Listen IP:Port")
	cmd.Flags().StringVar(&realm, "realm", config.DefaultGossipRealm, "WAMP realm of the network")
	cmd.Flags().StringVar(&certFile, "cert", "", "TLS certificate")
	cmd.Flags().StringVar(&keyFile, "key", "", "TLS key")
	cmd.Flags().StringVar(&logLevel, "log", config.DefaultLogLevel, "debug, info, warn, error, fatal, panic")

	return cmd
}
