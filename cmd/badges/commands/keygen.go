package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/peerbadge/badges/src/crypto/keys"
	"github.com/peerbadge/badges/src/engine"
	"github.com/spf13/cobra"
)

// NewKeygenCmd produces a KeygenCmd which create a key pair
func NewKeygenCmd() *cobra.Command {
	var privKeyFile, pubKeyFile string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create new key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := engine.Keygen(privKeyFile)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Your private key has been saved to: %s\n", privKeyFile)

			if err := os.MkdirAll(filepath.Dir(pubKeyFile), 0700); err != nil {
				return fmt.Errorf("writing public key: %s", err)
			}

			pub := keys.PublicKeyHex(&key.PublicKey)

			if err := os.WriteFile(pubKeyFile, []byte(pub), 0600); err != nil {
				return fmt.Errorf("writing public key: %s", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Your public key has been saved to: %s\n", pubKeyFile)

			return nil
		},
	}

	cmd.Flags().StringVar(&privKeyFile, "priv", _config.Badges.Keyfile(), "File where the private key will be written")
	cmd.Flags().StringVar(&pubKeyFile, "pub", filepath.Join(_config.Badges.DataDir, "key.pub"), "File where the public key will be written")

	return cmd
}
