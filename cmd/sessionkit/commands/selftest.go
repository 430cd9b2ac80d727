package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sessionkit/internal/app"
)

const selfTestPassphrase = "Self-Test-Passphrase-1!"

func selfTestCmd() *cobra.Command {
	var noOPK bool
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run a local handshake between two throwaway identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.MkdirTemp("", "sessionkit-selftest-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dir)

			cfg := wire.Config
			cfg.Keystore.ScryptN = 1 << 10
			res, err := app.RunSelfTest(cfg, dir, selfTestPassphrase, !noOPK)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s <-> %s (one-time pre-key: %t)\n",
				res.InitiatorFingerprint, res.ResponderFingerprint, res.OneTimePreKeyID != "")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noOPK, "no-one-time-pre-key", false, "run the handshake without a one-time pre-key")
	return cmd
}
