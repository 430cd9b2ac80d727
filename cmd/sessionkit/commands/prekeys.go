package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func preKeysCmd() *cobra.Command {
	var (
		count int
		out   string
	)
	cmd := &cobra.Command{
		Use:   "prekeys",
		Short: "Generate a signed pre-key and one-time pre-keys, then print the bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("count") {
				count = wire.Config.PreKeys.OneTimeCount
			}
			spkID, opkIDs, err := wire.PreKeys.GenerateAndStorePreKeys(passphrase, count)
			if err != nil {
				return err
			}
			bundle, err := wire.PreKeys.LoadPreKeyBundle(passphrase)
			if err != nil {
				return err
			}
			if err := writeJSON(cmd, out, bundle); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Signed pre-key %s, %d one-time pre-keys generated.\n", spkID, len(opkIDs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of one-time pre-keys (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the bundle to a file instead of stdout")
	return cmd
}
