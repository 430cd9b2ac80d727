package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sessionkit/internal/domain"
	"sessionkit/internal/session"
)

func initiateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "initiate <bundle.json>",
		Short: "Establish an X3DH session from a peer's pre-key bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			var bundle domain.PreKeyBundle
			if err := readJSON(args[0], &bundle); err != nil {
				return err
			}
			rec := session.NewRecord(nil)
			msg, err := wire.Sessions.InitiateSession(passphrase, rec, bundle)
			if err != nil {
				return err
			}
			defer rec.State().Wipe()
			if err := writeJSON(cmd, out, msg); err != nil {
				return err
			}
			printSummary(cmd.ErrOrStderr(), rec.State(), msg.OneTimePreKeyID != "")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the pre-key message to a file instead of stdout")
	return cmd
}

func respondCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "respond <message.json>",
		Short: "Complete an X3DH session from a peer's pre-key message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			var msg domain.PreKeyMessage
			if err := readJSON(args[0], &msg); err != nil {
				return err
			}
			rec := session.NewRecord(nil)
			if err := wire.Sessions.RespondSession(passphrase, rec, msg); err != nil {
				return err
			}
			defer rec.State().Wipe()
			printSummary(cmd.OutOrStdout(), rec.State(), msg.OneTimePreKeyID != "")
			return nil
		},
	}
}

func printSummary(w io.Writer, s *session.State, usedOPK bool) {
	fmt.Fprintf(w, "Session established (version %d).\nPeer fingerprint: %s\nOne-time pre-key used: %t\n",
		s.Version(), domain.Fingerprint(s.RemoteIdentity().Fingerprint()), usedOPK)
}
