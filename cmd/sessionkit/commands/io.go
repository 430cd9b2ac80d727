package commands

import (
	"encoding/json"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// readJSON decodes the file at path into v.
func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return oops.In("cli").With("path", path).Wrap(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return oops.In("cli").With("path", path).Wrapf(err, "decoding")
	}
	return nil
}

// writeJSON encodes v to path, or to the command's stdout when path is empty.
func writeJSON(cmd *cobra.Command, path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return oops.In("cli").Wrap(err)
	}
	raw = append(raw, '\n')
	if path == "" {
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return oops.In("cli").With("path", path).Wrap(err)
	}
	return nil
}
