package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// addJSONFlag registers --json on cmd; subject names what gets printed.
func addJSONFlag(cmd *cobra.Command, target *bool, subject string) {
	cmd.Flags().BoolVar(target, "json", false, "Print "+subject+" as JSON")
}

// writeJSON prints an API document as indented JSON, the form scripts and the
// HTTP API share.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
