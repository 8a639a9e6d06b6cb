package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"llmproxy/internal/proxy"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// writeResult prints the result envelope as JSON and turns a failed result
// into the command error so the process exits non-zero.
func writeResult(cmd *cobra.Command, op string, result proxy.Result) error {
	if err := writeJSON(cmd, result); err != nil {
		return fmt.Errorf("write %s result: %w", op, err)
	}
	if err := result.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
