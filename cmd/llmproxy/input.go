package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// readInput returns inline text or the contents of path, where "-" reads
// stdin. Exactly one of the two must be supplied.
func readInput(cmd *cobra.Command, name, inline, path string) (string, error) {
	path = strings.TrimSpace(path)
	if inline != "" && path != "" {
		return "", fmt.Errorf("--%s and --%s-file are mutually exclusive", name, name)
	}
	if path == "" {
		if strings.TrimSpace(inline) == "" {
			return "", fmt.Errorf("--%s or --%s-file is required", name, name)
		}
		return inline, nil
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New(name + " is empty")
	}
	return string(data), nil
}

// optionalString maps a flag to an optional request field: unchanged flags
// and empty values are left unset.
func optionalString(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) || value == "" {
		return nil
	}
	return &value
}
