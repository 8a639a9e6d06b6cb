package main

import (
	"github.com/spf13/cobra"
)

func newModelInfoCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "model-info",
		Short: "Show the models and settings reported by the proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			output, err := resolveFormat(cmd, format)
			if err != nil {
				return err
			}

			result := client.ModelInfo(ctx.requestContext(cmd))
			if output == formatTable && result.OK() {
				if rendered, ok := renderModelInfo(result.Data); ok {
					writeText(cmd.OutOrStdout(), rendered)
					return nil
				}
			}
			return writeResult(cmd, "model info", result)
		},
	}

	cmd.Flags().StringVar(&format, "format", string(formatAuto), "Output format: auto, json, or table")
	return cmd
}
