package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"llmproxy/internal/proxy"
	"llmproxy/internal/rag"
)

func newRetrieveCommand(ctx *commandContext) *cobra.Command {
	var (
		query        string
		queryFile    string
		sessionID    string
		ragThreshold float64
		ragK         int
		format       string
	)

	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Retrieve RAG context for a query from a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			text, err := readInput(cmd, "query", query, queryFile)
			if err != nil {
				return err
			}
			output, err := resolveFormat(cmd, format)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("session-id") {
				sessionID = cfg.Session.DefaultSessionID
			}

			result := client.Retrieve(ctx.requestContext(cmd), proxy.RetrieveRequest{
				Query:        text,
				SessionID:    sessionID,
				RAGThreshold: ragThreshold,
				RAGK:         ragK,
			})
			if output == formatJSON || !result.OK() {
				return writeResult(cmd, "retrieve", result)
			}
			collections, err := rag.ParseContext(result)
			if err != nil {
				// Unrecognized shape: show the payload as-is.
				return writeResult(cmd, "retrieve", result)
			}
			writeText(cmd.OutOrStdout(), renderRetrieve(collections))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&query, "query", "q", "", "Query text")
	flags.StringVar(&queryFile, "query-file", "", "Read the query from a file (- for stdin)")
	flags.StringVar(&sessionID, "session-id", "", "Session ID (defaults to session.default_session_id)")
	flags.Float64Var(&ragThreshold, "rag-threshold", proxy.DefaultRAGThreshold, "Similarity threshold")
	flags.IntVar(&ragK, "rag-k", proxy.DefaultRAGK, "Maximum number of chunks")
	flags.StringVar(&format, "format", string(formatAuto), "Output format: auto, json, or table")
	return cmd
}
