package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"llmproxy/internal/proxy"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		model        string
		system       string
		query        string
		queryFile    string
		sessionID    string
		temperature  float64
		lastK        int
		ragThreshold float64
		ragUsage     bool
		ragK         int
		omit         []string
		textOnly     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Send a generation (call) request",
		Long: `Send a generation request to the proxy and print the JSON response.

session_id, rag_threshold, rag_usage and rag_k are sent with their defaults
unless listed in --omit. temperature and lastk are only sent when set.`,
		Args: cobra.NoArgs,
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
			if strings.TrimSpace(model) == "" {
				model = cfg.Session.DefaultModel
			}

			req := proxy.NewGenerateRequest(model, system, text)
			req.SessionID = proxy.Ptr(cfg.Session.DefaultSessionID)
			flags := cmd.Flags()
			if flags.Changed("session-id") {
				req.SessionID = proxy.Ptr(sessionID)
			}
			if flags.Changed("temperature") {
				req.Temperature = proxy.Ptr(temperature)
			}
			if flags.Changed("lastk") {
				req.LastK = proxy.Ptr(lastK)
			}
			if flags.Changed("rag-threshold") {
				req.RAGThreshold = proxy.Ptr(ragThreshold)
			}
			if flags.Changed("rag-usage") {
				req.RAGUsage = proxy.Ptr(ragUsage)
			}
			if flags.Changed("rag-k") {
				req.RAGK = proxy.Ptr(ragK)
			}
			if err := omitFields(&req, omit); err != nil {
				return err
			}

			result := client.Generate(ctx.requestContext(cmd), req)
			if textOnly {
				if answer, ok := resultText(result); ok {
					writeText(cmd.OutOrStdout(), answer)
					return nil
				}
			}
			return writeResult(cmd, "generate", result)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&model, "model", "m", "", "Model name (defaults to session.default_model)")
	flags.StringVarP(&system, "system", "s", "", "System instructions")
	flags.StringVarP(&query, "query", "q", "", "Query text")
	flags.StringVar(&queryFile, "query-file", "", "Read the query from a file (- for stdin)")
	flags.StringVar(&sessionID, "session-id", "", "Session ID (defaults to session.default_session_id)")
	flags.Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	flags.IntVar(&lastK, "lastk", 0, "Number of previous turns of the session to include")
	flags.Float64Var(&ragThreshold, "rag-threshold", proxy.DefaultRAGThreshold, "Similarity threshold for RAG context")
	flags.BoolVar(&ragUsage, "rag-usage", false, "Use RAG context from the session")
	flags.IntVar(&ragK, "rag-k", proxy.DefaultRAGK, "Number of RAG chunks to retrieve")
	flags.StringSliceVar(&omit, "omit", nil, "Fields to leave out of the request (session_id, rag_threshold, rag_usage, rag_k, temperature, lastk)")
	flags.BoolVar(&textOnly, "text", false, "Print only the generated text when the response has a result field")
	return cmd
}

func omitFields(req *proxy.GenerateRequest, fields []string) error {
	for _, field := range fields {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "":
		case "session_id":
			req.SessionID = nil
		case "rag_threshold":
			req.RAGThreshold = nil
		case "rag_usage":
			req.RAGUsage = nil
		case "rag_k":
			req.RAGK = nil
		case "temperature":
			req.Temperature = nil
		case "lastk":
			req.LastK = nil
		default:
			return fmt.Errorf("--omit: unknown field %q", field)
		}
	}
	return nil
}
