package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"llmproxy/internal/logging"
	"llmproxy/internal/proxy"
	"llmproxy/internal/rag"
)

func newAskCommand(ctx *commandContext) *cobra.Command {
	var (
		query           string
		queryFile       string
		contextSession  string
		ragThreshold    float64
		ragK            int
		model           string
		system          string
		generateSession string
		temperature     float64
		textOnly        bool
	)

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Retrieve context from one session and generate an answer with it",
		Long: `Retrieve documents matching the query from --context-session, append them
to the query as numbered context, and send the augmented query as a
generation request in --session-id with rag_usage disabled.`,
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
			if !cmd.Flags().Changed("context-session") {
				contextSession = cfg.Session.DefaultSessionID
			}
			if !cmd.Flags().Changed("session-id") {
				generateSession = cfg.Session.DefaultSessionID
			}

			reqCtx := ctx.requestContext(cmd)
			logger := logging.WithContext(reqCtx, ctx.logger)

			retrieved := client.Retrieve(reqCtx, proxy.RetrieveRequest{
				Query:        text,
				SessionID:    contextSession,
				RAGThreshold: ragThreshold,
				RAGK:         ragK,
			})
			if !retrieved.OK() {
				return writeResult(cmd, "retrieve", retrieved)
			}
			collections, err := rag.ParseContext(retrieved)
			if err != nil {
				return err
			}
			logger.Debug("retrieved context",
				logging.String(logging.FieldSessionID, contextSession),
				logging.Int("documents", len(collections)),
			)

			req := proxy.NewGenerateRequest(model, system, rag.AugmentQuery(text, collections))
			req.SessionID = proxy.Ptr(generateSession)
			req.Temperature = proxy.Ptr(temperature)
			req.LastK = proxy.Ptr(0)
			req.RAGUsage = proxy.Ptr(false)

			result := client.Generate(reqCtx, req)
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
	flags.StringVarP(&query, "query", "q", "", "Question to answer")
	flags.StringVar(&queryFile, "query-file", "", "Read the question from a file (- for stdin)")
	flags.StringVar(&contextSession, "context-session", "", "Session holding the uploaded documents")
	flags.Float64Var(&ragThreshold, "rag-threshold", proxy.DefaultRAGThreshold, "Similarity threshold for retrieval")
	flags.IntVar(&ragK, "rag-k", proxy.DefaultRAGK, "Maximum number of chunks to retrieve")
	flags.StringVarP(&model, "model", "m", "", "Model name (defaults to session.default_model)")
	flags.StringVarP(&system, "system", "s", "", "System instructions")
	flags.StringVar(&generateSession, "session-id", "", "Session used for the generation request")
	flags.Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	flags.BoolVar(&textOnly, "text", false, "Print only the generated text when the response has a result field")
	return cmd
}
