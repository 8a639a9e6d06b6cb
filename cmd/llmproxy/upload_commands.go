package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"llmproxy/internal/logging"
	"llmproxy/internal/proxy"
)

const maxUploadParallelism = 16

type uploadOutcome struct {
	Path   string       `json:"path"`
	Result proxy.Result `json:"result"`
}

func newUploadFileCommand(ctx *commandContext) *cobra.Command {
	var (
		sessionID   string
		mimeType    string
		description string
		strategy    string
		parallel    int
		format      string
	)

	cmd := &cobra.Command{
		Use:   "upload-file <path>...",
		Short: "Upload documents into a session",
		Long: `Upload one or more documents into a session.

The MIME type is inferred from the extension unless --mime-type is given:
.pdf files are sent as application/pdf, everything else as
application/octet-stream. With several paths, uploads run concurrently
(bounded by --parallel) and a summary is printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("session-id") {
				sessionID = cfg.Session.DefaultSessionID
			}
			if !cmd.Flags().Changed("strategy") {
				strategy = cfg.Session.DefaultStrategy
			}

			build := func(path string) proxy.UploadFileRequest {
				req := proxy.UploadFileRequest{
					Path:        path,
					SessionID:   sessionID,
					MIMEType:    mimeType,
					Description: optionalString(cmd, "description", description),
				}
				if strategy != "" {
					req.Strategy = proxy.Ptr(strategy)
				}
				return req
			}

			reqCtx := ctx.requestContext(cmd)
			if len(args) == 1 {
				return writeResult(cmd, "upload file", client.UploadFile(reqCtx, build(args[0])))
			}

			output, err := resolveFormat(cmd, format)
			if err != nil {
				return err
			}
			logger := logging.WithContext(reqCtx, ctx.logger)
			outcomes := uploadFiles(reqCtx, client, logger, args, parallel, build)
			if output == formatJSON {
				if err := writeJSON(cmd, outcomes); err != nil {
					return err
				}
			} else {
				writeText(cmd.OutOrStdout(), renderUploadSummary(outcomes))
			}
			if failed := countFailures(outcomes); failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(outcomes))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&sessionID, "session-id", "", "Session ID (defaults to session.default_session_id)")
	flags.StringVar(&mimeType, "mime-type", "", "MIME type for every file (inferred when empty)")
	flags.StringVarP(&description, "description", "d", "", "Document description")
	flags.StringVar(&strategy, "strategy", "", "Chunking strategy (defaults to session.default_strategy; empty omits it)")
	flags.IntVarP(&parallel, "parallel", "p", 1, "Maximum concurrent uploads")
	flags.StringVar(&format, "format", string(formatAuto), "Summary format for several files: auto, json, or table")
	return cmd
}

// uploadFiles runs the uploads with at most parallel in flight and returns
// the outcomes in argument order.
func uploadFiles(ctx context.Context, client *proxy.Client, logger *slog.Logger, paths []string, parallel int, build func(string) proxy.UploadFileRequest) []uploadOutcome {
	if parallel < 1 {
		parallel = 1
	}
	if parallel > maxUploadParallelism {
		parallel = maxUploadParallelism
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	outcomes := make([]uploadOutcome, len(paths))
	var group errgroup.Group
	group.SetLimit(parallel)
	for i, path := range paths {
		group.Go(func() error {
			result := client.UploadFile(ctx, build(path))
			outcomes[i] = uploadOutcome{Path: path, Result: result}
			if result.OK() {
				logger.Info("upload finished", logging.String("path", path))
			} else {
				logger.Warn("upload failed", logging.String("path", path), logging.Error(result.Err()))
			}
			return nil
		})
	}
	_ = group.Wait()
	return outcomes
}

func countFailures(outcomes []uploadOutcome) int {
	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Result.OK() {
			failed++
		}
	}
	return failed
}

func renderUploadSummary(outcomes []uploadOutcome) string {
	rows := make([][]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		status := "ok"
		detail := string(outcome.Result.Raw)
		if err := outcome.Result.Err(); err != nil {
			status = "failed"
			detail = err.Error()
		}
		rows = append(rows, []string{outcome.Path, status, detail})
	}
	return renderTable([]string{"Path", "Status", "Detail"}, rows, []int{0, 0, textColumnWidth})
}

func newUploadTextCommand(ctx *commandContext) *cobra.Command {
	var (
		text        string
		textFile    string
		sessionID   string
		description string
		strategy    string
	)

	cmd := &cobra.Command{
		Use:   "upload-text",
		Short: "Upload raw text into a session",
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
			content, err := readInput(cmd, "text", text, textFile)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("session-id") {
				sessionID = cfg.Session.DefaultSessionID
			}
			if !cmd.Flags().Changed("strategy") {
				strategy = cfg.Session.DefaultStrategy
			}

			req := proxy.UploadTextRequest{
				Text:        content,
				SessionID:   sessionID,
				Description: optionalString(cmd, "description", description),
			}
			if strategy != "" {
				req.Strategy = proxy.Ptr(strategy)
			}
			return writeResult(cmd, "upload text", client.UploadText(ctx.requestContext(cmd), req))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&text, "text", "t", "", "Text content to upload")
	flags.StringVar(&textFile, "text-file", "", "Read the text from a file (- for stdin)")
	flags.StringVar(&sessionID, "session-id", "", "Session ID (defaults to session.default_session_id)")
	flags.StringVarP(&description, "description", "d", "", "Document description")
	flags.StringVar(&strategy, "strategy", "", "Chunking strategy (defaults to session.default_strategy; empty omits it)")
	return cmd
}
