package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"llmproxy/internal/proxy"
)

const maxChatLine = 1 << 20

func newChatCommand(ctx *commandContext) *cobra.Command {
	var (
		model       string
		system      string
		sessionID   string
		temperature float64
		lastK       int
		newSession  bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation that keeps history in a session",
		Long: `Read queries line by line and send each one as a generation request.

Conversation history lives on the proxy under --session-id; --lastk controls
how many earlier turns it replays. Type "exit" or send EOF to quit.`,
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
			if strings.TrimSpace(model) == "" {
				model = cfg.Session.DefaultModel
			}
			switch {
			case newSession:
				if cmd.Flags().Changed("session-id") {
					return errors.New("--new-session and --session-id are mutually exclusive")
				}
				sessionID = "chat-" + uuid.NewString()
				fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", sessionID)
			case !cmd.Flags().Changed("session-id"):
				sessionID = cfg.Session.DefaultSessionID
			}

			in := cmd.InOrStdin()
			out := cmd.OutOrStdout()
			interactive := isTerminal(in)

			scanner := bufio.NewScanner(in)
			scanner.Buffer(make([]byte, 0, 64*1024), maxChatLine)
			for {
				if interactive {
					fmt.Fprint(cmd.ErrOrStderr(), "> ")
				}
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if strings.EqualFold(line, "exit") {
					return nil
				}

				req := proxy.NewGenerateRequest(model, system, line)
				req.SessionID = proxy.Ptr(sessionID)
				req.Temperature = proxy.Ptr(temperature)
				req.LastK = proxy.Ptr(lastK)

				result := client.Generate(ctx.requestContext(cmd), req)
				if err := printChatTurn(cmd, out, result); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&model, "model", "m", "", "Model name (defaults to session.default_model)")
	flags.StringVarP(&system, "system", "s", "", "System instructions")
	flags.StringVar(&sessionID, "session-id", "", "Session ID holding the conversation")
	flags.Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	flags.IntVar(&lastK, "lastk", 10, "Number of earlier turns the proxy includes")
	flags.BoolVar(&newSession, "new-session", false, "Start a conversation in a freshly generated session")
	return cmd
}

// printChatTurn prints the answer text, or the raw envelope when the response
// has no result field. Failed turns are reported on stderr and the loop goes on.
func printChatTurn(cmd *cobra.Command, out io.Writer, result proxy.Result) error {
	if err := result.Err(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		return nil
	}
	if answer, ok := resultText(result); ok {
		writeText(out, answer)
		return nil
	}
	return writeJSON(cmd, result)
}
