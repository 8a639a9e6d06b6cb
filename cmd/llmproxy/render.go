package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"llmproxy/internal/proxy"
	"llmproxy/internal/rag"
)

type outputFormat string

const (
	formatAuto  outputFormat = "auto"
	formatJSON  outputFormat = "json"
	formatTable outputFormat = "table"

	textColumnWidth = 96
)

// resolveFormat maps the --format flag to json or table. auto picks a table
// for terminals and JSON for pipes and files.
func resolveFormat(cmd *cobra.Command, value string) (outputFormat, error) {
	switch outputFormat(strings.ToLower(strings.TrimSpace(value))) {
	case "", formatAuto:
		if isTerminal(cmd.OutOrStdout()) {
			return formatTable, nil
		}
		return formatJSON, nil
	case formatJSON:
		return formatJSON, nil
	case formatTable:
		return formatTable, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use auto, json, or table)", value)
	}
}

func isTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderRetrieve(collections []rag.Collection) string {
	if len(collections) == 0 {
		return "No matching context."
	}
	rows := make([][]string, 0, len(collections)*3)
	for i, collection := range collections {
		rows = append(rows, []string{fmt.Sprintf("#%d", i+1), strings.TrimSpace(collection.DocSummary)})
		for j, chunk := range collection.Chunks {
			rows = append(rows, []string{fmt.Sprintf("#%d.%d", i+1, j+1), strings.TrimSpace(chunk)})
		}
	}
	return renderTable([]string{"Ref", "Text"}, rows, []int{0, textColumnWidth})
}

// renderModelInfo renders a JSON object as a field/value table. It reports
// false for payloads that are not objects.
func renderModelInfo(data any) (string, bool) {
	fields, ok := data.(map[string]any)
	if !ok {
		return "", false
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	titler := cases.Title(language.Und)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		label := titler.String(strings.ReplaceAll(key, "_", " "))
		rows = append(rows, []string{label, displayValue(fields[key])})
	}
	return renderTable([]string{"Field", "Value"}, rows, []int{0, textColumnWidth}), true
}

func displayValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return yesNo(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

// resultText extracts the generated text from a call response.
func resultText(result proxy.Result) (string, bool) {
	fields, ok := result.Data.(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := fields["result"].(string)
	return text, ok
}

func writeText(w io.Writer, text string) {
	_, _ = fmt.Fprintln(w, strings.TrimRight(text, "\n"))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
