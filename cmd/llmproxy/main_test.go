package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type recordedRequest struct {
	requestType string
	apiKey      string
	body        []byte
}

type fakeProxy struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(requestType string, body []byte) (int, string)
}

func (p *fakeProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	kind := r.Header.Get("request_type")
	p.mu.Lock()
	p.requests = append(p.requests, recordedRequest{requestType: kind, apiKey: r.Header.Get("x-api-key"), body: body})
	p.mu.Unlock()
	status, payload := p.respond(kind, body)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func (p *fakeProxy) recorded() []recordedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedRequest(nil), p.requests...)
}

func defaultResponder(kind string, _ []byte) (int, string) {
	switch kind {
	case "call":
		return http.StatusOK, `{"result": "hello there"}`
	case "retrieve":
		return http.StatusOK, `[{"doc_summary": "Handbook", "chunks": ["Vacation is 20 days."]}]`
	case "model_info":
		return http.StatusOK, `{"model_name": "4o-mini", "streaming": false}`
	case "add":
		return http.StatusOK, `{"status": "stored"}`
	default:
		return http.StatusBadRequest, `{"error": "unknown request type"}`
	}
}

// setupCLI starts a fake proxy and points the CLI at it through the
// environment, with HOME and the working directory isolated.
func setupCLI(t *testing.T) *fakeProxy {
	t.Helper()
	proxy := &fakeProxy{t: t, respond: defaultResponder}
	srv := httptest.NewServer(proxy)
	t.Cleanup(srv.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("LLMPROXY_ENDPOINT", srv.URL)
	t.Setenv("LLMPROXY_API_KEY", "cli-key")
	t.Setenv("LLMPROXY_TIMEOUT_SECONDS", "")
	os.Unsetenv("LLMPROXY_TIMEOUT_SECONDS")
	t.Chdir(t.TempDir())
	return proxy
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return payload
}

func TestGenerateCommandPrintsPayload(t *testing.T) {
	proxy := setupCLI(t)

	out, err := runCLI(t, "", "generate", "--query", "hi", "--temperature", "0.2")
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	var printed map[string]any
	if err := json.Unmarshal([]byte(out), &printed); err != nil || printed["result"] != "hello there" {
		t.Fatalf("unexpected output %q (%v)", out, err)
	}

	reqs := proxy.recorded()
	if len(reqs) != 1 || reqs[0].requestType != "call" || reqs[0].apiKey != "cli-key" {
		t.Fatalf("unexpected requests: %+v", reqs)
	}
	body := decodeBody(t, reqs[0].body)
	if body["model"] != "4o-mini" || body["session_id"] != "GenericSession" || body["temperature"] != 0.2 {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["lastk"]; ok {
		t.Fatalf("lastk should be omitted: %v", body)
	}
}

func TestGenerateCommandOmitAndText(t *testing.T) {
	proxy := setupCLI(t)

	out, err := runCLI(t, "", "generate", "-q", "hi", "--omit", "rag_k,session_id", "--text")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if strings.TrimSpace(out) != "hello there" {
		t.Fatalf("output = %q", out)
	}
	body := decodeBody(t, proxy.recorded()[0].body)
	if _, ok := body["rag_k"]; ok {
		t.Fatalf("rag_k should be omitted: %v", body)
	}
	if _, ok := body["session_id"]; ok {
		t.Fatalf("session_id should be omitted: %v", body)
	}

	if _, err := runCLI(t, "", "generate", "-q", "hi", "--omit", "bogus"); err == nil {
		t.Fatal("expected error for unknown --omit field")
	}
}

func TestGenerateCommandReportsFailure(t *testing.T) {
	proxy := setupCLI(t)
	proxy.respond = func(string, []byte) (int, string) {
		return http.StatusForbidden, `{"error": "invalid key"}`
	}

	out, err := runCLI(t, "", "generate", "-q", "hi")
	if err == nil || !strings.Contains(err.Error(), "HTTP 403: invalid key") {
		t.Fatalf("err = %v", err)
	}
	printed := decodeBody(t, []byte(out))
	if printed["error"] != "HTTP 403: invalid key" || printed["status_code"] != float64(403) {
		t.Fatalf("printed = %v", printed)
	}
}

func TestRetrieveCommandFormats(t *testing.T) {
	proxy := setupCLI(t)

	out, err := runCLI(t, "", "retrieve", "-q", "vacation", "--format", "table")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	for _, want := range []string{"#1", "Handbook", "#1.1", "Vacation is 20 days."} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "", "retrieve", "-q", "vacation")
	if err != nil {
		t.Fatalf("retrieve json: %v", err)
	}
	var list []map[string]any
	if err := json.Unmarshal([]byte(out), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected JSON list when not a terminal, got %q", out)
	}

	body := decodeBody(t, proxy.recorded()[0].body)
	if body["rag_k"] != float64(5) || body["rag_threshold"] != 0.5 || body["session_id"] != "GenericSession" {
		t.Fatalf("unexpected retrieve body: %v", body)
	}
}

func TestModelInfoCommandTable(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "", "model-info", "--format", "table")
	if err != nil {
		t.Fatalf("model-info: %v", err)
	}
	if !strings.Contains(out, "Model Name") || !strings.Contains(out, "4o-mini") || !strings.Contains(out, "no") {
		t.Fatalf("unexpected table:\n%s", out)
	}
}

func TestUploadFileCommandSummarizesFailures(t *testing.T) {
	proxy := setupCLI(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(good, []byte("%PDF"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	missing := filepath.Join(dir, "missing.pdf")

	out, err := runCLI(t, "", "upload-file", good, missing, "--parallel", "2", "--format", "json", "--session-id", "Docs")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 uploads failed") {
		t.Fatalf("err = %v", err)
	}
	var outcomes []struct {
		Path   string         `json:"path"`
		Result map[string]any `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &outcomes); err != nil {
		t.Fatalf("decode summary %q: %v", out, err)
	}
	if len(outcomes) != 2 || outcomes[0].Path != good || outcomes[0].Result["status"] != "stored" {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	if outcomes[1].Result["error"] != "File not found: "+missing {
		t.Fatalf("unexpected failure outcome: %+v", outcomes[1])
	}
	if reqs := proxy.recorded(); len(reqs) != 1 || reqs[0].requestType != "add" {
		t.Fatalf("expected one add request, got %+v", reqs)
	}
}

func TestUploadTextCommand(t *testing.T) {
	proxy := setupCLI(t)

	out, err := runCLI(t, "meeting notes", "upload-text", "--text-file", "-", "--description", "notes")
	if err != nil {
		t.Fatalf("upload-text: %v\n%s", err, out)
	}
	reqs := proxy.recorded()
	if len(reqs) != 1 || reqs[0].requestType != "add" {
		t.Fatalf("unexpected requests: %+v", reqs)
	}
	body := string(reqs[0].body)
	for _, want := range []string{`"description":"notes"`, `"strategy":"smart"`, "meeting notes", "application/text"} {
		if !strings.Contains(body, want) {
			t.Fatalf("multipart body missing %q:\n%s", want, body)
		}
	}

	if _, err := runCLI(t, "", "upload-text"); err == nil {
		t.Fatal("expected error without text")
	}
}

func TestAskCommandAugmentsQuery(t *testing.T) {
	proxy := setupCLI(t)

	out, err := runCLI(t, "", "ask", "-q", "How long is vacation?", "--context-session", "HR", "--text")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if strings.TrimSpace(out) != "hello there" {
		t.Fatalf("output = %q", out)
	}
	reqs := proxy.recorded()
	if len(reqs) != 2 || reqs[0].requestType != "retrieve" || reqs[1].requestType != "call" {
		t.Fatalf("unexpected requests: %+v", reqs)
	}
	if decodeBody(t, reqs[0].body)["session_id"] != "HR" {
		t.Fatalf("retrieve should target the context session")
	}
	call := decodeBody(t, reqs[1].body)
	query, _ := call["query"].(string)
	if !strings.HasPrefix(query, "How long is vacation?\n") || !strings.Contains(query, "#1.1 Vacation is 20 days.") {
		t.Fatalf("query not augmented: %q", query)
	}
	if call["rag_usage"] != false || call["lastk"] != float64(0) {
		t.Fatalf("unexpected call body: %v", call)
	}
}

func TestChatCommandLoopsUntilExit(t *testing.T) {
	proxy := setupCLI(t)

	out, err := runCLI(t, "first\n\nsecond\nexit\nignored\n", "chat", "--session-id", "Chat1", "--lastk", "4")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.Count(out, "hello there") != 2 {
		t.Fatalf("expected two answers, got %q", out)
	}
	reqs := proxy.recorded()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(reqs))
	}
	body := decodeBody(t, reqs[1].body)
	if body["query"] != "second" || body["session_id"] != "Chat1" || body["lastk"] != float64(4) {
		t.Fatalf("unexpected chat body: %v", body)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	setupCLI(t)
	path := filepath.Join(t.TempDir(), "cfg", "config.toml")

	out, err := runCLI(t, "", "config", "init", "--path", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Fatalf("output should mention path: %q", out)
	}
	if _, err := runCLI(t, "", "config", "init", "--path", path); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
	if _, err := runCLI(t, "", "config", "init", "--path", path, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, err = runCLI(t, "", "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, "Config path: "+path) {
		t.Fatalf("unexpected validate output: %q", out)
	}
}

func TestMissingCredentialsFailBeforeRequests(t *testing.T) {
	setupCLI(t)
	os.Unsetenv("LLMPROXY_API_KEY")

	_, err := runCLI(t, "", "model-info")
	if err == nil || !strings.Contains(err.Error(), "LLMPROXY_API_KEY") {
		t.Fatalf("err = %v", err)
	}
}

func TestChatCommandNewSession(t *testing.T) {
	proxy := setupCLI(t)

	out, err := runCLI(t, "hi\n", "chat", "--new-session")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(out, "session: chat-") {
		t.Fatalf("expected generated session id in %q", out)
	}
	session, _ := decodeBody(t, proxy.recorded()[0].body)["session_id"].(string)
	if !strings.HasPrefix(session, "chat-") || !strings.Contains(out, session) {
		t.Fatalf("session_id = %q, output %q", session, out)
	}

	if _, err := runCLI(t, "", "chat", "--new-session", "--session-id", "x"); err == nil {
		t.Fatal("expected error combining --new-session and --session-id")
	}
}
