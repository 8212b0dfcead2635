// End-to-end tests for blogsmith: CLI → config → provider selection →
// pipeline → output files, against a mocked local inference server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/hpn/hpn-blog-pipeline/internal/config"
)

func init() {
	color.NoColor = true
}

// ============================================================================
// SETUP HELPERS
// ============================================================================

// mockLocalServer simulates an OpenAI-compatible local server. Replies are
// served in call order; failAt makes that call (1-based) return 500.
type mockLocalServer struct {
	*httptest.Server

	mu        sync.Mutex
	userTexts []string
	failAt    int
}

var stageReplies = []string{
	"1. Intro\n2. Table tests\n3. Fuzzing",
	"# Testing in Go\n\nDraft body.",
	"# Testing in Go\n\nEdited body.\n\n## Editor Notes\nTightened the intro.",
	"# Testing in Go\n\nLinted body.",
	"Here you go:\n```json\n{\"title\": \"Testing in Go\", \"metaDescription\": \"Table tests and fuzzing.\", \"tags\": [\"go\", \"testing\"], \"summary\": \"A tour.\"}\n```",
}

func newMockLocalServer(t *testing.T, failAt int) *mockLocalServer {
	t.Helper()
	m := &mockLocalServer{failAt: failAt}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		for _, msg := range body.Messages {
			if msg.Role == "user" {
				m.userTexts = append(m.userTexts, msg.Content)
			}
		}
		call := len(m.userTexts)
		m.mu.Unlock()

		if call == m.failAt {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": {"message": "model crashed"}}`))
			return
		}

		reply := stageReplies[(call-1)%len(stageReplies)]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "llama3:8b",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockLocalServer) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.userTexts...)
}

// clearProviderEnv hides provider settings of the host environment.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"USE_LOCAL_LLM", "LOCAL_LLM_ENDPOINT", "LOCAL_LLM_MODEL", "LOCAL_LLM_API_KEY",
		"GEMINI_API_KEY", "GEMINI_MODEL",
		"AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT", "AZURE_OPENAI_API_KEY",
		"OPENAI_API_KEY",
		"BLOGSMITH_PROVIDERS_LOCAL_ENABLED", "BLOGSMITH_PROVIDERS_GEMINI_API_KEY",
		"BLOGSMITH_PROVIDERS_AZURE_ENDPOINT", "BLOGSMITH_PROVIDERS_OPENAI_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, dir, providers string) string {
	t.Helper()
	path := filepath.Join(dir, "blogsmith.yaml")
	body := providers + fmt.Sprintf(`
output:
  dir: %s
logging:
  level: error
`, filepath.Join(dir, "posts"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func localProviders(endpoint string) string {
	return fmt.Sprintf(`providers:
  local:
    enabled: true
    endpoint: %s
    model: llama3
`, endpoint)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil))) })
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"blogsmith"}, args...), strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// ============================================================================
// GENERATE
// ============================================================================

func TestRun_GenerateFromRequestFile(t *testing.T) {
	clearProviderEnv(t)
	server := newMockLocalServer(t, 0)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, localProviders(server.URL))

	reqPath := filepath.Join(dir, "req.json")
	require.NoError(t, os.WriteFile(reqPath, []byte(`{"topic":"Testing in Go","targetAudience":"Gophers","wordCount":900,"author":"Ana"}`), 0o600))

	code, stdout, stderr := runCLI(t, "--config", cfgPath, "--no-banner", reqPath)
	require.Equal(t, exitOK, code, "stderr: %s", stderr)

	calls := server.calls()
	require.Len(t, calls, 5)
	require.Contains(t, calls[0], "Testing in Go")
	require.Contains(t, calls[0], "Gophers")
	require.Contains(t, calls[1], stageReplies[0])
	require.Contains(t, calls[3], "Edited body.")
	require.NotContains(t, calls[3], "Editor Notes", "notes must be stripped before lint")
	require.Contains(t, calls[4], "Linted body.")

	posts, err := filepath.Glob(filepath.Join(dir, "posts", "*-testing-in-go.md"))
	require.NoError(t, err)
	require.Len(t, posts, 1)

	data, err := os.ReadFile(posts[0])
	require.NoError(t, err)
	doc := string(data)
	require.Contains(t, doc, `title: "Testing in Go"`)
	require.Contains(t, doc, `author: "Ana"`)
	require.Contains(t, doc, `tags: ["go", "testing"]`)
	require.True(t, strings.HasSuffix(doc, "---\n\n# Testing in Go\n\nLinted body.\n"))

	sidecar, err := os.ReadFile(filepath.Join(dir, "posts", "seo-output.json"))
	require.NoError(t, err)
	require.Equal(t, stageReplies[4], string(sidecar))

	require.Contains(t, stdout, "[5/5]")
	require.Contains(t, stdout, "total:150")
	require.Contains(t, stdout, posts[0])
}

func TestRun_GenerateCommandWithFlags(t *testing.T) {
	clearProviderEnv(t)
	server := newMockLocalServer(t, 0)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, localProviders(server.URL))

	code, _, stderr := runCLI(t, "--config", cfgPath, "--no-banner", "generate", "--topic", "Flag topic", "-w", "300")
	require.Equal(t, exitOK, code, "stderr: %s", stderr)

	calls := server.calls()
	require.Len(t, calls, 5)
	require.Contains(t, calls[0], "Flag topic")
	require.Contains(t, calls[1], "300")
}

func TestRun_StageFailure(t *testing.T) {
	clearProviderEnv(t)
	server := newMockLocalServer(t, 2)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, localProviders(server.URL))

	code, stdout, _ := runCLI(t, "--config", cfgPath, "--no-banner", "--topic", "Doomed")
	require.Equal(t, exitRuntime, code)
	require.Len(t, server.calls(), 2, "no stage runs after a failure")
	require.Contains(t, stdout, "stage Write failed")

	posts, _ := filepath.Glob(filepath.Join(dir, "posts", "*.md"))
	require.Empty(t, posts, "no partial result is written")
}

// ============================================================================
// CONFIGURATION FAILURES
// ============================================================================

func TestRun_NoProviderConfigured(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")

	code, _, stderr := runCLI(t, "--config", cfgPath, "--no-banner", "--topic", "x")
	require.Equal(t, exitConfig, code)
	require.Contains(t, stderr, "no LLM provider configured")
}

func TestRun_LocalMissingModel(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GEMINI_API_KEY", "AIzaThisKeyMustNotBeUsedByTheSelector000")
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "providers:\n  local:\n    enabled: true\n    endpoint: http://127.0.0.1:1\n")

	code, _, stderr := runCLI(t, "--config", cfgPath, "--no-banner", "--topic", "x")
	require.Equal(t, exitConfig, code)
	require.Contains(t, stderr, "provider local is selected but missing required settings")
	require.NotContains(t, stderr, "AIzaThisKey")
}

func TestRun_MissingConfigFile(t *testing.T) {
	code, _, stderr := runCLI(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "--no-banner")
	require.Equal(t, exitConfig, code)
	require.Contains(t, stderr, "config read error")
}

func TestRun_NoTopic(t *testing.T) {
	clearProviderEnv(t)
	server := newMockLocalServer(t, 0)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, localProviders(server.URL))

	code, _, stderr := runCLI(t, "--config", cfgPath, "--no-banner")
	require.Equal(t, exitConfig, code)
	require.Contains(t, stderr, "topic is required")
	require.Empty(t, server.calls())
}

// ============================================================================
// HELPERS
// ============================================================================

func TestGenerationOptions(t *testing.T) {
	require.Nil(t, generationOptions(config.GenerationConfig{}))

	temp, k := 0.4, 20
	opts := generationOptions(config.GenerationConfig{Temperature: &temp, TopK: &k})
	require.NotNil(t, opts)
	require.Equal(t, 0.4, *opts.Temperature)
	require.Equal(t, 20, *opts.TopK)
	require.Nil(t, opts.TopP)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestIsInteractive(t *testing.T) {
	require.False(t, isInteractive(strings.NewReader("")))

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()
	require.False(t, isInteractive(f))
}
