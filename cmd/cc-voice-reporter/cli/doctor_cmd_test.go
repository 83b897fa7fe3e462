package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mizunashi-mana/cc-voice-reporter/cmd/cc-voice-reporter/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTTS_ConfiguredCommandPasses(t *testing.T) {
	var buf bytes.Buffer
	ok := checkTTS(&buf, config.Config{Speaker: config.Speaker{Command: []string{"/usr/bin/say"}}})
	assert.True(t, ok)
	assert.Contains(t, buf.String(), "[ OK ]")
}

func TestCheckTTS_NoneConfiguredAndNoneOnPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	var buf bytes.Buffer
	ok := checkTTS(&buf, config.Config{})
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "[FAIL]")
}

func newTagsServer(t *testing.T, model string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"` + model + `"}]}`))
	}))
}

func TestCheckOllama_ReachableWithModel(t *testing.T) {
	srv := newTagsServer(t, "llama3")
	defer srv.Close()

	var buf bytes.Buffer
	ok := checkOllama(context.Background(), &buf, config.Config{Ollama: config.Ollama{BaseURL: srv.URL}})
	assert.True(t, ok)
	assert.Contains(t, buf.String(), "llama3")
}

func TestCheckOllama_Unreachable(t *testing.T) {
	var buf bytes.Buffer
	ok := checkOllama(context.Background(), &buf, config.Config{Ollama: config.Ollama{BaseURL: "http://127.0.0.1:1"}})
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "[FAIL]")
}

func TestCheckProjectsDir_Exists(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	ok := checkProjectsDir(&buf, config.Config{ProjectsDir: dir})
	assert.True(t, ok)
}

func TestCheckProjectsDir_Missing(t *testing.T) {
	var buf bytes.Buffer
	ok := checkProjectsDir(&buf, config.Config{ProjectsDir: "/nonexistent/does-not-exist"})
	require.False(t, ok)
	assert.Contains(t, buf.String(), "[FAIL]")
}
