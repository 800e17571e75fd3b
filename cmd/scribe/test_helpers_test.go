package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/chunk"
	"scribe/internal/config"
	"scribe/internal/reconcile"
	"scribe/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	stt        *testsupport.SpeechToText
	completion *testsupport.Completion
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SCRIBE_LLM_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	configPath := filepath.Join(homeDir, ".config", "scribe", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		stt:        testsupport.NewSpeechToText(),
		completion: &testsupport.Completion{},
	}

	prevSTT, prevLLM := newSpeechToText, newTextCompletion
	newSpeechToText = func(*config.Config) (chunk.SpeechToText, error) { return env.stt, nil }
	newTextCompletion = func(*config.Config) (reconcile.TextCompletion, string) { return env.completion, "test-model" }
	t.Cleanup(func() {
		newSpeechToText, newTextCompletion = prevSTT, prevLLM
	})

	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\naudio_dir = %q\nlog_dir = %q\n\n"+
			"[speech]\napi_key = %q\n\n"+
			"[llm]\napi_key = %q\n\n"+
			"[pipeline]\nworkers = 2\nchunk_timeout_ms = %d\ncorrect = false\n\n"+
			"[logging]\nlevel = \"error\"\n",
		cfg.Paths.DataDir,
		cfg.Paths.AudioDir,
		cfg.Paths.LogDir,
		cfg.Speech.APIKey,
		cfg.LLM.APIKey,
		cfg.Pipeline.ChunkTimeoutMS,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeChunks creates one file per payload and returns their paths in order.
func (e *cliTestEnv) writeChunks(t *testing.T, payloads ...string) []string {
	t.Helper()
	return testsupport.WriteChunks(t, filepath.Join(e.baseDir, "chunks"), payloads...)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
