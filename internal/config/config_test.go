package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"scribe/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "stt-key")
	t.Setenv("SCRIBE_LLM_API_KEY", "llm-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "scribe")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "scribe.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Speech.APIKey != "stt-key" {
		t.Fatalf("expected speech key from env, got %q", cfg.Speech.APIKey)
	}
	if cfg.LLM.APIKey != "llm-key" {
		t.Fatalf("expected llm key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Speech.Provider != config.ProviderOpenAI {
		t.Fatalf("unexpected provider %q", cfg.Speech.Provider)
	}
	if cfg.ChunkTimeout() != 30*time.Second {
		t.Fatalf("unexpected chunk timeout %s", cfg.ChunkTimeout())
	}
	if cfg.MaxSegmentDuration() != 30*time.Second {
		t.Fatalf("unexpected max segment duration %s", cfg.MaxSegmentDuration())
	}
	if !cfg.Pipeline.Correct {
		t.Fatal("expected correction enabled by default")
	}
}

func TestLoadCustomPathNormalizesValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENAI_API_KEY", "")
	t.Chdir(t.TempDir())

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
data_dir = "~/scribe-data"

[speech]
provider = " WhisperX "
whisperx_vad_method = "PYANNOTE"

[pipeline]
workers = 0
chunk_timeout_ms = 500
max_segment_seconds = 12.5

[notifications]
ntfy_topic = " https://ntfy.example/scribe "
request_timeout_seconds = 0

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "scribe-data") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.Speech.Provider != config.ProviderWhisperX {
		t.Fatalf("expected whisperx provider, got %q", cfg.Speech.Provider)
	}
	if cfg.Speech.WhisperXVADMethod != "pyannote" {
		t.Fatalf("expected lowercased vad method, got %q", cfg.Speech.WhisperXVADMethod)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Fatalf("expected default workers, got %d", cfg.Pipeline.Workers)
	}
	if cfg.ChunkTimeout() != 500*time.Millisecond {
		t.Fatalf("unexpected chunk timeout %s", cfg.ChunkTimeout())
	}
	if cfg.MaxSegmentDuration() != 12500*time.Millisecond {
		t.Fatalf("unexpected max segment %s", cfg.MaxSegmentDuration())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/scribe" || cfg.Notifications.RequestTimeoutSeconds != 10 {
		t.Fatalf("unexpected notifications config %+v", cfg.Notifications)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[speech]\nprovider = \"deepgram\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "speech.provider") {
		t.Fatalf("expected provider validation error, got %v", err)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SCRIBE_LLM_API_KEY", "")
	if err := os.Unsetenv("SCRIBE_LLM_API_KEY"); err != nil {
		t.Fatalf("unset env: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SCRIBE_LLM_API_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.LLM.APIKey)
	}
}

func TestRequireCredentials(t *testing.T) {
	cfg := config.Default()
	if err := cfg.RequireSpeechCredentials(); err == nil {
		t.Fatal("expected missing speech key error")
	}
	cfg.Speech.Provider = config.ProviderWhisperX
	if err := cfg.RequireSpeechCredentials(); err != nil {
		t.Fatalf("whisperx should not need a key: %v", err)
	}
	if err := cfg.RequireLLMCredentials(); err == nil {
		t.Fatal("expected missing llm key error")
	}
}

func TestSampleConfigParses(t *testing.T) {
	data, err := config.Sample("")
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Fatalf("unexpected sample workers %d", cfg.Pipeline.Workers)
	}
}

func TestSampleSelectsProvider(t *testing.T) {
	data, err := config.Sample("WhisperX")
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample does not parse: %v", err)
	}
	if cfg.Speech.Provider != config.ProviderWhisperX {
		t.Fatalf("expected whisperx provider, got %q", cfg.Speech.Provider)
	}
	if _, err := config.Sample("deepgram"); err == nil {
		t.Fatal("expected unknown provider to be rejected")
	}
}
