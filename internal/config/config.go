package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	AudioDir string `toml:"audio_dir"`
	LogDir   string `toml:"log_dir"`
}

// Speech contains configuration for the speech-to-text capability.
type Speech struct {
	// Provider selects the backend: "openai" or "whisperx".
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// NoSpeechThreshold drops verbose_json segments whose no_speech_prob exceeds it.
	NoSpeechThreshold float64 `toml:"no_speech_threshold"`

	WhisperXModel       string `toml:"whisperx_model"`
	WhisperXCUDAEnabled bool   `toml:"whisperx_cuda_enabled"`
	WhisperXVADMethod   string `toml:"whisperx_vad_method"`
	WhisperXHuggingFace string `toml:"whisperx_hf_token"`
}

// LLM contains the text-completion connection settings used for punctuation
// correction and insight derivation.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pipeline contains tuning knobs for the chunk reconciliation pipeline.
type Pipeline struct {
	Workers             int     `toml:"workers"`
	ChunkTimeoutMS      int     `toml:"chunk_timeout_ms"`
	MaxSegmentSeconds   float64 `toml:"max_segment_seconds"`
	ProviderRetries     int     `toml:"provider_retries"`
	MinCorrectionChars  int     `toml:"min_correction_chars"`
	CorrectionMaxTokens int     `toml:"correction_max_tokens"`
	DeriveMaxTokens     int     `toml:"derive_max_tokens"`
	StrictFidelity      bool    `toml:"strict_fidelity"`
	Correct             bool    `toml:"correct"`
}

// Notifications contains ntfy settings. An empty topic disables them.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for scribe.
//
// Configuration sections by subsystem:
//   - Paths: database, audio blob and log directories
//   - Speech: speech-to-text provider (OpenAI or WhisperX)
//   - LLM: text completion used for correction and insights
//   - Pipeline: worker fan-out, sequencer timeout, segment limits
//   - Notifications: optional ntfy topic for completion alerts
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Speech        Speech        `toml:"speech"`
	LLM           LLM           `toml:"llm"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file next to the working directory is
// loaded first so API keys can live outside the TOML file.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, audio and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.AudioDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "scribe.db")
}

// LockDir returns the directory holding per-transcription commit lock files.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.DataDir, "locks")
}

// ChunkTimeout returns the sequencer's bounded wait for a missing chunk.
func (c *Config) ChunkTimeout() time.Duration {
	return time.Duration(c.Pipeline.ChunkTimeoutMS) * time.Millisecond
}

// MaxSegmentDuration returns the longest span a single segment may cover.
func (c *Config) MaxSegmentDuration() time.Duration {
	return time.Duration(c.Pipeline.MaxSegmentSeconds * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Sample renders the sample configuration with speech.provider set to
// provider. An empty provider keeps the default.
func Sample(provider string) ([]byte, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	switch provider {
	case "", defaultSpeechProvider:
		return []byte(sampleConfig), nil
	case ProviderWhisperX:
		from := fmt.Sprintf("provider = %q", defaultSpeechProvider)
		return []byte(strings.Replace(sampleConfig, from, fmt.Sprintf("provider = %q", provider), 1)), nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q (want %q or %q)", provider, ProviderOpenAI, ProviderWhisperX)
	}
}

// LLMConfig contains the resolved text-completion settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// Redacted returns a copy of the configuration with credentials masked so it
// can be printed.
func (c Config) Redacted() Config {
	mask := func(secret string) string {
		if secret == "" {
			return ""
		}
		if len(secret) <= 8 {
			return "****"
		}
		return secret[:4] + "****"
	}
	c.Speech.APIKey = mask(c.Speech.APIKey)
	c.Speech.WhisperXHuggingFace = mask(c.Speech.WhisperXHuggingFace)
	c.LLM.APIKey = mask(c.LLM.APIKey)
	return c
}

// EncodeTOML renders the configuration in the same layout config files use.
func (c Config) EncodeTOML() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
