package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/services/llm"
	"scribe/internal/services/openaistt"
	"scribe/internal/store"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckSpeech verifies the configured speech-to-text provider. OpenAI is
// probed over the network; WhisperX only needs uvx on PATH.
func CheckSpeech(ctx context.Context, cfg *config.Config) Result {
	const name = "Speech-to-text"

	switch cfg.Speech.Provider {
	case config.ProviderWhisperX:
		detail := "whisperx via uvx"
		for _, status := range CheckSystemDeps(ctx, cfg) {
			if !status.Available() {
				return Result{Name: name, Detail: fmt.Sprintf("whisperx: %s", status.Detail)}
			}
			if status.Version != "" {
				detail += " (" + status.Version + ")"
			}
		}
		return Result{Name: name, Passed: true, Detail: detail}
	default:
		if cfg.Speech.APIKey == "" {
			return Result{Name: name, Detail: "API key missing"}
		}
		checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		client := openaistt.New(openaistt.Config{
			APIKey:  cfg.Speech.APIKey,
			BaseURL: cfg.Speech.BaseURL,
			Model:   cfg.Speech.Model,
		})
		if err := client.HealthCheck(checkCtx); err != nil {
			return Result{Name: name, Detail: summarizeError(err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%s)", client.Model())}
	}
}

// CheckDatabase opens the store and reports its health summary.
func CheckDatabase(ctx context.Context, cfg *config.Config) Result {
	const name = "Database"

	st, err := store.Open(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer st.Close()

	health, err := st.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", health.DBPath, err)}
	}
	if len(health.MissingTables) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (missing tables: %v)", health.DBPath, health.MissingTables)}
	}
	if !health.IntegrityCheck {
		return Result{Name: name, Detail: fmt.Sprintf("%s (integrity check failed)", health.DBPath)}
	}
	if health.VersionMismatches > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%d transcriptions disagree with their version history)", health.DBPath, health.VersionMismatches)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d transcriptions, %d versions, %d derived)",
		health.DBPath, health.TotalTranscripts, health.TotalVersions, health.TotalDerived)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the configured providers
// need. The OpenAI provider needs none.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	var binaries []deps.Binary
	if cfg.Speech.Provider == config.ProviderWhisperX {
		binaries = append(binaries, deps.Binary{
			Name:        "uvx",
			Command:     "uvx",
			Purpose:     "runs WhisperX for local transcription",
			VersionArgs: []string{"--version"},
		})
	}
	return deps.Probe(ctx, binaries)
}

// summarizeError produces a human-readable summary for health check failures.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
