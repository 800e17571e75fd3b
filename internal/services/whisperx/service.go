package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"scribe/internal/chunk"
	"scribe/internal/language"
	"scribe/internal/services"
)

const component = "whisperx"

// CommandRunner executes an external command. Tests replace it to avoid
// launching Python.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service transcribes chunks by shelling out to WhisperX through uvx.
type Service struct {
	cfg    Config
	binary string
	runner CommandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.VADMethod == "" {
		cfg.VADMethod = VADMethodSilero
	}
	return &Service{cfg: cfg, binary: uvxCommand}
}

// WithCommandRunner replaces process execution (tests).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.runner = runner
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.runner != nil {
		return s.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	// torch >= 2.6 defaults to weights_only loads, which pyannote checkpoints fail.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe implements chunk.SpeechToText.
func (s *Service) Transcribe(ctx context.Context, audio []byte, mimeHint string) (chunk.Transcription, error) {
	var out chunk.Transcription
	if len(audio) == 0 {
		return out, services.Wrap(services.ErrEmptyChunk, component, "transcribe", "audio is empty", nil)
	}

	workDir, err := os.MkdirTemp(s.cfg.WorkDir, "scribe-whisperx-*")
	if err != nil {
		return out, services.Wrap(services.ErrConfiguration, component, "transcribe", "create work dir", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	source := filepath.Join(workDir, "chunk"+chunk.Extension(mimeHint))
	if err := os.WriteFile(source, audio, 0o600); err != nil {
		return out, services.Wrap(services.ErrProviderFailure, component, "transcribe", "write chunk", err)
	}

	args := s.buildArgs(source, workDir, s.cfg.Language)
	if err := s.run(ctx, s.binary, args...); err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		return out, services.Wrap(services.ErrProviderFailure, component, "transcribe", "run whisperx", err)
	}

	payload, err := loadPayload(filepath.Join(workDir, "chunk.json"))
	if err != nil {
		return out, services.Wrap(services.ErrParseFailure, component, "transcribe", "read whisperx output", err)
	}
	out.Text = payload.text()
	out.Language = language.ToISO2(payload.Language)
	return out, nil
}

func (s *Service) buildArgs(source, outputDir, lang string) []string {
	var args []string
	if s.cfg.CUDAEnabled {
		args = append(args, "--index-url", cudaIndexURL, "--extra-index-url", pypiIndexURL)
	} else {
		args = append(args, "--index-url", pypiIndexURL)
	}
	args = append(args, "whisperx", source,
		"--model", s.cfg.Model,
		"--output_dir", outputDir,
		"--vad_method", s.cfg.VADMethod,
	)
	args = append(args, chunkDecoding...)
	if s.cfg.VADMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}
	if code := language.ToISO2(lang); code != "" {
		args = append(args, "--language", code)
	}
	if s.cfg.CUDAEnabled {
		return append(args, "--device", "cuda")
	}
	return append(args, "--device", "cpu", "--compute_type", "float32")
}

// payload is the subset of WhisperX's JSON output scribe reads.
type payload struct {
	Language string `json:"language"`
	Segments []struct {
		Text string `json:"text"`
	} `json:"segments"`
}

func (p payload) text() string {
	parts := make([]string, 0, len(p.Segments))
	for _, seg := range p.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func loadPayload(jsonPath string) (payload, error) {
	var p payload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse whisperx json: %w", err)
	}
	return p, nil
}
