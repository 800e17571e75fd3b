package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/preflight"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var provider string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Long:        "Writes a commented sample configuration. --provider picks the speech-to-text backend the sample starts from.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := config.Sample(provider)
			if err != nil {
				return err
			}
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if err := writeSample(target, sample, overwrite); err != nil {
				return err
			}

			cfg, err := decodeSample(sample)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintf(out, "Speech provider: %s\n", cfg.Speech.Provider)
			fmt.Fprintln(out, "Next steps:")
			for _, step := range setupSteps(cmd.Context(), cfg) {
				fmt.Fprintf(out, "  - %s\n", step)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file (default ~/.config/scribe/config.toml)")
	cmd.Flags().StringVar(&provider, "provider", config.ProviderOpenAI, "Speech provider the sample starts from (openai or whisperx)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing configuration file")
	return cmd
}

func initTarget(path string) (string, error) {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		expanded, err := config.ExpandPath(trimmed)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

// writeSample creates target exclusively unless overwrite is set.
func writeSample(target string, data []byte, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	file, err := os.OpenFile(target, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
	}
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return file.Close()
}

func decodeSample(data []byte) (*config.Config, error) {
	cfg := config.Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse sample config: %w", err)
	}
	return &cfg, nil
}

// setupSteps lists what is still missing before a first transcription.
func setupSteps(ctx context.Context, cfg *config.Config) []string {
	var steps []string
	switch cfg.Speech.Provider {
	case config.ProviderWhisperX:
		for _, status := range preflight.CheckSystemDeps(ctx, cfg) {
			if status.Available() {
				steps = append(steps, fmt.Sprintf("%s found (%s); the first run downloads the %s model", status.Name, status.Version, cfg.Speech.WhisperXModel))
				continue
			}
			steps = append(steps, fmt.Sprintf("install %s, it %s", status.Name, status.Purpose))
		}
		steps = append(steps, "set speech.whisperx_hf_token to enable pyannote diarization")
	default:
		steps = append(steps, "set speech.api_key or export OPENAI_API_KEY")
	}
	steps = append(steps,
		"set llm.api_key or export SCRIBE_LLM_API_KEY for punctuation correction and insights",
		"run `scribe doctor` to check the setup",
	)
	return steps
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Speech provider: %s\n", cfg.Speech.Provider)
			fmt.Fprintf(out, "Correction: %s\n", yesNo(cfg.Pipeline.Correct && cfg.RequireLLMCredentials() == nil))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			redacted := ctx.configValue().Redacted()
			if ctx.jsonOutput() {
				return writeJSON(cmd, redacted)
			}
			data, err := redacted.EncodeTOML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
