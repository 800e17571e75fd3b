package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Credentials are not required
// here; commands that reach a provider check for them when they build clients
// so that offline commands (versions, export) work without keys.
func (c *Config) Validate() error {
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSpeech() error {
	switch c.Speech.Provider {
	case ProviderOpenAI, ProviderWhisperX:
	default:
		return fmt.Errorf("speech.provider must be %q or %q, got %q", ProviderOpenAI, ProviderWhisperX, c.Speech.Provider)
	}
	if c.Speech.NoSpeechThreshold < 0 || c.Speech.NoSpeechThreshold > 1 {
		return errors.New("speech.no_speech_threshold must be between 0 and 1")
	}
	switch c.Speech.WhisperXVADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("speech.whisperx_vad_method must be silero or pyannote, got %q", c.Speech.WhisperXVADMethod)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers > 64 {
		return errors.New("pipeline.workers must be 64 or fewer")
	}
	if c.Pipeline.ChunkTimeoutMS < 100 {
		return errors.New("pipeline.chunk_timeout_ms must be at least 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// RequireSpeechCredentials reports a configuration error when the selected
// speech provider needs an API key and none is set.
func (c *Config) RequireSpeechCredentials() error {
	if c.Speech.Provider == ProviderOpenAI && c.Speech.APIKey == "" {
		return errors.New("speech.api_key is required for the openai provider. Set OPENAI_API_KEY or edit the config (create with 'scribe config init')")
	}
	return nil
}

// RequireLLMCredentials reports a configuration error when no LLM key is set.
func (c *Config) RequireLLMCredentials() error {
	if c.LLM.APIKey == "" {
		return errors.New("llm.api_key is required. Set SCRIBE_LLM_API_KEY or edit the config (create with 'scribe config init')")
	}
	return nil
}
