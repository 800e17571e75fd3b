package config

const (
	defaultDataDir              = "~/.local/share/scribe"
	defaultAudioDir             = "~/.local/share/scribe/audio"
	defaultLogDir               = "~/.local/share/scribe/logs"
	defaultSpeechProvider       = ProviderOpenAI
	defaultSpeechModel          = "whisper-1"
	defaultSpeechTimeoutSeconds = 60
	defaultNoSpeechThreshold    = 0.8
	defaultWhisperXModel        = "large-v3"
	defaultWhisperXVADMethod    = "silero"
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMReferer           = "https://github.com/scribe-audio/scribe"
	defaultLLMTitle             = "scribe"
	defaultLLMTimeoutSeconds    = 60
	defaultPipelineWorkers      = 4
	defaultChunkTimeoutMS       = 30000
	defaultMaxSegmentSeconds    = 30
	defaultProviderRetries      = 2
	defaultMinCorrectionChars   = 10
	defaultCorrectionMaxTokens  = 4096
	defaultDeriveMaxTokens      = 1024
	defaultNtfyTimeoutSeconds   = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Speech provider identifiers.
const (
	ProviderOpenAI   = "openai"
	ProviderWhisperX = "whisperx"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			AudioDir: defaultAudioDir,
			LogDir:   defaultLogDir,
		},
		Speech: Speech{
			Provider:          defaultSpeechProvider,
			Model:             defaultSpeechModel,
			TimeoutSeconds:    defaultSpeechTimeoutSeconds,
			NoSpeechThreshold: defaultNoSpeechThreshold,
			WhisperXModel:     defaultWhisperXModel,
			WhisperXVADMethod: defaultWhisperXVADMethod,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Pipeline: Pipeline{
			Workers:             defaultPipelineWorkers,
			ChunkTimeoutMS:      defaultChunkTimeoutMS,
			MaxSegmentSeconds:   defaultMaxSegmentSeconds,
			ProviderRetries:     defaultProviderRetries,
			MinCorrectionChars:  defaultMinCorrectionChars,
			CorrectionMaxTokens: defaultCorrectionMaxTokens,
			DeriveMaxTokens:     defaultDeriveMaxTokens,
			Correct:             true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
