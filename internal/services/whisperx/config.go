package whisperx

// Config captures runtime settings for chunk transcription.
type Config struct {
	// Model is the WhisperX model name, e.g. "large-v3-turbo".
	Model       string
	CUDAEnabled bool
	// VADMethod is "silero" (default) or "pyannote"; pyannote needs HFToken.
	VADMethod string
	HFToken   string
	// Language pins the spoken language; empty lets WhisperX detect it.
	Language string
	// WorkDir holds per-chunk scratch directories. Empty uses os.TempDir.
	WorkDir string
}

const (
	DefaultModel      = "large-v3"
	VADMethodSilero   = "silero"
	VADMethodPyannote = "pyannote"

	uvxCommand   = "uvx"
	cudaIndexURL = "https://download.pytorch.org/whl/cu128"
	pypiIndexURL = "https://pypi.org/simple"
)

// chunkDecoding tunes WhisperX for the few seconds of audio in a single
// capture chunk. Alignment is skipped: only the text and language are read
// back, and chunk timing comes from the capture offsets.
var chunkDecoding = []string{
	"--batch_size", "8",
	"--chunk_size", "10",
	"--beam_size", "5",
	"--best_of", "5",
	"--temperature", "0",
	"--vad_onset", "0.08",
	"--vad_offset", "0.07",
	"--output_format", "json",
	"--no_align",
}
