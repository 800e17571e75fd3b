package api

import (
	"context"
	"io"

	"scribe/internal/logging"
	"scribe/internal/services"
)

// AudioDTO describes the stored re-listen copy of a transcription.
type AudioDTO struct {
	TranscriptionID string `json:"transcriptionId"`
	Path            string `json:"path"`
	Size            int64  `json:"size"`
	SHA256          string `json:"sha256"`
}

// AttachAudio stores r as the transcription's original audio, replacing any
// copy kept by the capture session.
func (s *Service) AttachAudio(ctx context.Context, id string, r io.Reader, ext string) (AudioDTO, error) {
	if s.blobs == nil {
		return AudioDTO{}, services.Wrap(services.ErrConfiguration, "api", "attach_audio", "no audio directory configured", nil)
	}
	t, err := s.store.GetTranscription(ctx, id)
	if err != nil {
		return AudioDTO{}, err
	}
	key := t.AudioKey
	if key == "" {
		key = t.ID
	}
	blob, err := s.blobs.Put(ctx, key, r, ext)
	if err != nil {
		return AudioDTO{}, err
	}
	if t.AudioKey != key {
		if err := s.store.SetAudioKey(ctx, id, key); err != nil {
			return AudioDTO{}, err
		}
	}
	logging.WithContext(services.WithTranscriptionID(ctx, id), s.logger).Info("audio attached",
		logging.String(logging.FieldEventType, "audio_attached"),
		logging.Int64("bytes", blob.Size),
		logging.String("sha256", blob.SHA256),
	)
	return AudioDTO{TranscriptionID: id, Path: blob.Path, Size: blob.Size, SHA256: blob.SHA256}, nil
}

// OpenAudio returns the stored audio and its path. The caller closes it.
func (s *Service) OpenAudio(ctx context.Context, id string) (io.ReadCloser, string, error) {
	t, err := s.store.GetTranscription(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if s.blobs == nil || t.AudioKey == "" {
		return nil, "", services.Wrap(services.ErrNotFound, "api", "open_audio", "transcription has no stored audio", nil)
	}
	return s.blobs.Open(t.AudioKey)
}
