package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"scribe/internal/services"
	"scribe/internal/transcript"
)

// CreateTranscription inserts an empty transcription at version 0.
func (s *Store) CreateTranscription(ctx context.Context, title, language string) (*transcript.Transcription, error) {
	id := uuid.NewString()
	timestamp := s.timestamp()

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO transcriptions (
            id, title, language, segments_json, current_version, created_at, updated_at
        ) VALUES (?, ?, ?, '[]', 0, ?, ?)`,
		id,
		strings.TrimSpace(title),
		strings.TrimSpace(language),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transcription: %w", err)
	}
	return s.GetTranscription(ctx, id)
}

// GetTranscription fetches a transcription with its current segments.
func (s *Store) GetTranscription(ctx context.Context, id string) (*transcript.Transcription, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+transcriptionColumns+` FROM transcriptions WHERE id = ?`, id)
	rec, err := scanTranscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("transcription", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get transcription: %w", err)
	}
	return rec.toDomain()
}

// ListTranscriptions returns all transcriptions, most recently updated first.
func (s *Store) ListTranscriptions(ctx context.Context) ([]transcript.Transcription, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+transcriptionColumns+` FROM transcriptions ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list transcriptions: %w", err)
	}
	defer rows.Close()

	var out []transcript.Transcription
	for rows.Next() {
		rec, err := scanTranscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		t, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// SetAudioKey records where the original audio was stored.
func (s *Store) SetAudioKey(ctx context.Context, id, key string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE transcriptions SET audio_key = ?, updated_at = ? WHERE id = ?`,
		nullableString(key), s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("set audio key: %w", err)
	}
	return requireAffected(res, "transcription", id)
}

// SetLanguage records the language detected across a session's chunks.
func (s *Store) SetLanguage(ctx context.Context, id, language string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE transcriptions SET language = ?, updated_at = ? WHERE id = ?`,
		language, s.timestamp(), id)
	if err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return requireAffected(res, "transcription", id)
}

// DeleteTranscription removes a transcription together with its versions
// and derived content.
func (s *Store) DeleteTranscription(ctx context.Context, id string) error {
	var res sql.Result
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		// Derived rows reference versions, so they go first.
		if _, err := tx.ExecContext(ctx, `DELETE FROM derived_content WHERE transcription_id = ?`, id); err != nil {
			return err
		}
		var err error
		res, err = tx.ExecContext(ctx, `DELETE FROM transcriptions WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete transcription: %w", err)
	}
	if err := requireAffected(res, "transcription", id); err != nil {
		return err
	}
	s.removeLockFile(id)
	return nil
}

func requireAffected(res sql.Result, kind, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound(kind, id)
	}
	return nil
}

func notFound(kind, id string) error {
	return services.Wrap(services.ErrNotFound, "store", kind, fmt.Sprintf("%q does not exist", id), nil)
}
