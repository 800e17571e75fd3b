package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"scribe/internal/transcript"
)

// AddDerived records content computed from one committed version. The
// source version must exist.
func (s *Store) AddDerived(ctx context.Context, id string, sourceVersion int, payload transcript.Insights, tokensUsed int, model string) (*transcript.DerivedContent, error) {
	ctx = ensureContext(ctx)
	if _, err := s.GetVersion(ctx, id, sourceVersion); err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode derived payload: %w", err)
	}
	rec := derivedRecord{
		ID:              uuid.NewString(),
		TranscriptionID: id,
		SourceVersion:   sourceVersion,
		Kind:            transcript.DerivedKindInsights,
		PayloadJSON:     string(data),
		TokensUsed:      tokensUsed,
		Model:           strings.TrimSpace(model),
		CreatedAt:       s.timestamp(),
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO derived_content (`+derivedColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TranscriptionID, rec.SourceVersion, rec.Kind, rec.PayloadJSON, rec.TokensUsed, rec.Model, rec.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert derived content: %w", err)
	}
	return rec.toDomain()
}

// GetDerived returns one derived record scoped to its transcription.
func (s *Store) GetDerived(ctx context.Context, id, derivedID string) (*transcript.DerivedContent, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+derivedColumns+` FROM derived_content WHERE id = ? AND transcription_id = ?`,
		derivedID, id)
	rec, err := scanDerived(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("derived content", derivedID)
	}
	if err != nil {
		return nil, fmt.Errorf("get derived content: %w", err)
	}
	return rec.toDomain()
}

// ListDerived returns a transcription's derived content, oldest first.
func (s *Store) ListDerived(ctx context.Context, id string) ([]transcript.DerivedContent, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+derivedColumns+` FROM derived_content
          WHERE transcription_id = ? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("list derived content: %w", err)
	}
	defer rows.Close()

	var out []transcript.DerivedContent
	for rows.Next() {
		rec, err := scanDerived(rows)
		if err != nil {
			return nil, fmt.Errorf("scan derived content: %w", err)
		}
		d, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// RemoveDerived deletes a derived record. A record that does not exist or
// belongs to another transcription yields ErrNotFound. Versions are never
// touched.
func (s *Store) RemoveDerived(ctx context.Context, id, derivedID string) error {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM derived_content WHERE id = ? AND transcription_id = ?`, derivedID, id)
	if err != nil {
		return fmt.Errorf("remove derived content: %w", err)
	}
	return requireAffected(res, "derived content", derivedID)
}
