package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/google/uuid"

	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Commit stores segments as the next immutable version and makes it
// current. The next number is MAX(version_number)+1 read inside the same
// transaction that inserts it, under the per-transcription commit lock. A
// failed commit leaves current_version unchanged.
func (s *Store) Commit(ctx context.Context, id string, segments []transcript.Segment, editorID, changesSummary string) (int, error) {
	ctx = ensureContext(ctx)
	if _, err := uuid.Parse(id); err != nil {
		return 0, notFound("transcription", id)
	}
	editorID = strings.TrimSpace(editorID)
	if editorID == "" {
		return 0, services.Wrap(services.ErrValidation, "store", "commit", "editor id required", nil)
	}
	segmentsJSON, err := encodeSegments(segments)
	if err != nil {
		return 0, err
	}
	fullText := transcript.FullText(segments)

	release, err := s.lockTranscription(ctx, id)
	if err != nil {
		return 0, err
	}
	defer release()

	var number int
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		timestamp := s.timestamp()
		// Touching the row first takes SQLite's write lock before the read below.
		res, err := tx.ExecContext(ctx, `UPDATE transcriptions SET updated_at = ? WHERE id = ?`, timestamp, id)
		if err != nil {
			return err
		}
		if err := requireAffected(res, "transcription", id); err != nil {
			return err
		}

		var current, maxVersion int
		if err := tx.QueryRowContext(ctx,
			`SELECT t.current_version, COALESCE(MAX(v.version_number), 0)
               FROM transcriptions t
               LEFT JOIN transcription_versions v ON v.transcription_id = t.id
              WHERE t.id = ?
              GROUP BY t.id`, id,
		).Scan(&current, &maxVersion); err != nil {
			return err
		}
		number = maxVersion + 1

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transcription_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, number, segmentsJSON, fullText, len(segments), timestamp, editorID, strings.TrimSpace(changesSummary),
		); err != nil {
			if isUniqueViolation(err) {
				return conflict(id, number, err)
			}
			return err
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE transcriptions
                SET current_version = ?, segments_json = ?, updated_at = ?
              WHERE id = ? AND current_version = ?`,
			number, segmentsJSON, timestamp, id, number-1,
		)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected != 1 {
			return conflict(id, number, fmt.Errorf("current_version is %d", current))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrVersionConflict) {
			return 0, err
		}
		return 0, fmt.Errorf("commit version: %w", err)
	}
	return number, nil
}

// GetVersion returns one committed version with its snapshot.
func (s *Store) GetVersion(ctx context.Context, id string, number int) (*transcript.Version, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+versionColumns+` FROM transcription_versions WHERE transcription_id = ? AND version_number = ?`,
		id, number)
	rec, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("version", fmt.Sprintf("%s@%d", id, number))
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return rec.toDomain()
}

// ListVersions returns version metadata, newest first. An unknown
// transcription yields ErrNotFound.
func (s *Store) ListVersions(ctx context.Context, id string) ([]transcript.VersionMeta, error) {
	ctx = ensureContext(ctx)
	if _, err := s.GetTranscription(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+versionMetaColumns+` FROM transcription_versions
          WHERE transcription_id = ? ORDER BY version_number DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []transcript.VersionMeta
	for rows.Next() {
		rec, err := scanVersionMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, rec.meta())
	}
	return out, rows.Err()
}

// Versions returns a restartable sequence over ListVersions. Each range
// re-reads the table; a failure is yielded once as the final element.
func (s *Store) Versions(ctx context.Context, id string) iter.Seq2[transcript.VersionMeta, error] {
	return func(yield func(transcript.VersionMeta, error) bool) {
		metas, err := s.ListVersions(ctx, id)
		if err != nil {
			yield(transcript.VersionMeta{}, err)
			return
		}
		for _, meta := range metas {
			if !yield(meta, nil) {
				return
			}
		}
	}
}

func conflict(id string, number int, err error) error {
	return services.Wrap(services.ErrVersionConflict, "store", "commit",
		fmt.Sprintf("version %d of %s already taken", number, id), err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		switch coder.Code() {
		case 1555, 2067: // SQLITE_CONSTRAINT_PRIMARYKEY, SQLITE_CONSTRAINT_UNIQUE
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
