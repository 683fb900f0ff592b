package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/lapalign/internal/loop"
	"github.com/banshee-data/lapalign/internal/session"
	"github.com/google/uuid"
)

// ErrRecordingNotFound is returned when no recording has the given ID.
var ErrRecordingNotFound = errors.New("recording not found")

// RecordingSummary is one row of the recordings table.
type RecordingSummary struct {
	ID                  uuid.UUID
	Label               string
	CreatedAt           time.Time
	StartIndex          int
	PathLength          float64
	PathPoints          int
	FrameCount          int
	LapCount            int
	CompletedLaps       int
	LowConfidenceFrames int
}

// InsertRecording stores a recording with its samples and laps in one
// transaction.
func (db *DB) InsertRecording(ctx context.Context, rec *session.Recording) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := rec.ID.String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO recordings (
			recording_id, label, created_at, start_index, path_length, path_points,
			frame_count, lap_count, completed_laps, low_confidence_frames
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.Label, rec.CreatedAt.UTC().Format(time.RFC3339Nano), rec.StartIndex,
		rec.PathLength, rec.PathPoints, len(rec.Samples), len(rec.Laps),
		rec.CompletedLaps(), rec.LowConfidenceFrames(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recording %s: %w", id, err)
	}

	sampleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (
			recording_id, frame, lap, progress, matched_index, matched, raw_distance,
			candidate_count, low_confidence, skipped, rule, reason, phase
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer sampleStmt.Close()

	for _, s := range rec.Samples {
		_, err := sampleStmt.ExecContext(ctx,
			id, s.Frame, s.Lap, s.Progress, s.MatchedIndex, s.Matched, s.RawDistance,
			s.CandidateCount, s.LowConfidence, s.Skipped, string(s.Rule), string(s.Reason), int(s.Phase),
		)
		if err != nil {
			return fmt.Errorf("failed to insert sample for frame %d: %w", s.Frame, err)
		}
	}

	lapStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO laps (
			recording_id, lap_number, first_frame, last_frame, frames, final_progress,
			peak_progress, completed, low_confidence, skipped, mean_raw_distance, max_raw_distance
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare lap insert: %w", err)
	}
	defer lapStmt.Close()

	for _, lap := range rec.Laps {
		_, err := lapStmt.ExecContext(ctx,
			id, lap.Number, lap.FirstFrame, lap.LastFrame, lap.Frames, lap.FinalProgress,
			lap.PeakProgress, lap.Completed, lap.LowConfidence, lap.Skipped,
			lap.MeanRawDistance, lap.MaxRawDistance,
		)
		if err != nil {
			return fmt.Errorf("failed to insert lap %d: %w", lap.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recording %s: %w", id, err)
	}
	return nil
}

// ListRecordings returns every stored recording, newest first.
func (db *DB) ListRecordings(ctx context.Context) ([]RecordingSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT recording_id, label, created_at, start_index, path_length, path_points,
		       frame_count, lap_count, completed_laps, low_confidence_frames
		FROM recordings
		ORDER BY created_at DESC, recording_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recordings: %w", err)
	}
	defer rows.Close()

	var out []RecordingSummary
	for rows.Next() {
		var (
			s         RecordingSummary
			id        string
			createdAt string
		)
		if err := rows.Scan(&id, &s.Label, &createdAt, &s.StartIndex, &s.PathLength, &s.PathPoints,
			&s.FrameCount, &s.LapCount, &s.CompletedLaps, &s.LowConfidenceFrames); err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("bad recording id %q: %w", id, err)
		}
		if s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("bad created_at for %s: %w", id, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSamples returns the per-frame samples of a recording in frame order.
func (db *DB) GetSamples(ctx context.Context, id uuid.UUID) ([]session.Sample, error) {
	if err := db.requireRecording(ctx, id); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT frame, lap, progress, matched_index, matched, raw_distance, candidate_count,
		       low_confidence, skipped, rule, reason, phase
		FROM samples
		WHERE recording_id = ?
		ORDER BY frame`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var out []session.Sample
	for rows.Next() {
		var (
			s            session.Sample
			rule, reason string
			phase        int
		)
		if err := rows.Scan(&s.Frame, &s.Lap, &s.Progress, &s.MatchedIndex, &s.Matched, &s.RawDistance,
			&s.CandidateCount, &s.LowConfidence, &s.Skipped, &rule, &reason, &phase); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		s.Rule = loop.Rule(rule)
		s.Reason = loop.Reason(reason)
		s.Phase = loop.LapPhase(phase)
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetLaps returns the lap summaries of a recording in lap order.
func (db *DB) GetLaps(ctx context.Context, id uuid.UUID) ([]session.Lap, error) {
	if err := db.requireRecording(ctx, id); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT lap_number, first_frame, last_frame, frames, final_progress, peak_progress,
		       completed, low_confidence, skipped, mean_raw_distance, max_raw_distance
		FROM laps
		WHERE recording_id = ?
		ORDER BY lap_number`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query laps: %w", err)
	}
	defer rows.Close()

	var out []session.Lap
	for rows.Next() {
		var l session.Lap
		if err := rows.Scan(&l.Number, &l.FirstFrame, &l.LastFrame, &l.Frames, &l.FinalProgress,
			&l.PeakProgress, &l.Completed, &l.LowConfidence, &l.Skipped,
			&l.MeanRawDistance, &l.MaxRawDistance); err != nil {
			return nil, fmt.Errorf("failed to scan lap: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteRecording removes a recording and, through cascading keys, its
// samples and laps.
func (db *DB) DeleteRecording(ctx context.Context, id uuid.UUID) error {
	res, err := db.ExecContext(ctx, `DELETE FROM recordings WHERE recording_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete recording %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRecordingNotFound)
	}
	return nil
}

func (db *DB) requireRecording(ctx context.Context, id uuid.UUID) error {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM recordings WHERE recording_id = ?`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", id, ErrRecordingNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up recording %s: %w", id, err)
	}
	return nil
}
