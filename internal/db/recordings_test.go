package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/lapalign/internal/loop"
	"github.com/banshee-data/lapalign/internal/monitoring"
	"github.com/banshee-data/lapalign/internal/session"
	"github.com/banshee-data/lapalign/internal/testutil"
	"github.com/banshee-data/lapalign/internal/timeutil"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// analyse runs a lap and a half round a circle, with one dropout and one
// lap-boundary signal, through the session runner.
func analyse(t *testing.T, label string, created time.Time) *session.Recording {
	t.Helper()
	points := testutil.CirclePoints(60, 120)
	path, err := loop.BuildPath(points)
	require.NoError(t, err)
	runner := session.NewRunner(loop.NewTracker(path, loop.DefaultConfig()), timeutil.NewMockClock(created), nil)

	var frames []loop.Frame
	for i := 0; i < 90; i++ {
		f := loop.Frame{Index: i, LapBoundary: i == 61}
		if i != 30 {
			p := points[i%len(points)]
			f.Observation = &p
		}
		frames = append(frames, f)
	}
	rec, err := runner.Run(context.Background(), session.Input{Label: label, Frames: frames})
	require.NoError(t, err)
	return rec
}

func TestOpenAppliesMigrations(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, LatestVersion, version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestMigrateDownAndUp(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	require.NoError(t, db.MigrateDown())

	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='laps'`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, LatestVersion, version)
}

func TestRecordingRoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	created := time.Date(2026, 5, 1, 12, 30, 0, 123456789, time.UTC)
	rec := analyse(t, "practice", created)
	require.Len(t, rec.Laps, 2)

	require.NoError(t, db.InsertRecording(ctx, rec))

	list, err := db.ListRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	got := list[0]
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "practice", got.Label)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Equal(t, rec.StartIndex, got.StartIndex)
	assert.Equal(t, rec.PathLength, got.PathLength)
	assert.Equal(t, 60, got.PathPoints)
	assert.Equal(t, 90, got.FrameCount)
	assert.Equal(t, 2, got.LapCount)
	assert.Equal(t, rec.CompletedLaps(), got.CompletedLaps)
	assert.Equal(t, rec.LowConfidenceFrames(), got.LowConfidenceFrames)

	samples, err := db.GetSamples(ctx, rec.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(rec.Samples, samples); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}

	laps, err := db.GetLaps(ctx, rec.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(rec.Laps, laps); diff != "" {
		t.Errorf("laps mismatch (-want +got):\n%s", diff)
	}
}

func TestListRecordingsNewestFirst(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	older := analyse(t, "older", base)
	newer := analyse(t, "newer", base.Add(time.Hour))
	require.NoError(t, db.InsertRecording(ctx, older))
	require.NoError(t, db.InsertRecording(ctx, newer))

	list, err := db.ListRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Label)
	assert.Equal(t, "older", list[1].Label)
}

func TestInsertRecordingIsAtomic(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	rec := analyse(t, "dup", time.Now())
	require.NoError(t, db.InsertRecording(ctx, rec))

	// Same ID again fails on the primary key and leaves nothing behind.
	err := db.InsertRecording(ctx, rec)
	require.Error(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n))
	assert.Equal(t, len(rec.Samples), n)
}

func TestDeleteRecordingCascades(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()
	rec := analyse(t, "gone", time.Now())
	require.NoError(t, db.InsertRecording(ctx, rec))
	require.NoError(t, db.DeleteRecording(ctx, rec.ID))

	for _, table := range []string{"recordings", "samples", "laps"} {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
		assert.Zero(t, n, table)
	}

	assert.ErrorIs(t, db.DeleteRecording(ctx, rec.ID), ErrRecordingNotFound)
	_, err := db.GetSamples(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrRecordingNotFound)
	_, err = db.GetLaps(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRecordingNotFound)
}

func TestOpenFileDatabase(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "laps.db")
	db, err := Open(path)
	require.NoError(t, err)
	rec := analyse(t, "persisted", time.Now())
	require.NoError(t, db.InsertRecording(context.Background(), rec))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	list, err := db.ListRecordings(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)
}
