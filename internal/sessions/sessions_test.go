package sessions

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strrl/dw/internal/record"
	"github.com/strrl/dw/pkg/models"
)

// fakeClock returns a settable clock for tracker tests
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(t *testing.T, start time.Time) (*Tracker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: start}
	paths := PathsIn(t.TempDir(), ".dw.csv", ".dw.tmp")
	return NewTracker(paths, WithClock(clock.Now)), clock
}

// sessionAt builds a completed session starting at start and lasting d
func sessionAt(start time.Time, d time.Duration) models.Session {
	start = start.Truncate(time.Second)
	return models.Session{Start: start}.Complete(start.Add(d))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestStartWritesScratchRecord(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 250, time.Local)
	tracker, _ := newTestTracker(t, start)

	s, err := tracker.Start("write spec", []string{"design", "", "review"})
	require.NoError(t, err)
	assert.Equal(t, start.Truncate(time.Second), s.Start)
	assert.Equal(t, []string{"design", "review"}, s.Tags)
	assert.True(t, s.Active())

	lines := readLines(t, tracker.Paths().Active)
	require.Len(t, lines, 1)

	decoded, err := record.DecodeActive(lines[0])
	require.NoError(t, err)
	assert.Equal(t, "write spec", decoded.Description)
	assert.Equal(t, []string{"design", "review"}, decoded.Tags)
	assert.True(t, decoded.Start.Equal(s.Start))
}

func TestStartTwiceKeepsOneRecord(t *testing.T) {
	tracker, clock := newTestTracker(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local))

	_, err := tracker.Start("first", nil)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = tracker.Start("second", nil)
	assert.ErrorIs(t, err, ErrSessionActive)

	lines := readLines(t, tracker.Paths().Active)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "first")
}

func TestStartRejectsTagsWithWhitespace(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Now())

	_, err := tracker.Start("", []string{"deep work"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "deep work", ve.Value)
	assert.False(t, tracker.IsActive())
}

func TestStartStopScenario(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local)
	tracker, clock := newTestTracker(t, start)

	_, err := tracker.Start("write spec", []string{"design", "review"})
	require.NoError(t, err)

	clock.Advance(1*time.Hour + 2*time.Minute + 3*time.Second + 900*time.Millisecond)
	s, err := tracker.Stop()
	require.NoError(t, err)
	assert.Equal(t, int64(3723), s.DurationSeconds)
	assert.False(t, s.Active())

	assert.False(t, tracker.IsActive())
	_, err = os.Stat(tracker.Paths().Active)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	lines := readLines(t, tracker.Paths().Log)
	require.Len(t, lines, 1)

	logged, err := record.Decode(lines[0])
	require.NoError(t, err)
	assert.Equal(t, "write spec", logged.Description)
	assert.Equal(t, "design review", record.JoinTags(logged.Tags))
	assert.Equal(t, int64(3723), logged.DurationSeconds)
	assert.GreaterOrEqual(t, logged.DurationSeconds, int64(0))
}

func TestStopWithoutSession(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Now())

	_, err := tracker.Stop()
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = os.Stat(tracker.Paths().Log)
	assert.True(t, errors.Is(err, os.ErrNotExist), "log must not be created")
}

func TestStopLeavesNoClaimFiles(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Now())

	_, err := tracker.Start("", nil)
	require.NoError(t, err)
	_, err = tracker.Stop()
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(tracker.Paths().Active))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".dw.tmp")
	}
}

func TestStopRestoresSessionWhenAppendFails(t *testing.T) {
	dir := t.TempDir()
	// a directory where the log should be makes the append fail
	paths := PathsIn(dir, "log-is-a-dir", ".dw.tmp")
	require.NoError(t, os.Mkdir(paths.Log, 0755))
	tracker := NewTracker(paths)

	_, err := tracker.Start("keep me", nil)
	require.NoError(t, err)

	_, err = tracker.Stop()
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.True(t, tracker.IsActive(), "session should still be active")

	s, err := tracker.Status()
	require.NoError(t, err)
	assert.Equal(t, "keep me", s.Description)
}

func TestRestoreKeepsNewerSession(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Now())
	active := tracker.Paths().Active
	claim := active + ".claimed"
	require.NoError(t, os.WriteFile(claim, []byte("2026-10-19T09:00:00Z,old,\n"), 0644))
	require.NoError(t, os.WriteFile(active, []byte("2026-10-19T10:00:00Z,new,\n"), 0644))

	err := restoreActive(claim, active)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrExist))

	s, err := tracker.Status()
	require.NoError(t, err)
	assert.Equal(t, "new", s.Description)
	assert.FileExists(t, claim, "claimed session must not be lost")
}

func TestRestoreMovesClaimBack(t *testing.T) {
	dir := t.TempDir()
	claim := filepath.Join(dir, ".dw.tmp.claimed")
	active := filepath.Join(dir, ".dw.tmp")
	require.NoError(t, os.WriteFile(claim, []byte("2026-10-19T09:00:00Z,old,\n"), 0644))

	require.NoError(t, restoreActive(claim, active))
	assert.FileExists(t, active)
	assert.NoFileExists(t, claim)
}

func TestStopFractionalScratchStart(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Date(2026, 10, 19, 9, 0, 5, 0, time.UTC))
	require.NoError(t, os.WriteFile(tracker.Paths().Active, []byte("2026-10-19T09:00:00.900000000Z,d,t\n"), 0644))

	s, err := tracker.Stop()
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.DurationSeconds)

	lines := readLines(t, tracker.Paths().Log)
	require.Len(t, lines, 1)
	assert.Equal(t, "2026-10-19T09:00:00Z,2026-10-19T09:00:05Z,5,d,t", lines[0])

	logged, err := record.Decode(lines[0])
	require.NoError(t, err)
	assert.Equal(t, int64(logged.Stop.Sub(logged.Start)/time.Second), logged.DurationSeconds)
}

func TestStopMalformedScratchFile(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Now())
	require.NoError(t, os.WriteFile(tracker.Paths().Active, []byte("not a time,,\n"), 0644))

	_, err := tracker.Stop()
	var pe *record.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "start", pe.Field)
	assert.True(t, tracker.IsActive())
}

func TestStopUsesLastScratchRecord(t *testing.T) {
	tracker, clock := newTestTracker(t, time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	scratch := "2026-10-19T09:00:00Z,old,\n2026-10-19T11:00:00Z,new,x\n"
	require.NoError(t, os.WriteFile(tracker.Paths().Active, []byte(scratch), 0644))

	s, err := tracker.Stop()
	require.NoError(t, err)
	assert.Equal(t, "new", s.Description)
	assert.Equal(t, int64(3600), s.DurationSeconds)
	assert.Equal(t, clock.Now(), s.Stop)
}

func TestStatusIsReadOnly(t *testing.T) {
	tracker, clock := newTestTracker(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local))

	_, err := tracker.Status()
	assert.ErrorIs(t, err, ErrNoActiveSession)

	started, err := tracker.Start("focus", []string{"go"})
	require.NoError(t, err)
	before, err := os.ReadFile(tracker.Paths().Active)
	require.NoError(t, err)

	clock.Advance(90 * time.Second)
	s, err := tracker.Status()
	require.NoError(t, err)
	assert.True(t, s.Start.Equal(started.Start))
	assert.Equal(t, 90*time.Second, s.Elapsed(tracker.Now()))

	after, err := os.ReadFile(tracker.Paths().Active)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSummaryCountsOnlyToday(t *testing.T) {
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.Local)
	tracker, _ := newTestTracker(t, now)

	yesterday := now.AddDate(0, 0, -1)
	log := strings.Join([]string{
		record.Encode(sessionAt(yesterday.Add(-2*time.Hour), 2*time.Hour)),
		record.Encode(sessionAt(now.Add(-3*time.Hour), 45*time.Minute)),
		record.Encode(sessionAt(now.Add(-1*time.Hour), 30*time.Minute+5*time.Second)),
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(tracker.Paths().Log, []byte(log), 0644))

	summary, err := tracker.Summary(now)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Sessions)
	assert.Equal(t, 75*time.Minute+5*time.Second, summary.Total)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.Local), summary.Date)

	summary, err = tracker.Summary(yesterday)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sessions)
	assert.Equal(t, 2*time.Hour, summary.Total)
}

func TestSummaryMissingLog(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Now())

	summary, err := tracker.Summary(time.Now())
	require.NoError(t, err)
	assert.Zero(t, summary.Sessions)
	assert.Zero(t, summary.Total)
}

func TestSummaryAbortsOnMalformedRecord(t *testing.T) {
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.Local)
	tracker, _ := newTestTracker(t, now)

	log := record.Encode(sessionAt(now.Add(-time.Hour), time.Hour)) + "\n" +
		"2026-10-19T10:00:00Z,2026-10-19T11:00:00Z,sixty,,\n"
	require.NoError(t, os.WriteFile(tracker.Paths().Log, []byte(log), 0644))

	_, err := tracker.Summary(now)
	var pe *record.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Record)
}

func TestSessionsOn(t *testing.T) {
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.Local)
	tracker, _ := newTestTracker(t, now)

	log := record.Encode(sessionAt(now.AddDate(0, 0, -2), time.Hour)) + "\n" +
		record.Encode(sessionAt(now.Add(-time.Hour), time.Minute)) + "\n"
	require.NoError(t, os.WriteFile(tracker.Paths().Log, []byte(log), 0644))

	sessions, err := tracker.SessionsOn(now)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(60), sessions[0].DurationSeconds)
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    []string
		wantErr bool
	}{
		{"nil", nil, nil, false},
		{"default empty tag", []string{""}, nil, false},
		{"trimmed", []string{" design ", "review"}, []string{"design", "review"}, false},
		{"inner space", []string{"deep work"}, nil, true},
		{"inner tab", []string{"a\tb"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTags(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
