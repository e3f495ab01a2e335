package sessions

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/strrl/dw/internal/record"
	"github.com/strrl/dw/pkg/models"
)

// Paths locates the two session files
type Paths struct {
	Log    string // append-only log of completed sessions
	Active string // scratch file holding the running session
}

// PathsIn returns Paths for the given file names inside dir
func PathsIn(dir, logName, activeName string) Paths {
	return Paths{
		Log:    filepath.Join(dir, logName),
		Active: filepath.Join(dir, activeName),
	}
}

// Tracker runs the start/stop/status/summary operations against a pair of files
type Tracker struct {
	paths  Paths
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates a tracker for paths
func NewTracker(paths Paths, opts ...Option) *Tracker {
	t := &Tracker{
		paths:  paths,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Paths returns the files the tracker operates on
func (t *Tracker) Paths() Paths {
	return t.paths
}

// Now returns the tracker's current time, truncated to seconds
func (t *Tracker) Now() time.Time {
	return t.now().Truncate(time.Second)
}

// Start records a new active session.
// It returns ErrSessionActive if the scratch file already exists.
func (t *Tracker) Start(description string, tags []string) (models.Session, error) {
	tags, err := NormalizeTags(tags)
	if err != nil {
		return models.Session{}, err
	}

	session := models.Session{
		Start:       t.Now(),
		Description: description,
		Tags:        tags,
	}

	if err := os.MkdirAll(filepath.Dir(t.paths.Active), 0755); err != nil {
		return models.Session{}, &IOError{Op: "create directory for", Path: t.paths.Active, Err: err}
	}

	// O_EXCL makes the existence check and the creation one step
	f, err := os.OpenFile(t.paths.Active, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			t.logger.Debug().Str("path", t.paths.Active).Msg("scratch file exists, not starting")
			return models.Session{}, ErrSessionActive
		}
		return models.Session{}, &IOError{Op: "create", Path: t.paths.Active, Err: err}
	}

	_, werr := f.WriteString(record.EncodeActive(session) + "\n")
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		if rmErr := os.Remove(t.paths.Active); rmErr != nil {
			t.logger.Warn().Err(rmErr).Str("path", t.paths.Active).Msg("failed to remove partial scratch file")
		}
		return models.Session{}, &IOError{Op: "write", Path: t.paths.Active, Err: werr}
	}

	t.logger.Debug().
		Time("start", session.Start).
		Strs("tags", session.Tags).
		Msg("session started")
	return session, nil
}

// Stop completes the active session and appends it to the log.
// It returns ErrNoActiveSession if there is no scratch file.
func (t *Tracker) Stop() (models.Session, error) {
	// Claim the scratch file so a concurrent stop cannot log the session twice
	claim := t.paths.Active + "." + uuid.NewString()
	if err := os.Rename(t.paths.Active, claim); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Session{}, ErrNoActiveSession
		}
		return models.Session{}, &IOError{Op: "claim", Path: t.paths.Active, Err: err}
	}
	t.logger.Debug().Str("claim", claim).Msg("claimed scratch file")

	release := func() {
		if err := restoreActive(claim, t.paths.Active); err != nil {
			t.logger.Error().Err(err).Str("claim", claim).Msg("failed to restore scratch file, session kept in claim file")
		}
	}

	active, err := readActive(claim)
	if err != nil {
		release()
		return models.Session{}, err
	}

	completed := active.Complete(t.now())
	if err := t.appendLog(completed); err != nil {
		release()
		return models.Session{}, err
	}

	if err := os.Remove(claim); err != nil {
		return completed, &IOError{Op: "remove", Path: claim, Err: err}
	}

	t.logger.Debug().
		Time("start", completed.Start).
		Time("stop", completed.Stop).
		Int64("seconds", completed.DurationSeconds).
		Msg("session stopped")
	return completed, nil
}

// Status returns the active session without modifying anything.
// It returns ErrNoActiveSession if there is no scratch file.
func (t *Tracker) Status() (models.Session, error) {
	session, err := readActive(t.paths.Active)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Session{}, ErrNoActiveSession
	}
	return session, err
}

// IsActive reports whether the scratch file exists
func (t *Tracker) IsActive() bool {
	info, err := os.Stat(t.paths.Active)
	return err == nil && info.Mode().IsRegular()
}

// Summary totals the completed sessions that started on day's calendar date,
// in day's location. Any malformed record aborts the summary.
func (t *Tracker) Summary(day time.Time) (models.DaySummary, error) {
	summary := models.DaySummary{Date: startOfDay(day)}

	sessions, err := t.History()
	if err != nil {
		return models.DaySummary{}, err
	}

	var seconds int64
	for _, s := range sessions {
		if !sameDay(s.Start, day) {
			continue
		}
		summary.Sessions++
		seconds += s.DurationSeconds
	}
	summary.Total = time.Duration(seconds) * time.Second

	t.logger.Debug().
		Str("date", summary.Date.Format("2006-01-02")).
		Int("sessions", summary.Sessions).
		Int64("seconds", seconds).
		Msg("summary computed")
	return summary, nil
}

// SessionsOn returns the completed sessions that started on day, oldest first
func (t *Tracker) SessionsOn(day time.Time) ([]models.Session, error) {
	sessions, err := t.History()
	if err != nil {
		return nil, err
	}

	var result []models.Session
	for _, s := range sessions {
		if sameDay(s.Start, day) {
			result = append(result, s)
		}
	}
	return result, nil
}

// History returns every completed session in log order.
// A missing log is an empty history.
func (t *Tracker) History() ([]models.Session, error) {
	f, err := os.Open(t.paths.Log)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &IOError{Op: "open", Path: t.paths.Log, Err: err}
	}
	defer f.Close()

	sessions, err := record.ReadAll(f)
	if err != nil {
		return nil, wrapRead(t.paths.Log, err)
	}
	return sessions, nil
}

func (t *Tracker) appendLog(s models.Session) error {
	if err := os.MkdirAll(filepath.Dir(t.paths.Log), 0755); err != nil {
		return &IOError{Op: "create directory for", Path: t.paths.Log, Err: err}
	}

	f, err := os.OpenFile(t.paths.Log, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &IOError{Op: "open", Path: t.paths.Log, Err: err}
	}

	// one write per record keeps O_APPEND writes whole
	if _, err := f.WriteString(record.Encode(s) + "\n"); err != nil {
		f.Close()
		return &IOError{Op: "append to", Path: t.paths.Log, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: t.paths.Log, Err: err}
	}
	return nil
}

// restoreActive moves a claimed scratch file back into place.
// It fails rather than replace a scratch file created since the claim.
func restoreActive(claim, active string) error {
	if err := os.Link(claim, active); err != nil {
		return &IOError{Op: "restore", Path: active, Err: err}
	}
	if err := os.Remove(claim); err != nil {
		return &IOError{Op: "remove", Path: claim, Err: err}
	}
	return nil
}

// readActive reads the last record of a scratch file.
// A missing file is reported as an error wrapping fs.ErrNotExist.
func readActive(path string) (models.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Session{}, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	session, err := record.ReadLastActive(f)
	if err != nil {
		return models.Session{}, wrapRead(path, err)
	}
	return session, nil
}

func wrapRead(path string, err error) error {
	var pe *record.ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &IOError{Op: "read", Path: path, Err: err}
}

// NormalizeTags drops empty tags and rejects tags that would not survive
// being joined with spaces.
func NormalizeTags(tags []string) ([]string, error) {
	var result []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if strings.IndexFunc(tag, unicode.IsSpace) >= 0 {
			return nil, &ValidationError{Field: "tag", Value: tag, Reason: "tags cannot contain whitespace"}
		}
		result = append(result, tag)
	}
	return result, nil
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
