package models

import "time"

// Session represents a deep work session.
// Stop is zero and DurationSeconds is 0 while the session is active.
type Session struct {
	Start           time.Time
	Stop            time.Time
	DurationSeconds int64
	Description     string
	Tags            []string

	// StartText and StopText hold the timestamps as read from disk.
	// They are written back unchanged while they still match Start and Stop.
	StartText string
	StopText  string
}

// Active reports whether the session has not been stopped yet
func (s Session) Active() bool {
	return s.Stop.IsZero()
}

// Duration returns the recorded duration of a completed session
func (s Session) Duration() time.Duration {
	return time.Duration(s.DurationSeconds) * time.Second
}

// Elapsed returns the time between Start and now, truncated to seconds
func (s Session) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.Start).Truncate(time.Second)
}

// Complete returns a copy of the session stopped at stop.
// Both ends are truncated to whole seconds so the duration matches them.
func (s Session) Complete(stop time.Time) Session {
	s.Start = s.Start.Truncate(time.Second)
	stop = stop.Truncate(time.Second)
	if stop.Before(s.Start) {
		// clock moved backwards since start
		stop = s.Start
	}
	s.Stop = stop
	s.DurationSeconds = int64(stop.Sub(s.Start) / time.Second)
	return s
}

// DaySummary aggregates the completed sessions of one local calendar day
type DaySummary struct {
	Date     time.Time
	Sessions int
	Total    time.Duration
}

// ReportRow is one group of an aggregated report (a day or a tag)
type ReportRow struct {
	Key          string
	Sessions     int
	TotalSeconds int64
}

// Total returns the row total as a duration
func (r ReportRow) Total() time.Duration {
	return time.Duration(r.TotalSeconds) * time.Second
}

// SplitDuration breaks d into whole hours, minutes and seconds
func SplitDuration(d time.Duration) (hours, minutes, seconds int64) {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	return total / 3600, (total / 60) % 60, total % 60
}
