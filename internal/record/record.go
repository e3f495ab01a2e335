// Package record encodes deep work sessions as CSV lines.
//
// A completed session is stored as
//
//	start,stop,duration_seconds,description,tags
//
// and the in-progress session in the scratch file as
//
//	start,description,tags
//
// Timestamps are RFC3339 with optional fractional seconds, tags are joined
// with a single space.
package record

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/strrl/dw/pkg/models"
)

const (
	// LogFields is the number of fields in a completed record
	LogFields = 5
	// ActiveFields is the number of fields in a scratch record
	ActiveFields = 3
)

// ParseError reports a malformed record
type ParseError struct {
	Record int // 1-based record number, 0 when decoding a single line
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("malformed record")
	if e.Record > 0 {
		fmt.Fprintf(&b, " %d", e.Record)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %s %q", e.Field, e.Value)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	errFieldCount      = errors.New("unexpected number of fields")
	errNegative        = errors.New("negative duration")
	errStopBeforeStart = errors.New("stop is before start")
)

// Encode renders a completed session as a log line without the trailing newline
func Encode(s models.Session) string {
	return encodeFields([]string{
		formatTime(s.Start, s.StartText),
		formatTime(s.Stop, s.StopText),
		strconv.FormatInt(s.DurationSeconds, 10),
		s.Description,
		JoinTags(s.Tags),
	})
}

// EncodeActive renders an in-progress session as a scratch line
func EncodeActive(s models.Session) string {
	return encodeFields([]string{
		formatTime(s.Start, s.StartText),
		s.Description,
		JoinTags(s.Tags),
	})
}

// Decode parses a single log line
func Decode(line string) (models.Session, error) {
	fields, err := readLine(line)
	if err != nil {
		return models.Session{}, err
	}
	return decodeLog(fields)
}

// DecodeActive parses a single scratch line
func DecodeActive(line string) (models.Session, error) {
	fields, err := readLine(line)
	if err != nil {
		return models.Session{}, err
	}
	return decodeActive(fields)
}

// JoinTags joins tags into the stored representation
func JoinTags(tags []string) string {
	return strings.Join(tags, " ")
}

// SplitTags splits the stored representation back into tags
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func encodeFields(fields []string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// Write only fails on the underlying writer, a bytes.Buffer never does
	_ = w.Write(fields)
	w.Flush()
	return strings.TrimSuffix(buf.String(), "\n")
}

func readLine(line string) ([]string, error) {
	r := newCSVReader(strings.NewReader(line))
	fields, err := r.Read()
	if err == io.EOF {
		return nil, &ParseError{Err: errors.New("empty record")}
	}
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return fields, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	// field counts differ between log and scratch records, checked per record
	cr.FieldsPerRecord = -1
	return cr
}

func decodeLog(fields []string) (models.Session, error) {
	if len(fields) != LogFields {
		return models.Session{}, &ParseError{Value: strings.Join(fields, ","), Err: errFieldCount}
	}

	start, err := parseTime("start", fields[0])
	if err != nil {
		return models.Session{}, err
	}
	stop, err := parseTime("stop", fields[1])
	if err != nil {
		return models.Session{}, err
	}
	duration, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return models.Session{}, &ParseError{Field: "duration", Value: fields[2], Err: err}
	}
	if duration < 0 {
		return models.Session{}, &ParseError{Field: "duration", Value: fields[2], Err: errNegative}
	}
	if stop.Before(start) {
		return models.Session{}, &ParseError{Field: "stop", Value: fields[1], Err: errStopBeforeStart}
	}

	return models.Session{
		Start:           start,
		Stop:            stop,
		DurationSeconds: duration,
		Description:     fields[3],
		Tags:            SplitTags(fields[4]),
		StartText:       fields[0],
		StopText:        fields[1],
	}, nil
}

func decodeActive(fields []string) (models.Session, error) {
	if len(fields) != ActiveFields {
		return models.Session{}, &ParseError{Value: strings.Join(fields, ","), Err: errFieldCount}
	}

	start, err := parseTime("start", fields[0])
	if err != nil {
		return models.Session{}, err
	}

	return models.Session{
		Start:       start,
		Description: fields[1],
		Tags:        SplitTags(fields[2]),
		StartText:   fields[0],
	}, nil
}

// formatTime returns text if it still denotes t in the same offset, so that
// spellings such as "+00:00" or trailing fractional zeros survive a rewrite.
func formatTime(t time.Time, text string) string {
	if text != "" {
		if parsed, err := time.Parse(time.RFC3339, text); err == nil && parsed.Equal(t) {
			_, want := t.Zone()
			if _, got := parsed.Zone(); got == want {
				return text
			}
		}
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &ParseError{Field: field, Value: value, Err: err}
	}
	return t, nil
}
