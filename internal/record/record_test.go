package record

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strrl/dw/pkg/models"
)

func TestRoundTrip(t *testing.T) {
	lines := []string{
		"2026-10-19T09:00:00+02:00,2026-10-19T10:30:15+02:00,5415,write spec,design review",
		"2026-10-19T09:00:00Z,2026-10-19T09:00:00Z,0,,",
		`2026-10-19T09:00:00-05:00,2026-10-19T09:45:00-05:00,2700,"refactor parser, part 2",go`,
		`2026-10-19T09:00:00Z,2026-10-19T09:01:00Z,60,"say ""hi""",`,
		"2026-10-19T09:00:00Z,2026-10-19T09:01:00Z,60,\"two\nlines\",notes",
		"2026-10-19T09:00:00.123456789-05:00,2026-10-19T09:01:00.5-05:00,60,x,y",
		"2026-10-19T09:00:00+00:00,2026-10-19T09:30:00.000+00:00,1800,x,y",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			s, err := Decode(line)
			require.NoError(t, err)
			assert.Equal(t, line, Encode(s))
		})
	}
}

func TestActiveRoundTrip(t *testing.T) {
	lines := []string{
		"2026-10-19T09:00:00+02:00,write spec,design review",
		"2026-10-19T09:00:00Z,,",
		`2026-10-19T09:00:00Z,"a, b",x`,
		"2026-10-19T09:00:00.123456789+00:00,,",
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			s, err := DecodeActive(line)
			require.NoError(t, err)
			assert.True(t, s.Active())
			assert.Equal(t, line, EncodeActive(s))
		})
	}
}

func TestEncodeRewritesChangedTimestamps(t *testing.T) {
	s, err := DecodeActive("2026-10-19T09:00:00.900+00:00,d,t")
	require.NoError(t, err)

	done := s.Complete(time.Date(2026, 10, 19, 9, 0, 5, 0, time.UTC))
	assert.Equal(t, "2026-10-19T09:00:00Z,2026-10-19T09:00:05Z,5,d,t", Encode(done))

	// same instant in another offset is not the recorded spelling
	s.Start = s.Start.In(time.FixedZone("", 2*3600))
	assert.Equal(t, "2026-10-19T11:00:00.9+02:00,d,t", EncodeActive(s))
}

func TestDecodeFields(t *testing.T) {
	s, err := Decode("2026-10-19T09:00:00Z,2026-10-19T10:00:00Z,3600,deep focus,design review")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), s.Start.UTC())
	assert.Equal(t, time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC), s.Stop.UTC())
	assert.Equal(t, int64(3600), s.DurationSeconds)
	assert.Equal(t, time.Hour, s.Duration())
	assert.Equal(t, "deep focus", s.Description)
	assert.Equal(t, []string{"design", "review"}, s.Tags)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		field string
	}{
		{"bad start", "yesterday,2026-10-19T10:00:00Z,3600,,", "start"},
		{"bad stop", "2026-10-19T09:00:00Z,later,3600,,", "stop"},
		{"bad duration", "2026-10-19T09:00:00Z,2026-10-19T10:00:00Z,an hour,,", "duration"},
		{"negative duration", "2026-10-19T09:00:00Z,2026-10-19T10:00:00Z,-1,,", "duration"},
		{"stop before start", "2026-10-19T10:00:00Z,2026-10-19T09:00:00Z,0,,", "stop"},
		{"too few fields", "2026-10-19T09:00:00Z,desc,tags", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.line)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected *ParseError, got %T", err)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestDurationMatchesTimestamps(t *testing.T) {
	start := time.Date(2026, 10, 19, 8, 59, 59, 0, time.Local)
	stops := []time.Duration{0, time.Second, 90 * time.Minute, 25*time.Hour + 7*time.Second}
	for _, d := range stops {
		// sub-second noise is dropped when the session is completed
		s := models.Session{Start: start}.Complete(start.Add(d + 400*time.Millisecond))

		decoded, err := Decode(Encode(s))
		require.NoError(t, err)
		assert.Equal(t, int64(decoded.Stop.Sub(decoded.Start)/time.Second), decoded.DurationSeconds)
		assert.Equal(t, int64(d/time.Second), decoded.DurationSeconds)
	}
}

func TestReaderReportsRecordNumber(t *testing.T) {
	input := strings.Join([]string{
		"2026-10-19T09:00:00Z,2026-10-19T10:00:00Z,3600,,",
		"",
		"2026-10-19T11:00:00Z,2026-10-19T11:30:00Z,1800,,",
		"2026-10-19T12:00:00Z,2026-10-19T12:30:00Z,half,,",
	}, "\n")

	r := NewReader(strings.NewReader(input))
	for i := 0; i < 2; i++ {
		_, err := r.Read()
		require.NoError(t, err)
	}

	_, err := r.Read()
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Record)
	assert.Equal(t, "duration", pe.Field)
	assert.Contains(t, pe.Error(), "malformed record 3")
}

func TestReadAll(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		sessions, err := ReadAll(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})

	t.Run("stops at bad quoting", func(t *testing.T) {
		input := "2026-10-19T09:00:00Z,2026-10-19T10:00:00Z,3600,\"open,\n"
		_, err := ReadAll(strings.NewReader(input))
		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, 1, pe.Record)
	})
}

func TestReadLastActive(t *testing.T) {
	input := "2026-10-19T09:00:00Z,first,\n2026-10-19T10:00:00Z,second,a b\n"
	s, err := ReadLastActive(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "second", s.Description)
	assert.Equal(t, []string{"a", "b"}, s.Tags)

	_, err = ReadLastActive(strings.NewReader(""))
	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestReaderPassesThroughIOErrors(t *testing.T) {
	_, err := NewReader(failingReader{}).Read()
	require.Error(t, err)

	var pe *ParseError
	assert.False(t, errors.As(err, &pe))
}
