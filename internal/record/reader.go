package record

import (
	"encoding/csv"
	"errors"
	"io"

	"github.com/strrl/dw/pkg/models"
)

// Reader reads log records one at a time
type Reader struct {
	r      *csv.Reader
	active bool
	n      int
}

// NewReader returns a Reader for completed log records
func NewReader(r io.Reader) *Reader {
	return &Reader{r: newCSVReader(r)}
}

// NewActiveReader returns a Reader for scratch records
func NewActiveReader(r io.Reader) *Reader {
	return &Reader{r: newCSVReader(r), active: true}
}

// Read returns the next session, or io.EOF when the input is exhausted.
// Errors are *ParseError values carrying the record number.
func (r *Reader) Read() (models.Session, error) {
	fields, err := r.r.Read()
	if err == io.EOF {
		return models.Session{}, io.EOF
	}
	r.n++
	if err != nil {
		var csvErr *csv.ParseError
		if errors.As(err, &csvErr) {
			return models.Session{}, &ParseError{Record: r.n, Err: csvErr.Err}
		}
		// failures of the underlying reader are not parse errors
		return models.Session{}, err
	}

	var s models.Session
	if r.active {
		s, err = decodeActive(fields)
	} else {
		s, err = decodeLog(fields)
	}
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Record = r.n
		}
		return models.Session{}, err
	}
	return s, nil
}

// ReadAll reads every completed record, stopping at the first malformed one
func ReadAll(r io.Reader) ([]models.Session, error) {
	reader := NewReader(r)
	var sessions []models.Session
	for {
		s, err := reader.Read()
		if err == io.EOF {
			return sessions, nil
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
}

// ReadLastActive returns the last scratch record in r
func ReadLastActive(r io.Reader) (models.Session, error) {
	reader := NewActiveReader(r)
	var (
		last  models.Session
		found bool
	)
	for {
		s, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.Session{}, err
		}
		last, found = s, true
	}
	if !found {
		return models.Session{}, &ParseError{Err: errors.New("no session record")}
	}
	return last, nil
}
