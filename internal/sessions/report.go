package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/strrl/dw/internal/db"
	"github.com/strrl/dw/pkg/models"
)

// GroupBy selects how a report aggregates sessions
type GroupBy string

const (
	GroupByDay GroupBy = "day"
	GroupByTag GroupBy = "tag"
)

// ParseGroupBy validates a --by value
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(s) {
	case GroupByDay, GroupByTag:
		return GroupBy(s), nil
	default:
		return "", &ValidationError{Field: "group", Value: s, Reason: "must be day or tag"}
	}
}

// ReportQuery describes an aggregation over the session log
type ReportQuery struct {
	LogPath string
	Since   time.Time // start of the first day included
	Until   time.Time // start of the day after the last one included
	GroupBy GroupBy
}

// NewReportQuery covers the last days days up to and including now's date.
// Days are calendar days in now's location.
func NewReportQuery(logPath string, now time.Time, days int, groupBy GroupBy) ReportQuery {
	if days < 1 {
		days = 1
	}
	today := startOfDay(now)
	return ReportQuery{
		LogPath: logPath,
		Since:   today.AddDate(0, 0, -(days - 1)),
		Until:   today.AddDate(0, 0, 1),
		GroupBy: groupBy,
	}
}

// logColumns reads every column as text; the codec owns validation
const logColumns = `columns = {
			'start': 'VARCHAR',
			'stop': 'VARCHAR',
			'duration': 'VARCHAR',
			'description': 'VARCHAR',
			'tags': 'VARCHAR'
		}`

// boundLayout is a timestamp DuckDB casts to TIMESTAMPTZ without the ICU extension
const boundLayout = "2006-01-02 15:04:05+00"

// dayRows renders one VALUES row per local day with its bounds in UTC,
// so sessions are bucketed by the same calendar date Summary uses.
func (q ReportQuery) dayRows() (string, []interface{}) {
	var (
		rows []string
		args []interface{}
	)
	for day := q.Since; day.Before(q.Until); day = day.AddDate(0, 0, 1) {
		rows = append(rows, "(CAST(? AS VARCHAR), CAST(? AS TIMESTAMPTZ), CAST(? AS TIMESTAMPTZ))")
		args = append(args,
			day.Format("2006-01-02"),
			day.UTC().Format(boundLayout),
			day.AddDate(0, 0, 1).UTC().Format(boundLayout),
		)
	}
	return strings.Join(rows, ",\n\t\t\t\t"), args
}

// SQL renders the query and its arguments
func (q ReportQuery) SQL() (string, []interface{}) {
	source := fmt.Sprintf(`read_csv(%s,
		header = false,
		delim = ',',
		quote = '"',
		escape = '"',
		%s
	)`, db.QuoteLiteral(q.LogPath), logColumns)
	values, args := q.dayRows()

	base := fmt.Sprintf(`
		WITH days AS (
			SELECT * FROM (VALUES
				%s
			) AS d(day_key, day_start, day_end)
		),
		logged AS (
			SELECT days.day_key, entries.duration, entries.tags
			FROM %s AS entries
			JOIN days
				ON CAST(entries.start AS TIMESTAMPTZ) >= days.day_start
				AND CAST(entries.start AS TIMESTAMPTZ) < days.day_end
		)`, values, source)

	if q.GroupBy == GroupByTag {
		return base + `
		SELECT
			tag AS group_key,
			COUNT(*) AS sessions,
			CAST(COALESCE(SUM(CAST(duration AS BIGINT)), 0) AS BIGINT) AS seconds
		FROM (
			SELECT
				unnest(string_split(COALESCE(tags, ''), ' ')) AS tag,
				duration
			FROM logged
		)
		WHERE tag <> ''
		GROUP BY tag
		ORDER BY seconds DESC, group_key
	`, args
	}

	return base + `
		SELECT
			day_key AS group_key,
			COUNT(*) AS sessions,
			CAST(COALESCE(SUM(CAST(duration AS BIGINT)), 0) AS BIGINT) AS seconds
		FROM logged
		GROUP BY day_key
		ORDER BY group_key DESC
	`, args
}

// FetchReport runs q synchronously
func FetchReport(ctx context.Context, database *sql.DB, q ReportQuery) ([]models.ReportRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	empty, err := logIsEmpty(q.LogPath)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}

	query, args := q.SQL()
	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute report query: %w", err)
	}
	defer rows.Close()

	var report []models.ReportRow
	for rows.Next() {
		// Check for cancellation
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var row models.ReportRow
		if err := rows.Scan(&row.Key, &row.Sessions, &row.TotalSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read report rows: %w", err)
	}

	return report, nil
}

// FetchReportAsync runs q on the shared DuckDB connection, returning early if
// ctx is cancelled
func FetchReportAsync(ctx context.Context, q ReportQuery) ([]models.ReportRow, error) {
	empty, err := logIsEmpty(q.LogPath)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, nil
	}

	database, err := db.GetDB()
	if err != nil {
		return nil, err
	}

	resultChan := ExecuteReportQueryAsync(ctx, database, q)

	// Wait for result or cancellation
	select {
	case result := <-resultChan:
		return result.Rows, result.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// logIsEmpty reports whether there is nothing to aggregate.
// DuckDB cannot sniff an empty CSV file.
func logIsEmpty(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, &IOError{Op: "stat", Path: path, Err: err}
	}
	return info.Size() == 0, nil
}
