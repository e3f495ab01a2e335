package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/strrl/dw/pkg/models"
)

const (
	clockLayout = "15:04:05"
	dateLayout  = "Monday, January _2, 2006"
	dayLayout   = "2006-01-02"
)

var valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))

func value(v interface{}) string {
	return valueStyle.Render(fmt.Sprint(v))
}

func printStart(w io.Writer, s models.Session) {
	fmt.Fprintf(w, "Start: %s\n", value(s.Start.Format(clockLayout)))
}

func printStop(w io.Writer, s models.Session) {
	fmt.Fprintf(w, "Stop: %s\n", value(s.Stop.Format(clockLayout)))
}

func printElapsed(w io.Writer, d time.Duration) {
	h, m, s := models.SplitDuration(d)
	fmt.Fprintf(w, "Time Elapsed: %s hour(s), %s minute(s), %s second(s)\n", value(h), value(m), value(s))
}

func printDetails(w io.Writer, s models.Session) {
	if s.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", s.Description)
	}
	if len(s.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(s.Tags, " "))
	}
}

// totalText renders a total as "X hour(s) Y minute(s) Z second(s)"
func totalText(d time.Duration) string {
	h, m, s := models.SplitDuration(d)
	return fmt.Sprintf("%s hour(s) %s minute(s) %s second(s)", value(h), value(m), value(s))
}

func sessionsText(n int) string {
	if n == 1 {
		return "1 session"
	}
	return fmt.Sprintf("%d sessions", n)
}

// parseDay parses a YYYY-MM-DD flag value as a local calendar day
func parseDay(s string) (time.Time, error) {
	day, err := time.ParseInLocation(dayLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return day, nil
}
