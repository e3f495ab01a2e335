package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/strrl/dw/internal/sessions"
	"github.com/strrl/dw/pkg/models"
)

// ReportLoader runs report queries in the background
type ReportLoader interface {
	Submit(ctx context.Context, q sessions.ReportQuery) (string, <-chan sessions.ReportResult)
	Cancel(requestID string)
	CancelAll()
}

var errLoaderClosed = errors.New("report loader is closed")

// Message types for async operations
type (
	// ReportStartedMsg indicates a report query was queued
	ReportStartedMsg struct {
		RequestID string
		Results   <-chan sessions.ReportResult
	}

	// ReportLoadedMsg contains the loaded report
	ReportLoadedMsg struct {
		RequestID string
		Rows      []models.ReportRow
		Error     error
	}

	// SessionEndedMsg indicates the watched session was stopped elsewhere
	SessionEndedMsg struct{}

	// TickMsg is sent periodically for spinner animation
	TickMsg time.Time

	// ClockMsg is sent every second to refresh elapsed time
	ClockMsg time.Time
)

// submitReportCmd queues a report query
func submitReportCmd(ctx context.Context, loader ReportLoader, q sessions.ReportQuery) tea.Cmd {
	return func() tea.Msg {
		id, results := loader.Submit(ctx, q)
		if results == nil {
			return ReportLoadedMsg{Error: errLoaderClosed}
		}
		return ReportStartedMsg{RequestID: id, Results: results}
	}
}

// waitForReportCmd waits for a queued report to finish
func waitForReportCmd(requestID string, results <-chan sessions.ReportResult) tea.Cmd {
	return func() tea.Msg {
		result, ok := <-results
		if !ok {
			return ReportLoadedMsg{RequestID: requestID, Error: errLoaderClosed}
		}
		return ReportLoadedMsg{
			RequestID: result.RequestID,
			Rows:      result.Rows,
			Error:     result.Error,
		}
	}
}

// waitForEndCmd waits for the watched session to end
func waitForEndCmd(ended <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ended
		return SessionEndedMsg{}
	}
}

// tickCmd creates a ticker for spinner animation
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// clockCmd ticks once a second
func clockCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return ClockMsg(t)
	})
}
