package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/strrl/dw/pkg/models"
)

// watchModel shows the running session and refreshes the elapsed time
// every second until the session is stopped or the user quits.
type watchModel struct {
	session models.Session
	ended   <-chan struct{}
	elapsed time.Duration
	stopped bool
}

func newWatchModel(session models.Session, ended <-chan struct{}, now time.Time) watchModel {
	return watchModel{
		session: session,
		ended:   ended,
		elapsed: session.Elapsed(now),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(clockCmd(), waitForEndCmd(m.ended))
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case ClockMsg:
		m.elapsed = m.session.Elapsed(time.Time(msg))
		return m, clockCmd()

	case SessionEndedMsg:
		m.stopped = true
		return m, tea.Quit
	}

	return m, nil
}

func (m watchModel) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Deep work in progress") + "\n\n")

	hrs, mins, secs := models.SplitDuration(m.elapsed)
	s.WriteString(fmt.Sprintf("Start: %s\n", valueStyle.Render(m.session.Start.Format("15:04:05"))))
	s.WriteString(fmt.Sprintf("Time Elapsed: %s\n", valueStyle.Render(
		fmt.Sprintf("%d hour(s), %d minute(s), %d second(s)", hrs, mins, secs))))
	if m.session.Description != "" {
		s.WriteString(fmt.Sprintf("Description: %s\n", valueStyle.Render(m.session.Description)))
	}
	if len(m.session.Tags) > 0 {
		s.WriteString(fmt.Sprintf("Tags: %s\n", valueStyle.Render(strings.Join(m.session.Tags, " "))))
	}

	s.WriteString("\n")
	if m.stopped {
		s.WriteString(mutedStyle.Render("Session stopped.") + "\n")
	} else {
		s.WriteString(hintStyle.Render("q: quit (the session keeps running)") + "\n")
	}

	return s.String()
}

// RunWatch shows session until ended is closed or the user quits.
// It reports whether the session was stopped while watching.
func RunWatch(session models.Session, ended <-chan struct{}, now time.Time) (bool, error) {
	p := tea.NewProgram(newWatchModel(session, ended, now))

	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}

	m, ok := finalModel.(watchModel)
	return ok && m.stopped, nil
}
