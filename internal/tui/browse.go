package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/strrl/dw/internal/sessions"
	"github.com/strrl/dw/pkg/models"
)

const dayKeyLayout = "2006-01-02"

// DayLoader returns the completed sessions that started on day
type DayLoader func(day time.Time) ([]models.Session, error)

type browseModel struct {
	ctx     context.Context
	loader  ReportLoader
	query   sessions.ReportQuery
	loadDay DayLoader

	days        []models.ReportRow
	cursor      int
	daySessions []models.Session
	dayErr      error

	leftViewport  viewport.Model // days list
	rightViewport viewport.Model // sessions of the highlighted day

	loadingState sessions.LoadingState
	requestID    string
	indicator    *LoadingIndicator
	cancelled    bool

	ready  bool
	err    error
	width  int
	height int
}

func newBrowseModel(ctx context.Context, loader ReportLoader, q sessions.ReportQuery, loadDay DayLoader) browseModel {
	return browseModel{
		ctx:          ctx,
		loader:       loader,
		query:        q,
		loadDay:      loadDay,
		loadingState: sessions.StateLoadingReport,
		indicator:    NewLoadingIndicator("Loading deep work history..."),
	}
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(submitReportCmd(m.ctx, m.loader, m.query), tickCmd())
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		leftWidth := msg.Width/3 - 1
		rightWidth := msg.Width - leftWidth - 1
		viewHeight := msg.Height - 3

		if !m.ready {
			m.leftViewport = viewport.New(leftWidth, viewHeight)
			m.rightViewport = viewport.New(rightWidth, viewHeight)
			m.ready = true
		} else {
			m.leftViewport.Width = leftWidth
			m.leftViewport.Height = viewHeight
			m.rightViewport.Width = rightWidth
			m.rightViewport.Height = viewHeight
		}
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.loader.CancelAll()
			return m, tea.Quit

		case "esc":
			if m.loadingState == sessions.StateLoadingReport && m.requestID != "" {
				m.loader.Cancel(m.requestID)
				m.loadingState = sessions.StateCancelling
				m.indicator.SetMessage("Cancelling...")
			}
			return m, nil

		case "up", "k":
			if m.loadingState == sessions.StateIdle && m.cursor > 0 {
				m.cursor--
				m.loadCurrentDay()
				m.updateViewport()
			}

		case "down", "j":
			if m.loadingState == sessions.StateIdle && m.cursor < len(m.days)-1 {
				m.cursor++
				m.loadCurrentDay()
				m.updateViewport()
			}
		}

	case ReportStartedMsg:
		m.requestID = msg.RequestID
		return m, waitForReportCmd(msg.RequestID, msg.Results)

	case ReportLoadedMsg:
		if msg.RequestID != "" && msg.RequestID != m.requestID {
			return m, nil
		}
		switch {
		case errors.Is(msg.Error, context.Canceled):
			m.loadingState = sessions.StateIdle
			m.cancelled = true
		case msg.Error != nil:
			m.loadingState = sessions.StateError
			m.err = msg.Error
		default:
			m.loadingState = sessions.StateIdle
			m.days = msg.Rows
			m.cursor = 0
			m.loadCurrentDay()
		}
		m.updateViewport()
		return m, nil

	case TickMsg:
		if m.loadingState == sessions.StateLoadingReport || m.loadingState == sessions.StateCancelling {
			m.indicator.Tick()
			return m, tickCmd()
		}
		return m, nil
	}

	if m.ready {
		var leftCmd, rightCmd tea.Cmd
		m.leftViewport, leftCmd = m.leftViewport.Update(msg)
		m.rightViewport, rightCmd = m.rightViewport.Update(msg)
		cmds = append(cmds, leftCmd, rightCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *browseModel) loadCurrentDay() {
	m.daySessions = nil
	m.dayErr = nil
	if m.cursor >= len(m.days) || m.loadDay == nil {
		return
	}

	// report keys are calendar days in the query's location
	day, err := time.ParseInLocation(dayKeyLayout, m.days[m.cursor].Key, m.query.Since.Location())
	if err != nil {
		m.dayErr = err
		return
	}
	m.daySessions, m.dayErr = m.loadDay(day)
}

func (m *browseModel) updateViewport() {
	if !m.ready {
		return
	}
	m.leftViewport.SetContent(m.renderDays())
	m.rightViewport.SetContent(m.renderDaySessions())
}

func (m browseModel) renderDays() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Days") + "\n")
	s.WriteString(divider(m.leftViewport.Width) + "\n\n")

	if len(m.days) == 0 {
		msg := "No deep work recorded"
		if m.cancelled {
			msg = "Loading cancelled"
		}
		s.WriteString(emptyStyle.Render(msg))
		return s.String()
	}

	for i, row := range m.days {
		cursor := "  "
		style := textStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedStyle
		}

		s.WriteString(style.Render(cursor+row.Key) + "\n")

		detail := fmt.Sprintf("  %d %s, %s",
			row.Sessions, plural(row.Sessions, "session"), compactDuration(row.Total()))
		s.WriteString(mutedStyle.Render(detail) + "\n")
	}

	return s.String()
}

func (m browseModel) renderDaySessions() string {
	var s strings.Builder

	title := "Sessions"
	if m.cursor < len(m.days) {
		title = "Sessions on " + m.days[m.cursor].Key
	}
	s.WriteString(headerStyle.Render(title) + "\n")
	s.WriteString(divider(m.rightViewport.Width) + "\n\n")

	if m.dayErr != nil {
		s.WriteString(emptyStyle.Render(fmt.Sprintf("Error loading sessions: %v", m.dayErr)))
		return s.String()
	}
	if len(m.daySessions) == 0 {
		s.WriteString(emptyStyle.Render("No sessions"))
		return s.String()
	}

	wrapWidth := m.rightViewport.Width - 4
	if wrapWidth < 20 {
		wrapWidth = 20
	}

	for i, session := range m.daySessions {
		line := fmt.Sprintf("%s - %s  %s",
			session.Start.Format("15:04:05"),
			session.Stop.Format("15:04:05"),
			valueStyle.Render(compactDuration(session.Duration())))
		s.WriteString(textStyle.Render(line) + "\n")

		if session.Description != "" {
			for _, l := range wrapText(session.Description, wrapWidth) {
				s.WriteString("  " + textStyle.Render(l) + "\n")
			}
		}
		if len(session.Tags) > 0 {
			s.WriteString("  " + hintStyle.Render("#"+strings.Join(session.Tags, " #")) + "\n")
		}

		if i < len(m.daySessions)-1 {
			s.WriteString("\n")
		}
	}

	return s.String()
}

func (m browseModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("\n  Error: %v\n", m.err)
	}

	header := m.renderHeader()
	footer := m.renderFooter()

	if m.loadingState == sessions.StateLoadingReport || m.loadingState == sessions.StateCancelling {
		return fmt.Sprintf("%s\n%s\n%s", header, LoadingOverlay(m.width, m.height-3, m.indicator), footer)
	}

	return fmt.Sprintf("%s\n%s\n%s", header, m.renderSplitView(), footer)
}

func (m browseModel) renderSplitView() string {
	leftStyle := lipgloss.NewStyle().
		Width(m.leftViewport.Width).
		Height(m.leftViewport.Height)

	rightStyle := lipgloss.NewStyle().
		Width(m.rightViewport.Width).
		Height(m.rightViewport.Height)

	leftContent := leftStyle.Render(m.leftViewport.View())
	rightContent := rightStyle.Render(m.rightViewport.View())

	var bar strings.Builder
	for i := 0; i < m.leftViewport.Height; i++ {
		bar.WriteString("│")
		if i < m.leftViewport.Height-1 {
			bar.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftContent,
		dividerStyle.Render(bar.String()),
		rightContent,
	)
}

func (m browseModel) renderHeader() string {
	return titleStyle.Render(fmt.Sprintf("Deep Work - since %s", m.query.Since.Format(dayKeyLayout)))
}

func (m browseModel) renderFooter() string {
	info := "↑/↓: navigate"
	if m.loadingState == sessions.StateLoadingReport {
		info += " • esc: cancel"
	}
	info += " • q: quit"
	return hintStyle.Render(info)
}

func divider(width int) string {
	if width < 12 {
		width = 12
	}
	return strings.Repeat("─", width-2)
}

// wrapText wraps text to fit within the specified width
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	currentLine := words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) > width {
			lines = append(lines, currentLine)
			currentLine = word
		} else {
			currentLine += " " + word
		}
	}
	lines = append(lines, currentLine)

	return lines
}

// compactDuration renders d as "1h 02m 03s"
func compactDuration(d time.Duration) string {
	h, m, s := models.SplitDuration(d)
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	return fmt.Sprintf("%dm %02ds", m, s)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// ShowBrowser displays the history browser until the user quits
func ShowBrowser(ctx context.Context, loader ReportLoader, q sessions.ReportQuery, loadDay DayLoader) error {
	p := tea.NewProgram(
		newBrowseModel(ctx, loader, q, loadDay),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	if m, ok := finalModel.(browseModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
