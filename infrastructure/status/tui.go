package status

import (
	"fmt"
	"strings"
	"time"

	"vidflow/domain/export"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 40

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5F87FF"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	fillStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00"))
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))

	severityStyles = map[export.Severity]lipgloss.Style{
		export.Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		export.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")),
		export.Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")),
		export.Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A40000")),
	}
)

// Model is the Bubbletea model for a single export
type Model struct {
	Title     string
	Percent   float64
	Status    string
	Toasts    []ToastMsg
	StartTime time.Time
	Done      bool
	Location  string
	Err       error

	// Cancelling is set once the user asked to cancel
	Cancelling bool
	onCancel   func() bool
}

// NewModel creates a model. onCancel is called when the user presses c.
func NewModel(onCancel func() bool) Model {
	return Model{StartTime: time.Now(), onCancel: onCancel}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "c", "ctrl+c", "esc":
			if m.Done {
				return m, tea.Quit
			}
			if !m.Cancelling && m.onCancel != nil && m.onCancel() {
				m.Cancelling = true
			}
		case "q":
			if m.Done {
				return m, tea.Quit
			}
		}
	case TitleMsg:
		m.Title = msg.Title
	case ProgressMsg:
		if msg.Percent > m.Percent {
			m.Percent = msg.Percent
		}
	case StatusMsg:
		m.Status = msg.Text
	case ToastMsg:
		m.Toasts = append(m.Toasts, msg)
	case DoneMsg:
		m.Done = true
		m.Location = msg.Location
		m.Err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.Title))
	b.WriteString("\n\n")
	b.WriteString(renderBar(m.Percent))
	fmt.Fprintf(&b, " %3.0f%%  %s\n", m.Percent, dimStyle.Render(time.Since(m.StartTime).Round(time.Second).String()))
	if m.Status != "" {
		b.WriteString("  " + m.Status + "\n")
	}

	for _, t := range m.Toasts {
		b.WriteString("  " + severityStyles[t.Severity].Render(t.Message) + "\n")
	}

	switch {
	case m.Done && m.Location != "":
		b.WriteString("\n  Saved to " + m.Location + "\n")
	case m.Cancelling && !m.Done:
		b.WriteString(dimStyle.Render("\n  Cancelling...") + "\n")
	case !m.Done:
		b.WriteString(dimStyle.Render("\n  press c to cancel") + "\n")
	}
	return b.String()
}

func renderBar(percent float64) string {
	filled := int(percent / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return fillStyle.Render(strings.Repeat("█", filled)) + emptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

// Sender is the part of tea.Program the reporter needs
type Sender interface {
	Send(msg tea.Msg)
}

// TUIReporter forwards status boundary calls to a running program
type TUIReporter struct {
	program Sender
}

// NewTUIReporter creates a reporter that sends to program
func NewTUIReporter(program Sender) *TUIReporter {
	return &TUIReporter{program: program}
}

func (r *TUIReporter) Title(title string) { r.program.Send(TitleMsg{Title: title}) }

func (r *TUIReporter) Progress(percent float64) { r.program.Send(ProgressMsg{Percent: percent}) }

func (r *TUIReporter) Status(text string) { r.program.Send(StatusMsg{Text: text}) }

func (r *TUIReporter) Toast(message string, severity export.Severity) {
	r.program.Send(ToastMsg{Message: message, Severity: severity})
}

// Finish tells the program the export settled
func (r *TUIReporter) Finish(location string, err error) {
	r.program.Send(DoneMsg{Location: location, Err: err})
}

var _ export.StatusReporter = (*TUIReporter)(nil)
