package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ccheshirecat/rollerbot/internal/cli/client"
)

const (
	refreshInterval = 5 * time.Second
	maxEvents       = 100
	shownEvents     = 12
)

// API is the slice of the operator client the dashboard drives.
type API interface {
	Status(ctx context.Context) (*client.Status, error)
	Start(ctx context.Context) (*client.ControlResult, error)
	Stop(ctx context.Context) (*client.ControlResult, error)
	WatchEvents(ctx context.Context, handler func(client.BotEvent)) error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	runningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	stoppedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type statusMsg struct {
	status *client.Status
}

type controlMsg struct {
	result *client.ControlResult
}

type botEventMsg struct {
	event client.BotEvent
}

type errMsg struct {
	err error
}

type eventsClosedMsg struct{}

type tickMsg struct{}

// Run launches the Bubble Tea dashboard against api.
func Run(parent context.Context, api API) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	m := newModel(ctx, cancel, api)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		cancel()
		return err
	}
	return nil
}

type model struct {
	ctx       context.Context
	cancel    context.CancelFunc
	api       API
	spinner   spinner.Model
	status    *client.Status
	events    []string
	notice    string
	err       error
	eventCh   chan client.BotEvent
	streamEOF bool
}

func newModel(ctx context.Context, cancel context.CancelFunc, api API) model {
	return model{
		ctx:     ctx,
		cancel:  cancel,
		api:     api,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(runningStyle)),
		eventCh: make(chan client.BotEvent, 16),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		fetchStatusCmd(m.ctx, m.api),
		watchEventsCmd(m.ctx, m.api, m.eventCh),
		waitEventCmd(m.eventCh),
		tickCmd(),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "s":
			m.notice = "starting..."
			return m, controlCmd(m.ctx, m.api.Start)
		case "x":
			m.notice = "stopping..."
			return m, controlCmd(m.ctx, m.api.Stop)
		case "r":
			return m, fetchStatusCmd(m.ctx, m.api)
		}
	case statusMsg:
		m.status = msg.status
		m.err = nil
		return m, nil
	case controlMsg:
		m.notice = strings.ReplaceAll(msg.result.Status, "_", " ")
		return m, fetchStatusCmd(m.ctx, m.api)
	case botEventMsg:
		m.events = append([]string{formatEvent(msg.event)}, m.events...)
		if len(m.events) > maxEvents {
			m.events = m.events[:maxEvents]
		}
		return m, tea.Batch(fetchStatusCmd(m.ctx, m.api), waitEventCmd(m.eventCh))
	case errMsg:
		m.err = msg.err
		return m, nil
	case eventsClosedMsg:
		m.streamEOF = true
		return m, nil
	case tickMsg:
		return m, tea.Batch(tickCmd(), fetchStatusCmd(m.ctx, m.api))
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ROLLERBOT :: Dashboard"))
	b.WriteString("\n\n")

	var status strings.Builder
	if m.status == nil {
		status.WriteString(m.spinner.View() + " connecting...")
	} else {
		state := stoppedStyle.Render("stopped")
		if m.status.Running {
			state = m.spinner.View() + " " + runningStyle.Render("running")
		}
		lastRun := "never"
		if m.status.LastRun != nil {
			lastRun = *m.status.LastRun
		}
		rows := [][2]string{
			{"State", state},
			{"Action", m.status.CurrentAction},
			{"Last run", lastRun},
			{"Total runs", fmt.Sprintf("%d", m.status.TotalRuns)},
			{"Errors", fmt.Sprintf("%d", m.status.Errors)},
		}
		for i, row := range rows {
			if i > 0 {
				status.WriteString("\n")
			}
			status.WriteString(labelStyle.Render(row[0]) + row[1])
		}
	}
	b.WriteString(panelStyle.Render(status.String()))
	b.WriteString("\n\nEvents:\n")

	if len(m.events) == 0 {
		b.WriteString("  (waiting for events)\n")
	} else {
		for i, line := range m.events {
			if i >= shownEvents {
				break
			}
			b.WriteString("  " + line + "\n")
		}
	}

	if m.notice != "" {
		b.WriteString("\n" + m.notice + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + failedStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
	}
	if m.streamEOF {
		b.WriteString("\nEvent stream closed.\n")
	}
	b.WriteString("\n" + helpStyle.Render("s start • x stop • r refresh • q quit"))
	return b.String()
}

func formatEvent(ev client.BotEvent) string {
	detail := ev.Message
	if detail == "" {
		detail = ev.Action
	}
	line := fmt.Sprintf("%s %-16s %s", ev.Timestamp.Local().Format(time.TimeOnly), ev.Type, detail)
	if ev.Type == "CYCLE_FAILED" || ev.Type == "ERROR" {
		return failedStyle.Render(line)
	}
	return line
}

func fetchStatusCmd(parent context.Context, api API) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, 5*time.Second)
		defer cancel()
		status, err := api.Status(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return statusMsg{status: status}
	}
}

func controlCmd(parent context.Context, call func(context.Context) (*client.ControlResult, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, 10*time.Second)
		defer cancel()
		result, err := call(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return controlMsg{result: result}
	}
}

func watchEventsCmd(ctx context.Context, api API, ch chan<- client.BotEvent) tea.Cmd {
	return func() tea.Msg {
		go func() {
			err := api.WatchEvents(ctx, func(ev client.BotEvent) {
				select {
				case ch <- ev:
				case <-ctx.Done():
				}
			})
			if err != nil && ctx.Err() == nil {
				select {
				case ch <- client.BotEvent{Type: "ERROR", Message: err.Error(), Timestamp: time.Now().UTC()}:
				default:
				}
			}
			close(ch)
		}()
		return nil
	}
}

func waitEventCmd(ch <-chan client.BotEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return botEventMsg{event: ev}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}
