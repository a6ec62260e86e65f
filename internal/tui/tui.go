// Package tui is a full-screen terminal front end for one run.
package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/danielpatrickdp/ethics-harness/internal/action"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/runner"
	"github.com/danielpatrickdp/ethics-harness/internal/world"
)

type sessionState int

const (
	statePlaying sessionState = iota
	stateBusy
	stateError
)

type model struct {
	state     sessionState
	runner    runner.Runner
	view      world.View
	textInput textinput.Model
	viewport  viewport.Model
	err       error
	log       string
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#87D787"))

	blockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF8700")).
			Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

// NewModel builds the model around r. The state panel is filled on Init.
func NewModel(r runner.Runner) model {
	ti := textinput.New()
	ti.Placeholder = "Type an action, 'advance [n]' or /quit"
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 60

	return model{
		state:     statePlaying,
		runner:    r,
		textInput: ti,
		viewport:  viewport.New(80, 20),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refresh())
}

// #region messages

type viewMsg struct {
	view world.View
	err  error
}

type turnMsg struct {
	lines []string
	view  world.View
	err   error
}

// #endregion messages

// #region update

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if m.state != statePlaying {
				return m, nil
			}
			line := strings.TrimSpace(m.textInput.Value())
			if line == "" {
				return m, nil
			}
			m.textInput.Reset()
			if line == "/quit" {
				return m, tea.Quit
			}
			m.appendLog(userStyle.Width(m.logWidth()).Render("> " + line))
			m.state = stateBusy
			return m, m.processLine(line)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = max(msg.Height-6, 1)
		m.viewport.SetContent(m.log)

	case viewMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.view = msg.view
		return m, nil

	case turnMsg:
		m.state = statePlaying
		if msg.err != nil && len(msg.lines) == 0 {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.view = msg.view
		for _, l := range msg.lines {
			m.appendLog(l)
		}
		return m, nil
	}

	if m.state == statePlaying {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *model) appendLog(s string) {
	if m.log != "" {
		m.log += "\n"
	}
	m.log += s
	m.viewport.SetContent(m.log)
	m.viewport.GotoBottom()
}

func (m model) logWidth() int {
	if m.width == 0 {
		return 80
	}
	return int(float64(m.width) * 0.7)
}

// #endregion update

// #region view

func (m model) View() string {
	var s string

	switch m.state {
	case statePlaying, stateBusy:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)
		help := helpStyle.Render("Commands: state, score, advance [n], help, /quit, or any action.")
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+m.textInput.View(),
			"\n"+help,
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderState() string {
	v := m.view
	if v.Domain == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(v.Domain)) + "\n")
	fmt.Fprintf(&b, "step %d/%d\nphase %s\n%s\n", v.Step, v.TotalSteps, v.Phase, v.Variant)
	if v.Completed {
		b.WriteString("complete\n")
	}

	b.WriteString("\n" + titleStyle.Render("METRICS") + "\n")
	for _, mv := range v.Metrics {
		fmt.Fprintf(&b, "%s: %.1f\n", mv.Label, mv.Value)
	}

	b.WriteString("\n" + titleStyle.Render("SUBJECTS") + "\n")
	if len(v.Subjects) == 0 {
		b.WriteString("(none)\n")
	}
	for _, sub := range v.Subjects {
		fmt.Fprintf(&b, "%s %s %s\n", sub.ID, sub.Status, sub.Name)
	}

	if len(v.Records) > 0 {
		b.WriteString("\n" + titleStyle.Render("RECORDS") + "\n")
		for _, r := range v.Records {
			fmt.Fprintf(&b, "%s %s\n", r.ID, r.Title)
		}
	}

	width := int(float64(max(m.width, 100)) * 0.28)
	return stateStyle.Width(width).Height(m.viewport.Height).Render(b.String())
}

// #endregion view

// #region commands

func (m model) refresh() tea.Cmd {
	r := m.runner
	return func() tea.Msg {
		v, err := r.State()
		return viewMsg{v, err}
	}
}

// processLine runs one input line against the runner. Input errors are
// shown in the log; only runner failures end the session.
func (m model) processLine(line string) tea.Cmd {
	r := m.runner
	return func() tea.Msg {
		lines, err := execute(r, line)
		if err != nil && lines == nil {
			return turnMsg{err: err}
		}
		if err != nil {
			lines = append(lines, errStyle.Render("error: "+err.Error()))
		}
		v, verr := r.State()
		if verr != nil {
			return turnMsg{err: verr}
		}
		return turnMsg{lines: lines, view: v}
	}
}

// execute returns the log lines for one command. A nil slice with an error
// means the runner itself failed.
func execute(r runner.Runner, line string) ([]string, error) {
	fields := strings.Fields(line)
	name, rest := fields[0], fields[1:]

	switch name {
	case "help":
		d, err := r.Domain()
		if err != nil {
			return nil, err
		}
		names := d.AliasNames()
		for _, v := range action.Verbs() {
			names = append(names, v.String())
		}
		sort.Strings(names)
		return []string{"actions: " + strings.Join(names, ", ")}, nil

	case "state", "status":
		v, err := r.State()
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("step %d/%d, phase %s", v.Step, v.TotalSteps, v.Phase)}, nil

	case "score":
		ms, err := r.Score()
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(ms))
		for _, mv := range ms {
			out = append(out, fmt.Sprintf("%-28s %8.1f", mv.Label, mv.Value))
		}
		return out, nil

	case "advance":
		n := 1
		if len(rest) > 0 {
			v, err := strconv.Atoi(rest[0])
			if err != nil || v < 1 {
				return []string{errStyle.Render("error: advance takes a positive step count")}, nil
			}
			n = v
		}
		sums, err := r.Advance(n)
		out := stepLines(sums)
		if err != nil {
			return append(out, errStyle.Render("error: "+err.Error())), nil
		}
		return out, nil

	default:
		d, err := r.Domain()
		if err != nil {
			return nil, err
		}
		a, err := d.Resolve(name, rest)
		if err != nil {
			return []string{errStyle.Render("error: " + err.Error())}, nil
		}
		res, err := r.Act(a)
		if err != nil {
			return nil, err
		}
		return []string{resultLine(res)}, nil
	}
}

func stepLines(sums []engine.StepSummary) []string {
	out := make([]string, 0, len(sums))
	for _, sum := range sums {
		out = append(out, fmt.Sprintf("-- step %d (%s): %d pending, %d active, %d resolved",
			sum.Step, sum.Phase, sum.Pending, sum.Active, sum.Resolved))
		for _, e := range sum.Events {
			out = append(out, "   "+e)
		}
	}
	return out
}

func resultLine(res action.Result) string {
	switch res.Outcome {
	case action.OutcomeSuccess:
		keys := make([]string, 0, len(res.Fields))
		for k := range res.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, res.Fields[k]))
		}
		return okStyle.Render(strings.TrimSpace("ok " + strings.Join(parts, " ")))
	case action.OutcomeBlocked:
		return blockedStyle.Render("BLOCKED: " + res.Message)
	default:
		return fmt.Sprintf("%s: %s", res.Outcome, res.Message)
	}
}

// #endregion commands

// Run drives r in the alternate screen until the user quits.
func Run(r runner.Runner) error {
	p := tea.NewProgram(NewModel(r), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
