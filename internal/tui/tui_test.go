package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/danielpatrickdp/ethics-harness/internal/content"
	"github.com/danielpatrickdp/ethics-harness/internal/engine"
	"github.com/danielpatrickdp/ethics-harness/internal/gate"
	"github.com/danielpatrickdp/ethics-harness/internal/runner"
)

func newTestModel(t *testing.T) (model, *engine.Sim) {
	t.Helper()
	d, err := content.Load("strike")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sim, err := engine.New(d, engine.Options{Seed: 42, TotalSteps: 48, Variant: gate.Enforced})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return NewModel(runner.Sim{Sim: sim}), sim
}

// submit types line, presses Enter and feeds the command's result back.
func submit(t *testing.T, m model, line string) model {
	t.Helper()
	m.textInput.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if cmd == nil {
		t.Fatalf("%q: expected a command", line)
	}
	next, _ = m.Update(cmd())
	return next.(model)
}

func TestAdvanceUpdatesLogAndPanel(t *testing.T) {
	m, sim := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(model)

	m = submit(t, m, "advance 2")
	if m.state != statePlaying {
		t.Fatalf("state %v, want playing (err %v)", m.state, m.err)
	}
	if sim.Step() != 2 {
		t.Fatalf("sim at step %d, want 2", sim.Step())
	}
	if !strings.Contains(m.log, "-- step 2") {
		t.Fatalf("log missing step 2:\n%s", m.log)
	}
	if m.view.Step != 2 {
		t.Fatalf("panel at step %d, want 2", m.view.Step)
	}
	if !strings.Contains(m.View(), "METRICS") {
		t.Fatal("expected the state panel in the view")
	}
}

func TestUnknownActionStaysInSession(t *testing.T) {
	m, sim := newTestModel(t)
	m = submit(t, m, "frobnicate now")
	if m.state != statePlaying {
		t.Fatalf("state %v, want playing", m.state)
	}
	if !strings.Contains(m.log, "error:") {
		t.Fatalf("expected an error line:\n%s", m.log)
	}
	if sim.Step() != 0 {
		t.Fatalf("unknown action moved the clock to %d", sim.Step())
	}
}

func TestBadAdvanceCount(t *testing.T) {
	m, sim := newTestModel(t)
	m = submit(t, m, "advance zero")
	if !strings.Contains(m.log, "positive step count") {
		t.Fatalf("expected usage error:\n%s", m.log)
	}
	if sim.Step() != 0 {
		t.Fatalf("clock moved to %d", sim.Step())
	}
}

func TestExecuteReportsBlocked(t *testing.T) {
	m, _ := newTestModel(t)
	if _, err := execute(m.runner, "advance 18"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	lines, err := execute(m.runner, "commit T-01")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "BLOCKED") {
		t.Fatalf("expected a blocked line, got %q", lines)
	}
}

func TestEmptyInputAndQuit(t *testing.T) {
	m, _ := newTestModel(t)
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatal("empty input should not produce a command")
	}
	m.textInput.SetValue("/quit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestHelpListsVerbs(t *testing.T) {
	m, _ := newTestModel(t)
	lines, err := execute(m.runner, "help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "actions: ") || !strings.Contains(lines[0], "commit") {
		t.Fatalf("unexpected help %q", lines)
	}
}
