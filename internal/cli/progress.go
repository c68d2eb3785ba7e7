package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/soletide/hydrostat/pkg/observability"
	"github.com/soletide/hydrostat/pkg/pipeline"
)

// =============================================================================
// WatchModel - Live solver progress
// =============================================================================

// Messages fed into the model by the hook adapter and the run goroutine.
type (
	trialDoneMsg struct {
		mismatch float64
		failed   bool
	}
	iterationMsg struct {
		iteration int
		params    map[string]float64
		mismatch  float64
	}
	runDoneMsg struct {
		result *pipeline.Result
		err    error
	}
	frameMsg time.Time
)

// teaSolverHooks forwards solver events into a bubbletea program. Sends are
// non-blocking so a slow terminal never stalls the solver.
type teaSolverHooks struct {
	events chan<- tea.Msg
}

func (h teaSolverHooks) send(msg tea.Msg) {
	select {
	case h.events <- msg:
	default:
	}
}

func (h teaSolverHooks) OnTrialStart(context.Context, int, map[string]float64) {}

func (h teaSolverHooks) OnTrialComplete(_ context.Context, _ int, mismatch float64, _ time.Duration, err error) {
	h.send(trialDoneMsg{mismatch: mismatch, failed: err != nil})
}

func (h teaSolverHooks) OnIteration(_ context.Context, iteration int, params map[string]float64, mismatch float64) {
	h.send(iterationMsg{iteration: iteration, params: params, mismatch: mismatch})
}

func (h teaSolverHooks) OnConverged(context.Context, int, int, float64, time.Duration) {}
func (h teaSolverHooks) OnFailed(context.Context, int, int, error)                     {}

// WatchModel is the bubbletea model showing live solver progress.
type WatchModel struct {
	events <-chan tea.Msg
	start  time.Time
	frames []string
	frame  int

	trials    int
	failed    int
	iteration int
	mismatch  float64
	params    map[string]float64

	result *pipeline.Result
	err    error
	done   bool
}

// NewWatchModel creates a watch model reading solver events from events.
func NewWatchModel(events <-chan tea.Msg) WatchModel {
	return WatchModel{
		events: events,
		start:  time.Now(),
		frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.nextEvent(), tickFrame())
}

func (m WatchModel) nextEvent() tea.Cmd {
	return func() tea.Msg { return <-m.events }
}

func tickFrame() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit
		}
	case frameMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tickFrame()
	case trialDoneMsg:
		m.trials++
		if msg.failed {
			m.failed++
		}
		return m, m.nextEvent()
	case iterationMsg:
		m.iteration = msg.iteration
		m.params = msg.params
		m.mismatch = msg.mismatch
		return m, m.nextEvent()
	case runDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m WatchModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder

	frame := m.frames[m.frame%len(m.frames)]
	b.WriteString(styleIconSpinner.Render(frame))
	b.WriteString(" ")
	b.WriteString(StyleTitle.Render("solving"))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %s", time.Since(m.start).Round(time.Second))))
	b.WriteString("\n\n")

	b.WriteString("  " + StyleDim.Render("trials") + "      " +
		StyleNumber.Render(fmt.Sprintf("%d", m.trials)))
	if m.failed > 0 {
		b.WriteString(StyleDim.Render(fmt.Sprintf(" (%d infeasible)", m.failed)))
	}
	b.WriteString("\n")
	b.WriteString("  " + StyleDim.Render("iteration") + "   " +
		StyleNumber.Render(fmt.Sprintf("%d", m.iteration)))
	b.WriteString("\n")
	if m.trials > 0 {
		b.WriteString("  " + StyleDim.Render("mismatch") + "    " +
			StyleValue.Render(fmt.Sprintf("%.3e", m.mismatch)))
		b.WriteString("\n")
	}

	if len(m.params) > 0 {
		b.WriteString("\n")
		keys := make([]string, 0, len(m.params))
		for k := range m.params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString("  " + StyleDim.Render(k) + " " +
				StyleValue.Render(fmt.Sprintf("%.6g", m.params[k])) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(StyleDim.Render("  q quit"))
	b.WriteString("\n")
	return b.String()
}

// runWatched executes the pipeline with the watch view attached to the global
// solver hooks for the duration of the run.
func (c *CLI) runWatched(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	events := make(chan tea.Msg, 256)
	observability.SetSolverHooks(teaSolverHooks{events: events})
	defer observability.Reset()

	p := tea.NewProgram(NewWatchModel(events),
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr))

	go func() {
		res, err := runner.Execute(ctx, opts)
		p.Send(runDoneMsg{result: res, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(WatchModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type %T", final)
	}
	if m.result == nil && m.err == nil {
		return nil, context.Canceled
	}
	return m.result, m.err
}
