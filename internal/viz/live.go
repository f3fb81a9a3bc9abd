package viz

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/stiffode/internal/bdf"
)

const liveHistory = 400

// stepMsg carries one accepted step into the UI loop.
type stepMsg bdf.StepInfo

// doneMsg signals the end of the integration, with its error if any.
type doneMsg struct{ err error }

// LiveModel is a bubbletea model that watches an integration in flight:
// the producer goroutine feeds accepted steps into a channel, the UI shows
// counters and rolling step-size/order graphs.
type LiveModel struct {
	steps <-chan bdf.StepInfo
	done  <-chan error

	last    bdf.StepInfo
	dts     []float64
	orders  []float64
	nsteps  int
	err     error
	stopped bool
}

func NewLive(steps <-chan bdf.StepInfo, done <-chan error) *LiveModel {
	return &LiveModel{steps: steps, done: done}
}

// StepFeed returns an observer that forwards accepted steps into ch. Once
// quit is closed, further steps are dropped instead of sent, so a producer
// still integrating never blocks on a viewer that has gone away.
func StepFeed(ch chan<- bdf.StepInfo, quit <-chan struct{}) func(bdf.StepInfo) {
	return func(info bdf.StepInfo) {
		select {
		case ch <- info:
		case <-quit:
		}
	}
}

func (m *LiveModel) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case info, ok := <-m.steps:
			if !ok {
				return doneMsg{err: <-m.done}
			}
			return stepMsg(info)
		case err := <-m.done:
			return doneMsg{err: err}
		}
	}
}

func (m *LiveModel) Init() tea.Cmd {
	return m.wait()
}

func (m *LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case stepMsg:
		m.last = bdf.StepInfo(msg)
		m.nsteps++
		m.dts = append(m.dts, m.last.Dt)
		m.orders = append(m.orders, float64(m.last.Order))
		if len(m.dts) > liveHistory {
			m.dts = m.dts[len(m.dts)-liveHistory:]
			m.orders = m.orders[len(m.orders)-liveHistory:]
		}
		return m, m.wait()
	case doneMsg:
		m.stopped = true
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m *LiveModel) View() string {
	status := "integrating"
	if m.stopped {
		status = "done"
		if m.err != nil {
			status = fmt.Sprintf("failed: %v", m.err)
		}
	}

	lines := []string{
		Header("stiffode live"),
		KV("status", "%s", status),
		KV("steps", "%d", m.nsteps),
		KV("t", "%.6g", m.last.T),
		KV("dt", "%.3e", m.last.Dt),
		KV("order", "%d", m.last.Order),
		KV("error", "%.3f", m.last.Error),
	}

	if len(m.dts) > 1 {
		lines = append(lines, "", graphStyle.Render(asciigraph.Plot(m.dts,
			asciigraph.Height(8), asciigraph.Width(70), asciigraph.Caption("dt"))))
		lines = append(lines, graphStyle.Render(asciigraph.Plot(m.orders,
			asciigraph.Height(4), asciigraph.Width(70), asciigraph.Caption("order"))))
	}

	if m.stopped {
		lines = append(lines, "", labelStyle.Render("press q to exit"))
	}
	return Panel(lines...)
}
