// Package viz renders integration results in the terminal: static
// asciigraph plots of trajectories and solver telemetry, and a live view
// of an integration in progress.
package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const (
	plotHeight = 10
	plotWidth  = 80
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
)

// Series plots one scalar series against its sample index.
func Series(data []float64, caption string) string {
	if len(data) < 2 {
		return ""
	}
	graph := asciigraph.Plot(data,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption),
	)
	return graphStyle.Render(graph)
}

// LogSeries plots log10 of a positive series, useful for step sizes that
// sweep many decades.
func LogSeries(data []float64, caption string) string {
	logs := make([]float64, 0, len(data))
	for _, v := range data {
		if v > 0 {
			logs = append(logs, math.Log10(v))
		}
	}
	return Series(logs, caption+" (log10)")
}

// OrderSeries plots the order history.
func OrderSeries(orders []int, caption string) string {
	data := make([]float64, len(orders))
	for i, k := range orders {
		data[i] = float64(k)
	}
	return Series(data, caption)
}

// KV renders an aligned label/value line for summary panels.
func KV(label string, format string, args ...interface{}) string {
	return labelStyle.Render(label) + valueStyle.Render(fmt.Sprintf(format, args...))
}

// Header renders a section heading.
func Header(title string) string {
	return headerStyle.Render(title)
}

// Panel joins lines into a block.
func Panel(lines ...string) string {
	return strings.Join(lines, "\n")
}
