// Package render draws ranging frames as zone grids for terminals.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	vl53l5cx "github.com/swdee/go-vl53l5cx"
	"github.com/swdee/go-vl53l5cx/internal/sink"
)

const cellWidth = 6

var (
	validStyle   = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Right).Foreground(lipgloss.Color("10"))
	invalidStyle = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Right).Foreground(lipgloss.Color("11"))
	emptyStyle   = lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Right).Foreground(lipgloss.Color("241"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// Cell returns the text and classification of one target slot
func Cell(f *sink.Frame, slot int) (string, vl53l5cx.TargetStatus) {
	status := vl53l5cx.StatusRangeValid
	if slot < len(f.Status) {
		status = vl53l5cx.TargetStatus(f.Status[slot])
	}

	if status == vl53l5cx.StatusNoTarget || slot >= len(f.Distance) {
		return "----", vl53l5cx.StatusNoTarget
	}

	return fmt.Sprintf("%d", f.Distance[slot]), status
}

// Header is the one line summary shown above a grid
func Header(f *sink.Frame) string {
	return fmt.Sprintf("frame %d  %dx%d  %d target(s)  %d°C",
		f.Seq, f.Width(), f.Width(), f.Targets, f.TempC)
}

// Plain renders the first target of every zone as fixed width text
func Plain(f *sink.Frame) string {
	var b strings.Builder

	b.WriteString(Header(f))
	b.WriteByte('\n')

	w := f.Width()
	for row := 0; row < w; row++ {
		for col := 0; col < w; col++ {
			text, _ := Cell(f, (row*w+col)*f.Targets)
			fmt.Fprintf(&b, "%*s", cellWidth, text)
		}
		b.WriteByte('\n')
	}

	return b.String()
}

// Grid renders the first target of every zone as a coloured box, valid
// ranges in green, flagged ranges in yellow and empty zones in grey
func Grid(f *sink.Frame) string {
	w := f.Width()
	rows := make([]string, 0, w)

	for row := 0; row < w; row++ {
		cells := make([]string, 0, w)

		for col := 0; col < w; col++ {
			text, status := Cell(f, (row*w+col)*f.Targets)

			switch {
			case status == vl53l5cx.StatusNoTarget:
				cells = append(cells, emptyStyle.Render(text))
			case status.Valid():
				cells = append(cells, validStyle.Render(text))
			default:
				cells = append(cells, invalidStyle.Render(text))
			}
		}

		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, rows...)

	return headerStyle.Render(Header(f)) + "\n" + boxStyle.Render(body)
}
