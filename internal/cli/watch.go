package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/swdee/go-vl53l5cx/internal/render"
	"github.com/swdee/go-vl53l5cx/internal/sink"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live zone grid of the ranging frames",
	Long: `Show a full screen grid refreshed on every frame, together with the
frame rate and the last driver error. Press q to quit.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// Messages
type frameMsg struct {
	frame *sink.Frame
}
type streamEndMsg struct {
	err error
}

// watch TUI model
type watchModel struct {
	spinner  spinner.Model
	frame    *sink.Frame
	frames   int
	started  time.Time
	lastErr  error
	done     bool
	quitting bool
}

func newWatchModel(now time.Time) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	return watchModel{spinner: sp, started: now}
}

func (m watchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		// spin only until the first frame arrives
		if m.frame != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case frameMsg:
		m.frame = msg.frame
		m.frames++

	case streamEndMsg:
		m.done = true
		m.lastErr = msg.err
	}

	return m, nil
}

// rate is the mean frame rate since the model was created
func (m watchModel) rate(now time.Time) float64 {
	secs := now.Sub(m.started).Seconds()
	if secs <= 0 || m.frames == 0 {
		return 0
	}
	return float64(m.frames) / secs
}

func (m watchModel) View() string {
	if m.quitting {
		return ""
	}

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	var s strings.Builder

	if m.frame == nil {
		s.WriteString(m.spinner.View() + " Waiting for the first frame...\n")
	} else {
		s.WriteString(render.Grid(m.frame))
		s.WriteString("\n")
	}

	s.WriteString(labelStyle.Render("Frames: "))
	s.WriteString(valueStyle.Render(fmt.Sprintf("%d", m.frames)))
	s.WriteString("  ")
	s.WriteString(labelStyle.Render("Rate: "))
	s.WriteString(valueStyle.Render(fmt.Sprintf("%.1f Hz", m.rate(time.Now()))))
	s.WriteString("\n")

	if m.lastErr != nil {
		s.WriteString(errorStyle.Render("Error: " + m.lastErr.Error()))
		s.WriteString("\n")
	} else if m.done {
		s.WriteString(helpStyle.Render("Ranging stopped"))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("q: quit"))

	return s.String()
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := openSensor(cfg, driverLog())
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.bringUp(cfg.Ranging); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(newWatchModel(time.Now()), tea.WithAltScreen())

	streamDone := make(chan error, 1)
	go func() {
		err := s.stream(ctx, 0, func(f *sink.Frame) error {
			p.Send(frameMsg{frame: f})
			return nil
		})
		p.Send(streamEndMsg{err: err})
		streamDone <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-streamDone
		return fmt.Errorf("TUI error: %w", err)
	}

	// stop ranging before the bus is closed
	cancel()
	return <-streamDone
}
