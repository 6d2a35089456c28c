package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// copyState holds the shared copy progress
type copyState struct {
	mu        sync.RWMutex
	current   int64
	total     int64
	speed     float64
	done      bool
	err       error
	startTime time.Time
}

func (s *copyState) update(current int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = current
	if elapsed := time.Since(s.startTime).Seconds(); elapsed > 0 {
		s.speed = float64(current) / elapsed
	}
}

func (s *copyState) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.done = true
}

func (s *copyState) get() (current, total int64, speed float64, done bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.total, s.speed, s.done, s.err
}

type copyTickMsg time.Time

type copyModel struct {
	progress  progress.Model
	spinner   spinner.Model
	name      string
	state     *copyState
	cancelled bool
}

func newCopyModel(name string, state *copyState) copyModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return copyModel{
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		spinner:  s,
		name:     runewidth.Truncate(name, maxTitleWidth, "…"),
		state:    state,
	}
}

func copyTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return copyTickMsg(t)
	})
}

func (m copyModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, copyTickCmd())
}

func (m copyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		model, cmd := m.progress.Update(msg)
		m.progress = model.(progress.Model)
		return m, cmd

	case copyTickMsg:
		current, total, _, done, _ := m.state.get()
		if done {
			return m, tea.Quit
		}
		var cmds []tea.Cmd
		if total > 0 {
			cmds = append(cmds, m.progress.SetPercent(float64(current)/float64(total)))
		}
		cmds = append(cmds, copyTickCmd())
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m copyModel) View() string {
	current, total, speed, done, _ := m.state.get()
	if done || m.cancelled {
		return ""
	}

	s := fmt.Sprintf("\n  %s Downloading %s\n\n", m.spinner.View(), resolveInfoStyle.Render(m.name))
	if total > 0 {
		s += fmt.Sprintf("  %s\n\n", m.progress.View())
		s += fmt.Sprintf("  %.1f%%  |  %s/%s  |  %s/s\n",
			float64(current)/float64(total)*100,
			humanize.Bytes(uint64(current)),
			humanize.Bytes(uint64(total)),
			humanize.Bytes(uint64(speed)),
		)
	} else {
		s += fmt.Sprintf("  %s  |  %s/s\n", humanize.Bytes(uint64(current)), humanize.Bytes(uint64(speed)))
	}
	s += "\n" + helpStyle.Render("  Press q to cancel") + "\n"
	return s
}

// copyToFile writes r to output, reporting progress to state.
func copyToFile(r io.Reader, output string, state *copyState) (int64, error) {
	file, err := os.Create(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	buf := make([]byte, 32*1024)
	var current int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return current, fmt.Errorf("failed to write file: %w", werr)
			}
			current += int64(n)
			state.update(current)
		}
		if err == io.EOF {
			return current, file.Close()
		}
		if err != nil {
			return current, fmt.Errorf("download failed: %w", err)
		}
	}
}

// saveWithProgress copies body to output, with a progress bar on terminals.
// Cancelling closes body so the producer stops.
func saveWithProgress(ctx context.Context, body io.ReadCloser, total int64, output string) (int64, error) {
	state := &copyState{startTime: time.Now(), total: total}

	type result struct {
		n   int64
		err error
	}
	finished := make(chan result, 1)
	go func() {
		n, err := copyToFile(body, output, state)
		state.finish(err)
		finished <- result{n, err}
	}()

	if !isTerminal() {
		select {
		case res := <-finished:
			return res.n, res.err
		case <-ctx.Done():
			body.Close()
			<-finished
			return 0, ctx.Err()
		}
	}

	final, err := tea.NewProgram(newCopyModel(output, state), tea.WithContext(ctx)).Run()
	if err != nil || final.(copyModel).cancelled {
		body.Close()
		<-finished
		return 0, context.Canceled
	}

	res := <-finished
	return res.n, res.err
}
