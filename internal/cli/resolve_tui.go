package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/mattn/go-runewidth"
)

var (
	resolveInfoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	resolveDoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	resolveHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
)

// infoResolver is the part of the resolver the spinner drives.
type infoResolver interface {
	Resolve(ctx context.Context, raw string) (*media.MediaInfo, error)
}

// resolveState holds resolution state shared with the TUI
type resolveState struct {
	mu     sync.RWMutex
	done   bool
	err    error
	result *media.MediaInfo
}

func (s *resolveState) setDone(result *media.MediaInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.result = result
}

func (s *resolveState) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.done = true
}

func (s *resolveState) get() (bool, error, *media.MediaInfo) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done, s.err, s.result
}

type resolveTickMsg time.Time

type resolveModel struct {
	spinner   spinner.Model
	url       string
	state     *resolveState
	cancelled bool
}

func newResolveModel(url string, state *resolveState) resolveModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return resolveModel{
		spinner: s,
		url:     url,
		state:   state,
	}
}

func resolveTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return resolveTickMsg(t)
	})
}

func (m resolveModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, resolveTickCmd())
}

func (m resolveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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

	case resolveTickMsg:
		if done, _, _ := m.state.get(); done {
			return m, tea.Quit
		}
		return m, resolveTickCmd()
	}

	return m, nil
}

func (m resolveModel) View() string {
	// Results and errors are printed after the program exits.
	if done, _, _ := m.state.get(); done || m.cancelled {
		return ""
	}
	return fmt.Sprintf("\n  %s Resolving %s\n\n", m.spinner.View(), resolveInfoStyle.Render(runewidth.Truncate(m.url, maxTitleWidth, "…")))
}

// runResolveWithSpinner resolves url while showing a spinner. Pressing q
// cancels the resolution.
func runResolveWithSpinner(ctx context.Context, r infoResolver, url string) (*media.MediaInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := &resolveState{}
	go func() {
		info, err := r.Resolve(ctx, url)
		if err != nil {
			state.setError(err)
			return
		}
		state.setDone(info)
	}()

	final, err := tea.NewProgram(newResolveModel(url, state)).Run()
	if err != nil {
		return nil, err
	}
	if final.(resolveModel).cancelled {
		return nil, context.Canceled
	}

	_, resolveErr, info := state.get()
	if resolveErr != nil {
		return nil, resolveErr
	}
	return info, nil
}
