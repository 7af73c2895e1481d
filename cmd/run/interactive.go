package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/metascan/wasihost"
	"github.com/metascan/wasihost/vfs"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Padding(0, 1)

	selectedTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)

	exitOkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	exitBadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dirStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type tab int

const (
	tabStdout tab = iota
	tabStderr
	tabFiles
)

var tabNames = []string{"stdout", "stderr", "files"}

// inspectorModel runs the module once and lets the user browse what it
// left behind: the captured stream lines and the virtual filesystem.
type inspectorModel struct {
	err      error
	cfg      *wasihost.Config
	result   *wasihost.Result
	filename string
	stdout   []string
	stderr   []string
	viewport viewport.Model
	active   tab
	ready    bool
	done     bool
}

type runDoneMsg struct {
	err    error
	result *wasihost.Result
	stdout []string
	stderr []string
}

func newInspectorModel(filename string, cfg *wasihost.Config) *inspectorModel {
	return &inspectorModel{filename: filename, cfg: cfg}
}

func (m *inspectorModel) Init() tea.Cmd {
	return m.runModule
}

func (m *inspectorModel) runModule() tea.Msg {
	var outLines, errLines []string
	m.cfg.WithStdout(func(line string, multiline bool) {
		outLines = append(outLines, line)
	})
	m.cfg.WithStderr(func(line string, multiline bool) {
		errLines = append(errLines, line)
	})

	result, err := wasihost.Run(context.Background(), m.cfg)
	return runDoneMsg{result: result, stdout: outLines, stderr: errLines, err: err}
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab", "right", "l":
			if m.done {
				m.active = (m.active + 1) % tab(len(tabNames))
				m.refresh()
			}
		case "shift+tab", "left", "h":
			if m.done {
				m.active = (m.active + tab(len(tabNames)) - 1) % tab(len(tabNames))
				m.refresh()
			}
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case runDoneMsg:
		m.result = msg.result
		m.stdout = msg.stdout
		m.stderr = msg.stderr
		m.err = msg.err
		m.done = true
		m.refresh()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *inspectorModel) refresh() {
	if !m.ready || !m.done {
		return
	}
	switch m.active {
	case tabStdout:
		m.viewport.SetContent(joinOrEmpty(m.stdout))
	case tabStderr:
		m.viewport.SetContent(joinOrEmpty(m.stderr))
	case tabFiles:
		m.viewport.SetContent(m.fileTree())
	}
	m.viewport.GotoTop()
}

func joinOrEmpty(lines []string) string {
	if len(lines) == 0 {
		return helpStyle.Render("(empty)")
	}
	return strings.Join(lines, "\n")
}

func (m *inspectorModel) fileTree() string {
	if m.result == nil {
		return helpStyle.Render("(no filesystem)")
	}
	var b strings.Builder
	m.result.FS.Walk(func(n *vfs.Node) bool {
		if n.IsDir() {
			b.WriteString(dirStyle.Render(n.Path() + "/"))
		} else {
			b.WriteString(fmt.Sprintf("%s  (%d bytes)", n.Path(), n.Size()))
		}
		b.WriteString("\n")
		return true
	})
	return b.String()
}

func (m *inspectorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("wasihost inspector"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n")

	if !m.done {
		b.WriteString("\nRunning module...\n")
		return b.String()
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}

	exit := exitOkStyle
	if m.result.ExitCode != 0 {
		exit = exitBadStyle
	}
	b.WriteString(exit.Render(fmt.Sprintf("exit %d", m.result.ExitCode)))
	b.WriteString("  ")
	for i, name := range tabNames {
		if tab(i) == m.active {
			b.WriteString(selectedTabStyle.Render(name))
		} else {
			b.WriteString(tabStyle.Render(name))
		}
	}
	b.WriteString("\n")
	if m.ready {
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab switch pane • ↑/↓ scroll • q quit"))
	return b.String()
}

func runInteractive(filename string, cfg *wasihost.Config) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	p := tea.NewProgram(newInspectorModel(filename, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
