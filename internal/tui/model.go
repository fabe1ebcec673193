package tui

import (
	"fmt"
	"strings"
	"time"

	"studio-cli/internal/api"
	"studio-cli/internal/chat"
	"studio-cli/internal/config"
	"studio-cli/internal/richtext"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ─── App mode ───────────────────────────────────────────────────────────────

type appMode int

const (
	modeIdle appMode = iota
	modeStreaming
)

// ─── Slash command registry ─────────────────────────────────────────────────

type slashCmd struct {
	name string
	desc string
}

var slashCommands = []slashCmd{
	{"/clear", "Clear the screen and conversation"},
	{"/config", "Show current configuration"},
	{"/copy", "Copy code block N to the clipboard"},
	{"/export", "Write the conversation to an HTML file"},
	{"/help", "Show all commands"},
	{"/quit", "Exit Agent Studio"},
	{"/set", "Set server, token or workflow"},
	{"/workflow", "Show or set the active workflow"},
	{"/workflows", "List available workflows"},
}

// ─── Model ──────────────────────────────────────────────────────────────────

type model struct {
	width  int
	height int

	// Bubble Tea components
	input   textinput.Model
	spinner spinner.Model

	// App state
	mode    appMode
	cfg     *config.Config
	client  api.StudioAPI
	session *chat.Session
	version string
	profile string

	// Streaming state
	lastStatus  string
	printedMsgs int // session messages already flushed to the scrollback

	// Code blocks of the most recent reply, addressable via /copy N
	codeBlocks []richtext.CodeBlock

	// Transient acknowledgment line (e.g. after /copy)
	flash string

	// UI state
	ready        bool
	cmdMenuIdx   int    // selected index in command menu
	cmdMenuOpen  bool   // whether the command menu is visible
	lastInputVal string // track input changes to reset menu index

	// Command history
	history      []string
	historyIdx   int // current position in history (-1 = not browsing)
	historySaved string
}

func initialModel(version, profile string) model {
	ti := textinput.New()
	ti.Placeholder = "Ask the workflow or type /help..."
	ti.Focus()
	ti.CharLimit = 4096
	ti.Prompt = "❯ "
	ti.PromptStyle = promptSymbol
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(colorViolet)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorViolet)

	cfg, err := config.Load(profile)
	if err != nil || cfg == nil {
		cfg = &config.Config{Profile: profile}
	}

	m := model{
		input:      ti,
		spinner:    sp,
		version:    version,
		profile:    profile,
		cfg:        cfg,
		mode:       modeIdle,
		history:    make([]string, 0),
		historyIdx: -1,
	}

	if cfg != nil && cfg.Server != "" {
		m.client = api.NewClient(cfg)
		m.session = chat.NewSession(m.client, cfg.WorkflowID)
	}

	return m
}

// ─── Init ───────────────────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

// ─── Update ─────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.width - 6

		if !m.ready {
			m.ready = true
			welcome := renderWelcome(m.version, serverStr(m.cfg), workflowStr(m.cfg), m.width)
			cmds = append(cmds, tea.Println(welcome))
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.mode == modeStreaming {
				return m.cancelStream()
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if m.mode == modeStreaming {
				return m.cancelStream()
			}
			if m.cmdMenuOpen {
				m.cmdMenuOpen = false
				m.cmdMenuIdx = 0
				return m, nil
			}

		case tea.KeyUp:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx--
						if m.cmdMenuIdx < 0 {
							m.cmdMenuIdx = len(matches) - 1
						}
						return m, nil
					}
				} else if len(m.history) > 0 {
					if m.historyIdx == -1 {
						m.historySaved = m.input.Value()
						m.historyIdx = len(m.history) - 1
					} else {
						m.historyIdx--
						if m.historyIdx < 0 {
							m.historyIdx = 0
						}
					}
					m.input.SetValue(m.history[m.historyIdx])
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyDown:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx++
						if m.cmdMenuIdx >= len(matches) {
							m.cmdMenuIdx = 0
						}
						return m, nil
					}
				} else if m.historyIdx != -1 {
					m.historyIdx++
					if m.historyIdx >= len(m.history) {
						m.historyIdx = -1
						m.input.SetValue(m.historySaved)
						m.historySaved = ""
					} else {
						m.input.SetValue(m.history[m.historyIdx])
					}
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyTab:
			if m.mode == modeIdle && m.cmdMenuOpen {
				matches := matchCommands(m.input.Value())
				if len(matches) > 0 {
					idx := m.cmdMenuIdx
					if idx < 0 || idx >= len(matches) {
						idx = 0
					}
					m.input.SetValue(matches[idx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
				}
				return m, nil
			}

		case tea.KeyEnter:
			// If the command menu is open and an item is selected, pick it
			if m.mode == modeIdle && m.cmdMenuOpen && m.cmdMenuIdx >= 0 {
				matches := matchCommands(m.input.Value())
				if m.cmdMenuIdx < len(matches) {
					m.input.SetValue(matches[m.cmdMenuIdx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
					return m, nil
				}
			}

			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return m, nil
			}

			// Add to history, avoiding a duplicate of the last entry
			if len(m.history) == 0 || m.history[len(m.history)-1] != value {
				m.history = append(m.history, value)
				if len(m.history) > 1000 {
					m.history = m.history[len(m.history)-1000:]
				}
			}
			m.historyIdx = -1
			m.historySaved = ""

			m.input.SetValue("")
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0

			return m.dispatchInput(value)
		}

	// ── Stream messages ───────────────────────────────────────────────
	// Leftovers from a cancelled run can still arrive after a new run
	// started; anything not from the current channel is dropped.
	case streamEventMsg:
		if msg.ch != activeStreamCh {
			return m, nil
		}
		m.lastStatus = msg.event.Status
		if msg.event.Done {
			m.mode = modeIdle
			activeStreamCh = nil
			m.lastStatus = ""
			cmds = append(cmds, m.flushReplies()...)
			return m, tea.Batch(cmds...)
		}
		cmds = append(cmds, waitForStream(activeStreamCh))
		return m, tea.Batch(cmds...)

	case streamDoneMsg:
		if msg.ch != activeStreamCh {
			return m, nil
		}
		if m.mode == modeStreaming {
			m.mode = modeIdle
			activeStreamCh = nil
			m.lastStatus = ""
			cmds = append(cmds, m.flushReplies()...)
		}
		return m, tea.Batch(cmds...)

	case streamErrMsg:
		if msg.ch != activeStreamCh {
			return m, nil
		}
		m.mode = modeIdle
		activeStreamCh = nil
		m.lastStatus = ""
		// The session already turned the failure into an error bubble.
		cmds = append(cmds, m.flushReplies()...)
		return m, tea.Batch(cmds...)

	case flashClearMsg:
		m.flash = ""
		return m, nil

	// ── Async results ─────────────────────────────────────────────────
	case workflowsLoadedMsg:
		return m.handleWorkflowsLoaded(msg)

	case workflowSetMsg:
		return m.handleWorkflowSet(msg)
	}

	// Update sub-components
	var cmd tea.Cmd

	if m.mode != modeStreaming {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	// Track input changes to open/close the command menu
	newVal := m.input.Value()
	if newVal != m.lastInputVal {
		m.lastInputVal = newVal
		if m.historyIdx != -1 {
			if m.historyIdx < len(m.history) && m.history[m.historyIdx] != newVal {
				m.historyIdx = -1
				m.historySaved = ""
			}
		}
		if strings.HasPrefix(newVal, "/") {
			m.cmdMenuOpen = true
			m.cmdMenuIdx = 0
		} else {
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0
		}
	}

	return m, tea.Batch(cmds...)
}

// cancelStream aborts the in-flight run. Whatever partial reply has
// accumulated stays in the session and is flushed to the scrollback.
func (m model) cancelStream() (tea.Model, tea.Cmd) {
	m.mode = modeIdle
	activeStreamCh = nil
	m.lastStatus = ""
	m.session.Cancel()

	cmds := []tea.Cmd{tea.Println(warnMsgStyle.Render("  ! Cancelled."))}
	cmds = append(cmds, m.flushReplies()...)
	return m, tea.Sequence(cmds...)
}

// flushReplies prints every session message that has not reached the
// scrollback yet. User messages are echoed at submit time and skipped
// here; replies go through the rich-text renderer, error bubbles are
// printed in error style.
func (m *model) flushReplies() []tea.Cmd {
	if m.session == nil {
		return nil
	}
	msgs := m.session.Messages()
	var cmds []tea.Cmd
	for _, msg := range msgs[m.printedMsgs:] {
		if msg.Sender == chat.SenderUser {
			continue
		}
		if msg.Err {
			cmds = append(cmds, tea.Println(errorMsgStyle.Render("  ✗ "+msg.Text)))
			continue
		}
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}
		rendered, blocks := renderAnswer(msg.Text)
		m.codeBlocks = blocks
		cmds = append(cmds, tea.Println(rendered), tea.Println(""))
		if len(blocks) > 0 {
			cmds = append(cmds, tea.Println(dimStyle.Render(
				fmt.Sprintf("  /copy <1-%d> copies a code block", len(blocks)))))
		}
	}
	m.printedMsgs = len(msgs)
	return cmds
}

// ─── Flash ──────────────────────────────────────────────────────────────────

type flashClearMsg struct{}

// showFlash displays a transient acknowledgment in the hint bar.
func (m *model) showFlash(text string) tea.Cmd {
	m.flash = text
	return tea.Tick(1500*time.Millisecond, func(time.Time) tea.Msg {
		return flashClearMsg{}
	})
}

// ─── View ───────────────────────────────────────────────────────────────────
//
// Inline mode: View() only shows the input prompt + hints.
// All output is printed above via tea.Println.

func (m model) View() string {
	if !m.ready {
		return ""
	}

	var s strings.Builder

	// Input or streaming indicator
	if m.mode == modeStreaming {
		status := "Waiting for the workflow..."
		if m.lastStatus != "" {
			status = m.lastStatus
		}
		s.WriteString(m.spinner.View() + " " + statusStyle.Render(status))
	} else {
		s.WriteString(m.input.View())
	}
	s.WriteString("\n")

	// Separator
	sepWidth := min(m.width, 80)
	if sepWidth < 20 {
		sepWidth = 20
	}
	s.WriteString(separatorStyle.Render(strings.Repeat("─", sepWidth)))
	s.WriteString("\n")

	// Hint bar
	s.WriteString(m.renderHints())

	return s.String()
}

// ─── Hint bar ───────────────────────────────────────────────────────────────

func (m model) renderHints() string {
	if m.flash != "" {
		return flashStyle.Render("  ✓ " + m.flash)
	}

	if m.mode == modeStreaming {
		return hintBarStyle.Render("  Esc cancel")
	}

	// Show vertical command menu when menu is open
	if m.cmdMenuOpen {
		val := m.input.Value()
		matches := matchCommands(val)
		if len(matches) > 0 {
			return m.renderCommandMenu(matches)
		}
	}

	return hintBarStyle.Render("  ? for help")
}

// renderCommandMenu renders a vertical list of matching commands.
func (m model) renderCommandMenu(matches []slashCmd) string {
	maxLen := 0
	for _, c := range matches {
		if len(c.name) > maxLen {
			maxLen = len(c.name)
		}
	}

	var lines []string
	for i, c := range matches {
		padded := c.name
		for len(padded) < maxLen {
			padded += " "
		}

		var line string
		if i == m.cmdMenuIdx {
			line = "  " + cmdSelectedNameStyle.Render(padded) + "  " + cmdSelectedDescStyle.Render(c.desc)
		} else {
			line = "  " + cmdNameStyle.Render(padded) + "  " + cmdDescStyle.Render(c.desc)
		}
		lines = append(lines, line)
	}

	lines = append(lines, hintBarStyle.Render("  ↑↓ navigate  Tab/Enter select"))

	return strings.Join(lines, "\n")
}

// matchCommands returns all slash commands matching a prefix.
func matchCommands(prefix string) []slashCmd {
	prefix = strings.ToLower(prefix)
	if prefix == "/" {
		return slashCommands
	}
	var matches []slashCmd
	for _, c := range slashCommands {
		if strings.HasPrefix(c.name, prefix) {
			matches = append(matches, c)
		}
	}
	return matches
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func serverStr(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.Server
}

func workflowStr(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.WorkflowID
}
