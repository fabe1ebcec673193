package tui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"studio-cli/internal/api"
	"studio-cli/internal/chat"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// ─── Input dispatch ─────────────────────────────────────────────────────────

func (m model) dispatchInput(value string) (tea.Model, tea.Cmd) {
	if value == "?" {
		return m.cmdHelp()
	}
	if strings.HasPrefix(value, "/") {
		return m.dispatchCommand(value)
	}
	return m.cmdAsk(value)
}

func (m model) dispatchCommand(value string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(value)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help":
		return m.cmdHelp()
	case "/clear":
		return m.cmdClear()
	case "/config":
		return m.cmdConfig()
	case "/workflows":
		return m.cmdWorkflows()
	case "/workflow":
		return m.cmdWorkflow(args)
	case "/copy":
		return m.cmdCopy(args)
	case "/export":
		return m.cmdExport(args)
	case "/set":
		return m.cmdSet(args)
	case "/quit", "/exit":
		return m, tea.Quit
	default:
		return m, tea.Println(errorMsgStyle.Render(
			fmt.Sprintf("  ✗ Unknown command: %s (type /help)", cmd)))
	}
}

// ─── Ask ────────────────────────────────────────────────────────────────────

func (m model) cmdAsk(prompt string) (tea.Model, tea.Cmd) {
	if m.client == nil || m.session == nil {
		return m, tea.Println(errorMsgStyle.Render(
			"  ✗ No server configured. Run: /set server <url>"))
	}
	if m.cfg.WorkflowID == "" {
		return m, tea.Println(errorMsgStyle.Render(
			"  ✗ No workflow selected. Run: /workflows then /workflow <id>"))
	}

	m.mode = modeStreaming
	m.lastStatus = "Starting..."
	m.codeBlocks = nil
	m.printedMsgs = len(m.session.Messages())

	return m, tea.Sequence(
		tea.Println(""),
		tea.Println(userPromptStyle.Render("❯ ")+prompt),
		tea.Println(""),
		beginStream(m.session, prompt),
	)
}

// ─── Help ───────────────────────────────────────────────────────────────────

func (m model) cmdHelp() (tea.Model, tea.Cmd) {
	pad := func(s string, n int) string {
		for len(s) < n {
			s += " "
		}
		return s
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(welcomeInfoLabel.Render("  Commands"))
	b.WriteString("\n\n")

	rows := []struct{ name, desc string }{
		{"/workflows", "List workflows on the server"},
		{"/workflow <id>", "Select the workflow to chat with"},
		{"/copy [n]", "Copy code block n from the last reply"},
		{"/export [file]", "Save the conversation as HTML"},
		{"/set server <url>", "Set the server URL"},
		{"/set token <token>", "Set the API token"},
		{"/config", "Show the current configuration"},
		{"/clear", "Clear the screen and conversation"},
		{"/quit", "Exit"},
	}
	for _, r := range rows {
		b.WriteString("  " + cmdNameStyle.Render(pad(r.name, 20)) + cmdDescStyle.Render(r.desc) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(hintBarStyle.Render("  Anything else is sent to the active workflow."))
	b.WriteString("\n")

	return m, tea.Println(b.String())
}

// ─── Config ─────────────────────────────────────────────────────────────────

func (m model) cmdConfig() (tea.Model, tea.Cmd) {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(welcomeInfoLabel.Render("  Configuration"))
	if m.profile != "" {
		b.WriteString(dimStyle.Render("  (profile: " + m.profile + ")"))
	}
	b.WriteString("\n\n")

	row := func(label, value string) {
		if value == "" {
			value = dimStyle.Render("(not set)")
		}
		b.WriteString("  " + cmdNameStyle.Render(label) + value + "\n")
	}

	row("Server    ", m.cfg.Server)
	token := ""
	if m.cfg.Token != "" {
		token = "********"
	}
	row("Token     ", token)
	row("Workflow  ", m.cfg.WorkflowID)

	return m, tea.Println(b.String())
}

// ─── Workflows ──────────────────────────────────────────────────────────────

type workflowsLoadedMsg struct {
	workflows []api.Workflow
	err       error
}

func (m model) cmdWorkflows() (tea.Model, tea.Cmd) {
	if m.client == nil {
		return m, tea.Println(errorMsgStyle.Render(
			"  ✗ No server configured. Run: /set server <url>"))
	}

	client := m.client
	return m, tea.Sequence(
		tea.Println(statusStyle.Render("  ⟳ Loading workflows...")),
		func() tea.Msg {
			workflows, err := client.ListWorkflows(50)
			return workflowsLoadedMsg{workflows: workflows, err: err}
		},
	)
}

func (m model) handleWorkflowsLoaded(msg workflowsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ " + msg.err.Error()))
	}
	if len(msg.workflows) == 0 {
		return m, tea.Println(warnMsgStyle.Render("  ! No workflows on this server."))
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(welcomeInfoLabel.Render(fmt.Sprintf("  Workflows (%d)", len(msg.workflows))))
	b.WriteString("\n\n")
	for _, wf := range msg.workflows {
		marker := "  "
		if wf.ID == m.cfg.WorkflowID {
			marker = successMsgStyle.Render("▸ ")
		}
		b.WriteString("  " + marker + workflowNameStyle.Render(wf.Name))
		b.WriteString(dimStyle.Render("  " + truncateID(wf.ID)))
		if !wf.IsActive {
			b.WriteString(warnMsgStyle.Render("  (inactive)"))
		}
		b.WriteString("\n")
		if wf.Description != "" {
			b.WriteString(dimStyle.Render("      " + wf.Description))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(hintBarStyle.Render("  /workflow <id> selects one"))
	b.WriteString("\n")

	return m, tea.Println(b.String())
}

type workflowSetMsg struct {
	workflow *api.Workflow
	id       string
	err      error
}

func (m model) cmdWorkflow(args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		if m.cfg.WorkflowID == "" {
			return m, tea.Println(warnMsgStyle.Render("  ! No workflow selected. Usage: /workflow <id>"))
		}
		return m, tea.Println(statusStyle.Render("  Active workflow: " + m.cfg.WorkflowID))
	}

	id := args[0]
	if m.client == nil {
		// No server to ask; trust the id and let the first ask surface
		// a bad one.
		return m.applyWorkflow(id, "")
	}

	client := m.client
	return m, tea.Sequence(
		tea.Println(statusStyle.Render("  ⟳ Checking workflow...")),
		func() tea.Msg {
			wf, err := client.GetWorkflow(id)
			return workflowSetMsg{workflow: wf, id: id, err: err}
		},
	)
}

func (m model) handleWorkflowSet(msg workflowSetMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ " + msg.err.Error()))
	}
	name := ""
	if msg.workflow != nil {
		name = msg.workflow.Name
	}
	next, cmd := m.applyWorkflow(msg.id, name)
	if msg.workflow != nil && !msg.workflow.IsActive {
		return next, tea.Sequence(cmd,
			tea.Println(warnMsgStyle.Render("  ! This workflow is marked inactive.")))
	}
	return next, cmd
}

// applyWorkflow records the selection and resets the conversation.
func (m model) applyWorkflow(id, name string) (tea.Model, tea.Cmd) {
	m.cfg.WorkflowID = id
	if err := m.cfg.Save(); err != nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ Saving config: " + err.Error()))
	}
	if m.session != nil {
		m.session.SetWorkflow(id)
		m.printedMsgs = 0
	}
	m.codeBlocks = nil

	label := truncateID(id)
	if name != "" {
		label = name
	}
	return m, tea.Println(successMsgStyle.Render("  ✓ Workflow set to " + label))
}

// ─── Copy ───────────────────────────────────────────────────────────────────

func (m model) cmdCopy(args []string) (tea.Model, tea.Cmd) {
	if len(m.codeBlocks) == 0 {
		return m, tea.Println(warnMsgStyle.Render("  ! No code blocks in the last reply."))
	}

	n := 1
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return m, tea.Println(errorMsgStyle.Render("  ✗ Usage: /copy <number>"))
		}
		n = parsed
	}
	if n < 1 || n > len(m.codeBlocks) {
		return m, tea.Println(errorMsgStyle.Render(
			fmt.Sprintf("  ✗ Block %d does not exist (1-%d available)", n, len(m.codeBlocks))))
	}

	if err := clipboard.WriteAll(m.codeBlocks[n-1].Code); err != nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ Clipboard: " + err.Error()))
	}

	return m, m.showFlash(fmt.Sprintf("Copied code block %d", n))
}

// ─── Export ─────────────────────────────────────────────────────────────────

func (m model) cmdExport(args []string) (tea.Model, tea.Cmd) {
	if m.session == nil || len(m.session.Messages()) == 0 {
		return m, tea.Println(warnMsgStyle.Render("  ! Nothing to export yet."))
	}

	path := "transcript.html"
	if len(args) > 0 {
		path = args[0]
	}

	title := "Agent Studio conversation"
	if m.cfg.WorkflowID != "" {
		title = "Workflow " + truncateID(m.cfg.WorkflowID)
	}

	if err := os.WriteFile(path, []byte(m.session.TranscriptHTML(title)), 0644); err != nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ Writing " + path + ": " + err.Error()))
	}

	return m, tea.Println(successMsgStyle.Render("  ✓ Exported to " + path))
}

// ─── Set ────────────────────────────────────────────────────────────────────

func (m model) cmdSet(args []string) (tea.Model, tea.Cmd) {
	if len(args) < 2 {
		return m, tea.Println(errorMsgStyle.Render("  ✗ Usage: /set <server|token|workflow> <value>"))
	}

	key := strings.ToLower(args[0])
	value := args[1]

	switch key {
	case "server":
		m.cfg.Server = strings.TrimRight(value, "/")
	case "token":
		m.cfg.Token = value
	case "workflow":
		return m.cmdWorkflow(args[1:])
	default:
		return m, tea.Println(errorMsgStyle.Render("  ✗ Unknown setting: " + key))
	}

	if err := m.cfg.Save(); err != nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ Saving config: " + err.Error()))
	}

	// Rebuild the client so the new server or token takes effect
	m.client = api.NewClient(m.cfg)
	m.session = chat.NewSession(m.client, m.cfg.WorkflowID)
	m.printedMsgs = 0
	m.codeBlocks = nil

	return m, tea.Println(successMsgStyle.Render("  ✓ " + key + " updated"))
}

// ─── Clear ──────────────────────────────────────────────────────────────────

func (m model) cmdClear() (tea.Model, tea.Cmd) {
	if m.session != nil {
		m.session.Clear()
	}
	m.printedMsgs = 0
	m.codeBlocks = nil
	m.flash = ""
	return m, tea.ClearScreen
}
