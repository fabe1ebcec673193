package tui

import (
	"context"
	"testing"

	"studio-cli/internal/api"
	"studio-cli/internal/chat"
	"studio-cli/internal/config"
	"studio-cli/internal/richtext"
)

// mockAPI implements api.StudioAPI for testing.
type mockAPI struct {
	workflows []api.Workflow
	frames    []api.StreamFrame

	err error // if set, all methods return this error
}

func (m *mockAPI) ListWorkflows(limit int) ([]api.Workflow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.workflows, nil
}

func (m *mockAPI) GetWorkflow(workflowID string) (*api.Workflow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &api.Workflow{ID: workflowID, Name: "Test workflow", IsActive: true}, nil
}

func (m *mockAPI) StreamWorkflow(ctx context.Context, workflowID string, req api.StreamRequest, cb api.FrameCallback) error {
	if m.err != nil {
		return m.err
	}
	for _, f := range m.frames {
		if err := cb(f); err != nil {
			if err == api.ErrStopStream {
				return nil
			}
			return err
		}
	}
	return nil
}

// Verify mockAPI satisfies the interface at compile time.
var _ api.StudioAPI = (*mockAPI)(nil)

func newTestModel() model {
	m := initialModel("test", "")
	m.cfg = &config.Config{
		Server:     "http://localhost:8080",
		Token:      "test-token",
		WorkflowID: "wf-1",
	}
	m.client = &mockAPI{}
	m.session = chat.NewSession(m.client, m.cfg.WorkflowID)
	m.ready = true
	m.width = 80
	m.height = 24
	return m
}

func TestDispatchCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantMode appMode
	}{
		{"/help", modeIdle},
		{"/config", modeIdle},
		{"/workflow", modeIdle},
		{"/quit", modeIdle}, // quit returns tea.Quit cmd
		{"/unknown", modeIdle},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := newTestModel()
			result, _ := m.dispatchCommand(tt.input)
			rm := result.(model)
			if rm.mode != tt.wantMode {
				t.Errorf("mode = %d, want %d", rm.mode, tt.wantMode)
			}
		})
	}
}

func TestDispatchInput(t *testing.T) {
	t.Run("question mark shows help", func(t *testing.T) {
		m := newTestModel()
		result, _ := m.dispatchInput("?")
		rm := result.(model)
		if rm.mode != modeIdle {
			t.Errorf("mode = %d, want modeIdle", rm.mode)
		}
	})

	t.Run("slash dispatches command", func(t *testing.T) {
		m := newTestModel()
		result, _ := m.dispatchInput("/config")
		rm := result.(model)
		if rm.mode != modeIdle {
			t.Errorf("mode = %d, want modeIdle", rm.mode)
		}
	})

	t.Run("plain text starts a stream", func(t *testing.T) {
		m := newTestModel()
		result, cmd := m.dispatchInput("Summarize the incident")
		rm := result.(model)
		if rm.mode != modeStreaming {
			t.Errorf("mode = %d, want modeStreaming", rm.mode)
		}
		if cmd == nil {
			t.Error("expected stream cmd, got nil")
		}
	})

	t.Run("ask without client shows error", func(t *testing.T) {
		m := newTestModel()
		m.client = nil
		m.session = nil
		result, cmd := m.dispatchInput("test question")
		rm := result.(model)
		if rm.mode != modeIdle {
			t.Errorf("mode = %d, want modeIdle", rm.mode)
		}
		if cmd == nil {
			t.Error("expected error message cmd, got nil")
		}
	})

	t.Run("ask without workflow shows error", func(t *testing.T) {
		m := newTestModel()
		m.cfg.WorkflowID = ""
		result, cmd := m.dispatchInput("test question")
		rm := result.(model)
		if rm.mode != modeIdle {
			t.Errorf("mode = %d, want modeIdle", rm.mode)
		}
		if cmd == nil {
			t.Error("expected error message cmd, got nil")
		}
	})
}

func TestMatchCommands(t *testing.T) {
	t.Run("bare slash matches everything", func(t *testing.T) {
		matches := matchCommands("/")
		if len(matches) != len(slashCommands) {
			t.Errorf("got %d matches, want %d", len(matches), len(slashCommands))
		}
	})

	t.Run("prefix narrows matches", func(t *testing.T) {
		matches := matchCommands("/work")
		if len(matches) != 2 {
			t.Fatalf("got %d matches, want 2", len(matches))
		}
		if matches[0].name != "/workflow" || matches[1].name != "/workflows" {
			t.Errorf("matches = %v", matches)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		matches := matchCommands("/HELP")
		if len(matches) != 1 || matches[0].name != "/help" {
			t.Errorf("matches = %v", matches)
		}
	})

	t.Run("no match", func(t *testing.T) {
		if matches := matchCommands("/zzz"); len(matches) != 0 {
			t.Errorf("got %d matches, want 0", len(matches))
		}
	})
}

func TestCopyCommand(t *testing.T) {
	t.Run("no blocks warns", func(t *testing.T) {
		m := newTestModel()
		_, cmd := m.cmdCopy(nil)
		if cmd == nil {
			t.Error("expected warning cmd, got nil")
		}
	})

	t.Run("out of range errors", func(t *testing.T) {
		m := newTestModel()
		m.codeBlocks = append(m.codeBlocks, richtext.CodeBlock{Lang: "go", Code: "fmt.Println()"})
		_, cmd := m.cmdCopy([]string{"3"})
		if cmd == nil {
			t.Error("expected error cmd, got nil")
		}
	})

	t.Run("non-numeric argument errors", func(t *testing.T) {
		m := newTestModel()
		m.codeBlocks = append(m.codeBlocks, richtext.CodeBlock{Lang: "go", Code: "x := 1"})
		_, cmd := m.cmdCopy([]string{"first"})
		if cmd == nil {
			t.Error("expected error cmd, got nil")
		}
	})
}

func TestWorkflowCommand(t *testing.T) {
	t.Run("no args no selection warns", func(t *testing.T) {
		m := newTestModel()
		m.cfg.WorkflowID = ""
		_, cmd := m.cmdWorkflow(nil)
		if cmd == nil {
			t.Error("expected warning cmd, got nil")
		}
	})

	t.Run("no args shows current", func(t *testing.T) {
		m := newTestModel()
		_, cmd := m.cmdWorkflow(nil)
		if cmd == nil {
			t.Error("expected info cmd, got nil")
		}
	})

	t.Run("argument looks the workflow up first", func(t *testing.T) {
		m := newTestModel()
		_, cmd := m.cmdWorkflow([]string{"wf-2"})
		if cmd == nil {
			t.Fatal("expected lookup cmd, got nil")
		}
		if m.cfg.WorkflowID != "wf-1" {
			t.Errorf("selection changed before the lookup finished: %q", m.cfg.WorkflowID)
		}
	})

	t.Run("argument without client applies directly", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		m := newTestModel()
		m.client = nil
		result, _ := m.cmdWorkflow([]string{"wf-2"})
		rm := result.(model)
		if rm.cfg.WorkflowID != "wf-2" {
			t.Errorf("WorkflowID = %q, want wf-2", rm.cfg.WorkflowID)
		}
		if rm.session.WorkflowID() != "wf-2" {
			t.Errorf("session workflow = %q, want wf-2", rm.session.WorkflowID())
		}
	})
}

func TestHandleWorkflowSet(t *testing.T) {
	t.Run("lookup result applies selection", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		m := newTestModel()
		result, cmd := m.Update(workflowSetMsg{
			workflow: &api.Workflow{ID: "wf-2", Name: "Billing triage", IsActive: true},
			id:       "wf-2",
		})
		rm := result.(model)
		if rm.cfg.WorkflowID != "wf-2" {
			t.Errorf("WorkflowID = %q, want wf-2", rm.cfg.WorkflowID)
		}
		if rm.session.WorkflowID() != "wf-2" {
			t.Errorf("session workflow = %q, want wf-2", rm.session.WorkflowID())
		}
		if cmd == nil {
			t.Error("expected confirmation cmd, got nil")
		}
	})

	t.Run("lookup failure keeps selection", func(t *testing.T) {
		m := newTestModel()
		result, cmd := m.Update(workflowSetMsg{id: "wf-missing", err: errTransport})
		rm := result.(model)
		if rm.cfg.WorkflowID != "wf-1" {
			t.Errorf("WorkflowID = %q, want wf-1 untouched", rm.cfg.WorkflowID)
		}
		if cmd == nil {
			t.Error("expected error cmd, got nil")
		}
	})

	t.Run("inactive workflow still selectable", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		m := newTestModel()
		result, _ := m.Update(workflowSetMsg{
			workflow: &api.Workflow{ID: "wf-2", Name: "Old triage", IsActive: false},
			id:       "wf-2",
		})
		rm := result.(model)
		if rm.cfg.WorkflowID != "wf-2" {
			t.Errorf("WorkflowID = %q, want wf-2", rm.cfg.WorkflowID)
		}
	})
}

func TestWorkflowsRequiresClient(t *testing.T) {
	m := newTestModel()
	m.client = nil
	_, cmd := m.cmdWorkflows()
	if cmd == nil {
		t.Error("expected error cmd, got nil")
	}
}

func TestHandleWorkflowsLoaded(t *testing.T) {
	t.Run("error produces message", func(t *testing.T) {
		m := newTestModel()
		_, cmd := m.handleWorkflowsLoaded(workflowsLoadedMsg{err: context.DeadlineExceeded})
		if cmd == nil {
			t.Error("expected error cmd, got nil")
		}
	})

	t.Run("empty list warns", func(t *testing.T) {
		m := newTestModel()
		_, cmd := m.handleWorkflowsLoaded(workflowsLoadedMsg{})
		if cmd == nil {
			t.Error("expected warning cmd, got nil")
		}
	})

	t.Run("list produces output", func(t *testing.T) {
		m := newTestModel()
		msg := workflowsLoadedMsg{workflows: []api.Workflow{
			{ID: "wf-1", Name: "Triage", IsActive: true},
			{ID: "wf-2", Name: "Digest", IsActive: false},
		}}
		_, cmd := m.handleWorkflowsLoaded(msg)
		if cmd == nil {
			t.Error("expected output cmd, got nil")
		}
	})
}

func TestHistoryNavigation(t *testing.T) {
	m := newTestModel()
	m.history = []string{"first", "second", "third"}
	m.historyIdx = -1

	// Walking up from a fresh prompt lands on the newest entry.
	m.historySaved = m.input.Value()
	m.historyIdx = len(m.history) - 1
	m.input.SetValue(m.history[m.historyIdx])
	if m.input.Value() != "third" {
		t.Errorf("input = %q, want third", m.input.Value())
	}

	// Up again moves to the older entry, clamped at zero.
	m.historyIdx--
	if m.historyIdx < 0 {
		m.historyIdx = 0
	}
	m.input.SetValue(m.history[m.historyIdx])
	if m.input.Value() != "second" {
		t.Errorf("input = %q, want second", m.input.Value())
	}
}

func TestFlashLifecycle(t *testing.T) {
	m := newTestModel()
	cmd := m.showFlash("Copied code block 1")
	if m.flash != "Copied code block 1" {
		t.Errorf("flash = %q", m.flash)
	}
	if cmd == nil {
		t.Fatal("expected tick cmd, got nil")
	}

	result, _ := m.Update(flashClearMsg{})
	rm := result.(model)
	if rm.flash != "" {
		t.Errorf("flash = %q, want empty after clear", rm.flash)
	}
}

func TestClearResetsState(t *testing.T) {
	m := newTestModel()
	m.printedMsgs = 4
	m.codeBlocks = append(m.codeBlocks, richtext.CodeBlock{Code: "a"})
	m.flash = "stale"

	result, cmd := m.cmdClear()
	rm := result.(model)
	if rm.printedMsgs != 0 {
		t.Errorf("printedMsgs = %d, want 0", rm.printedMsgs)
	}
	if rm.codeBlocks != nil {
		t.Error("codeBlocks should be nil")
	}
	if rm.flash != "" {
		t.Errorf("flash = %q, want empty", rm.flash)
	}
	if cmd == nil {
		t.Error("expected clear-screen cmd, got nil")
	}
	if len(rm.session.Messages()) != 0 {
		t.Error("session should be empty after clear")
	}
}
