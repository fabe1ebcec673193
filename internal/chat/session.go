package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"studio-cli/internal/api"
)

// Sender identifies which side of the conversation a message belongs to.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "agent"
)

// Message is one rendered conversation entry.
type Message struct {
	ID     string
	Text   string
	Sender Sender
	Err    bool
}

// Buffer is the per-run accumulator for the in-flight reply. It is owned
// exclusively by the run that created it; a superseded run never touches
// it again.
type Buffer struct {
	Text    string
	Status  string
	Err     bool
	ErrText string
	Done    bool
}

// Apply is the pure state transition from one decoded frame to the next
// buffer state. stop reports that no further frames may be processed for
// this run (an explicit error frame terminates the stream early).
func Apply(buf Buffer, frame api.StreamFrame) (next Buffer, stop bool) {
	next = buf

	switch frame.Kind {
	case api.FrameStatus:
		switch frame.Status {
		case api.StatusStarted:
			next.Status = "Started"
		case api.StatusCompleted:
			next.Status = "Completed"
		case api.StatusError:
			return failBuffer(next, frame.Data), true
		}

	case api.FrameContent, api.FrameLegacyText:
		next.Text += frame.Data

	case api.FrameInfo:
		if frame.Data != "" {
			next.Status = frame.Data
		}

	case api.FrameToolCallStarted:
		name := frame.ToolName
		if name == "" {
			name = "tool"
		}
		next.Status = "Running " + name + "..."

	case api.FrameToolCallCompleted:
		name := frame.ToolName
		if name == "" {
			name = "Tool"
		}
		if frame.Success {
			next.Status = name + " completed"
		} else {
			next.Status = name + " failed"
		}

	case api.FrameAgentResponse:
		if summary := api.SummarizeAgentResponse(frame.Payload); summary != "" {
			next.Status = summary
		}

	case api.FrameError:
		return failBuffer(next, frame.Data), true

	case api.FrameToolResponse:
		// Informational only; never surfaced to status or content.
	}

	return next, false
}

func failBuffer(buf Buffer, detail string) Buffer {
	buf.Err = true
	buf.Done = true
	if detail != "" {
		buf.ErrText = detail
	} else {
		buf.ErrText = "The workflow reported an error."
	}
	return buf
}

// ─── Session ────────────────────────────────────────────────────────────────

// Event reflects one visible change to the conversation during a send.
type Event struct {
	Text   string // full accumulated reply so far
	Status string
	Done   bool
	Err    bool
}

// EventFunc observes buffer changes during Send. It is only invoked for
// the run that is still current; events from superseded runs are dropped
// before they reach it.
type EventFunc func(Event)

// Session owns one conversation against a workflow-scoped stream endpoint.
// At most one run mutates the message list at a time: each Send bumps a
// monotonic run token and cancels the previous run's stream, and every
// update is gated on the token still matching.
type Session struct {
	mu         sync.Mutex
	client     api.StudioAPI
	workflowID string
	messages   []Message
	buf        Buffer
	run        uint64
	cancel     context.CancelFunc
}

func NewSession(client api.StudioAPI, workflowID string) *Session {
	return &Session{client: client, workflowID: workflowID}
}

// WorkflowID returns the workflow this session streams against.
func (s *Session) WorkflowID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflowID
}

// SetWorkflow switches the session to a different workflow. Any in-flight
// run is invalidated: its remaining frames must not leak into the new
// conversation.
func (s *Session) SetWorkflow(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.workflowID = workflowID
	s.messages = nil
	s.buf = Buffer{}
}

// Clear drops the conversation, invalidating any in-flight run.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.messages = nil
	s.buf = Buffer{}
}

// Cancel aborts the in-flight run, if any, keeping whatever partial reply
// has accumulated.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

func (s *Session) invalidateLocked() {
	s.run++
	s.releaseRunLocked()
}

// releaseRunLocked cancels the run's derived context so it does not
// outlive the stream.
func (s *Session) releaseRunLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Messages returns a snapshot of the conversation.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Status returns the current in-flight status text.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Status
}

// Send submits a query and blocks until the reply stream finishes, the
// run is superseded, or the context ends. Updates are delivered through
// fn in stream order; the final event has Done set.
func (s *Session) Send(ctx context.Context, query string, fn EventFunc) error {
	s.mu.Lock()
	s.invalidateLocked()
	myRun := s.run
	workflowID := s.workflowID

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	history := historyLocked(s.messages)
	s.messages = append(s.messages,
		Message{ID: uuid.NewString(), Text: query, Sender: SenderUser},
		Message{ID: uuid.NewString(), Sender: SenderBot},
	)
	s.buf = Buffer{}
	s.mu.Unlock()

	req := api.StreamRequest{
		Query:            query,
		ChatHistory:      history,
		RuntimeOverrides: map[string]interface{}{},
	}

	err := s.client.StreamWorkflow(runCtx, workflowID, req, func(frame api.StreamFrame) error {
		return s.applyFrame(myRun, frame, fn)
	})

	if err != nil {
		return s.finishWithError(myRun, err, fn)
	}
	return s.finish(myRun, fn)
}

// applyFrame folds one frame into the buffer, unless the run went stale.
func (s *Session) applyFrame(myRun uint64, frame api.StreamFrame, fn EventFunc) error {
	s.mu.Lock()
	if s.run != myRun {
		s.mu.Unlock()
		return api.ErrStopStream
	}

	prev := s.buf
	next, stop := Apply(prev, frame)
	s.buf = next

	changed := next.Text != prev.Text || next.Status != prev.Status || next.Err != prev.Err
	if next.Text != prev.Text || next.Err {
		s.syncPlaceholderLocked()
	}
	ev := Event{Text: next.Text, Status: next.Status, Err: next.Err}
	s.mu.Unlock()

	if changed && fn != nil {
		fn(ev)
	}
	if stop {
		return api.ErrStopStream
	}
	return nil
}

// syncPlaceholderLocked mirrors the buffer into the placeholder reply.
// An error with no accumulated content replaces the placeholder; an error
// after partial content keeps the content and appends a distinct error
// message.
func (s *Session) syncPlaceholderLocked() {
	if len(s.messages) == 0 {
		return
	}
	last := &s.messages[len(s.messages)-1]
	if last.Sender != SenderBot {
		return
	}

	if !s.buf.Err {
		last.Text = s.buf.Text
		return
	}

	if s.buf.Text == "" {
		last.Text = s.buf.ErrText
		last.Err = true
		return
	}
	if !last.Err {
		last.Text = s.buf.Text
		s.messages = append(s.messages, Message{
			ID:     uuid.NewString(),
			Text:   s.buf.ErrText,
			Sender: SenderBot,
			Err:    true,
		})
	}
}

func (s *Session) finish(myRun uint64, fn EventFunc) error {
	s.mu.Lock()
	if s.run != myRun {
		s.mu.Unlock()
		return nil
	}
	s.releaseRunLocked()
	s.buf.Done = true
	wasErr := s.buf.Err
	ev := Event{Text: s.buf.Text, Status: s.buf.Status, Done: true, Err: wasErr}
	s.mu.Unlock()

	if fn != nil {
		fn(ev)
	}
	return nil
}

// finishWithError handles transport-level failures: the stream loop was
// never entered or broke mid-read. A single synthetic error bubble is
// shown; partial content already streamed stays visible.
func (s *Session) finishWithError(myRun uint64, cause error, fn EventFunc) error {
	s.mu.Lock()
	if s.run != myRun {
		s.mu.Unlock()
		return nil
	}
	s.releaseRunLocked()
	s.buf = failBuffer(s.buf, fmt.Sprintf("Request failed: %v", cause))
	s.syncPlaceholderLocked()
	ev := Event{Text: s.buf.Text, Status: s.buf.Status, Done: true, Err: true}
	s.mu.Unlock()

	if fn != nil {
		fn(ev)
	}
	return cause
}

// historyLocked converts completed turns to the wire history shape.
// Error bubbles are skipped; they are rendering artifacts, not turns.
func historyLocked(messages []Message) []api.HistoryEntry {
	history := make([]api.HistoryEntry, 0, len(messages))
	for _, m := range messages {
		if m.Err || m.Text == "" {
			continue
		}
		history = append(history, api.HistoryEntry{Actor: string(m.Sender), Content: m.Text})
	}
	return history
}
