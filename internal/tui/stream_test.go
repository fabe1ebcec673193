package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"studio-cli/internal/api"
	"studio-cli/internal/chat"

	tea "github.com/charmbracelet/bubbletea"
)

var errTransport = errors.New("dial tcp: connection refused")

func contentFrame(text string) api.StreamFrame {
	return api.StreamFrame{Kind: api.FrameContent, Data: text}
}

func TestBeginStreamDeliversEvents(t *testing.T) {
	client := &mockAPI{frames: []api.StreamFrame{
		{Kind: api.FrameStatus, Status: api.StatusStarted},
		contentFrame("Hello"),
		contentFrame(" world"),
		{Kind: api.FrameStatus, Status: api.StatusCompleted},
	}}
	session := chat.NewSession(client, "wf-1")

	cmd := beginStream(session, "hi")
	ch := activeStreamCh
	if ch == nil {
		t.Fatal("activeStreamCh not set")
	}

	var events []chat.Event
	msg := cmd()
loop:
	for {
		switch m := msg.(type) {
		case streamEventMsg:
			events = append(events, m.event)
		case streamErrMsg:
			t.Fatalf("unexpected stream error: %v", m.err)
		case streamDoneMsg:
			break loop
		}
		msg = waitForStream(ch)()
	}

	if len(events) == 0 {
		t.Fatal("no events delivered")
	}
	last := events[len(events)-1]
	if !last.Done {
		t.Error("final event should be Done")
	}
	if last.Text != "Hello world" {
		t.Errorf("final text = %q, want %q", last.Text, "Hello world")
	}

	sawContent := false
	for _, ev := range events {
		if strings.Contains(ev.Text, "Hello") {
			sawContent = true
		}
	}
	if !sawContent {
		t.Error("no content event observed")
	}
}

func TestBeginStreamErrorSurfaces(t *testing.T) {
	client := &mockAPI{err: errTransport}
	session := chat.NewSession(client, "wf-1")

	cmd := beginStream(session, "hi")
	ch := activeStreamCh

	sawErr := false
	msg := cmd()
loop:
	for {
		switch msg.(type) {
		case streamErrMsg:
			sawErr = true
		case streamDoneMsg:
			break loop
		}
		msg = waitForStream(ch)()
	}

	if !sawErr {
		t.Error("transport failure should surface as streamErrMsg")
	}

	// The session keeps an error bubble for the scrollback flush.
	msgs := session.Messages()
	if len(msgs) == 0 {
		t.Fatal("expected messages after failed run")
	}
	last := msgs[len(msgs)-1]
	if !last.Err {
		t.Error("last message should be an error bubble")
	}
	if !strings.Contains(last.Text, "connection refused") {
		t.Errorf("error bubble should carry the cause, got %q", last.Text)
	}
}

func TestWaitForStreamClosedChannel(t *testing.T) {
	ch := make(chan tea.Msg)
	close(ch)
	done, ok := waitForStream(ch)().(streamDoneMsg)
	if !ok {
		t.Fatal("closed channel should yield streamDoneMsg")
	}
	if done.ch != ch {
		t.Error("done message should name the channel it came from")
	}
}

func TestStaleStreamMessagesIgnored(t *testing.T) {
	m := newTestModel()
	m.mode = modeStreaming
	live := make(chan tea.Msg, 1)
	activeStreamCh = live
	defer func() { activeStreamCh = nil }()

	stale := make(chan tea.Msg)

	next, _ := m.Update(streamDoneMsg{ch: stale})
	got := next.(model)
	if got.mode != modeStreaming {
		t.Error("done message from an old run ended the live one")
	}
	if activeStreamCh != live {
		t.Error("live channel dropped after stale done message")
	}

	next, _ = got.Update(streamEventMsg{ch: stale, event: chat.Event{Done: true}})
	got = next.(model)
	if got.mode != modeStreaming {
		t.Error("event from an old run ended the live one")
	}

	next, _ = got.Update(streamErrMsg{ch: stale, err: errTransport})
	got = next.(model)
	if got.mode != modeStreaming {
		t.Error("error from an old run ended the live one")
	}
	if activeStreamCh != live {
		t.Error("live channel dropped after stale error message")
	}
}

func TestBeginStreamChannelCloses(t *testing.T) {
	client := &mockAPI{frames: []api.StreamFrame{contentFrame("x")}}
	session := chat.NewSession(client, "wf-1")

	beginStream(session, "q")
	ch := activeStreamCh

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream channel never closed")
		}
	}
}
