package tui

import (
	"context"

	"studio-cli/internal/chat"

	tea "github.com/charmbracelet/bubbletea"
)

// ─── Messages sent from the stream goroutine to Bubble Tea ──────────────────

// Each message names the channel it came from so the model can tell a
// live run's traffic apart from a cancelled run's leftovers.

type streamEventMsg struct {
	ch    chan tea.Msg
	event chat.Event
}

type streamDoneMsg struct {
	ch chan tea.Msg
}

type streamErrMsg struct {
	ch  chan tea.Msg
	err error
}

// streamChannel is stored package-wide so the model can keep reading from
// it: each waitForStream call reads one message and returns it, and Update
// dispatches another waitForStream after each chunk. Setting it to nil
// abandons the remaining messages of a cancelled run.
var activeStreamCh chan tea.Msg

// beginStream runs Session.Send in a goroutine and bridges its events into
// Bubble Tea messages. The session's own run token handles supersession;
// the channel only carries events from the run that started it.
func beginStream(session *chat.Session, query string) tea.Cmd {
	ch := make(chan tea.Msg, 64)
	activeStreamCh = ch

	go func() {
		defer close(ch)

		err := session.Send(context.Background(), query, func(ev chat.Event) {
			ch <- streamEventMsg{ch: ch, event: ev}
		})
		if err != nil {
			ch <- streamErrMsg{ch: ch, err: err}
		}
	}()

	return waitForStream(ch)
}

// waitForStream reads the next message from the channel.
func waitForStream(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return streamDoneMsg{ch: ch}
		}
		return msg
	}
}
