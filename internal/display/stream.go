package display

import (
	"fmt"
	"strings"

	"studio-cli/internal/api"
)

// StreamPrinter renders a frame stream for the non-interactive ask
// command. Transient frames (status, info, tool activity) share a single
// rewriting spinner line; answer content accumulates for rendering once
// the stream ends. Error frames follow the same rule as the chat view:
// they end the read, with no content yet they become the whole answer's
// failure, and after partial content the partial text survives alongside
// the error.
type StreamPrinter struct {
	text       strings.Builder
	lastLine   string
	errText    string
	toolsShown int
}

// HandleFrame is an api.FrameCallback.
func (p *StreamPrinter) HandleFrame(frame api.StreamFrame) error {
	switch frame.Kind {
	case api.FrameStatus:
		if frame.Status == api.StatusCompleted {
			ClearLine()
			p.lastLine = ""
			return nil
		}
		if frame.Status == api.StatusError {
			p.fail(frame.Data)
			return api.ErrStopStream
		}
		p.spin("Workflow " + frame.Status)

	case api.FrameInfo:
		p.spin(frame.Data)

	case api.FrameToolCallStarted:
		p.spin("Running " + frame.ToolName)

	case api.FrameToolCallCompleted:
		ClearLine()
		p.lastLine = ""
		fmt.Println("  " + ToolLabel(frame.ToolName, frame.Success))
		p.toolsShown++

	case api.FrameAgentResponse:
		if summary := api.SummarizeAgentResponse(frame.Payload); summary != "" {
			p.spin(summary)
		}

	case api.FrameContent, api.FrameLegacyText:
		p.text.WriteString(frame.Data)

	case api.FrameError:
		p.fail(frame.Data)
		return api.ErrStopStream

	case api.FrameToolResponse:
		// Informational only.
	}
	return nil
}

// fail records the error text and ends further reading; the stream has
// nothing trustworthy left after an error frame.
func (p *StreamPrinter) fail(text string) {
	if text == "" {
		text = "The workflow reported an error."
	}
	p.errText = text
}

// spin rewrites the transient status line, skipping no-op repeats.
func (p *StreamPrinter) spin(text string) {
	if text == "" || text == p.lastLine {
		return
	}
	ClearLine()
	Spinner(text)
	p.lastLine = text
}

// Finish clears any leftover spinner line and returns the accumulated
// answer text.
func (p *StreamPrinter) Finish() string {
	if p.lastLine != "" {
		ClearLine()
		p.lastLine = ""
	}
	return p.text.String()
}

// Text returns the answer accumulated so far.
func (p *StreamPrinter) Text() string {
	return p.text.String()
}

// Err returns the error frame text, if any arrived.
func (p *StreamPrinter) Err() string {
	return p.errText
}
