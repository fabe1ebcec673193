package api

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// framePrefix marks a significant line in the manually-framed event stream.
// The server writes "data: " + <JSON or plain text> + "\n\n".
const framePrefix = "data: "

// FrameKind identifies the shape of a decoded stream frame.
type FrameKind int

const (
	FrameStatus            FrameKind = iota // {"status": "started"|"completed"|"error"}
	FrameContent                            // {"type": "content"} — answer text delta
	FrameInfo                               // {"type": "info"} — transient status text
	FrameToolCallStarted                    // {"type": "tool_call_started"}
	FrameToolCallCompleted                  // {"type": "tool_call_completed"}
	FrameAgentResponse                      // {"type": "agent_response"}
	FrameToolResponse                       // {"type": "tool_response"} — informational only
	FrameError                              // {"type": "error"}
	FrameLegacyText                         // unparseable payload carried as plain content
)

// StreamFrame is one decoded server event. Exactly one shape is active,
// indicated by Kind; the remaining fields are meaningful per kind.
type StreamFrame struct {
	Kind     FrameKind
	Status   string          // FrameStatus: "started", "completed" or "error"
	Data     string          // content / info / error / legacy text
	ToolName string          // tool_call_started, tool_call_completed
	Success  bool            // tool_call_completed
	Payload  json.RawMessage // agent_response: raw payload for shape inspection
}

// StatusStarted/StatusCompleted/StatusError are the wire values of the
// status discriminator.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// frameProbe covers every field any recognized frame shape can carry.
// The backend emits the payload under "message"; the web wire contract
// names it "data". Both are accepted, "data" wins.
type frameProbe struct {
	Status   string          `json:"status"`
	Type     string          `json:"type"`
	Error    string          `json:"error"`
	Data     json.RawMessage `json:"data"`
	Message  json.RawMessage `json:"message"`
	ToolName string          `json:"tool_name"`
	Success  *bool           `json:"success"`
}

// ParseFrame classifies a single frame payload. It returns ok=false for
// payloads that must be dropped: empty ones, and text that superficially
// looks like a structured frame but does not parse (leaking raw JSON into
// the visible answer is worse than losing a malformed frame).
func ParseFrame(payload string) (StreamFrame, bool) {
	if payload == "" {
		return StreamFrame{}, false
	}

	var probe frameProbe
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		if looksStructured(payload) {
			return StreamFrame{}, false
		}
		return StreamFrame{Kind: FrameLegacyText, Data: payload}, true
	}

	body := probe.Data
	if len(body) == 0 {
		body = probe.Message
	}

	if probe.Status != "" {
		f := StreamFrame{Kind: FrameStatus, Status: probe.Status}
		if probe.Status == StatusError {
			f.Data = probe.Error
			if f.Data == "" {
				f.Data = rawString(body)
			}
		}
		return f, true
	}

	switch probe.Type {
	case "content":
		return StreamFrame{Kind: FrameContent, Data: rawString(body)}, true
	case "info":
		return StreamFrame{Kind: FrameInfo, Data: rawString(body)}, true
	case "error":
		msg := rawString(body)
		if msg == "" {
			msg = probe.Error
		}
		return StreamFrame{Kind: FrameError, Data: msg}, true
	case "tool_call_started":
		f := StreamFrame{Kind: FrameToolCallStarted, ToolName: probe.ToolName}
		fillToolFields(&f, body)
		return f, true
	case "tool_call_completed":
		f := StreamFrame{Kind: FrameToolCallCompleted, ToolName: probe.ToolName}
		if probe.Success != nil {
			f.Success = *probe.Success
		}
		fillToolFields(&f, body)
		return f, true
	case "agent_response":
		raw := body
		if len(raw) == 0 {
			raw = json.RawMessage(payload)
		}
		return StreamFrame{Kind: FrameAgentResponse, Payload: raw}, true
	case "tool_response":
		return StreamFrame{Kind: FrameToolResponse, Data: rawString(body)}, true
	}

	// Parsed as JSON but carries neither discriminator. Unknown shapes fall
	// back to raw legacy text so nothing the server says is silently lost.
	return StreamFrame{Kind: FrameLegacyText, Data: payload}, true
}

// fillToolFields pulls tool_name/success out of the payload body when the
// server nests them inside data instead of the frame envelope.
func fillToolFields(f *StreamFrame, body json.RawMessage) {
	if len(body) == 0 {
		return
	}
	var nested struct {
		ToolName string `json:"tool_name"`
		Success  *bool  `json:"success"`
	}
	if err := json.Unmarshal(body, &nested); err != nil {
		return
	}
	if f.ToolName == "" {
		f.ToolName = nested.ToolName
	}
	if nested.Success != nil {
		f.Success = *nested.Success
	}
}

// rawString decodes a raw JSON value into display text: JSON strings are
// unquoted, anything else is carried verbatim.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// looksStructured reports whether text appears to be a structured frame.
// Such text is dropped rather than shown when it fails to parse.
func looksStructured(payload string) bool {
	trimmed := strings.TrimSpace(payload)
	return strings.HasPrefix(trimmed, "{") &&
		(strings.Contains(trimmed, `"status"`) || strings.Contains(trimmed, `"type"`))
}

// SummarizeAgentResponse derives a short status line from an agent_response
// payload. Best effort: prefer a "message" string, then a "success" bool,
// then list the names of the payload's non-primitive fields.
func SummarizeAgentResponse(payload json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return ""
	}

	if raw, ok := obj["message"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}

	if raw, ok := obj["success"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			if b {
				return "Success"
			}
			return "Failed"
		}
	}

	var fields []string
	for key, raw := range obj {
		t := strings.TrimSpace(string(raw))
		if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
			fields = append(fields, key)
		}
	}
	if len(fields) == 0 {
		return ""
	}
	sort.Strings(fields)
	return "Evaluating: " + strings.Join(fields, ", ") + "."
}

// ─── FrameDecoder ───────────────────────────────────────────────────────────

// FrameDecoder reassembles frames from a byte stream whose chunks may split
// at arbitrary offsets, including inside a frame or a multi-byte rune. The
// pending buffer is kept as bytes: no continuation byte of a multi-byte
// UTF-8 sequence equals '\n', so splitting on newlines never tears a rune.
type FrameDecoder struct {
	pending []byte
}

// Feed appends a chunk and returns, in order, every frame the chunk
// completed. The trailing partial line stays buffered for the next chunk.
func (d *FrameDecoder) Feed(chunk []byte) []StreamFrame {
	d.pending = append(d.pending, chunk...)

	var frames []StreamFrame
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		line := string(d.pending[:i])
		d.pending = d.pending[i+1:]
		if f, ok := decodeLine(line); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// Flush decodes a final line that arrived without a trailing newline.
// Called once at end of stream.
func (d *FrameDecoder) Flush() (StreamFrame, bool) {
	if len(d.pending) == 0 {
		return StreamFrame{}, false
	}
	line := string(d.pending)
	d.pending = nil
	return decodeLine(line)
}

// decodeLine extracts and classifies one line. Lines without the "data: "
// prefix are inter-frame separators or comments and carry no payload.
func decodeLine(line string) (StreamFrame, bool) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, framePrefix) {
		return StreamFrame{}, false
	}
	return ParseFrame(line[len(framePrefix):])
}
