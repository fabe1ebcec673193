package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studio-cli/internal/config"
)

// Client talks to an Agent Studio server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Server, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		token: cfg.Token,
	}
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// ─── Workflows (read-only) ──────────────────────────────────────────────────

type Workflow struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
	IsActive    bool     `json:"is_active"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

func (c *Client) ListWorkflows(limit int) ([]Workflow, error) {
	var out []Workflow
	path := fmt.Sprintf("/api/workflows/?skip=0&limit=%d", limit)
	if err := c.doJSON("GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetWorkflow(workflowID string) (*Workflow, error) {
	var out Workflow
	if err := c.doJSON("GET", "/api/workflows/"+workflowID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─── Workflow streaming ─────────────────────────────────────────────────────

// HistoryEntry is one prior conversation turn sent with a stream request.
type HistoryEntry struct {
	Actor   string `json:"actor"`
	Content string `json:"content"`
}

// StreamRequest is the body of POST /api/workflows/{id}/stream.
type StreamRequest struct {
	Query            string                 `json:"query"`
	ChatHistory      []HistoryEntry         `json:"chat_history"`
	RuntimeOverrides map[string]interface{} `json:"runtime_overrides"`
}

// FrameCallback receives decoded frames in server emission order.
// Returning ErrStopStream cancels the remaining read without error;
// any other error aborts the stream and is returned by StreamWorkflow.
type FrameCallback func(frame StreamFrame) error

// ErrStopStream tells StreamWorkflow to stop reading and return nil.
var ErrStopStream = errors.New("stop stream")

// StreamWorkflow executes a workflow and decodes its framed event stream.
// The response body is read in raw chunks and fed through a FrameDecoder,
// so frames split across network reads are reassembled before parsing.
func (c *Client) StreamWorkflow(ctx context.Context, workflowID string, req StreamRequest, cb FrameCallback) error {
	if req.ChatHistory == nil {
		req.ChatHistory = []HistoryEntry{}
	}
	if req.RuntimeOverrides == nil {
		req.RuntimeOverrides = map[string]interface{}{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/workflows/"+workflowID+"/stream", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq, true)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var dec FrameDecoder
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, frame := range dec.Feed(buf[:n]) {
				if err := cb(frame); err != nil {
					if errors.Is(err, ErrStopStream) {
						return nil
					}
					return err
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading stream: %w", readErr)
		}
	}

	// A final frame may arrive without its trailing newline.
	if frame, ok := dec.Flush(); ok {
		if err := cb(frame); err != nil && !errors.Is(err, ErrStopStream) {
			return err
		}
	}
	return nil
}

// ─── Generic JSON helper ────────────────────────────────────────────────────

func (c *Client) doJSON(method, path string, reqBody interface{}, result interface{}) error {
	var bodyReader io.Reader
	hasBody := reqBody != nil && method != "GET"
	if hasBody {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, hasBody)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}
