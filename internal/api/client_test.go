package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"studio-cli/internal/config"
)

func testClient(server *httptest.Server) *Client {
	return NewClient(&config.Config{Server: server.URL, Token: "test-token"})
}

func TestListWorkflows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/workflows/" {
			t.Errorf("path = %s, want /api/workflows/", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("limit = %s, want 50", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "wf-1", "name": "Incident triage", "is_active": true},
			{"id": "wf-2", "name": "Log summarizer", "is_active": false}
		]`))
	}))
	defer server.Close()

	workflows, err := testClient(server).ListWorkflows(50)
	if err != nil {
		t.Fatalf("ListWorkflows() error = %v", err)
	}
	if len(workflows) != 2 {
		t.Fatalf("got %d workflows, want 2", len(workflows))
	}
	if workflows[0].ID != "wf-1" || workflows[0].Name != "Incident triage" {
		t.Errorf("workflow 0 = %+v", workflows[0])
	}
	if !workflows[0].IsActive || workflows[1].IsActive {
		t.Error("is_active flags not decoded")
	}
}

func TestGetWorkflow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/workflows/wf-1" {
			t.Errorf("path = %s, want /api/workflows/wf-1", r.URL.Path)
		}
		w.Write([]byte(`{"id": "wf-1", "name": "Incident triage", "version": "3"}`))
	}))
	defer server.Close()

	wf, err := testClient(server).GetWorkflow("wf-1")
	if err != nil {
		t.Fatalf("GetWorkflow() error = %v", err)
	}
	if wf.Name != "Incident triage" || wf.Version != "3" {
		t.Errorf("workflow = %+v", wf)
	}
}

func TestGetWorkflowServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server).GetWorkflow("missing")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !contains(err.Error(), "404") {
		t.Errorf("error = %q, should mention status code", err)
	}
}

func TestStreamWorkflow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/workflows/wf-1/stream" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q, want text/event-stream", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		chunks := []string{
			"data: {\"status\": \"started\"}\n\n",
			"data: {\"type\": \"info\", \"data\": \"Thinking...\"}\n\n",
			"data: {\"type\": \"content\", \"data\": \"Hi\"}\n\n",
			"data: {\"type\": \"content\", \"data\": \" there\"}\n\n",
			"data: {\"status\": \"completed\"}\n\n",
		}
		for _, c := range chunks {
			w.Write([]byte(c))
			flusher.Flush()
		}
	}))
	defer server.Close()

	var frames []StreamFrame
	err := testClient(server).StreamWorkflow(context.Background(), "wf-1",
		StreamRequest{Query: "hello"},
		func(f StreamFrame) error {
			frames = append(frames, f)
			return nil
		})
	if err != nil {
		t.Fatalf("StreamWorkflow() error = %v", err)
	}

	if len(frames) != 5 {
		t.Fatalf("got %d frames, want 5", len(frames))
	}
	var text string
	for _, f := range frames {
		if f.Kind == FrameContent {
			text += f.Data
		}
	}
	if text != "Hi there" {
		t.Errorf("accumulated content = %q, want %q", text, "Hi there")
	}
	if frames[len(frames)-1].Status != StatusCompleted {
		t.Errorf("last frame = %+v, want completed status", frames[len(frames)-1])
	}
}

func TestStreamWorkflowStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {\"type\": \"content\", \"data\": \"a\"}\n\n"))
		w.Write([]byte("data: {\"type\": \"content\", \"data\": \"b\"}\n\n"))
	}))
	defer server.Close()

	var count int
	err := testClient(server).StreamWorkflow(context.Background(), "wf-1",
		StreamRequest{Query: "q"},
		func(f StreamFrame) error {
			count++
			return ErrStopStream
		})
	if err != nil {
		t.Fatalf("StreamWorkflow() error = %v, want nil on ErrStopStream", err)
	}
	if count != 1 {
		t.Errorf("callback ran %d times, want 1", count)
	}
}

func TestStreamWorkflowCallbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {\"type\": \"content\", \"data\": \"a\"}\n\n"))
	}))
	defer server.Close()

	sentinel := errors.New("apply failed")
	err := testClient(server).StreamWorkflow(context.Background(), "wf-1",
		StreamRequest{Query: "q"},
		func(f StreamFrame) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want %v", err, sentinel)
	}
}

func TestStreamWorkflowServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow is not active", http.StatusBadRequest)
	}))
	defer server.Close()

	err := testClient(server).StreamWorkflow(context.Background(), "wf-1",
		StreamRequest{Query: "q"},
		func(f StreamFrame) error { return nil })
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !contains(err.Error(), "workflow is not active") {
		t.Errorf("error = %q, should carry server message", err)
	}
}

func TestStreamWorkflowTrailingFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Final frame without its trailing newline.
		w.Write([]byte("data: {\"type\": \"content\", \"data\": \"a\"}\n\ndata: {\"status\": \"completed\"}"))
	}))
	defer server.Close()

	var frames []StreamFrame
	err := testClient(server).StreamWorkflow(context.Background(), "wf-1",
		StreamRequest{Query: "q"},
		func(f StreamFrame) error {
			frames = append(frames, f)
			return nil
		})
	if err != nil {
		t.Fatalf("StreamWorkflow() error = %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[1].Kind != FrameStatus || frames[1].Status != StatusCompleted {
		t.Errorf("flushed frame = %+v, want completed status", frames[1])
	}
}

func TestStreamWorkflowCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("data: {\"type\": \"content\", \"data\": \"a\"}\n\n"))
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	err := testClient(server).StreamWorkflow(ctx, "wf-1",
		StreamRequest{Query: "q"},
		func(f StreamFrame) error {
			cancel()
			return nil
		})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
