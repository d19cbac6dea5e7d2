package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSubmitTaskSendsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tasks" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want %q", got, "secret")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["description"] != "Calculate 2 + 2" {
			t.Errorf("description = %v", body["description"])
		}
		if body["mode"] != "single" {
			t.Errorf("mode = %v", body["mode"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task":{"id":"T-1","description":"Calculate 2 + 2","score":2.9,"mode":"single","status":""},"running":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithAPIKey("secret"))
	entry, err := c.SubmitTask(context.Background(), "Calculate 2 + 2", nil, "single")
	if err != nil {
		t.Fatalf("SubmitTask failed: %v", err)
	}
	if entry.Task.ID != "T-1" {
		t.Errorf("task id = %q, want %q", entry.Task.ID, "T-1")
	}
	if !entry.Running {
		t.Error("expected running entry")
	}
}

func TestSubmitTaskOmitsAutoMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if _, ok := body["mode"]; ok {
			t.Error("auto mode should not be sent")
		}
		w.Write([]byte(`{"task":{"id":"T-2"},"running":true}`))
	}))
	defer srv.Close()

	if _, err := New(srv.URL).SubmitTask(context.Background(), "anything", nil, "auto"); err != nil {
		t.Fatalf("SubmitTask failed: %v", err)
	}
}

func TestGetTaskDecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"NOT_FOUND","message":"unknown task: T-missing"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetTask(context.Background(), "T-missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unknown task: T-missing") {
		t.Errorf("error %q does not carry the server message", err)
	}
	if !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("error %q does not carry the code", err)
	}
}

func TestGetTaskNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetTask(context.Background(), "T-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("error %q should fall back to the status code", err)
	}
}

func TestExecuteTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tools/calculator" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Params map[string]any `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Params["expression"] != "6 * 7" {
			t.Errorf("params = %v", body.Params)
		}
		w.Write([]byte(`{"tool":"calculator","output":"42"}`))
	}))
	defer srv.Close()

	result, err := New(srv.URL).ExecuteTool(context.Background(), "calculator", map[string]any{"expression": "6 * 7"})
	if err != nil {
		t.Fatalf("ExecuteTool failed: %v", err)
	}
	if result.Output != "42" {
		t.Errorf("output = %q, want %q", result.Output, "42")
	}
}

func TestSearchMemoryQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "json parser" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "3" {
			t.Errorf("limit = %q", got)
		}
		w.Write([]byte(`[{"key":"note:1","value":"a json parser","score":0.9}]`))
	}))
	defer srv.Close()

	hits, err := New(srv.URL).SearchMemory(context.Background(), "json parser", 3)
	if err != nil {
		t.Fatalf("SearchMemory failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Key != "note:1" {
		t.Errorf("hits = %+v", hits)
	}
}
