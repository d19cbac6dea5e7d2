package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kazz187/devguild/internal/config"
	"github.com/kazz187/devguild/internal/gateway"
	"github.com/kazz187/devguild/internal/memory"
	"github.com/kazz187/devguild/internal/notify"
	"github.com/kazz187/devguild/internal/orchestrator"
	"github.com/kazz187/devguild/internal/pipeline"
	"github.com/kazz187/devguild/internal/planner"
	"github.com/kazz187/devguild/internal/tool"
	"github.com/kazz187/devguild/internal/tool/dev"
	"github.com/kazz187/devguild/pkg/storage"
)

func newTestServer(t *testing.T, completer gateway.Completer) *Server {
	t.Helper()
	reg := tool.NewRegistry()
	if err := dev.RegisterAll(reg, nil); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	st, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	store, err := memory.NewStore(context.Background(), config.MemoryConfig{ShortCapacity: 100, ShortTTLSeconds: 3600}, st)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	orch := orchestrator.New(
		completer,
		planner.New(completer),
		pipeline.New(completer, reg, pipeline.WithMemory(store)),
		reg,
		orchestrator.WithMemory(store),
	)
	s := NewServer(config.ServerConfig{Port: "0"}, orch, reg, store, notify.NewSubscriptionStore(st), nil)
	s.baseCtx = context.Background()
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthChecker(t *testing.T) {
	rec := httptest.NewRecorder()
	(&HealthChecker{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestGetTaskWhileTaskRuns(t *testing.T) {
	s := newTestServer(t, gateway.Script("The answer is 4."))
	h := s.apiRouter()

	rec := doJSON(t, h, http.MethodPost, "/api/tasks", `{"description":"Calculate 2 + 2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var submitted Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}

	// Hammer the read path while the background execution writes the
	// terminal status; the race detector covers the overlap.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			doJSON(t, h, http.MethodGet, "/api/tasks/"+submitted.Task.ID, "")
			doJSON(t, h, http.MethodGet, "/api/tasks", "")
		}
	}()
	s.tracker.Wait()
	<-done

	rec = doJSON(t, h, http.MethodGet, "/api/tasks/"+submitted.Task.ID, "")
	var entry Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Running {
		t.Error("task still marked running after Wait")
	}
	if entry.Task.Status != orchestrator.StatusCompleted {
		t.Errorf("status = %s, want completed", entry.Task.Status)
	}
}

func TestSubmitAndGetTask(t *testing.T) {
	s := newTestServer(t, gateway.Script("The answer is 4."))
	h := s.apiRouter()

	rec := doJSON(t, h, http.MethodPost, "/api/tasks", `{"description":"Calculate 2 + 2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var submitted Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if submitted.Task == nil || submitted.Task.ID == "" {
		t.Fatalf("submit response has no task id: %s", rec.Body.String())
	}
	if !submitted.Running {
		t.Error("submitted task not marked running")
	}

	s.tracker.Wait()

	rec = doJSON(t, h, http.MethodGet, "/api/tasks/"+submitted.Task.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var entry Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Running {
		t.Error("task still marked running after Wait")
	}
	if entry.Result == nil || entry.Result.Answer != "The answer is 4." {
		t.Errorf("Result = %+v", entry.Result)
	}
	if entry.Task.Mode != orchestrator.ModeSingle {
		t.Errorf("Mode = %q, want single", entry.Task.Mode)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/tasks/"+submitted.Task.ID+"/transcript", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("transcript status = %d", rec.Code)
	}
	var transcript pipeline.Transcript
	if err := json.Unmarshal(rec.Body.Bytes(), &transcript); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(transcript.Messages) == 0 {
		t.Error("transcript has no messages")
	}

	rec = doJSON(t, h, http.MethodGet, "/api/tasks", "")
	var entries []Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("list = %d entries, want 1", len(entries))
	}
}

func TestSubmitTaskValidation(t *testing.T) {
	s := newTestServer(t, gateway.Script())
	h := s.apiRouter()

	rec := doJSON(t, h, http.MethodPost, "/api/tasks", `{"context":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing description status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/tasks", `{"description":"x","mode":"bogus"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad mode status = %d, want 400", rec.Code)
	}
}

func TestGetUnknownTask(t *testing.T) {
	s := newTestServer(t, gateway.Script())
	rec := doJSON(t, s.apiRouter(), http.MethodGet, "/api/tasks/T-missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestToolEndpoints(t *testing.T) {
	s := newTestServer(t, gateway.Script())
	h := s.apiRouter()

	rec := doJSON(t, h, http.MethodGet, "/api/tools", "")
	var descriptors []tool.Descriptor
	if err := json.Unmarshal(rec.Body.Bytes(), &descriptors); err != nil {
		t.Fatalf("decode tools: %v", err)
	}
	if len(descriptors) == 0 {
		t.Fatal("no tools listed")
	}

	rec = doJSON(t, h, http.MethodPost, "/api/tools/calculator", `{"params":{"expression":"6 * 7"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("execute status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result tool.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Output != "42" {
		t.Errorf("Output = %q, want 42", result.Output)
	}

	// Missing required parameter is rejected up front.
	rec = doJSON(t, h, http.MethodPost, "/api/tools/calculator", `{"params":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing param status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/tools/nonexistent", `{"params":{}}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown tool status = %d, want 404", rec.Code)
	}
}

func TestMemoryEndpoints(t *testing.T) {
	s := newTestServer(t, gateway.Script())
	h := s.apiRouter()

	rec := doJSON(t, h, http.MethodPost, "/api/memory", `{"key":"note:1","value":"json parser design","tier":"long"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("remember status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/api/memory/search?q=json+parser", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	var hits []memory.SearchHit
	if err := json.Unmarshal(rec.Body.Bytes(), &hits); err != nil {
		t.Fatalf("decode hits: %v", err)
	}
	if len(hits) != 1 || hits[0].Key != "note:1" {
		t.Errorf("hits = %+v", hits)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/memory/note:1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("forget status = %d", rec.Code)
	}
	var forget map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &forget); err != nil {
		t.Fatalf("decode forget: %v", err)
	}
	if forget["removed"] != true {
		t.Errorf("forget = %+v", forget)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/memory/search", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("search without q status = %d, want 400", rec.Code)
	}
}

func TestForgetTierQuery(t *testing.T) {
	s := newTestServer(t, gateway.Script())
	h := s.apiRouter()

	s.memory.RememberShort("note:2", "scratch")
	rec := doJSON(t, h, http.MethodPost, "/api/memory", `{"key":"note:2","value":"archived copy","tier":"long"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("remember status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/memory/note:2?tier=short", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("forget status = %d, body %s", rec.Code, rec.Body.String())
	}
	item, err := s.memory.Recall(context.Background(), "note:2", "")
	if err != nil {
		t.Fatalf("long-term record must survive a short-tier forget: %v", err)
	}
	if item.Tier != memory.TierLong {
		t.Errorf("tier = %s, want long", item.Tier)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/memory/note:2?tier=archive", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid tier status = %d, want 400", rec.Code)
	}
}

func TestSubscriptionEndpoints(t *testing.T) {
	s := newTestServer(t, gateway.Script())
	h := s.apiRouter()

	rec := doJSON(t, h, http.MethodPost, "/api/notify/subscriptions",
		`{"endpoint":"https://push.example.com/sub/abc","p256dh_key":"p","auth_key":"a"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("subscribe status = %d, body %s", rec.Code, rec.Body.String())
	}
	var sub notify.Subscription
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("decode subscription: %v", err)
	}
	if sub.ID == "" {
		t.Error("subscription has no id")
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/notify/subscriptions?endpoint=https%3A%2F%2Fpush.example.com%2Fsub%2Fabc", "")
	if rec.Code != http.StatusOK {
		t.Errorf("unsubscribe status = %d", rec.Code)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	s := newTestServer(t, gateway.Script())
	s.cfg.APIKey = "secret"
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := s.apiKeyMiddleware(inner)

	rec := doJSON(t, h, http.MethodGet, "/api/tasks", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("X-API-Key status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("bearer status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("health bypass status = %d, want 200", rec.Code)
	}
}
