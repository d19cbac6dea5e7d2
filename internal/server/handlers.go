package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/devguild/internal/memory"
	"github.com/kazz187/devguild/internal/notify"
	"github.com/kazz187/devguild/internal/orchestrator"
	"github.com/kazz187/devguild/pkg/cerr"
)

type submitTaskRequest struct {
	Description string         `json:"description"`
	Context     map[string]any `json:"context,omitempty"`
	Mode        string         `json:"mode,omitempty"`
}

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req submitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Description == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "description is required", nil)
		return
	}
	var mode orchestrator.Mode
	switch req.Mode {
	case "", "auto":
		mode = orchestrator.ModeAuto
	case "single":
		mode = orchestrator.ModeSingle
	case "multi":
		mode = orchestrator.ModeMulti
	default:
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "mode must be auto, single or multi", nil)
		return
	}

	task := s.orch.NewTask(req.Description, req.Context, mode)
	entry := s.tracker.Submit(s.baseCtx, task)
	cerr.SetJSONResponse(ctx, entry)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), s.tracker.List())
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := s.tracker.Get(chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, entry)
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entry, err := s.tracker.Get(chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if entry.Result == nil {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "task is still running", nil)
		return
	}
	cerr.SetJSONResponse(ctx, entry.Result.Transcript)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), s.registry.Discover())
}

type executeToolRequest struct {
	Params map[string]any `json:"params"`
}

func (s *Server) handleExecuteTool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req executeToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	result, err := s.registry.Execute(ctx, chi.URLParam(r, "name"), req.Params)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, result)
}

func (s *Server) handleSearchMemory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")
	if query == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "query parameter q is required", nil)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "limit must be a non-negative integer", nil)
			return
		}
		limit = n
	}
	hits := s.memory.Search(query, limit)
	if hits == nil {
		hits = []memory.SearchHit{}
	}
	cerr.SetJSONResponse(ctx, hits)
}

type rememberRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Tier  string `json:"tier,omitempty"`
}

func (s *Server) handleRemember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req rememberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Key == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "key is required", nil)
		return
	}
	switch req.Tier {
	case "", string(memory.TierShort):
		s.memory.RememberShort(req.Key, req.Value)
	case string(memory.TierLong):
		if err := s.memory.RememberLong(ctx, req.Key, req.Value); err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
	default:
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "tier must be short or long", nil)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]string{"key": req.Key, "status": "stored"})
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")
	tier := r.URL.Query().Get("tier")
	switch tier {
	case "", string(memory.TierShort), string(memory.TierLong):
	default:
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "tier must be short or long", nil)
		return
	}
	had, err := s.memory.Forget(ctx, key, memory.Tier(tier))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"key": key, "removed": had})
}

type subscribeRequest struct {
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dh_key"`
	AuthKey   string `json:"auth_key"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Endpoint == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	}
	sub, err := s.subs.Create(ctx, &notify.Subscription{
		Endpoint:  req.Endpoint,
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sub)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "query parameter endpoint is required", nil)
		return
	}
	if err := s.subs.DeleteByEndpoint(ctx, endpoint); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]string{"endpoint": endpoint, "status": "removed"})
}
