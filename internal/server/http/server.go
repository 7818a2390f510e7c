package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/NanzeRT/queues-demo/internal/queue"
	"github.com/NanzeRT/queues-demo/internal/services/tasks"
	"github.com/NanzeRT/queues-demo/pkg/id"
	"github.com/NanzeRT/queues-demo/pkg/log"
)

const (
	// DefaultWait is how long a get_task call blocks when the queue is
	// empty and the client did not ask otherwise.
	DefaultWait = 10 * time.Second

	// MaxWait caps client-requested long-poll durations.
	MaxWait = 60 * time.Second
)

// Options configures the HTTP server.
type Options struct {
	// DefaultWait overrides DefaultWait when non-zero.
	DefaultWait time.Duration
	// MaxWait overrides MaxWait when non-zero.
	MaxWait time.Duration

	Logger log.Logger
}

type Server struct {
	svc         *tasks.Service
	srv         *http.Server
	lis         net.Listener
	defaultWait time.Duration
	maxWait     time.Duration
	logger      log.Logger
}

func New(svc *tasks.Service, opts Options) *Server {
	if opts.DefaultWait == 0 {
		opts.DefaultWait = DefaultWait
	}
	if opts.MaxWait == 0 {
		opts.MaxWait = MaxWait
	}
	if opts.Logger == nil {
		opts.Logger = log.NewLogger()
	}
	mux := http.NewServeMux()
	s := &Server{
		svc:         svc,
		srv:         &http.Server{Handler: cors(mux)},
		defaultWait: opts.DefaultWait,
		maxWait:     opts.MaxWait,
		logger:      opts.Logger.With(log.Component("http")),
	}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/queue/add_task", s.handleAddTask)
	mux.HandleFunc("/queue/get_task", s.handleGetTask)
	mux.HandleFunc("/queue/submit_completed", s.handleSubmitCompleted)
	return s
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http server listening", log.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps domain errors onto HTTP statuses shared by every
// mutating route.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrWedged):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "queue is not accepting writes"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	pending, leased := s.svc.Stats()
	if err := s.svc.Health(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "not_serving",
			"pending": pending,
			"leased":  leased,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"pending": pending,
		"leased":  leased,
	})
}

type addTaskReq struct {
	SubmissionID string `json:"submission_id"`
}

type addTaskResp struct {
	ID string `json:"id"`
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req addTaskReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	taskID, err := s.svc.Add(r.Context(), req.SubmissionID)
	if err != nil {
		if errors.Is(err, tasks.ErrEmptySubmissionID) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "submission_id is required"})
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, addTaskResp{ID: taskID.String()})
}

type taskResp struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	Exploit      string `json:"exploit"`
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	wait := s.defaultWait
	if raw := r.URL.Query().Get("timeout_ms"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid timeout_ms"})
			return
		}
		wait = time.Duration(ms) * time.Millisecond
		if wait > s.maxWait {
			wait = s.maxWait
		}
	}

	view, err := s.svc.Get(r.Context(), wait)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Client went away mid-poll; nothing to answer.
			return
		}
		writeServiceError(w, err)
		return
	}
	if view == nil {
		// Literal null tells the worker to come back later.
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, taskResp{
		ID:           view.ID.String(),
		SubmissionID: view.SubmissionID,
		Exploit:      view.Exploit,
	})
}

type submitCompletedReq struct {
	ID   string `json:"id"`
	Info string `json:"info"`
}

func (s *Server) handleSubmitCompleted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req submitCompletedReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	taskID, err := id.Parse(req.ID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task id"})
		return
	}
	if err := s.svc.Complete(r.Context(), taskID, req.Info); err != nil {
		if errors.Is(err, queue.ErrStaleLease) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active lease for task"})
			return
		}
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
