package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/ritzau/storygraph/pkg/graphstate"
	"github.com/ritzau/storygraph/pkg/inspector"
	"github.com/ritzau/storygraph/pkg/logging"
	"github.com/ritzau/storygraph/pkg/mapper"
	"github.com/ritzau/storygraph/pkg/model"
	"github.com/ritzau/storygraph/pkg/pubsub"
	"github.com/ritzau/storygraph/pkg/render"
	"github.com/ritzau/storygraph/pkg/source"
)

//go:embed static/*
var staticFiles embed.FS

const maxBodyBytes = 1 << 20

var validate = validator.New()

// ReloadFunc reloads the mounted story
type ReloadFunc func(ctx context.Context) error

// Options wires the server to the rest of the application
type Options struct {
	Controller *graphstate.Controller
	Publisher  pubsub.Publisher
	Library    *source.Library // optional, lists local stories
	Actions    *render.Actions
	Registry   *render.Registry // defaults to render.NewRegistry()
	Reload     ReloadFunc       // optional
	StoryID    func() string    // optional, the mounted story
}

// Server represents the web server
type Server struct {
	router     *mux.Router
	controller *graphstate.Controller
	publisher  pubsub.Publisher
	inspector  *inspector.Inspector
	registry   *render.Registry
	actions    *render.Actions
	library    *source.Library
	reload     ReloadFunc
	storyID    func() string
}

// NewServer creates the server and registers its routes
func NewServer(opts Options) (*Server, error) {
	if opts.Controller == nil || opts.Publisher == nil {
		return nil, errors.New("web server needs a controller and a publisher")
	}
	s := &Server{
		router:     mux.NewRouter(),
		controller: opts.Controller,
		publisher:  opts.Publisher,
		inspector:  inspector.New(),
		registry:   opts.Registry,
		actions:    opts.Actions,
		library:    opts.Library,
		reload:     opts.Reload,
		storyID:    opts.StoryID,
	}
	if s.registry == nil {
		s.registry = render.NewRegistry()
	}
	if s.actions == nil {
		s.actions = &render.Actions{}
	}
	if s.storyID == nil {
		s.storyID = func() string { return "" }
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the routed handler with request ids attached
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() error {
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stories", s.handleStories).Methods("GET")
	api.HandleFunc("/graph", s.handleGraph).Methods("GET")
	api.HandleFunc("/graph/view", s.handleView).Methods("GET")
	api.HandleFunc("/graph/nodes/changes", s.handleNodeChanges).Methods("POST")
	api.HandleFunc("/graph/edges/changes", s.handleEdgeChanges).Methods("POST")
	api.HandleFunc("/graph/connect", s.handleConnect).Methods("POST")
	api.HandleFunc("/graph/relayout", s.handleRelayout).Methods("POST")
	api.HandleFunc("/graph/reload", s.handleReload).Methods("POST")
	api.HandleFunc("/graph/nodes/{id}", s.handleNode).Methods("GET")
	api.HandleFunc("/graph/nodes/{id}/neighborhood", s.handleNeighborhood).Methods("GET")
	api.HandleFunc("/graph/nodes/{id}/actions/{action}", s.handleAction).Methods("POST")

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("static files: %w", err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
	return nil
}

// Start serves on port until ctx is cancelled
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Open event streams only end when the publisher closes
		_ = s.publisher.Close()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	// Browsers send the id of the last event they saw when reconnecting
	lastSeen, _ := strconv.Atoi(r.Header.Get("Last-Event-ID"))

	sub, err := s.publisher.SubscribeAfter(r.Context(), topic, lastSeen)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, pubsub.ErrUnknownTopic) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Initial comment establishes the stream (Safari)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			logging.DebugContext(r.Context(), "sse client went away", "topic", topic, "error", err)
			return
		}
		flush(w)
	}
}

type storiesResponse struct {
	Current string             `json:"current,omitempty"`
	Stories []source.StoryFile `json:"stories"`
}

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	if s.library == nil {
		writeError(w, r, http.StatusNotFound, errors.New("no story library configured"))
		return
	}
	stories, err := s.library.Stories()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, storiesResponse{Current: s.storyID(), Stories: stories})
}

type graphResponse struct {
	StoryID   string              `json:"storyId,omitempty"`
	Version   int                 `json:"version"`
	Hash      string              `json:"hash"`
	Direction model.Direction     `json:"direction"`
	Nodes     []*model.VisualNode `json:"nodes"`
	Edges     []*model.VisualEdge `json:"edges"`
	Layout    any                 `json:"layout"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	snap := s.controller.Snapshot()
	etag := strconv.Quote(snap.Hash())
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, graphResponse{
		StoryID:   s.storyID(),
		Version:   snap.Version,
		Hash:      snap.Hash(),
		Direction: snap.Direction,
		Nodes:     snap.Nodes,
		Edges:     snap.Edges,
		Layout:    snap.Layout,
	})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Build(s.controller.Snapshot()))
}

type nodeChangesRequest struct {
	Changes []graphstate.NodeChange `json:"changes"`
}

type edgeChangesRequest struct {
	Changes []graphstate.EdgeChange `json:"changes"`
}

type changesResponse struct {
	Applied int `json:"applied"`
	Version int `json:"version"`
}

func (s *Server) handleNodeChanges(w http.ResponseWriter, r *http.Request) {
	var req nodeChangesRequest
	if !decode(w, r, &req) {
		return
	}
	applied, err := s.controller.ApplyNodeChanges(req.Changes)
	s.respondChanges(w, r, applied, err)
}

func (s *Server) handleEdgeChanges(w http.ResponseWriter, r *http.Request) {
	var req edgeChangesRequest
	if !decode(w, r, &req) {
		return
	}
	applied, err := s.controller.ApplyEdgeChanges(req.Changes)
	s.respondChanges(w, r, applied, err)
}

func (s *Server) respondChanges(w http.ResponseWriter, r *http.Request, applied int, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, graphstate.ErrInvalidChange) {
			status = http.StatusBadRequest
		}
		writeError(w, r, status, err)
		return
	}
	writeJSON(w, http.StatusOK, changesResponse{Applied: applied, Version: s.controller.Snapshot().Version})
}

type connectResponse struct {
	Accepted bool              `json:"accepted"`
	Edge     *model.VisualEdge `json:"edge,omitempty"`
	Notice   string            `json:"notice,omitempty"`
}

// A rejected connection is a normal outcome of dragging; it is reported with
// a 200 and a notice rather than an error status.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var conn graphstate.Connection
	if !decode(w, r, &conn) {
		return
	}
	if err := validate.Struct(conn); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	edge, err := s.controller.Connect(conn)
	if err != nil {
		writeJSON(w, http.StatusOK, connectResponse{Notice: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, connectResponse{Accepted: true, Edge: edge})
}

type relayoutRequest struct {
	Direction string `json:"direction" validate:"required"`
}

func (s *Server) handleRelayout(w http.ResponseWriter, r *http.Request) {
	var req relayoutRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	direction, err := model.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.controller.Relayout(direction); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, graphstate.ErrInvalidDirection) {
			status = http.StatusBadRequest
		}
		writeError(w, r, status, err)
		return
	}
	snap := s.controller.Snapshot()
	writeJSON(w, http.StatusOK, changesResponse{Applied: len(snap.Nodes), Version: snap.Version})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reload == nil {
		writeError(w, r, http.StatusNotImplemented, errors.New("reload is not available"))
		return
	}
	if err := s.reload(r.Context()); err != nil {
		var verr *mapper.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusUnprocessableEntity, verr)
		case errors.Is(err, source.ErrNotFound):
			writeError(w, r, http.StatusNotFound, err)
		case errors.Is(err, source.ErrFetch):
			writeError(w, r, http.StatusBadGateway, err)
		default:
			writeError(w, r, http.StatusInternalServerError, err)
		}
		return
	}
	snap := s.controller.Snapshot()
	writeJSON(w, http.StatusOK, changesResponse{Applied: len(snap.Nodes), Version: snap.Version})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	details, err := s.inspector.Inspect(s.controller.Snapshot(), mux.Vars(r)["id"])
	if err != nil {
		writeNodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type neighborhoodResponse struct {
	ID        string         `json:"id"`
	Hops      int            `json:"hops"`
	Distances map[string]int `json:"distances"`
}

func (s *Server) handleNeighborhood(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	hops := 1
	if raw := r.URL.Query().Get("hops"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid hops %q", raw))
			return
		}
		hops = n
	}
	distances, err := inspector.Neighborhood(s.controller.Snapshot(), id, hops)
	if err != nil {
		writeNodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, neighborhoodResponse{ID: id, Hops: hops, Distances: distances})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	node, ok := s.controller.Snapshot().Node(vars["id"])
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("%w: %s", inspector.ErrNodeNotFound, vars["id"]))
		return
	}

	var req render.ActionRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := s.actions.Perform(r.Context(), node, vars["action"], req)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, render.ErrUnknownAction), errors.Is(err, render.ErrInvalidArguments):
			status = http.StatusBadRequest
		case errors.Is(err, render.ErrActionUnavailable):
			status = http.StatusConflict
		}
		writeError(w, r, status, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeNodeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, inspector.ErrNodeNotFound) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	writeError(w, r, http.StatusInternalServerError, err)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		logging.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		logging.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: logging.GetRequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
