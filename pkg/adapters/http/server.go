package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/compositor"
	"github.com/aretw0/compositor/internal/logging"
	presentation "github.com/aretw0/compositor/internal/presentation/graph"
	"github.com/aretw0/compositor/pkg/adapters/file"
	"github.com/aretw0/compositor/pkg/domain"
	"github.com/aretw0/compositor/pkg/ports"
	"github.com/aretw0/compositor/pkg/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var rawSpec []byte

// Engine is the compositor surface the HTTP API drives.
type Engine interface {
	ports.Compositor
}

// Server serves the compositor HTTP API.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger  *slog.Logger
	metrics http.Handler
	spec    *openapi3.T

	// degraded remembers the faults of the last render per target, for the graph overlay.
	degraded sync.Map
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer creates a Server and validates the embedded OpenAPI document.
func NewServer(engine Engine, opts ...Option) (*Server, error) {
	s := &Server{
		Engine: engine,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	spec, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := spec.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	s.spec = spec
	return s, nil
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	s, err := NewServer(engine, opts...)
	if err != nil {
		return nil, err
	}
	return s.Handler(), nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Get("/graph/mermaid", s.GetGraphMermaid)
	r.Get("/nodes/{id}/render", s.RenderNode)
	r.Put("/nodes/{id}/params/{port}", s.SetParameter)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "compositor-http",
		"version":     compositor.Version,
		"api_version": apiVersion,
		"graph":       s.Engine.Name(),
	})
}

// GetGraph handles the GET /graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Engine.Document()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Document", err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// GetGraphMermaid handles the GET /graph/mermaid request.
func (s *Server) GetGraphMermaid(w http.ResponseWriter, r *http.Request) {
	var node *string
	if err := runtime.BindQueryParameter("form", true, false, "node", r.URL.Query(), &node); err != nil {
		s.fail(w, http.StatusBadRequest, "GetGraphMermaid", err)
		return
	}

	doc, err := s.Engine.Document()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Document", err)
		return
	}

	var overlay *presentation.GraphOverlay
	if node != nil && *node != "" {
		overlay = &presentation.GraphOverlay{Target: *node, Evaluated: upstream(doc, *node)}
		if faults, ok := s.degraded.Load(*node); ok {
			for _, f := range faults.([]ports.Fault) {
				overlay.Degraded = append(overlay.Degraded, f.NodeID)
			}
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(presentation.GenerateMermaid(doc, overlay)))
}

// RenderResponse is the JSON form of a render.
type RenderResponse struct {
	NodeID    string         `json:"node_id"`
	Time      string         `json:"time"`
	Type      string         `json:"type,omitempty"`
	Value     any            `json:"value,omitempty"`
	Evaluated int            `json:"evaluated"`
	CacheHits int            `json:"cache_hits"`
	Degraded  []ports.Fault  `json:"degraded,omitempty"`
	Outputs   map[string]any `json:"outputs,omitempty"`
}

// RenderNode handles the GET /nodes/{id}/render request.
func (s *Server) RenderNode(w http.ResponseWriter, r *http.Request) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.fail(w, http.StatusBadRequest, "RenderNode", err)
		return
	}

	var timeParam, formatParam *string
	if err := runtime.BindQueryParameter("form", true, false, "time", r.URL.Query(), &timeParam); err != nil {
		s.fail(w, http.StatusBadRequest, "RenderNode", err)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &formatParam); err != nil {
		s.fail(w, http.StatusBadRequest, "RenderNode", err)
		return
	}

	t := domain.Time{Den: 1}
	if timeParam != nil {
		t, err = domain.ParseTime(*timeParam)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "RenderNode", err)
			return
		}
	}

	var imgFormat file.ImageFormat
	if formatParam != nil && *formatParam != "json" {
		imgFormat, err = file.ParseImageFormat(*formatParam)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "RenderNode", err)
			return
		}
	}

	res, err := s.Engine.Render(r.Context(), id, t)
	if err != nil {
		s.fail(w, statusFor(err), "Render", err)
		return
	}
	s.degraded.Store(id, res.Degraded)

	resp := RenderResponse{
		NodeID:    res.NodeID,
		Time:      res.Time.String(),
		Type:      string(res.Value.Type()),
		Value:     schema.APIValue(res.Value),
		Evaluated: res.Evaluated,
		CacheHits: res.CacheHits,
		Degraded:  res.Degraded,
	}
	if len(res.Outputs) > 1 {
		resp.Outputs = make(map[string]any, len(res.Outputs))
		for name, v := range res.Outputs {
			resp.Outputs[name] = schema.APIValue(v)
		}
	}
	s.Streams.Broadcast(Event{Type: "render", NodeID: id, Data: resp})

	if imgFormat != "" {
		img, ok := res.Value.AsTexture()
		if !ok || img == nil {
			s.fail(w, http.StatusBadRequest, "RenderNode", fmt.Errorf("node %q: %w", id, file.ErrUnsupportedFrame))
			return
		}
		w.Header().Set("Content-Type", "image/"+string(imgFormat))
		if err := file.Encode(w, img, imgFormat); err != nil {
			s.logger.Error("image encode failed", "node", id, "error", err)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// SetParameter handles the PUT /nodes/{id}/params/{port} request.
func (s *Server) SetParameter(w http.ResponseWriter, r *http.Request) {
	var id, port string
	opts := runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true}
	if err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, opts); err != nil {
		s.fail(w, http.StatusBadRequest, "SetParameter", err)
		return
	}
	if err := runtime.BindStyledParameterWithOptions("simple", "port", chi.URLParam(r, "port"), &port, opts); err != nil {
		s.fail(w, http.StatusBadRequest, "SetParameter", err)
		return
	}

	var body schema.ParamDoc
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, "SetParameter", fmt.Errorf("invalid request body: %w", err))
		return
	}

	if err := s.Engine.SetParameter(r.Context(), id, port, body); err != nil {
		s.fail(w, statusFor(err), "SetParameter", err)
		return
	}

	s.Streams.Broadcast(Event{Type: "param", NodeID: id, Data: map[string]string{"port": port}})
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	var node *string
	if err := runtime.BindQueryParameter("form", true, false, "node", r.URL.Query(), &node); err != nil {
		s.fail(w, http.StatusBadRequest, "SubscribeEvents", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, http.StatusInternalServerError, "SubscribeEvents", errors.New("streaming not supported"))
		return
	}

	topic := ""
	if node != nil {
		topic = *node
	}
	ch, cancel := s.Streams.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected", "node", topic)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "node", topic)
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			data, err := evt.encode()
			if err != nil {
				s.logger.Warn("SSE: event encode failed", "type", evt.Type, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNodeNotFound), errors.Is(err, domain.ErrPortNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, op string, err error) {
	if status >= 500 {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Warn(op+" rejected", "error", err)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

// upstream returns target and every node feeding it, following document edges.
func upstream(doc *schema.Document, target string) []string {
	sources := make(map[string][]string)
	for _, e := range doc.Edges {
		from, err1 := schema.ParsePortRef(e.From)
		to, err2 := schema.ParsePortRef(e.To)
		if err1 != nil || err2 != nil {
			continue
		}
		sources[to.Node] = append(sources[to.Node], from.Node)
	}

	seen := map[string]bool{target: true}
	queue := []string{target}
	out := []string{target}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, src := range sources[id] {
			if !seen[src] {
				seen[src] = true
				out = append(out, src)
				queue = append(queue, src)
			}
		}
	}
	return out
}
