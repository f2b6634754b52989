// Package api exposes the HTTP interface for the frontier service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-frontier/internal/config"
	"github.com/JakeFAU/crawl-frontier/internal/coordinator"
	"github.com/JakeFAU/crawl-frontier/internal/frontier"
	"github.com/JakeFAU/crawl-frontier/internal/metrics"
)

// memberListMax caps how many IDs a status listing returns in one response.
const memberListMax = 1000

// Server wires HTTP handlers to the coordinator.
type Server struct {
	router chi.Router
	coord  *coordinator.Coordinator
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(coord *coordinator.Coordinator, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		coord:  coord,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Route("/links", func(r chi.Router) {
			r.Post("/", s.enqueueLink)
			r.Post("/claim", s.claimLink)
			r.Post("/complete", s.completeLink)
			r.Post("/requeue", s.requeueLink)
			r.Post("/follow", s.consumeFollow)
			r.Get("/", s.listLinks)
			r.Get("/status", s.getLinkStatus)
			r.Get("/attributes", s.getLinkAttributes)
			r.Get("/budget", s.getFollowBudget)
		})
		r.Route("/words", func(r chi.Router) {
			r.Post("/", s.addWord)
			r.Post("/claim", s.claimWord)
			r.Post("/complete", s.completeWord)
			r.Post("/requeue", s.requeueWord)
			r.Get("/", s.listWords)
			r.Get("/chain", s.getWordChain)
		})
		r.Get("/stats", s.getStats)
		r.Post("/admin/requeue-stuck", s.requeueStuck)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// A snapshot touches the status index, so readiness also covers the
	// backing store.
	if _, err := s.coord.Snapshot(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type enqueueLinkRequest struct {
	URL      string  `json:"url"`
	Domain   string  `json:"domain"`
	Priority float64 `json:"priority"`
}

func (s *Server) enqueueLink(w http.ResponseWriter, r *http.Request) {
	var req enqueueLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	if err := s.coord.Enqueue(r.Context(), frontier.KindLink, req.URL, req.Domain, req.Priority); err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"url": req.URL, "status": string(frontier.StatusWaiting)})
}

type claimRequest struct {
	Domain string `json:"domain"`
}

func (s *Server) claimLink(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	id, ok, err := s.coord.Claim(r.Context(), frontier.KindLink, req.Domain)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": id, "status": string(frontier.StatusProcessing)})
}

type completeLinkRequest struct {
	URL        string            `json:"url"`
	Outcome    string            `json:"outcome"`
	Attributes map[string]string `json:"attributes"`
}

func (s *Server) completeLink(w http.ResponseWriter, r *http.Request) {
	var req completeLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	outcome, ok := frontier.ParseStatus(req.Outcome)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown outcome "+strconv.Quote(req.Outcome))
		return
	}
	if err := s.coord.Complete(r.Context(), frontier.KindLink, req.URL, outcome, req.Attributes); err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": req.URL, "status": string(outcome)})
}

type requeueRequest struct {
	ID       string  `json:"id"`
	Priority float64 `json:"priority"`
}

func (s *Server) requeueLink(w http.ResponseWriter, r *http.Request) {
	s.requeue(w, r, frontier.KindLink)
}

func (s *Server) requeueWord(w http.ResponseWriter, r *http.Request) {
	s.requeue(w, r, frontier.KindWord)
}

func (s *Server) requeue(w http.ResponseWriter, r *http.Request, kind frontier.Kind) {
	var req requeueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	if err := s.coord.Requeue(r.Context(), kind, req.ID, req.Priority); err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID, "status": string(frontier.StatusWaiting)})
}

type followRequest struct {
	URL string `json:"url"`
}

func (s *Server) consumeFollow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	remaining, err := s.coord.ConsumeFollow(r.Context(), req.URL)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"remaining": remaining})
}

func (s *Server) getFollowBudget(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}
	remaining, err := s.coord.FollowsRemaining(r.Context(), url)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"remaining": remaining})
}

func (s *Server) listLinks(w http.ResponseWriter, r *http.Request) {
	s.listMembers(w, r, frontier.KindLink)
}

func (s *Server) listWords(w http.ResponseWriter, r *http.Request) {
	s.listMembers(w, r, frontier.KindWord)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request, kind frontier.Kind) {
	status, ok := frontier.ParseStatus(r.URL.Query().Get("status"))
	if !ok || !status.ValidFor(kind) {
		writeError(w, http.StatusBadRequest, "valid status query parameter required")
		return
	}
	limit := memberListMax
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}

	it, err := s.coord.Members(r.Context(), kind, status)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	defer func() {
		if cerr := it.Close(); cerr != nil {
			s.logger.Warn("member iterator close failed", zap.Error(cerr))
		}
	}()

	ids := make([]string, 0, 16)
	for len(ids) < limit && it.Next() {
		ids = append(ids, it.ID())
	}
	if err := it.Err(); err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "ids": ids})
}

func (s *Server) getLinkStatus(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}
	status, err := s.coord.Status(r.Context(), frontier.KindLink, url)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url, "status": string(status)})
}

func (s *Server) getLinkAttributes(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}
	attrs, err := s.coord.Attributes(r.Context(), frontier.KindLink, url)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url, "attributes": attrs})
}

type addWordRequest struct {
	Word     string  `json:"word"`
	Parent   string  `json:"parent"`
	Priority float64 `json:"priority"`
}

func (s *Server) addWord(w http.ResponseWriter, r *http.Request) {
	var req addWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Word == "" {
		writeError(w, http.StatusBadRequest, "word required")
		return
	}
	if err := s.coord.AddWord(r.Context(), req.Word, req.Parent, req.Priority); err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"word": req.Word, "status": string(frontier.StatusWaiting)})
}

func (s *Server) claimWord(w http.ResponseWriter, r *http.Request) {
	id, ok, err := s.coord.Claim(r.Context(), frontier.KindWord, "")
	if err != nil {
		writeCoordError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"word": id, "status": string(frontier.StatusProcessing)})
}

type completeWordRequest struct {
	Word       string            `json:"word"`
	Outcome    string            `json:"outcome"`
	Attributes map[string]string `json:"attributes"`
}

func (s *Server) completeWord(w http.ResponseWriter, r *http.Request) {
	var req completeWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Word == "" {
		writeError(w, http.StatusBadRequest, "word required")
		return
	}
	outcome, ok := frontier.ParseStatus(req.Outcome)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown outcome "+strconv.Quote(req.Outcome))
		return
	}
	if err := s.coord.Complete(r.Context(), frontier.KindWord, req.Word, outcome, req.Attributes); err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"word": req.Word, "status": string(outcome)})
}

func (s *Server) getWordChain(w http.ResponseWriter, r *http.Request) {
	word := r.URL.Query().Get("word")
	if word == "" {
		writeError(w, http.StatusBadRequest, "word query parameter required")
		return
	}
	chain, err := s.coord.WordChain(r.Context(), word)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	parent := ""
	if len(chain) > 0 {
		parent = chain[0]
	}
	writeJSON(w, http.StatusOK, map[string]any{"word": word, "parent": parent, "chain": chain})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.coord.Snapshot(r.Context())
	if err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type requeueStuckRequest struct {
	Kind string `json:"kind"`
}

func (s *Server) requeueStuck(w http.ResponseWriter, r *http.Request) {
	var req requeueStuckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	kind := frontier.Kind(req.Kind)
	switch kind {
	case frontier.KindLink, frontier.KindWord:
	default:
		writeError(w, http.StatusBadRequest, "kind must be link or word")
		return
	}
	n, err := s.coord.RequeueStuck(r.Context(), kind)
	if err != nil {
		writeCoordError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"requeued": n})
}

// writeCoordError maps the coordinator's error taxonomy onto HTTP statuses.
func writeCoordError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, frontier.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, frontier.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, frontier.ErrCycle), errors.Is(err, frontier.ErrDepthExceeded):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, frontier.ErrBlacklisted):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, frontier.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
