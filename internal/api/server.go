// Package api serves group searches over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"aptintel/internal/aptcore"
)

const defaultQuerySize = 10

// Server answers search requests against snapshots loaded at startup.
// Tracker and Index are optional; their endpoints report 503 when absent.
type Server struct {
	Groups  []aptcore.GroupRecord
	Tracker aptcore.Workbook
	Index   *aptcore.GroupIndex

	logger *zap.Logger
}

// NewServer creates a Server. The caller keeps ownership of tracker and index.
func NewServer(groups []aptcore.GroupRecord, tracker aptcore.Workbook, index *aptcore.GroupIndex, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Groups: groups, Tracker: tracker, Index: index, logger: logger}
}

type searchResponse struct {
	Mitre   *aptcore.SearchResult[aptcore.GroupRecord] `json:"mitre,omitempty"`
	Tracker *aptcore.SearchResult[aptcore.TrackerRow]  `json:"tracker,omitempty"`
	Errors  []string                                   `json:"errors,omitempty"`
}

type groupResponse struct {
	Group    aptcore.GroupRecord `json:"group"`
	LayerURL string              `json:"layer_url,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the API routes wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/groups/{alias}", s.handleGroup)
	mux.HandleFunc("GET /api/query", s.handleQuery)

	return c.Handler(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("search API listening", zap.String("addr", addr), zap.Int("groups", len(s.Groups)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down search API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keywords := aptcore.ParseList(q.Get("keywords"))
	if len(keywords) == 0 {
		s.writeError(w, http.StatusBadRequest, "query parameter 'keywords' is required")
		return
	}

	source := q.Get("source")
	if source != "" && source != "mitre" && source != "tracker" {
		s.writeError(w, http.StatusBadRequest, "query parameter 'source' must be 'mitre' or 'tracker'")
		return
	}
	opts := aptcore.SearchOptions{Dedupe: q.Get("dedupe") == "true"}

	var resp searchResponse
	if source == "" || source == "mitre" {
		resp.Mitre = aptcore.SearchGroups(s.Groups, keywords, opts)
	}
	if source == "" || source == "tracker" {
		if s.Tracker == nil {
			if source == "tracker" {
				s.writeError(w, http.StatusServiceUnavailable, "tracker snapshot not loaded")
				return
			}
			resp.Errors = append(resp.Errors, "tracker snapshot not loaded")
		} else {
			result, err := aptcore.SearchTracker(s.Tracker, keywords, opts)
			if err != nil {
				s.logger.Warn("tracker sheets skipped", zap.Error(err))
				resp.Errors = append(resp.Errors, err.Error())
			}
			resp.Tracker = result
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	alias := r.PathValue("alias")
	group, err := aptcore.Resolve(s.Groups, alias)
	if err != nil {
		if errors.Is(err, aptcore.ErrGroupNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := groupResponse{Group: group}
	if group.Link != nil {
		resp.LayerURL = group.Link.LayerURL()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter 'query' is required")
		return
	}
	if s.Index == nil {
		s.writeError(w, http.StatusServiceUnavailable, "search index not loaded")
		return
	}

	size := defaultQuerySize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "query parameter 'size' must be a positive integer")
			return
		}
		size = n
	}

	hits, err := s.Index.Search(query, size)
	if err != nil {
		s.logger.Error("query failed", zap.String("query", query), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.writeJSON(w, http.StatusOK, hits)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
