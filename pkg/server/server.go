// Package server provides the HTTP API for watchlist persistence.
// Each handler is stateless: validate and sanitize the input, delegate to
// the service, then map the result or error to a status code and JSON body.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/CGeorges/tradingboard/internal/service"
	"github.com/CGeorges/tradingboard/internal/store"
	"github.com/CGeorges/tradingboard/pkg/watchlist"
)

const version = "1.0.0"

// Server provides the HTTP API.
type Server struct {
	svc     *service.Service
	db      store.Store
	port    int
	origins []string

	httpSrv *http.Server
}

// New creates a new HTTP server.
func New(svc *service.Service, db store.Store, port int, corsOrigins []string) *Server {
	if port == 0 {
		port = 3001
	}
	return &Server{
		svc:     svc,
		db:      db,
		port:    port,
		origins: corsOrigins,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/watchlists", s.handleList)
	mux.HandleFunc("POST /api/watchlists", s.handleCreate)
	mux.HandleFunc("POST /api/watchlists/bulk", s.handleBulkSave)
	mux.HandleFunc("GET /api/watchlists/{id}", s.handleGet)
	mux.HandleFunc("PUT /api/watchlists/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/watchlists/{id}", s.handleDelete)
	return s.cors(mux)
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "tradingboard api listening on %s\n", s.httpSrv.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// cors applies the configured origin allowlist and answers preflights.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"error":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database":  "connected",
		"version":   version,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	lists, err := s.svc.GetAll(r.Context())
	if err != nil {
		writeError(w, err, "fetch watchlists", "")
		return
	}
	if lists == nil {
		lists = []watchlist.Watchlist{}
	}
	writeJSON(w, http.StatusOK, lists)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wl, err := s.svc.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "fetch watchlist", id)
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}

	in := watchlist.SanitizeInput(body)
	if in.ID == "" || in.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(
			"Missing required fields", "Both id and name are required"))
		return
	}

	created, err := s.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err, "create watchlist", in.ID)
		return
	}

	fmt.Fprintf(os.Stderr, "created watchlist: %s\n", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}

	in := watchlist.SanitizeInput(body)
	if !in.HasUpdates() {
		writeJSON(w, http.StatusBadRequest, errorBody(
			"No update data provided",
			"At least one field (name, symbols, pinnedSymbols, isDefault) must be provided for update"))
		return
	}
	// A blank name never reaches the store; it would erase the display name.
	if in.Present["name"] && in.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(
			"Invalid watchlist data", "Watchlist name cannot be empty"))
		return
	}

	updated, err := s.svc.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, err, "update watchlist", id)
		return
	}

	fmt.Fprintf(os.Stderr, "updated watchlist: %s\n", id)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.svc.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err, "delete watchlist", id)
		return
	}
	if !deleted {
		writeNotFound(w, id)
		return
	}

	fmt.Fprintf(os.Stderr, "deleted watchlist: %s\n", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Watchlist %s deleted successfully", id),
	})
}

func (s *Server) handleBulkSave(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Watchlists json.RawMessage `json:"watchlists"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid input", "Malformed JSON body"))
		return
	}

	var rawLists []map[string]any
	if err := json.Unmarshal(body.Watchlists, &rawLists); err != nil || rawLists == nil && string(body.Watchlists) != "[]" {
		writeJSON(w, http.StatusBadRequest, errorBody(
			"Invalid input", "Expected an array of watchlists"))
		return
	}

	// All-or-nothing validation, matching the all-or-nothing transaction.
	lists := make([]watchlist.Watchlist, len(rawLists))
	for i, raw := range rawLists {
		in := watchlist.SanitizeInput(raw)
		if in.ID == "" || in.Name == "" {
			writeJSON(w, http.StatusBadRequest, errorBody(
				"Invalid watchlist data",
				fmt.Sprintf("Watchlist at index %d is missing required fields (id or name)", i)))
			return
		}
		lists[i] = watchlist.Watchlist{
			ID:            in.ID,
			Name:          in.Name,
			Symbols:       in.Symbols,
			PinnedSymbols: in.PinnedSymbols,
			CreatedAt:     parseTimestamp(raw["createdAt"]),
			UpdatedAt:     parseTimestamp(raw["updatedAt"]),
			IsDefault:     in.IsDefault,
		}
	}

	if err := s.svc.BulkSave(r.Context(), lists); err != nil {
		writeError(w, err, "bulk save watchlists", "")
		return
	}

	fmt.Fprintf(os.Stderr, "bulk saved %d watchlists\n", len(lists))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%d watchlists saved successfully", len(lists)),
	})
}

// decodeBody reads a JSON object body. An empty body decodes to an empty
// object so the "no update data" check can reject it; malformed JSON is 400.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body := map[string]any{}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid input", "Malformed JSON body"))
		return nil, false
	}
	return body, true
}

// parseTimestamp accepts RFC3339 strings from bulk payloads; anything
// else defaults downstream to now via the mapper.
func parseTimestamp(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// writeError maps service and store failures to the HTTP contract:
// not-found to 404 naming the id, unique violations to 409, everything
// else to 500 with the operation name.
func writeError(w http.ResponseWriter, err error, operation, id string) {
	fmt.Fprintf(os.Stderr, "error %s: %v\n", operation, err)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeNotFound(w, id)
	case errors.Is(err, store.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(
			"Watchlist already exists",
			fmt.Sprintf("Watchlist with ID %s already exists", id)))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody(
			"Failed to "+operation, err.Error()))
	}
}

func writeNotFound(w http.ResponseWriter, id string) {
	writeJSON(w, http.StatusNotFound, errorBody(
		"Watchlist not found",
		fmt.Sprintf("Watchlist with ID %s does not exist", id)))
}

func errorBody(errTitle, message string) map[string]string {
	return map[string]string{"error": errTitle, "message": message}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
