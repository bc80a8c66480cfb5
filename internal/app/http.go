package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"lexicon/api/internal/ranges"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.service.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}

	parts := splitPath(r.URL.Path)

	// /api/projects/{projectID}/ranges...
	if len(parts) >= 4 && parts[0] == "api" && parts[1] == "projects" && parts[3] == "ranges" {
		s.handleRanges(w, r, parts[2], parts[4:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleRanges(w http.ResponseWriter, r *http.Request, projectID string, rest []string) {
	resolved := r.URL.Query().Get("resolved") == "true"

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		views, err := s.service.ListRanges(r.Context(), projectID, resolved)
		if err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)

	case len(rest) == 0 && r.Method == http.MethodPost:
		var body ranges.Range
		if !decodeBody(w, r, &body) {
			return
		}
		view, err := s.service.CreateRange(r.Context(), projectID, &body)
		if err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)

	case len(rest) == 1 && r.Method == http.MethodGet:
		view, err := s.service.GetRange(r.Context(), projectID, rest[0], resolved)
		if err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case len(rest) == 1 && r.Method == http.MethodPut:
		var body ranges.Range
		if !decodeBody(w, r, &body) {
			return
		}
		view, err := s.service.UpdateRange(r.Context(), projectID, rest[0], &body)
		if err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		migration, ok := decodeMigration(w, r)
		if !ok {
			return
		}
		if err := s.service.DeleteRange(r.Context(), projectID, rest[0], migration); err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": rest[0]})

	case len(rest) == 2 && rest[1] == "elements" && r.Method == http.MethodPost:
		var body ranges.RangeElement
		if !decodeBody(w, r, &body) {
			return
		}
		el, err := s.service.CreateElement(r.Context(), projectID, rest[0], &body)
		if err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, el)

	case len(rest) == 3 && rest[1] == "elements" && r.Method == http.MethodPut:
		var body ranges.RangeElement
		if !decodeBody(w, r, &body) {
			return
		}
		el, err := s.service.UpdateElement(r.Context(), projectID, rest[0], rest[2], &body)
		if err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, el)

	case len(rest) == 3 && rest[1] == "elements" && r.Method == http.MethodDelete:
		migration, ok := decodeMigration(w, r)
		if !ok {
			return
		}
		if err := s.service.DeleteElement(r.Context(), projectID, rest[0], rest[2], migration); err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": rest[2]})

	case len(rest) == 2 && rest[1] == "usage" && r.Method == http.MethodGet:
		refs, err := s.service.RangeUsage(r.Context(), projectID, rest[0], r.URL.Query().Get("value"))
		if err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"references": refs, "count": len(refs)})

	case len(rest) == 3 && rest[1] == "usage" && rest[2] == "by-element" && r.Method == http.MethodGet:
		summary, err := s.service.UsageByElement(r.Context(), projectID, rest[0])
		if err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)

	case len(rest) == 2 && rest[1] == "migrate" && r.Method == http.MethodPost:
		var body struct {
			OldValue  string `json:"oldValue"`
			Operation string `json:"operation"`
			NewValue  string `json:"newValue"`
			DryRun    bool   `json:"dryRun"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		result, err := s.service.MigrateRangeValues(r.Context(), projectID, rest[0], body.OldValue, body.Operation, body.NewValue, body.DryRun)
		if err != nil {
			mapError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// decodeMigration reads an optional migration body from a DELETE request.
// An empty body means "no migration"; a present but malformed body is a
// client error.
func decodeMigration(w http.ResponseWriter, r *http.Request) (*ranges.Migration, bool) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, true
	}
	var body struct {
		Migration *ranges.Migration `json:"migration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return nil, false
	}
	return body.Migration, true
}

type ctxKey string

const requestIDKey ctxKey = "requestID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))

		s.setCORSHeaders(w)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := map[string]any{
			"time":       start.UTC().Format(time.RFC3339),
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start).String(),
		}
		line, err := json.Marshal(entry)
		if err != nil {
			log.Printf("http: marshal access log: %v", err)
			return
		}
		log.Printf("%s", line)
	})
}

func (s *HTTPServer) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
}

func randomRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	body := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body", nil)
		return false
	}
	return true
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(w http.ResponseWriter, err error) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		writeError(w, domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details)
		return
	}
	log.Printf("http: unhandled error: %v", err)
	writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil)
}
