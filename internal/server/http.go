package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/kadr/internal/model"
	"github.com/alfredjeanlab/kadr/internal/store"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *CatalogServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/catalogs/{catalog}/options", s.handleListOptions)
	mux.HandleFunc("POST /v1/identity/check", s.handleCheckIdentity)
	mux.HandleFunc("POST /v1/personnel", s.handleCreatePerson)
	mux.HandleFunc("GET /v1/personnel/{id}", s.handleGetPerson)
	mux.HandleFunc("GET /v1/personnel", s.handleListPeople)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return RequestIDMiddleware(AuthMiddleware(authToken, mux))
}

// handleListOptions handles GET /v1/catalogs/{catalog}/options.
// Any query parameter other than page, page_size and search is a filter.
func (s *CatalogServer) handleListOptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := listOptionsInput{
		Catalog: r.PathValue("catalog"),
		Search:  q.Get("search"),
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		in.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page_size must be an integer")
			return
		}
		in.PageSize = n
	}
	for key, vals := range q {
		switch key {
		case "page", "page_size", "search":
			continue
		}
		if in.Filters == nil {
			in.Filters = make(map[string]string)
		}
		in.Filters[key] = vals[0]
	}

	result, err := s.listOptions(r.Context(), in)
	if err != nil {
		writeServiceError(w, err, "catalog")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCheckIdentity handles POST /v1/identity/check.
func (s *CatalogServer) handleCheckIdentity(w http.ResponseWriter, r *http.Request) {
	var in checkIdentityInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.checkIdentity(r.Context(), in)
	if err != nil {
		writeServiceError(w, err, "person")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCreatePerson handles POST /v1/personnel.
func (s *CatalogServer) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var in createPersonInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := s.createPerson(r.Context(), in)
	if err != nil {
		writeServiceError(w, err, "person")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// handleGetPerson handles GET /v1/personnel/{id}.
func (s *CatalogServer) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	p, err := s.getPerson(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "person")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleListPeople handles GET /v1/personnel.
func (s *CatalogServer) handleListPeople(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := defaultPageSize, 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxPageSize {
			limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			offset = n
		}
	}

	people, total, err := s.store.ListPeople(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list personnel")
		return
	}
	if people == nil {
		people = []*model.Person{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"personnel": people,
		"total":     total,
	})
}

// handleHealth handles GET /v1/health.
func (s *CatalogServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps core errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error, entity string) {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, store.ErrDuplicatePINFL):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "entity", entity, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
