// Package server provides the local HTTP API used by editor
// integrations to read and mutate the tracker.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"trellis/internal/operations"
	"trellis/internal/relation"
	"trellis/internal/vault"
)

// Server provides the HTTP API using the operations layer
type Server struct {
	port   int
	token  string
	ops    *operations.Operations
	logger *log.Logger
	server *http.Server
}

// NewServer creates a new HTTP server using operations
func NewServer(port int, token string, ops *operations.Operations, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		port:   port,
		token:  token,
		ops:    ops,
		logger: logger,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/issues", s.handleList)
	mux.HandleFunc("/api/issues/", s.handleIssue)
	mux.HandleFunc("/api/links", s.handleLinks)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", s.port),
		Handler: mux,
	}

	s.logger.Info("API server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// validateToken checks the authorization token
func (s *Server) validateToken(r *http.Request) bool {
	if s.token == "" {
		return true // No token required if not set
	}
	return r.Header.Get("Authorization") == "Bearer "+s.token
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// issueJSON is the wire shape of one entity.
type issueJSON struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Status   string   `json:"status"`
	Priority string   `json:"priority"`
	Labels   []string `json:"labels,omitempty"`
	Blocked  bool     `json:"blocked"`
	Children int      `json:"children"`
}

func (s *Server) toJSON(entity *vault.Entity) issueJSON {
	queries := s.ops.Engine().Queries
	return issueJSON{
		Name:     entity.Name(),
		Path:     entity.Path,
		Type:     string(entity.Frontmatter.Type),
		Title:    entity.Title,
		Status:   string(entity.Frontmatter.Status),
		Priority: string(entity.Frontmatter.Priority),
		Labels:   entity.Frontmatter.Labels,
		Blocked:  queries.IsBlocked(entity),
		Children: queries.ChildCount(entity),
	}
}

// handleStatus returns server status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"vault":  s.ops.Store().BaseDir(),
	})
}

// handleList lists entities, optionally filtered by type
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var entities []*vault.Entity
	var err error
	switch r.URL.Query().Get("type") {
	case "":
		entities, err = s.ops.Issues.ListAll()
	case "issue":
		entities, err = s.ops.Issues.List(vault.EntityIssue)
	case "project":
		entities, err = s.ops.Issues.List(vault.EntityProject)
	default:
		http.Error(w, "Unknown type filter", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result := make([]issueJSON, len(entities))
	for i, entity := range entities {
		result[i] = s.toJSON(entity)
	}
	writeJSON(w, http.StatusOK, result)
}

// handleIssue serves one entity or its relationship neighborhood
func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/issues/")
	if path == "" {
		http.Error(w, "Issue name required", http.StatusBadRequest)
		return
	}

	name, wantRelations := strings.CutSuffix(path, "/relations")
	name = strings.TrimSuffix(name, "/")

	rels, err := s.ops.Links.Relations(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	if !wantRelations {
		writeJSON(w, http.StatusOK, s.toJSON(rels.Entity))
		return
	}

	names := func(entities []*vault.Entity) []string {
		out := make([]string, len(entities))
		for i, entity := range entities {
			out[i] = entity.Name()
		}
		return out
	}
	response := map[string]any{
		"name":       rels.Entity.Name(),
		"children":   names(rels.Children),
		"blocks":     names(rels.Blocks),
		"blocked_by": names(rels.BlockedBy),
		"related":    names(rels.Related),
	}
	if rels.Parent != nil {
		response["parent"] = rels.Parent.Name()
	}
	writeJSON(w, http.StatusOK, response)
}

// linkRequest is a proposed relationship change.
type linkRequest struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// handleLinks applies relationship changes: POST adds, DELETE removes
func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	if !s.validateToken(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var action relation.Action
	switch r.Method {
	case http.MethodPost:
		action = relation.ActionAdd
	case http.MethodDelete:
		action = relation.ActionRemove
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}
	relType := relation.Type(req.Type)
	if !relType.Valid() {
		http.Error(w, fmt.Sprintf("Unknown relationship type %q", req.Type), http.StatusBadRequest)
		return
	}

	err := s.ops.Links.Apply(relType, action, req.Source, req.Target)
	if err != nil {
		// Structural rejections are client errors, not server faults.
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, relation.ErrSelfLink),
			errors.Is(err, relation.ErrCycle),
			errors.Is(err, relation.ErrAlreadyExists):
			status = http.StatusConflict
		}
		s.logger.Debug("link change rejected", "type", req.Type, "source", req.Source, "target", req.Target, "err", err)
		writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
