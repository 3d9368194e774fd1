package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"callbox/internal/api"
	"callbox/internal/config"
	"callbox/internal/logging"
	"callbox/internal/records"
	"callbox/internal/services"
)

const maxUploadFormMemory = 8 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/calls", srv.handleCalls)
	mux.HandleFunc("/api/calls/upload", srv.handleUpload)
	mux.HandleFunc("/api/calls/tags", srv.handleTagIndex)
	mux.HandleFunc("/api/calls/", srv.handleCallItem)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handler returns the mux, for tests.
func (s *apiServer) handler() http.Handler {
	return s.server.Handler
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	counts := make(map[string]int, len(status.Counts))
	for key, value := range status.Counts {
		counts[string(key)] = value
	}
	dependencies := make([]api.DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		dependencies = append(dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		StorePath:    status.StorePath,
		LockFilePath: status.LockFilePath,
		Counts:       counts,
		Dependencies: dependencies,
	})
}

func (s *apiServer) handleCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	sort, ok := records.ParseSortOrder(query.Get("sort"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "sort must be \"newest\" or \"oldest\"")
		return
	}

	items, err := s.daemon.store.List(r.Context(), records.ListOptions{
		Tag:  query.Get("tag"),
		Sort: sort,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.CallListResponse{
		Calls: api.FromRecords(items),
		Total: len(items),
	})
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := services.WithRequestID(r.Context(), uuid.New().String())
	if err := r.ParseMultipartForm(maxUploadFormMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	record, err := s.daemon.orchestrator.Ingest(ctx, header.Filename, file)
	if err != nil {
		s.writePipelineError(w, record, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.UploadResponse{
		ID:      record.ID,
		Message: fmt.Sprintf("call processed with status %s", record.Status),
	})
}

func (s *apiServer) handleTagIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tags, err := s.daemon.tagManager.ListAll(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tags == nil {
		tags = []string{}
	}
	s.writeJSON(w, http.StatusOK, tags)
}

// handleCallItem routes /api/calls/{id}, /api/calls/{id}/audio, and
// /api/calls/{id}/tags[/{tag}].
func (s *apiServer) handleCallItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/calls/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		s.writeError(w, http.StatusNotFound, "call not found")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		s.handleCallGet(w, r, id)
	case len(parts) == 2 && parts[1] == "audio":
		s.handleCallAudio(w, r, id)
	case len(parts) == 2 && parts[1] == "tags":
		s.handleTagAdd(w, r, id)
	case len(parts) == 3 && parts[1] == "tags":
		s.handleTagRemove(w, r, id, parts[2])
	default:
		s.writeError(w, http.StatusNotFound, "call not found")
	}
}

func (s *apiServer) handleCallGet(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	record, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CallResponse{Call: api.FromRecord(record)})
}

func (s *apiServer) handleCallAudio(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	record, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if record.AudioPath == "" {
		s.writeError(w, http.StatusNotFound, "audio not available for this call")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", record.Filename))
	http.ServeFile(w, r, record.AudioPath)
}

func (s *apiServer) handleTagAdd(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid tag request body")
		return
	}
	record, err := s.daemon.tagManager.Add(r.Context(), id, req.Tag)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CallResponse{Call: api.FromRecord(record)})
}

func (s *apiServer) handleTagRemove(w http.ResponseWriter, r *http.Request, id, tag string) {
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	record, err := s.daemon.tagManager.Remove(r.Context(), id, tag)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CallResponse{Call: api.FromRecord(record)})
}

// writeServiceError maps service error markers onto HTTP statuses.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicate):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writePipelineError maps ingest failures. Stage failures carry the record id
// so callers can inspect the failed record.
func (s *apiServer) writePipelineError(w http.ResponseWriter, record *records.Record, err error) {
	id := ""
	if record != nil {
		id = record.ID
	}
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrDuplicate):
		s.writeJSON(w, http.StatusConflict, api.ErrorResponse{Error: err.Error()})
	default:
		s.writeJSON(w, http.StatusBadGateway, api.ErrorResponse{Error: err.Error(), ID: id})
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
