package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"shotbuddy/internal/api"
	"shotbuddy/internal/config"
	"shotbuddy/internal/logging"
	"shotbuddy/internal/shot"
)

const (
	maxJSONBody      = 1 << 20
	multipartMemory  = 32 << 20
	maxUploadRequest = 4 << 30
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// envelope is the response body of every JSON endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.handler = srv.routes(cfg.Paths.APIToken)
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, authMiddleware(token, s.withCorrelation(h)))
	}

	handle("GET /api/status", s.handleStatus)
	handle("GET /api/shots", s.handleListShots)
	handle("POST /api/shots/create-between", s.handleCreateBetween)
	handle("POST /api/shots/rename", s.handleRename)
	handle("POST /api/shots/upload", s.handleUpload)
	handle("GET /api/shots/prompt", s.handleGetPrompt)
	handle("POST /api/shots/prompt", s.handleSavePrompt)
	handle("POST /api/shots/notes", s.handleNotes)
	handle("GET /api/shots/versions", s.handleVersions)
	handle("GET /api/settings", s.handleGetSettings)
	handle("POST /api/settings", s.handleUpdateSettings)
	handle("GET /api/reference", s.handleReferences)
	handle("POST /api/reference/upload", s.handleReferenceUpload)
	handle("POST /api/reference/rename", s.handleReferenceRename)
	handle("POST /api/reference/delete", s.handleReferenceDelete)
	handle("GET /api/reference/image/{file}", s.handleReferenceImage)
	handle("GET /api/thumbnails/{file}", s.handleThumbnail)
	handle("GET /api/export", s.handleExport)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) board() *api.BoardService {
	return s.daemon.board
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleListShots(w http.ResponseWriter, r *http.Request) {
	shots, err := s.board().ListShots(r.Context())
	s.respond(w, r, shots, err)
}

func (s *apiServer) handleCreateBetween(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AfterShot *string `json:"after_shot"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	after := ""
	if req.AfterShot != nil {
		after = *req.AfterShot
	}
	created, err := s.board().InsertShotAfter(r.Context(), after)
	s.respond(w, r, created, err)
}

func (s *apiServer) handleRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldName string `json:"old_name"`
		NewName string `json:"new_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	renamed, err := s.board().RenameShot(r.Context(), req.OldName, req.NewName)
	s.respond(w, r, renamed, err)
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequest)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, shot.Wrap(shot.ErrValidation, "upload", "parse form", "", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, shot.Wrap(shot.ErrValidation, "upload", "read form", "no file provided", nil))
		return
	}
	defer file.Close()

	updated, err := s.board().UploadAsset(r.Context(), r.FormValue("shot_name"), r.FormValue("file_type"), header.Filename, file)
	s.respond(w, r, updated, err)
}

func (s *apiServer) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	version, err := parseVersion(query.Get("version"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	text, err := s.board().FetchPrompt(r.Context(), query.Get("shot_name"), query.Get("asset_type"), version)
	s.respond(w, r, map[string]string{"prompt": text}, err)
}

func (s *apiServer) handleSavePrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShotName  string `json:"shot_name"`
		AssetType string `json:"asset_type"`
		Version   int    `json:"version"`
		Prompt    string `json:"prompt"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.board().SavePrompt(r.Context(), req.ShotName, req.AssetType, req.Version, req.Prompt)
	s.respond(w, r, updated, err)
}

func (s *apiServer) handleNotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShotName string `json:"shot_name"`
		Notes    string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.board().SaveNotes(r.Context(), req.ShotName, req.Notes)
	s.respond(w, r, updated, err)
}

func (s *apiServer) handleVersions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	versions, err := s.board().AssetVersions(r.Context(), query.Get("shot_name"), query.Get("asset_type"))
	s.respond(w, r, versions, err)
}

func (s *apiServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.board().Settings(r.Context())
	s.respond(w, r, settings, err)
}

func (s *apiServer) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update api.SettingsUpdate
	if err := decodeJSON(r, &update); err != nil {
		s.writeError(w, r, err)
		return
	}
	settings, err := s.board().UpdateSettings(r.Context(), update)
	s.respond(w, r, settings, err)
}

func (s *apiServer) handleReferences(w http.ResponseWriter, r *http.Request) {
	refs, err := s.board().References(r.Context())
	s.respond(w, r, refs, err)
}

func (s *apiServer) handleReferenceUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequest)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, shot.Wrap(shot.ErrValidation, "reference", "parse form", "", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, shot.Wrap(shot.ErrValidation, "reference", "read form", "no file provided", nil))
		return
	}
	defer file.Close()

	ref, err := s.board().SaveReference(r.Context(), header.Filename, file)
	s.respond(w, r, ref, err)
}

func (s *apiServer) handleReferenceRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldName string `json:"old_name"`
		NewName string `json:"new_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ref, err := s.board().RenameReference(r.Context(), req.OldName, req.NewName)
	s.respond(w, r, ref, err)
}

func (s *apiServer) handleReferenceDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.board().DeleteReference(r.Context(), req.Filename)
	s.respond(w, r, nil, err)
}

func (s *apiServer) handleReferenceImage(w http.ResponseWriter, r *http.Request) {
	path, err := s.daemon.store.ReferencePath(r.PathValue("file"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	path, err := s.daemon.store.ThumbnailPath(r.PathValue("file"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = api.FormatYAML
	}
	doc, err := s.board().Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	contentType := "application/yaml"
	if format == api.FormatJSON {
		contentType = "application/json"
	}
	var body strings.Builder
	if err := api.EncodeExport(&body, doc, format); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = io.WriteString(w, body.String())
}

func (s *apiServer) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeData(w, data)
}

func (s *apiServer) writeData(w http.ResponseWriter, data any) {
	s.writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	resp := api.NewErrorResponse(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.Error(err))
	} else {
		logging.WithContext(r.Context(), s.logger).Debug("request rejected",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.String("kind", resp.Kind))
	}
	s.writeJSON(w, status, envelope{Error: resp.Error, Kind: resp.Kind})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

// httpStatus maps error markers to response codes. Rename and capacity
// failures win over the cause they wrap, matching shot.Kind.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, shot.ErrCapacityExceeded), errors.Is(err, shot.ErrRenameFailed):
		return http.StatusConflict
	case errors.Is(err, shot.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shot.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return shot.Wrap(shot.ErrValidation, "request", "decode", "no data provided", nil)
		}
		return shot.Wrap(shot.ErrValidation, "request", "decode", "", err)
	}
	return nil
}

func parseVersion(value string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || v < 1 {
		return 0, shot.Wrap(shot.ErrValidation, "request", "parse", fmt.Sprintf("invalid version %q", value), nil)
	}
	return v, nil
}
