package ipc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"shotbuddy/internal/api"
	"shotbuddy/internal/daemon"
	"shotbuddy/internal/logging"
)

const serviceName = "Shotbuddy"

// Server exposes the board via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, board: d.Board(), logger: logging.NewComponentLogger(logger, "ipc"), ctx: serverCtx}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun shotbuddy stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	board  *api.BoardService
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.DaemonStatus = s.daemon.Status(s.ctx)
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.daemon.RequestShutdown()
	resp.Stopped = true
	return nil
}

func (s *service) ListShots(_ ListShotsRequest, resp *ShotsResponse) error {
	shots, err := s.board.ListShots(s.ctx)
	resp.Shots = shots
	resp.ErrorResponse = s.failure("list shots", err)
	return nil
}

func (s *service) InsertShotAfter(req InsertShotRequest, resp *ShotResponse) error {
	created, err := s.board.InsertShotAfter(s.ctx, req.AfterKey)
	resp.Shot = created
	resp.ErrorResponse = s.failure("insert shot", err)
	return nil
}

func (s *service) RenameShot(req RenameShotRequest, resp *ShotResponse) error {
	renamed, err := s.board.RenameShot(s.ctx, req.OldName, req.NewName)
	resp.Shot = renamed
	resp.ErrorResponse = s.failure("rename shot", err)
	return nil
}

func (s *service) UploadAsset(req UploadAssetRequest, resp *ShotResponse) error {
	updated, err := s.board.UploadAsset(s.ctx, req.ShotName, req.Slot, req.Filename, bytes.NewReader(req.Content))
	resp.Shot = updated
	resp.ErrorResponse = s.failure("upload asset", err)
	return nil
}

func (s *service) FetchPrompt(req PromptRequest, resp *PromptResponse) error {
	text, err := s.board.FetchPrompt(s.ctx, req.ShotName, req.Slot, req.Version)
	resp.Prompt = text
	resp.ErrorResponse = s.failure("fetch prompt", err)
	return nil
}

func (s *service) SavePrompt(req SavePromptRequest, resp *ShotResponse) error {
	updated, err := s.board.SavePrompt(s.ctx, req.ShotName, req.Slot, req.Version, req.Text)
	resp.Shot = updated
	resp.ErrorResponse = s.failure("save prompt", err)
	return nil
}

func (s *service) SaveNotes(req SaveNotesRequest, resp *ShotResponse) error {
	updated, err := s.board.SaveNotes(s.ctx, req.ShotName, req.Notes)
	resp.Shot = updated
	resp.ErrorResponse = s.failure("save notes", err)
	return nil
}

func (s *service) AssetVersions(req AssetVersionsRequest, resp *AssetVersionsResponse) error {
	versions, err := s.board.AssetVersions(s.ctx, req.ShotName, req.Slot)
	resp.Versions = versions
	resp.ErrorResponse = s.failure("asset versions", err)
	return nil
}

func (s *service) Settings(_ SettingsRequest, resp *SettingsResponse) error {
	settings, err := s.board.Settings(s.ctx)
	resp.Settings = settings
	resp.ErrorResponse = s.failure("settings", err)
	return nil
}

func (s *service) UpdateSettings(req UpdateSettingsRequest, resp *SettingsResponse) error {
	settings, err := s.board.UpdateSettings(s.ctx, req.Update)
	resp.Settings = settings
	resp.ErrorResponse = s.failure("update settings", err)
	return nil
}

func (s *service) References(_ ReferencesRequest, resp *ReferencesResponse) error {
	refs, err := s.board.References(s.ctx)
	resp.References = refs
	resp.ErrorResponse = s.failure("references", err)
	return nil
}

func (s *service) Export(_ ExportRequest, resp *ExportResponse) error {
	doc, err := s.board.Export(s.ctx)
	resp.Document = doc
	resp.ErrorResponse = s.failure("export", err)
	return nil
}

func (s *service) failure(op string, err error) api.ErrorResponse {
	resp := api.NewErrorResponse(err)
	if err != nil {
		s.logger.Debug("ipc request failed",
			logging.String("operation", op),
			logging.String("kind", resp.Kind),
			logging.Error(err))
	}
	return resp
}
