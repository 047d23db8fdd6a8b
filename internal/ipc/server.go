package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"jukebox/internal/api"
	"jukebox/internal/daemon"
	"jukebox/internal/importer"
	"jukebox/internal/logging"
	"jukebox/internal/slots"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
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

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Jukebox", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
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
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String("impact", "IPC clients may fail to connect"),
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
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String("impact", "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun jukebox stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Status = api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockPath:     status.LockPath,
		SocketPath:   status.SocketPath,
		Controller: api.ControllerStatus{
			State:   string(status.Controller.State),
			Buffer:  status.Controller.Buffer,
			Track:   status.Controller.Track,
			Shuffle: status.Controller.Shuffle,
			Bank:    status.Controller.Bank,
		},
		ActiveJobs:   status.ActiveJobs,
		Tracks:       status.Tracks,
		Samples:      status.Samples,
		Dependencies: status.Dependencies,
	}
	return nil
}

func (s *service) TrackList(_ TrackListRequest, resp *TrackListResponse) error {
	tracks, err := s.daemon.ListTracks(s.ctx)
	if err != nil {
		return err
	}
	resp.Tracks = make([]api.Track, 0, len(tracks))
	for _, track := range tracks {
		resp.Tracks = append(resp.Tracks, api.FromTrackSlot(track))
	}
	return nil
}

func (s *service) SampleList(req SampleListRequest, resp *SampleListResponse) error {
	samples, err := s.daemon.ListSamples(s.ctx, req.Bank)
	if err != nil {
		return err
	}
	resp.Samples = make([]api.Sample, 0, len(samples))
	for _, sample := range samples {
		resp.Samples = append(resp.Samples, api.FromSampleSlot(sample))
	}
	return nil
}

func (s *service) Import(req ImportRequest, resp *ImportResponse) error {
	target := importer.TrackTarget(req.Number)
	if req.Sample {
		target = importer.SampleTarget(req.Bank, req.Key)
	}

	var source importer.Source
	switch {
	case strings.TrimSpace(req.FilePath) != "":
		source = importer.LocalFileSource(req.FilePath)
	case strings.TrimSpace(req.URL) != "":
		source = importer.URLSource(req.URL)
	default:
		return errors.New("import requires a file path or a url")
	}

	job, err := s.daemon.SubmitImport(target, source, req.Name)
	if err != nil {
		return err
	}
	resp.Job = api.FromImportJob(job)
	s.log().Info("import queued via IPC",
		logging.String(logging.FieldJobID, job.ID.String()),
		logging.String("target", job.Target.String()))
	return nil
}

func (s *service) Job(req JobRequest, resp *JobResponse) error {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return fmt.Errorf("invalid job id %q", req.ID)
	}
	job, ok := s.daemon.ImportJob(id)
	if !ok {
		return fmt.Errorf("job %s not found", req.ID)
	}
	resp.Job = api.FromImportJob(job)
	return nil
}

func (s *service) JobList(_ JobListRequest, resp *JobListResponse) error {
	jobs := s.daemon.ImportJobs()
	resp.Jobs = make([]api.ImportJob, 0, len(jobs))
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, api.FromImportJob(job))
	}
	return nil
}

func (s *service) Delete(req DeleteRequest, resp *DeleteResponse) error {
	var err error
	if req.Sample {
		err = s.daemon.DeleteSample(s.ctx, req.Bank, req.Key)
	} else {
		err = s.daemon.DeleteTrack(s.ctx, req.Number)
	}
	if err != nil {
		if errors.Is(err, slots.ErrNotFound) {
			return errors.New("slot is empty")
		}
		return err
	}
	resp.Deleted = true
	return nil
}

func (s *service) Play(req PlayRequest, resp *PlayResponse) error {
	if err := s.daemon.PlayTrack(s.ctx, req.Number); err != nil {
		return err
	}
	resp.Playing = true
	s.log().Info("playback started via IPC", logging.Int(logging.FieldTrack, req.Number))
	return nil
}

func (s *service) StopPlayback(_ StopPlaybackRequest, resp *StopPlaybackResponse) error {
	s.daemon.StopPlayback()
	resp.Stopped = true
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
