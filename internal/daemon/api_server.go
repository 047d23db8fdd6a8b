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
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"jukebox/internal/api"
	"jukebox/internal/config"
	"jukebox/internal/importer"
	"jukebox/internal/logging"
	"jukebox/internal/slots"
)

const maxUploadBytes = 256 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/status", srv.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", srv.handleTrackList).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{number:[0-9]+}", srv.handleTrackImport).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{number:[0-9]+}", srv.handleTrackDelete).Methods(http.MethodDelete)
	router.HandleFunc("/api/samples", srv.handleSampleList).Methods(http.MethodGet)
	router.HandleFunc("/api/samples/{bank:[0-9]}/{key}", srv.handleSampleImport).Methods(http.MethodPut)
	router.HandleFunc("/api/samples/{bank:[0-9]}/{key}", srv.handleSampleDelete).Methods(http.MethodDelete)
	router.HandleFunc("/api/jobs/{id}", srv.handleJob).Methods(http.MethodGet)

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      30 * time.Second,
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

// addr reports the bound address, useful when the bind port is 0.
func (s *apiServer) addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
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
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleTrackList(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.daemon.ListTracks(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := api.TrackListResponse{Tracks: make([]api.Track, 0, len(tracks))}
	for _, track := range tracks {
		resp.Tracks = append(resp.Tracks, api.FromTrackSlot(track))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleSampleList(w http.ResponseWriter, r *http.Request) {
	bank := -1
	if value := strings.TrimSpace(r.URL.Query().Get("bank")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid bank")
			return
		}
		bank = parsed
	}
	samples, err := s.daemon.ListSamples(r.Context(), bank)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := api.SampleListResponse{Samples: make([]api.Sample, 0, len(samples))}
	for _, sample := range samples {
		resp.Samples = append(resp.Samples, api.FromSampleSlot(sample))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleTrackImport(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid track number")
		return
	}
	s.submitImport(w, r, importer.TrackTarget(number))
}

func (s *apiServer) handleSampleImport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bank, err := strconv.Atoi(vars["bank"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid bank")
		return
	}
	s.submitImport(w, r, importer.SampleTarget(bank, vars["key"]))
}

// submitImport accepts either a multipart upload (field "file") or a JSON
// body carrying a source URL, and answers 202 with the queued job.
func (s *apiServer) submitImport(w http.ResponseWriter, r *http.Request, target importer.Target) {
	source, name, err := s.parseImportBody(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.daemon.SubmitImport(target, source, name)
	if err != nil {
		if errors.Is(err, importer.ErrSlotBusy) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.ImportAccepted{Job: api.FromImportJob(job)})
}

func (s *apiServer) parseImportBody(r *http.Request) (importer.Source, string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return importer.Source{}, "", fmt.Errorf("parse upload: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return importer.Source{}, "", errors.New("multipart upload requires a \"file\" field")
		}
		defer file.Close()

		staged, err := stageUpload(file, header.Filename)
		if err != nil {
			return importer.Source{}, "", err
		}
		name := strings.TrimSpace(r.FormValue("name"))
		if name == "" {
			base := filepath.Base(header.Filename)
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		return importer.UploadedFileSource(staged), name, nil
	}

	var body api.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return importer.Source{}, "", fmt.Errorf("decode request body: %w", err)
	}
	if strings.TrimSpace(body.URL) == "" {
		return importer.Source{}, "", errors.New("request requires a url or a multipart file")
	}
	return importer.URLSource(body.URL), strings.TrimSpace(body.Name), nil
}

// stageUpload copies the uploaded stream to a temp file the import pipeline
// owns and removes when the job finishes.
func stageUpload(file io.Reader, filename string) (string, error) {
	ext := filepath.Ext(filename)
	staged, err := os.CreateTemp("", "jukebox-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(staged, file); err != nil {
		staged.Close()
		_ = os.Remove(staged.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if err := staged.Close(); err != nil {
		_ = os.Remove(staged.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return staged.Name(), nil
}

func (s *apiServer) handleTrackDelete(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid track number")
		return
	}
	if err := s.daemon.DeleteTrack(r.Context(), number); err != nil {
		if errors.Is(err, slots.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "track slot is empty")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleSampleDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bank, err := strconv.Atoi(vars["bank"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid bank")
		return
	}
	if err := s.daemon.DeleteSample(r.Context(), bank, vars["key"]); err != nil {
		if errors.Is(err, slots.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "sample slot is empty")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, ok := s.daemon.ImportJob(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromImportJob(job))
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
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
