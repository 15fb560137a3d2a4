package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"whisperd/internal/manager"
	"whisperd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Submit(req manager.SubmitRequest) (string, error)
	Job(id string) (manager.Job, bool)
	Load(ctx context.Context, modelName string) error
	Available() ([]types.Model, string)
	Ready() bool
}

// NewMux builds the router: /transcribe, /transcription_status,
// /transcription_result, /load, /list, /healthz, /readyz, /metrics.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	r.Use(accessLog)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Post("/transcribe", func(w http.ResponseWriter, r *http.Request) { handleTranscribe(svc, w, r) })
	r.Post("/transcription_status", func(w http.ResponseWriter, r *http.Request) { handleStatus(svc, w, r) })
	r.Post("/transcription_result", func(w http.ResponseWriter, r *http.Request) { handleResult(svc, w, r) })
	r.Post("/load", func(w http.ResponseWriter, r *http.Request) { handleLoad(svc, w, r) })

	r.Get("/list", func(w http.ResponseWriter, r *http.Request) {
		models, def := svc.Available()
		writeJSON(w, types.ListResponse{Models: models, DefaultModel: def})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no models"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleTranscribe accepts a multipart form: file (required audio
// payload), model (optional logical name), task_options and
// module_options (optional JSON option layers). It responds with the
// job id immediately; transcription happens in the background.
func handleTranscribe(svc Service, w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONErrorKind(w, http.StatusBadRequest, "invalid multipart form", types.ErrKindInvalidRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSONErrorKind(w, http.StatusBadRequest, "file field is required", types.ErrKindInvalidRequest)
		return
	}
	defer file.Close()

	var taskOpts, moduleOpts types.Options
	if raw := r.FormValue("task_options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &taskOpts); err != nil {
			writeJSONErrorKind(w, http.StatusBadRequest, "invalid task_options JSON", types.ErrKindInvalidRequest)
			return
		}
	}
	if raw := r.FormValue("module_options"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &moduleOpts); err != nil {
			writeJSONErrorKind(w, http.StatusBadRequest, "invalid module_options JSON", types.ErrKindInvalidRequest)
			return
		}
	}

	tmpPath, err := saveUpload(file, hdr.Filename)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	id, err := svc.Submit(manager.SubmitRequest{
		ModelName:     r.FormValue("model"),
		AudioPath:     tmpPath,
		RemoveAudio:   true,
		ModuleOptions: moduleOpts,
		TaskOptions:   taskOpts,
	})
	if err != nil {
		// Validation failed before any job existed; the upload is ours
		// to clean up.
		_ = os.Remove(tmpPath)
		writeManagerError(w, err)
		return
	}
	writeJSON(w, types.SubmitResponse{JobID: id, Status: types.JobProcessing})
}

func handleStatus(svc Service, w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStatusRequest(w, r)
	if !ok {
		return
	}
	job, found := svc.Job(req.JobID)
	if !found {
		writeJSONError(w, http.StatusNotFound, "job not found: "+req.JobID)
		return
	}
	resp := types.StatusResponse{
		JobID:       job.ID,
		Status:      job.State,
		ErrorKind:   job.ErrorKind,
		Error:       job.Error,
		CreatedUnix: job.Created.Unix(),
	}
	if !job.Finished.IsZero() {
		resp.FinishedUnix = job.Finished.Unix()
	}
	writeJSON(w, resp)
}

func handleResult(svc Service, w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStatusRequest(w, r)
	if !ok {
		return
	}
	job, found := svc.Job(req.JobID)
	if !found {
		writeJSONError(w, http.StatusNotFound, "job not found: "+req.JobID)
		return
	}
	if job.State != types.JobCompleted || job.Result == nil {
		writeJSONError(w, http.StatusNotFound, "no result for job "+req.JobID+" (status: "+string(job.State)+")")
		return
	}
	switch strings.ToLower(req.Format) {
	case "", "json":
		writeJSON(w, types.ResultResponse{JobID: job.ID, Text: job.Result.Text, Segments: job.Result.Segments})
	case "text":
		writePlain(w, job.Result.AsText())
	case "srt":
		writePlain(w, job.Result.AsSRT())
	case "vtt":
		writePlain(w, job.Result.AsVTT())
	default:
		writeJSONErrorKind(w, http.StatusBadRequest, "unknown format: "+req.Format, types.ErrKindInvalidRequest)
	}
}

func handleLoad(svc Service, w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONErrorKind(w, http.StatusBadRequest, "invalid JSON body", types.ErrKindInvalidRequest)
		return
	}
	// Join server base context with request context so shutdown cancels
	// a pending pre-warm too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if err := svc.Load(ctx, req.ModelName); err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		writeManagerError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok", "model_name": req.ModelName})
}

// decodeStatusRequest reads the shared {job_id} body of the two polling
// endpoints. Returns ok=false after writing the error response.
func decodeStatusRequest(w http.ResponseWriter, r *http.Request) (types.StatusRequest, bool) {
	var req types.StatusRequest
	if !requireJSON(w, r) {
		return req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONErrorKind(w, http.StatusBadRequest, "invalid JSON body", types.ErrKindInvalidRequest)
		return req, false
	}
	if strings.TrimSpace(req.JobID) == "" {
		writeJSONErrorKind(w, http.StatusBadRequest, "job_id is required", types.ErrKindInvalidRequest)
		return req, false
	}
	return req, true
}

func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONErrorKind(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", types.ErrKindInvalidRequest)
		return false
	}
	return true
}

// saveUpload copies the multipart payload into a job-local temp file
// and returns its path. The extension is preserved so the engine can
// sniff the container format.
func saveUpload(src io.Reader, name string) (string, error) {
	ext := filepath.Ext(name)
	f, err := os.CreateTemp("", "whisperd-upload-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

func writePlain(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, s)
}
