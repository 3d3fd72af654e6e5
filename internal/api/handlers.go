package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"ytmp3server/internal/core/domain"
	"ytmp3server/internal/registry"
	"ytmp3server/internal/service"
)

// App exposes the orchestrator and registry over HTTP.
type App struct {
	logger   *log.Logger
	router   *chi.Mux
	orch     *service.Orchestrator
	registry *registry.Registry
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewApp builds the router and subscribes the websocket hub to task updates.
func NewApp(orch *service.Orchestrator, logger *log.Logger) *App {
	app := &App{
		logger:   logger,
		router:   chi.NewRouter(),
		orch:     orch,
		registry: orch.Registry(),
		hub:      NewHub(logger),
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(nil)},
	}
	app.registry.Subscribe(app.hub.Broadcast)
	app.registerRoutes()
	return app
}

// AllowOrigins lets websocket clients from the given origins connect in
// addition to same-origin pages. "*" allows any origin.
func (a *App) AllowOrigins(origins ...string) *App {
	a.upgrader.CheckOrigin = originChecker(origins)
	return a
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler {
	return a.router
}

// Hub returns the websocket hub.
func (a *App) Hub() *Hub {
	return a.hub
}

func (a *App) registerRoutes() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: a.logger, NoColor: true}))
	a.router.Use(middleware.Recoverer)

	a.router.Get("/healthz", a.health)
	a.router.Get("/formats", a.formats)
	a.router.Get("/videos/{videoID}", a.videoInfo)

	a.router.Route("/downloads", func(r chi.Router) {
		r.Post("/", a.startDownload)
		r.Get("/", a.listTasks)
		r.Get("/{id}", a.getTask)
		r.Delete("/{id}", a.cancelDownload)
	})

	a.router.Get("/ws/downloads", a.watchAll)
	a.router.Get("/ws/downloads/{id}", a.watchTask)
}

type downloadRequest struct {
	URL       string `json:"url"`
	Quality   string `json:"quality,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
	// Wait blocks the request until the extraction finishes.
	Wait bool `json:"wait,omitempty"`
}

type taskResponse struct {
	domain.Task
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

func newTaskResponse(t domain.Task) taskResponse {
	return taskResponse{Task: t, ElapsedSeconds: t.TotalSeconds()}
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	running, limit := a.orch.Capacity()
	a.respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"tasks":     a.registry.Len(),
		"running":   running,
		"limit":     limit,
	})
}

func (a *App) formats(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]any{
		"default": a.orch.DefaultQuality(),
		"formats": a.orch.Formats(),
	})
}

func (a *App) videoInfo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	video, err := a.orch.VideoInfo(r.Context(), domain.WatchURL(videoID))
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, map[string]any{
		"video":    video,
		"duration": video.FormattedDuration(),
	})
}

func (a *App) startDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "missing video url", http.StatusBadRequest)
		return
	}

	if req.Wait {
		path, err := a.orch.Run(r.Context(), req.URL, req.Quality, req.OutputDir, nil)
		if err != nil {
			a.respondError(w, err)
			return
		}
		a.respondJSON(w, http.StatusOK, map[string]string{"output_path": path})
		return
	}

	task, err := a.orch.Start(r.Context(), req.URL, req.Quality, req.OutputDir)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusAccepted, newTaskResponse(task))
}

func (a *App) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks := a.registry.ListAll()
	if r.URL.Query().Get("active") == "true" {
		tasks = a.registry.ListActive()
	}
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, newTaskResponse(t))
	}
	a.respondJSON(w, http.StatusOK, out)
}

func (a *App) getTask(w http.ResponseWriter, r *http.Request) {
	task, ok := a.registry.GetTask(chi.URLParam(r, "id"))
	if !ok {
		a.respondError(w, domain.ErrTaskNotFound)
		return
	}
	a.respondJSON(w, http.StatusOK, newTaskResponse(task))
}

func (a *App) cancelDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.registry.CancelTask(id); err != nil {
		a.respondError(w, err)
		return
	}
	a.logger.Printf("[TASK %s] Cancelled by caller", id)
	a.respondJSON(w, http.StatusOK, map[string]any{"task_id": id, "cancelled": true})
}

func (a *App) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Printf("ERROR: failed to encode json: %v", err)
	}
}

func (a *App) respondError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.logger.Printf("ERROR: %v", err)
	}
	a.respondJSON(w, code, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidQuality):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCancelRefused):
		return http.StatusConflict
	case errors.Is(err, domain.ErrMetadata), errors.Is(err, domain.ErrExtraction):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
