package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PullbackScanner/internal/model"
)

// Source serves the most recent scan.
type Source interface {
	Latest() *model.ScanRun
	Category(c model.Category) []model.ScanResult
}

// Runner starts an on-demand scan; false means one is already running.
type Runner interface {
	Trigger() bool
}

// API is the read-mostly dashboard over the latest scan.
type API struct {
	Source   Source
	Runner   Runner
	Gatherer prometheus.Gatherer
}

// Router builds the chi router with all routes mounted.
func (api *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, "healthy")
	})

	r.Route("/api/scan", func(r chi.Router) {
		r.Get("/latest", api.HandleLatest)
		r.Get("/latest/{category}", api.HandleCategory)
		r.Post("/run", api.HandleRun)
	})

	if api.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(api.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (api *API) HandleLatest(w http.ResponseWriter, r *http.Request) {
	run := api.Source.Latest()
	if run == nil {
		WriteError(w, http.StatusNotFound, "no scan has completed yet")
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

func (api *API) HandleCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := model.ParseCategory(chi.URLParam(r, "category"))
	if !ok {
		WriteError(w, http.StatusBadRequest, "unknown category")
		return
	}
	run := api.Source.Latest()
	if run == nil {
		WriteError(w, http.StatusNotFound, "no scan has completed yet")
		return
	}
	results := api.Source.Category(c)
	if results == nil {
		results = []model.ScanResult{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scan_id":  run.ID,
		"category": c,
		"results":  results,
	})
}

func (api *API) HandleRun(w http.ResponseWriter, r *http.Request) {
	if api.Runner == nil {
		WriteError(w, http.StatusServiceUnavailable, "scanning disabled")
		return
	}
	if !api.Runner.Trigger() {
		WriteError(w, http.StatusConflict, "scan already in progress")
		return
	}
	WriteJSON(w, http.StatusAccepted, "scan started")
}

// WriteJSON writes data inside the success envelope.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// ListenAndServe serves handler on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] http shutdown: %v", err)
		}
	}()

	log.Printf("[INFO] dashboard listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
