package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/ftahirops/smartdash/engine"
	"github.com/ftahirops/smartdash/model"
)

// server exposes an output directory over HTTP.
type server struct {
	src        engine.Source
	normalizer *engine.Normalizer
	history    *engine.History // optional
	metrics    *engine.MetricsStore
	started    time.Time
}

func newServer(outputDir string, n *engine.Normalizer, hist *engine.History) *server {
	return &server{
		src:        engine.DirSource{Dir: outputDir},
		normalizer: n,
		history:    hist,
		metrics:    engine.NewMetricsStore(),
		started:    time.Now(),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// A browser dashboard on another origin reads the files directly.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/"+model.IndexFileName, s.handleFile)
	r.Get("/{file}", s.handleFile)

	r.Route("/api", func(r chi.Router) {
		r.Get("/devices", s.handleDevices)
		r.Get("/devices/{id}", s.handleDevice)
		r.Get("/history/{id}", s.handleHistory)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"error": message, "code": status})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

// handleFile serves index.json and <name>_smart.json verbatim.
func (s *server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	if name == "" {
		name = model.IndexFileName
	}
	if name != model.IndexFileName && !strings.HasSuffix(name, model.DeviceFileSuffix) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	data, err := s.src.Open(r.Context(), name)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, name+" not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

// load reads the current snapshot and refreshes the metrics store.
func (s *server) load(ctx context.Context) (engine.LoadResult, error) {
	res, err := s.normalizer.Load(ctx, s.src)
	if err != nil {
		return res, err
	}
	s.metrics.Update(res)
	return res, nil
}

type fileErrorJSON struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func (s *server) handleDevices(w http.ResponseWriter, r *http.Request) {
	res, err := s.load(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	errs := make([]fileErrorJSON, 0, len(res.Errors))
	for _, e := range res.Errors {
		errs = append(errs, fileErrorJSON{File: e.File, Error: e.Err.Error()})
	}
	devices := res.Records
	if devices == nil {
		devices = []model.DeviceHealthRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"index":   res.Index,
		"devices": devices,
		"errors":  errs,
	})
}

func (s *server) handleDevice(w http.ResponseWriter, r *http.Request) {
	res, err := s.load(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	rec, ok := engine.FindRecord(res.Records, chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history is disabled; set -history-db")
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := s.history.DeviceHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []engine.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if _, err := s.load(r.Context()); err != nil {
		log.Debug().Err(err).Msg("metrics scrape without a readable index")
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}

// runServe serves the output directory until SIGINT/SIGTERM. With -daemon
// it also keeps collecting in the background.
func runServe(ctx context.Context, opts *options) error {
	cfg := opts.cfg
	hist, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if hist != nil {
		defer hist.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := newServer(cfg.OutputDir, engine.NewNormalizer(thresholds(cfg)), hist)
	srv := &http.Server{
		Addr:         cfg.ServeAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	daemonDone := make(chan error, 1)
	if opts.daemon {
		go func() { daemonDone <- engine.RunDaemon(ctx, daemonConfig(cfg, hist)) }()
	} else {
		close(daemonDone)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ServeAddr).Str("dir", cfg.OutputDir).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	os.Stderr.WriteString("smartdash serving " + cfg.OutputDir + " on " + cfg.ServeAddr + "\n")

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			<-daemonDone
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	stop()
	<-daemonDone
	return nil
}
