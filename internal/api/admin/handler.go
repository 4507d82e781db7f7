package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/backtest"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/pipeline"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/service"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service      *service.ForecastService
	runner       *backtest.Runner
	backtestDays int
}

// NewHandler builds the admin handler. runner may be nil to disable /admin/backtest.
func NewHandler(forecastService *service.ForecastService, runner *backtest.Runner, backtestDays int) *Handler {
	if backtestDays < 1 {
		backtestDays = 7
	}
	return &Handler{
		service:      forecastService,
		runner:       runner,
		backtestDays: backtestDays,
	}
}

// NewRouter returns a mux router with the admin routes and request logging.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogger)
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/calibration", h.GetCalibration).Methods("GET")
	router.HandleFunc("/admin/calibration", h.UpdateCalibration).Methods("POST")
	router.HandleFunc("/admin/cache", h.FlushCache).Methods("DELETE")
	router.HandleFunc("/admin/cache/invalidate", h.InvalidateItems).Methods("POST")
	router.HandleFunc("/admin/cache/stats", h.CacheStats).Methods("GET")
	router.HandleFunc("/admin/reload", h.Reload).Methods("POST")
	router.HandleFunc("/admin/backtest", h.Backtest).Methods("GET")
}

func (h *Handler) GetCalibration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Settings())
}

func (h *Handler) UpdateCalibration(w http.ResponseWriter, r *http.Request) {
	var update pipeline.SettingsUpdate
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid body: %v", err)})
		return
	}

	old, updated, err := h.service.UpdateSettings(update)
	if err != nil {
		var cfgErr *pipeline.ConfigValidationError
		if errors.As(err, &cfgErr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": cfgErr.Error(),
				"field": cfgErr.Field,
			})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]pipeline.Settings{"old": old, "new": updated})
}

// FlushCache deletes forecast entries matching ?pattern= (all entries by default).
func (h *Handler) FlushCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}
	deleted := h.service.Cache().InvalidateByPattern(r.Context(), pattern)
	writeJSON(w, http.StatusOK, map[string]interface{}{"pattern": pattern, "deleted": deleted})
}

func (h *Handler) InvalidateItems(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []string `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items must be a non-empty list of SKU names"})
		return
	}
	deleted := h.service.Cache().InvalidateForItems(r.Context(), body.Items)
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": body.Items, "deleted": deleted})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Cache().Stats(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("cache stats unavailable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reload(r.Context()); err != nil {
		log.Error().Err(err).Msg("dataset reload failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("reload failed: %v", err)})
		return
	}
	writeJSON(w, http.StatusOK, h.service.Health(r.Context()))
}

// Backtest runs ?start=YYYY-MM-DD&days=N. With ?download=1 the encoded report
// is returned instead of JSON.
func (h *Handler) Backtest(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "backtest is not configured"})
		return
	}

	query := r.URL.Query()
	start, err := time.Parse("2006-01-02", query.Get("start"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be a YYYY-MM-DD date"})
		return
	}

	days := h.backtestDays
	if raw := query.Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 1 || days > service.MaxHorizon {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("days must be between 1 and %d", service.MaxHorizon),
			})
			return
		}
	}

	report, err := h.runner.Run(r.Context(), start, days)
	if err != nil {
		if h.service.Dataset() == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if download, _ := strconv.ParseBool(query.Get("download")); download {
		data, err := backtest.Encode(report.Rows, report.Format)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		contentType := "text/csv"
		if report.Format == backtest.FormatXLSX {
			contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s",
			backtest.ReportKey("", report.Start, report.Days, report.Format)))
		if _, err := w.Write(data); err != nil {
			log.Error().Err(err).Msg("failed to write backtest download")
		}
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode admin response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("latency", time.Since(start)).
			Msg("Admin request processed")
	})
}
