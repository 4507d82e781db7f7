package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/domain"
	"github.com/andresuchdata/autopo-py/forecast-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CacheHeader reports HIT or MISS for forecast responses.
const CacheHeader = "X-Cache"

type ForecastHandler struct {
	forecastService *service.ForecastService
}

func NewForecastHandler(forecastService *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{forecastService: forecastService}
}

// Predict answers {"days_count": N, "events": [...]} with {"summary": ..., "items": [...]}.
func (h *ForecastHandler) Predict(c *gin.Context) {
	resp, ok := h.run(c, service.ParsePredictRequest)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Forecast answers [{"days_count": N}, event, ...] with [summary, item, ...].
func (h *ForecastHandler) Forecast(c *gin.Context) {
	resp, ok := h.run(c, service.ParseForecastRequest)
	if !ok {
		return
	}

	rows := make([]interface{}, 0, len(resp.Items)+1)
	rows = append(rows, resp.Summary)
	for _, item := range resp.Items {
		rows = append(rows, item)
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ForecastHandler) run(c *gin.Context, parse func([]byte) (*domain.ForecastRequest, error)) (*domain.ForecastResponse, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return nil, false
	}

	req, err := parse(body)
	if err != nil {
		writeError(c, err)
		return nil, false
	}

	resp, cached, err := h.forecastService.Forecast(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return nil, false
	}

	if cached {
		c.Header(CacheHeader, "HIT")
	} else {
		c.Header(CacheHeader, "MISS")
	}
	return resp, true
}

// Metrics returns the corpus-wide accuracy summary.
func (h *ForecastHandler) Metrics(c *gin.Context) {
	summary, err := h.forecastService.MetricsSummary()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ForecastHandler) Health(c *gin.Context) {
	health := h.forecastService.Health(c.Request.Context())
	status := http.StatusOK
	if !health.DatasetLoaded {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

func writeError(c *gin.Context, err error) {
	var malformedErr *service.MalformedRequestError
	switch {
	case errors.As(err, &malformedErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": malformedErr.Error()})
	case errors.Is(err, service.ErrDatasetNotLoaded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("forecast request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
