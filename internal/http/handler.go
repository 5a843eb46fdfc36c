// Package http serves rendered preview frames over HTTP.
package http

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/heatflux-movie/internal/domain"
	"go.ngs.io/heatflux-movie/internal/usecase"
)

// Handler handles HTTP requests for frame previews.
type Handler struct {
	previewUC *usecase.PreviewUseCase
}

// NewHandler creates a new HTTP handler.
func NewHandler(previewUC *usecase.PreviewUseCase) *Handler {
	return &Handler{
		previewUC: previewUC,
	}
}

// GetDataset handles GET /v1/dataset.
func (h *Handler) GetDataset(c *gin.Context) {
	c.JSON(http.StatusOK, h.previewUC.Dataset())
}

// GetFrame handles GET /v1/frames/:timepoint.
func (h *Handler) GetFrame(c *gin.Context) {
	t, ok := parseTimepoint(c)
	if !ok {
		return
	}

	state, img, err := h.previewUC.Frame(t)
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to encode frame: %v", err)})
		return
	}
	c.Header("X-Frame-Date", state.Date)
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// EventResponse is one marker of a frame.
type EventResponse struct {
	Col   float64 `json:"col"`
	Row   float64 `json:"row"`
	Z     float64 `json:"z"`
	Label string  `json:"label"`
}

// GetEvents handles GET /v1/events/:timepoint.
func (h *Handler) GetEvents(c *gin.Context) {
	t, ok := parseTimepoint(c)
	if !ok {
		return
	}

	a, err := h.previewUC.Events(t)
	if err != nil {
		writeError(c, err)
		return
	}

	response := make([]EventResponse, a.Len())
	for i, p := range a.Points {
		response[i] = EventResponse{
			Col:   p.X,
			Row:   p.Y,
			Z:     p.Z,
			Label: a.Labels[i],
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"timepoint": t,
		"events":    response,
		"count":     len(response),
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func parseTimepoint(c *gin.Context) (int, bool) {
	t, err := strconv.Atoi(c.Param("timepoint"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid timepoint: %v", err)})
		return 0, false
	}
	return t, true
}

func writeError(c *gin.Context, err error) {
	var mce *domain.MeshConstructionError
	switch {
	case errors.Is(err, usecase.ErrTimepointOutOfRange):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptySlice):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &mce):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "attempts": mce.Attempts})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
