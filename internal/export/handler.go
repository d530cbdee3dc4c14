package export

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crowdcue/backend/internal/models"
)

// Source reads the live snapshot for an event. Satisfied by the in-process
// projector and by the standalone exporter's REST fallback.
type Source interface {
	Get(ctx context.Context, eventID string) (*models.LiveState, error)
}

// Handler serves the live Q&A CSV endpoint.
type Handler struct {
	source Source
	logger *zap.Logger
}

// NewHandler creates a CSV export handler.
func NewHandler(source Source, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{source: source, logger: logger}
}

// LiveQA handles GET /live/qa.csv?eventId=<id>. Errors are plain text; the
// success body is BOM-prefixed CSV. An event without a snapshot yet renders
// the placeholder row, not an error, so spreadsheet timers keep working.
func (h *Handler) LiveQA(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")

	eventID := c.Query("eventId")
	if eventID == "" {
		c.String(http.StatusBadRequest, "missing eventId parameter")
		return
	}

	ls, err := h.source.Get(c.Request.Context(), eventID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		h.logger.Error("live state read failed", zap.String("event_id", eventID), zap.Error(err))
		c.String(http.StatusInternalServerError, "failed to read live state")
		return
	}

	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(Render(ls)))
}
