package livestate

import (
	"github.com/gin-gonic/gin"

	"github.com/crowdcue/backend/pkg/response"
)

// SourceRequest is the body for PATCH /events/:id/live/source.
type SourceRequest struct {
	SessionID string `json:"session_id"`
	PollID    string `json:"poll_id"`
}

// Handler exposes the live snapshot over HTTP for on-air output displays.
type Handler struct {
	projector *Projector
}

// NewHandler creates a live state handler.
func NewHandler(projector *Projector) *Handler {
	return &Handler{projector: projector}
}

// Get handles GET /events/:id/live (public; output displays poll this).
func (h *Handler) Get(c *gin.Context) {
	ls, err := h.projector.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, ls)
}

// SelectSource handles PATCH /events/:id/live/source (moderator).
func (h *Handler) SelectSource(c *gin.Context) {
	var req SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventID := c.Param("id")
	if err := h.projector.SelectCSVSource(c.Request.Context(), eventID, req.SessionID, req.PollID); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"event_id": eventID})
}
