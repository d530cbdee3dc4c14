package intake

import (
	"github.com/gin-gonic/gin"

	"github.com/crowdcue/backend/internal/realtime"
	"github.com/crowdcue/backend/pkg/response"
)

// SubmitRequest is the body for POST /sessions/:id/submissions.
type SubmitRequest struct {
	Question       string `json:"question" binding:"required"`
	SubmitterName  string `json:"submitter_name"`
	SubmitterEmail string `json:"submitter_email"`
	Anonymous      bool   `json:"anonymous"`
}

// Handler handles public submission HTTP endpoints.
type Handler struct {
	service *Service
	hub     *realtime.Hub
}

// NewHandler creates an intake handler.
func NewHandler(service *Service, hub *realtime.Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

// Submit handles POST /sessions/:id/submissions (public).
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sub, err := h.service.Submit(c.Request.Context(), SubmitInput{
		SessionID:      c.Param("id"),
		Question:       req.Question,
		SubmitterName:  req.SubmitterName,
		SubmitterEmail: req.SubmitterEmail,
		Anonymous:      req.Anonymous,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	// Moderator views refresh by polling; the push is an optimization.
	h.hub.PublishToEventOnly(sub.EventID, "submission_created", map[string]any{
		"id": sub.ID, "session_id": sub.SessionID, "question": sub.Question, "status": sub.Status,
	})
	response.Created(c, sub)
}
