package polls

import (
	"github.com/gin-gonic/gin"

	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/internal/realtime"
	"github.com/crowdcue/backend/pkg/response"
)

// CreateRequest is the body for POST /events/:id/polls.
type CreateRequest struct {
	Title   string          `json:"title" binding:"required"`
	Type    models.PollType `json:"type" binding:"required"`
	Options []OptionRequest `json:"options" binding:"required"`
	Display map[string]any  `json:"display"`
}

// OptionRequest is one poll option in a create request.
type OptionRequest struct {
	Text     string `json:"text" binding:"required"`
	ImageURL string `json:"image_url"`
}

// VoteRequest is the body for POST /polls/:id/votes.
type VoteRequest struct {
	OptionIDs []string `json:"option_ids" binding:"required"`
}

// Handler handles poll HTTP endpoints.
type Handler struct {
	service *Service
	hub     *realtime.Hub
}

// NewHandler creates a polls handler.
func NewHandler(service *Service, hub *realtime.Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

// Create handles POST /events/:id/polls (moderator).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := &models.Poll{
		EventID: c.Param("id"),
		Title:   req.Title,
		Type:    req.Type,
		Display: req.Display,
	}
	for _, o := range req.Options {
		p.Options = append(p.Options, models.PollOption{Text: o.Text, ImageURL: o.ImageURL})
	}
	if err := h.service.Create(c.Request.Context(), p); err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, p)
}

// ListByEvent handles GET /events/:id/polls (moderator).
func (h *Handler) ListByEvent(c *gin.Context) {
	list, err := h.service.ListByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"polls": list})
}

// GetActive handles GET /events/:id/polls/active (public voting view).
func (h *Handler) GetActive(c *gin.Context) {
	p, err := h.service.GetActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, p)
}

// Activate handles PATCH /polls/:id/activate (moderator).
func (h *Handler) Activate(c *gin.Context) {
	p, err := h.service.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.hub.PublishToEventOnly(p.EventID, "poll_activated", map[string]any{"id": p.ID, "title": p.Title})
	response.OK(c, p)
}

// Deactivate handles PATCH /polls/:id/deactivate (moderator).
func (h *Handler) Deactivate(c *gin.Context) {
	p, err := h.service.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.hub.PublishToEventOnly(p.EventID, "poll_deactivated", map[string]any{"id": p.ID})
	response.OK(c, p)
}

// Vote handles POST /polls/:id/votes (public).
func (h *Handler) Vote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.service.SubmitVotes(c.Request.Context(), c.Param("id"), req.OptionIDs)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.hub.PublishToEventOnly(p.EventID, "poll_votes", map[string]any{"id": p.ID, "options": p.Options})
	response.OK(c, p)
}

// Delete handles DELETE /polls/:id (moderator).
func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}
