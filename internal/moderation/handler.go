package moderation

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/internal/realtime"
	"github.com/crowdcue/backend/pkg/queue"
	"github.com/crowdcue/backend/pkg/response"
)

// OrderRequest is the body for PATCH /submissions/:id/order. Order is a
// pointer so an explicit 0 survives the required binding.
type OrderRequest struct {
	Order *int `json:"order" binding:"required"`
}

// AnnotateRequest is the body for PATCH /submissions/:id/annotate.
type AnnotateRequest struct {
	Answer *string `json:"answer"`
	Notes  *string `json:"notes"`
}

// ResetRequest is the body for POST /events/:id/submissions/reset. Reset is
// irreversible, so the caller must confirm explicitly.
type ResetRequest struct {
	Confirm bool `json:"confirm"`
}

// Handler handles moderation HTTP endpoints.
type Handler struct {
	service *Service
	hub     *realtime.Hub
	jobs    *queue.Queue
	logger  *zap.Logger
}

// NewHandler creates a moderation handler. jobs may be nil when snapshot
// archiving is disabled.
func NewHandler(service *Service, hub *realtime.Hub, jobs *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, hub: hub, jobs: jobs, logger: logger}
}

// ListByEvent handles GET /events/:id/submissions (moderator).
func (h *Handler) ListByEvent(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"submissions": list})
}

// ListBySession handles GET /sessions/:id/submissions (moderator).
func (h *Handler) ListBySession(c *gin.Context) {
	list, err := h.service.ListBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"submissions": list})
}

// Approve handles PATCH /submissions/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	h.mutate(c, h.service.Approve)
}

// Reject handles PATCH /submissions/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	h.mutate(c, h.service.Reject)
}

// Queue handles PATCH /submissions/:id/queue.
func (h *Handler) Queue(c *gin.Context) {
	h.mutate(c, h.service.Queue)
}

// SetNext handles PATCH /submissions/:id/next.
func (h *Handler) SetNext(c *gin.Context) {
	h.mutate(c, h.service.SetNext)
}

// SetActive handles PATCH /submissions/:id/active. On success the live
// snapshot changed, so an archive job is enqueued as well.
func (h *Handler) SetActive(c *gin.Context) {
	sub, err := h.service.SetActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.broadcast(sub)
	h.archive(c.Request.Context(), sub.EventID)
	response.OK(c, sub)
}

// MarkDone handles PATCH /submissions/:id/done.
func (h *Handler) MarkDone(c *gin.Context) {
	h.mutate(c, h.service.MarkDone)
}

// SetQueueOrder handles PATCH /submissions/:id/order.
func (h *Handler) SetQueueOrder(c *gin.Context) {
	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sub, err := h.service.SetQueueOrder(c.Request.Context(), c.Param("id"), *req.Order)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.broadcast(sub)
	response.OK(c, sub)
}

// Annotate handles PATCH /submissions/:id/annotate.
func (h *Handler) Annotate(c *gin.Context) {
	var req AnnotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sub, err := h.service.Annotate(c.Request.Context(), c.Param("id"), req.Answer, req.Notes)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.broadcast(sub)
	response.OK(c, sub)
}

// Reset handles POST /events/:id/submissions/reset.
func (h *Handler) Reset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		response.BadRequest(c, "reset requires explicit confirmation")
		return
	}
	eventID := c.Param("id")
	count, err := h.service.ResetAll(c.Request.Context(), eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.hub.PublishToEventOnly(eventID, "moderation_changed", map[string]any{"reset": count})
	response.OK(c, gin.H{"reset": count})
}

// Delete handles DELETE /submissions/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) mutate(c *gin.Context, op func(context.Context, string) (*models.Submission, error)) {
	sub, err := op(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.broadcast(sub)
	response.OK(c, sub)
}

func (h *Handler) broadcast(sub *models.Submission) {
	h.hub.PublishToEventOnly(sub.EventID, "moderation_changed", map[string]any{
		"id": sub.ID, "status": sub.Status, "position": sub.Position, "queue_order": sub.QueueOrder,
	})
}

func (h *Handler) archive(ctx context.Context, eventID string) {
	if h.jobs == nil {
		return
	}
	if err := h.jobs.EnqueueSnapshotArchive(ctx, queue.SnapshotArchivePayload{EventID: eventID}); err != nil {
		h.logger.Warn("archive enqueue failed", zap.String("event_id", eventID), zap.Error(err))
	}
}
