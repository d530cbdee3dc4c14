package analytics

import (
	"github.com/gin-gonic/gin"

	"github.com/crowdcue/backend/internal/events"
	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/internal/polls"
	"github.com/crowdcue/backend/internal/submissions"
	"github.com/crowdcue/backend/pkg/response"
)

// Handler handles GET /events/:id/analytics.
type Handler struct {
	eventRepo *events.Repository
	subRepo   *submissions.Repository
	pollRepo  *polls.Repository
}

// NewHandler creates an analytics handler.
func NewHandler(eventRepo *events.Repository, subRepo *submissions.Repository, pollRepo *polls.Repository) *Handler {
	return &Handler{eventRepo: eventRepo, subRepo: subRepo, pollRepo: pollRepo}
}

// SummaryResponse is the JSON shape for per-event analytics.
type SummaryResponse struct {
	TotalSubmissions    int `json:"total_submissions"`
	PendingSubmissions  int `json:"pending_submissions"`
	ApprovedSubmissions int `json:"approved_submissions"`
	RejectedSubmissions int `json:"rejected_submissions"`
	QueuedSubmissions   int `json:"queued_submissions"`
	DoneSubmissions     int `json:"done_submissions"`
	TotalPolls          int `json:"total_polls"`
	TotalPollVotes      int `json:"total_poll_votes"`
	PeakAudience        int `json:"peak_audience"`
}

// GetByEvent handles GET /events/:id/analytics.
func (h *Handler) GetByEvent(c *gin.Context) {
	ctx := c.Request.Context()
	eventID := c.Param("id")

	event, err := h.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	subs, err := h.subRepo.ListByEvent(ctx, eventID)
	if err != nil {
		response.Internal(c, "failed to load submissions")
		return
	}

	out := SummaryResponse{
		TotalSubmissions: len(subs),
		PeakAudience:     event.PeakAudience,
	}
	for _, s := range subs {
		switch s.Status {
		case models.StatusPending:
			out.PendingSubmissions++
		case models.StatusApproved:
			out.ApprovedSubmissions++
		case models.StatusRejected:
			out.RejectedSubmissions++
		}
		if s.IsQueued() {
			out.QueuedSubmissions++
		}
		if s.Position == models.PositionDone {
			out.DoneSubmissions++
		}
	}

	pollList, err := h.pollRepo.ListByEvent(ctx, eventID)
	if err != nil {
		response.Internal(c, "failed to load polls")
		return
	}
	out.TotalPolls = len(pollList)
	for _, p := range pollList {
		out.TotalPollVotes += p.TotalVotes()
	}

	response.OK(c, out)
}
