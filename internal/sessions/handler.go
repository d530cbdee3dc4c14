package sessions

import (
	"github.com/gin-gonic/gin"

	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/pkg/response"
)

// CreateRequest is the body for POST /events/:id/sessions.
type CreateRequest struct {
	Name                   string         `json:"name" binding:"required"`
	CollectName            bool           `json:"collect_name"`
	CollectEmail           bool           `json:"collect_email"`
	AllowAnonymous         bool           `json:"allow_anonymous"`
	EnablePublicSubmission bool           `json:"enable_public_submission"`
	IsActiveForPublic      bool           `json:"is_active_for_public"`
	Display                map[string]any `json:"display"`
}

// UpdateRequest is the body for PATCH /sessions/:id. Pointers distinguish
// "absent" from "set to false".
type UpdateRequest struct {
	Name                   *string `json:"name"`
	CollectName            *bool   `json:"collect_name"`
	CollectEmail           *bool   `json:"collect_email"`
	AllowAnonymous         *bool   `json:"allow_anonymous"`
	EnablePublicSubmission *bool   `json:"enable_public_submission"`
	IsActiveForPublic      *bool   `json:"is_active_for_public"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a sessions handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Create handles POST /events/:id/sessions (moderator).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := &models.Session{
		EventID:                c.Param("id"),
		Name:                   req.Name,
		CollectName:            req.CollectName,
		CollectEmail:           req.CollectEmail,
		AllowAnonymous:         req.AllowAnonymous,
		EnablePublicSubmission: req.EnablePublicSubmission,
		IsActiveForPublic:      req.IsActiveForPublic,
		Display:                req.Display,
	}
	if err := h.repo.Create(c.Request.Context(), s); err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, s)
}

// ListByEvent handles GET /events/:id/sessions.
func (h *Handler) ListByEvent(c *gin.Context) {
	list, err := h.repo.ListByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"sessions": list})
}

// GetByID handles GET /sessions/:id (public view for the submission form).
func (h *Handler) GetByID(c *gin.Context) {
	s, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, s)
}

// Update handles PATCH /sessions/:id (moderator).
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	patch := map[string]any{}
	if req.Name != nil {
		patch["name"] = *req.Name
	}
	if req.CollectName != nil {
		patch["collectName"] = *req.CollectName
	}
	if req.CollectEmail != nil {
		patch["collectEmail"] = *req.CollectEmail
	}
	if req.AllowAnonymous != nil {
		patch["allowAnonymous"] = *req.AllowAnonymous
	}
	if req.EnablePublicSubmission != nil {
		patch["enablePublicSubmission"] = *req.EnablePublicSubmission
	}
	if req.IsActiveForPublic != nil {
		patch["isActiveForPublic"] = *req.IsActiveForPublic
	}
	if len(patch) == 0 {
		response.BadRequest(c, "no fields to update")
		return
	}
	if err := h.repo.Update(c.Request.Context(), c.Param("id"), patch); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"id": c.Param("id")})
}

// Delete handles DELETE /sessions/:id (moderator).
func (h *Handler) Delete(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}
