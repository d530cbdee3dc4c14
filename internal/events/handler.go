package events

import (
	"github.com/gin-gonic/gin"

	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/pkg/response"
	"github.com/crowdcue/backend/pkg/storage"
)

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Name string `json:"name" binding:"required"`
}

// SheetConfigRequest is the body for PATCH /events/:id/sheet.
type SheetConfigRequest struct {
	WebAppURL     string `json:"web_app_url"`
	SheetName     string `json:"sheet_name"`
	BackupEnabled bool   `json:"backup_enabled"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo *Repository
	s3   *storage.S3
}

// NewHandler creates an events handler. s3 may be nil when snapshot
// archiving is disabled.
func NewHandler(repo *Repository, s3 *storage.S3) *Handler {
	return &Handler{repo: repo, s3: s3}
}

// Create handles POST /events (admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e := &models.Event{Name: req.Name}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, e)
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"events": list})
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	e, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, e)
}

// UpdateSheetConfig handles PATCH /events/:id/sheet (admin/moderator).
func (h *Handler) UpdateSheetConfig(c *gin.Context) {
	var req SheetConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	id := c.Param("id")
	if err := h.repo.UpdateSheetConfig(c.Request.Context(), id, req.WebAppURL, req.SheetName, req.BackupEnabled); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"id": id, "backup_enabled": req.BackupEnabled})
}

// DownloadSnapshot handles GET /events/:id/snapshot (moderator). Returns a
// pre-signed URL for the most recent archived CSV snapshot.
func (h *Handler) DownloadSnapshot(c *gin.Context) {
	if h.s3 == nil {
		response.NotFound(c, "snapshot archiving is not configured")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	if e.LastSnapshotKey == "" {
		response.NotFound(c, "no archived snapshot for event "+e.ID)
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.SnapshotsBucket(), e.LastSnapshotKey, h.s3.PresignExpire())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"url": url, "expires_in_seconds": int(h.s3.PresignExpire().Seconds())})
}

// Delete handles DELETE /events/:id (admin). The latest archived snapshot
// object is removed best-effort before the container goes.
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	if h.s3 != nil {
		if e, err := h.repo.GetByID(c.Request.Context(), id); err == nil && e.LastSnapshotKey != "" {
			_ = h.s3.DeleteObject(c.Request.Context(), h.s3.SnapshotsBucket(), e.LastSnapshotKey)
		}
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.NoContent(c)
}
