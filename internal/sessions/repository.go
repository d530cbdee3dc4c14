package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/pkg/docstore"
)

// Repository handles session persistence in the shared qa collection.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a sessions repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Create inserts a new session.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.Kind = models.KindSession
	s.CreatedAt = time.Now().UTC()
	return r.store.Create(ctx, models.CollectionQA, s.ID, s)
}

// GetByID returns the session with the given id. A qa document of the
// wrong kind yields ErrInvalidState so callers can distinguish "absent"
// from "that id is a submission".
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	raw, err := r.store.Get(ctx, models.CollectionQA, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
		}
		return nil, err
	}
	if kind := models.InferKind(raw); kind != models.KindSession {
		return nil, fmt.Errorf("%w: document %s is not a session", models.ErrInvalidState, id)
	}
	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByEvent returns all sessions under an event.
func (r *Repository) ListByEvent(ctx context.Context, eventID string) ([]models.Session, error) {
	raws, err := r.store.Query(ctx, models.CollectionQA, "eventId", eventID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Session, 0)
	for _, raw := range raws {
		if models.InferKind(raw) != models.KindSession {
			continue
		}
		var s models.Session
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Update merges the mutable session configuration fields.
func (r *Repository) Update(ctx context.Context, id string, patch map[string]any) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return r.store.Merge(ctx, models.CollectionQA, id, patch)
}

// Delete removes the session container. Submissions keep their event
// linkage; there is no cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return r.store.Delete(ctx, models.CollectionQA, id)
}

// BackfillLinks stamps the sentinel session id onto legacy submissions that
// predate session linking. Run once at startup so read paths never have to
// branch on a missing link.
func (r *Repository) BackfillLinks(ctx context.Context, logger *zap.Logger) error {
	raws, err := r.store.Query(ctx, models.CollectionQA, "kind", string(models.KindSubmission))
	if err != nil {
		return err
	}
	backfilled := 0
	for _, raw := range raws {
		var sub models.Submission
		if err := json.Unmarshal(raw, &sub); err != nil {
			continue
		}
		if sub.SessionID != "" {
			continue
		}
		if err := r.store.Merge(ctx, models.CollectionQA, sub.ID, map[string]any{
			"sessionId": models.SessionUnassigned,
		}); err != nil {
			logger.Warn("session backfill failed", zap.String("submission_id", sub.ID), zap.Error(err))
			continue
		}
		backfilled++
	}
	if backfilled > 0 {
		logger.Info("backfilled session links", zap.Int("count", backfilled))
	}
	return nil
}
