// Package submissions provides persistence for question submissions in the
// shared qa collection. Intake creates them, moderation sequences them, the
// reconciler and analytics read them.
package submissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/pkg/docstore"
)

// Repository handles submission persistence.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a submissions repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Create inserts a new submission.
func (r *Repository) Create(ctx context.Context, s *models.Submission) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.Kind = models.KindSubmission
	s.CreatedAt = time.Now().UTC()
	return r.store.Create(ctx, models.CollectionQA, s.ID, s)
}

// GetByID returns the submission with the given id.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	raw, err := r.store.Get(ctx, models.CollectionQA, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: submission %s", models.ErrNotFound, id)
		}
		return nil, err
	}
	if models.InferKind(raw) != models.KindSubmission {
		return nil, fmt.Errorf("%w: document %s is not a submission", models.ErrInvalidState, id)
	}
	var s models.Submission
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByEvent returns all submissions under an event, in store order.
func (r *Repository) ListByEvent(ctx context.Context, eventID string) ([]models.Submission, error) {
	return r.list(ctx, "eventId", eventID)
}

// ListBySession returns all submissions linked to a session.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]models.Submission, error) {
	return r.list(ctx, "sessionId", sessionID)
}

func (r *Repository) list(ctx context.Context, field, value string) ([]models.Submission, error) {
	raws, err := r.store.Query(ctx, models.CollectionQA, field, value)
	if err != nil {
		return nil, err
	}
	out := make([]models.Submission, 0)
	for _, raw := range raws {
		if models.InferKind(raw) != models.KindSubmission {
			continue
		}
		var s models.Submission
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Patch merges fields onto a single submission document. This is the only
// write primitive moderation has, so every multi-document operation is a
// sequence of these, with the partial-failure semantics that implies.
func (r *Repository) Patch(ctx context.Context, id string, patch map[string]any) error {
	err := r.store.Merge(ctx, models.CollectionQA, id, patch)
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: submission %s", models.ErrNotFound, id)
	}
	return err
}

// Delete permanently removes a submission.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return r.store.Delete(ctx, models.CollectionQA, id)
}

// MaxQueueOrder returns the highest queueOrder ever assigned in the event,
// 0 when none. Computed across all statuses so an order number is never
// reused, even after a reset returns its holder to pending.
func (r *Repository) MaxQueueOrder(ctx context.Context, eventID string) (int, error) {
	subs, err := r.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, s := range subs {
		if s.QueueOrder > max {
			max = s.QueueOrder
		}
	}
	return max, nil
}
