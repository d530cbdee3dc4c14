package polls

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

// Collection is the document collection holding polls.
const Collection = "polls"

// Repository handles poll persistence.
type Repository struct {
	store docstore.Store
}

// NewRepository creates a polls repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Create inserts a new poll.
func (r *Repository) Create(ctx context.Context, p *models.Poll) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	for i := range p.Options {
		if p.Options[i].ID == "" {
			p.Options[i].ID = uuid.New().String()
		}
	}
	p.CreatedAt = time.Now().UTC()
	return r.store.Create(ctx, Collection, p.ID, p)
}

// GetByID returns a poll by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Poll, error) {
	var p models.Poll
	if err := docstore.GetAs(ctx, r.store, Collection, id, &p); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: poll %s", models.ErrNotFound, id)
		}
		return nil, err
	}
	return &p, nil
}

// ListByEvent returns all polls under an event.
func (r *Repository) ListByEvent(ctx context.Context, eventID string) ([]models.Poll, error) {
	raws, err := r.store.Query(ctx, Collection, "eventId", eventID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Poll, 0, len(raws))
	for _, raw := range raws {
		var p models.Poll
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Patch merges fields onto a poll document.
func (r *Repository) Patch(ctx context.Context, id string, patch map[string]any) error {
	err := r.store.Merge(ctx, Collection, id, patch)
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: poll %s", models.ErrNotFound, id)
	}
	return err
}

// Delete removes a poll permanently.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return r.store.Delete(ctx, Collection, id)
}
