package events

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

// Collection is the document collection holding event containers.
const Collection = "events"

// Repository handles event persistence.
type Repository struct {
	store docstore.Store
}

// NewRepository creates an events repository.
func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Create inserts a new event. Assigns id and createdAt.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.Kind = models.KindEvent
	e.CreatedAt = time.Now().UTC()
	return r.store.Create(ctx, Collection, e.ID, e)
}

// GetByID returns an event by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	var e models.Event
	if err := docstore.GetAs(ctx, r.store, Collection, id, &e); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: event %s", models.ErrNotFound, id)
		}
		return nil, err
	}
	return &e, nil
}

// List returns all events.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	raws, err := r.store.Query(ctx, Collection, "kind", string(models.KindEvent))
	if err != nil {
		return nil, err
	}
	out := make([]models.Event, 0, len(raws))
	for _, raw := range raws {
		var e models.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// UpdateSheetConfig merges the spreadsheet backup settings.
func (r *Repository) UpdateSheetConfig(ctx context.Context, id, webAppURL, sheetName string, enabled bool) error {
	err := r.store.Merge(ctx, Collection, id, map[string]any{
		"sheetWebAppUrl": webAppURL,
		"sheetName":      sheetName,
		"backupEnabled":  enabled,
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: event %s", models.ErrNotFound, id)
	}
	return err
}

// UpdatePeakAudience raises the recorded audience high-water mark.
// Read-then-write at document granularity; a lower count never overwrites
// a higher one that was read.
func (r *Repository) UpdatePeakAudience(ctx context.Context, id string, count int) error {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if count <= e.PeakAudience {
		return nil
	}
	return r.store.Merge(ctx, Collection, id, map[string]any{"peakAudience": count})
}

// RecordSnapshot stores the key of the latest archived CSV snapshot.
func (r *Repository) RecordSnapshot(ctx context.Context, id, key string) error {
	err := r.store.Merge(ctx, Collection, id, map[string]any{"lastSnapshotKey": key})
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: event %s", models.ErrNotFound, id)
	}
	return err
}

// Delete removes an event container. Sessions, submissions and polls keep
// their eventId linkage; there is no cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, Collection, id)
}
