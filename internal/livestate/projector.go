// Package livestate maintains the single per-event on-air snapshot consumed
// by output displays and the CSV/spreadsheet exporters.
package livestate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/pkg/docstore"
)

// Collection is the document collection for live snapshots, keyed by event id.
const Collection = "livestate"

// Projector writes denormalized snapshots into the event's LiveState
// document. Every write is last-write-wins at document granularity.
type Projector struct {
	store docstore.Store
}

// NewProjector creates a live state projector.
func NewProjector(store docstore.Store) *Projector {
	return &Projector{store: store}
}

// Get returns the event's live snapshot.
func (p *Projector) Get(ctx context.Context, eventID string) (*models.LiveState, error) {
	var ls models.LiveState
	if err := docstore.GetAs(ctx, p.store, Collection, eventID, &ls); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: live state for event %s", models.ErrNotFound, eventID)
		}
		return nil, err
	}
	return &ls, nil
}

// PublishQA projects the active submission into the snapshot. Called after
// a submission goes on air; the snapshot is self-contained so later edits
// or deletion of the submission do not disturb what is shown.
func (p *Projector) PublishQA(ctx context.Context, eventID, eventName string, sub *models.Submission) error {
	return p.upsert(ctx, eventID, map[string]any{
		"eventId":   eventID,
		"eventName": eventName,
		"activeQA": &models.LiveQA{
			Question:      sub.Question,
			Answer:        sub.Answer,
			SubmitterName: sub.SubmitterName,
		},
		"updatedAt": time.Now().UTC(),
	})
}

// PublishPoll projects the active poll with current vote counts.
func (p *Projector) PublishPoll(ctx context.Context, eventID, eventName string, poll *models.Poll) error {
	lp := &models.LivePoll{ID: poll.ID, Title: poll.Title, Type: poll.Type}
	for _, o := range poll.Options {
		lp.Options = append(lp.Options, models.LivePollOption{ID: o.ID, Text: o.Text, Votes: o.Votes})
	}
	return p.upsert(ctx, eventID, map[string]any{
		"eventId":    eventID,
		"eventName":  eventName,
		"activePoll": lp,
		"updatedAt":  time.Now().UTC(),
	})
}

// ClearPoll removes the active poll from the snapshot.
func (p *Projector) ClearPoll(ctx context.Context, eventID string) error {
	return p.upsert(ctx, eventID, map[string]any{
		"eventId":    eventID,
		"activePoll": nil,
		"updatedAt":  time.Now().UTC(),
	})
}

// SelectCSVSource records which session and/or poll the CSV exporter should
// treat as canonical. Last write wins.
func (p *Projector) SelectCSVSource(ctx context.Context, eventID, sessionID, pollID string) error {
	return p.upsert(ctx, eventID, map[string]any{
		"eventId":            eventID,
		"csvSourceSessionId": sessionID,
		"csvSourcePollId":    pollID,
		"updatedAt":          time.Now().UTC(),
	})
}

func (p *Projector) upsert(ctx context.Context, eventID string, patch map[string]any) error {
	err := p.store.Merge(ctx, Collection, eventID, patch)
	if errors.Is(err, docstore.ErrNotFound) {
		return p.store.Create(ctx, Collection, eventID, patch)
	}
	return err
}
