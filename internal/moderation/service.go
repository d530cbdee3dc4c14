// Package moderation owns the submission triage and on-air sequencing
// lifecycle: pending → approved/rejected, and the queued → next → active →
// done position chain for approved submissions.
package moderation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crowdcue/backend/internal/events"
	"github.com/crowdcue/backend/internal/livestate"
	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/internal/sheetsync"
	"github.com/crowdcue/backend/internal/submissions"
)

// Service applies moderation operations. The store offers document-level
// atomicity only, so every multi-document operation here is a sequential
// sweep of single-document patches. Two moderators running sweeps
// concurrently can transiently violate the single-active invariant; that
// race is accepted (single-operator deployment) and healed by the polling
// reconciler, not prevented.
type Service struct {
	subs       *submissions.Repository
	events     *events.Repository
	projector  *livestate.Projector
	dispatcher *sheetsync.Dispatcher
	logger     *zap.Logger
}

// NewService creates the moderation service.
func NewService(subRepo *submissions.Repository, eventRepo *events.Repository, projector *livestate.Projector, dispatcher *sheetsync.Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{subs: subRepo, events: eventRepo, projector: projector, dispatcher: dispatcher, logger: logger}
}

// Approve promotes a pending submission and assigns the next queueOrder.
// Approving an already-approved submission is a no-op so a retry never
// re-bumps the order.
func (s *Service) Approve(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.StatusApproved {
		return sub, nil
	}
	max, err := s.subs.MaxQueueOrder(ctx, sub.EventID)
	if err != nil {
		return nil, err
	}
	patch := map[string]any{
		"status":     models.StatusApproved,
		"queueOrder": max + 1,
	}
	if sub.Position == models.PositionActive || sub.Position == models.PositionNext {
		patch["position"] = models.PositionNone
	}
	if err := s.subs.Patch(ctx, id, patch); err != nil {
		return nil, err
	}
	return s.subs.GetByID(ctx, id)
}

// Reject marks a submission rejected. Terminal unless explicitly reset;
// the position is deliberately left untouched.
func (s *Service) Reject(ctx context.Context, id string) (*models.Submission, error) {
	if _, err := s.subs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.subs.Patch(ctx, id, map[string]any{"status": models.StatusRejected}); err != nil {
		return nil, err
	}
	return s.subs.GetByID(ctx, id)
}

// Queue puts the submission in the queued slot. The previous holder of the
// slot is displaced into next. An unapproved target is promoted to
// approved as a side effect, with a fresh queueOrder.
func (s *Service) Queue(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	siblings, err := s.subs.ListByEvent(ctx, sub.EventID)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		if sib.ID != id && sib.Position == models.PositionQueued {
			if err := s.subs.Patch(ctx, sib.ID, map[string]any{"position": models.PositionNext}); err != nil {
				return nil, err
			}
		}
	}
	patch := map[string]any{"position": models.PositionQueued}
	if sub.Status != models.StatusApproved {
		max, err := s.subs.MaxQueueOrder(ctx, sub.EventID)
		if err != nil {
			return nil, err
		}
		patch["status"] = models.StatusApproved
		patch["queueOrder"] = max + 1
	}
	if err := s.subs.Patch(ctx, id, patch); err != nil {
		return nil, err
	}
	return s.subs.GetByID(ctx, id)
}

// SetNext marks the submission as next on air; every other submission in
// the event holding next loses it.
func (s *Service) SetNext(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	siblings, err := s.subs.ListByEvent(ctx, sub.EventID)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		if sib.ID != id && sib.Position == models.PositionNext {
			if err := s.subs.Patch(ctx, sib.ID, map[string]any{"position": models.PositionNone}); err != nil {
				return nil, err
			}
		}
	}
	if err := s.subs.Patch(ctx, id, map[string]any{"position": models.PositionNext}); err != nil {
		return nil, err
	}
	return s.subs.GetByID(ctx, id)
}

// SetActive puts the submission on air: deactivate every other approved
// submission in the event, then activate the target, then project the live
// snapshot and mirror it to the spreadsheet. The deactivate sweep is
// sequential and not atomic across documents.
func (s *Service) SetActive(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.StatusApproved {
		return nil, fmt.Errorf("%w: cannot activate submission %s with status %s", models.ErrInvalidState, id, sub.Status)
	}
	siblings, err := s.subs.ListByEvent(ctx, sub.EventID)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		if sib.ID != id && sib.Status == models.StatusApproved && sib.Position == models.PositionActive {
			if err := s.subs.Patch(ctx, sib.ID, map[string]any{"position": models.PositionNone}); err != nil {
				return nil, err
			}
		}
	}
	if err := s.subs.Patch(ctx, id, map[string]any{"position": models.PositionActive}); err != nil {
		return nil, err
	}
	sub, err = s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.publishQA(ctx, sub); err != nil {
		// The moderation write has landed; surface the projection failure
		// so the moderator knows the on-air snapshot is stale. SetActive
		// retries cleanly.
		return sub, err
	}
	return sub, nil
}

// MarkDone moves a shown submission to the terminal done position.
func (s *Service) MarkDone(ctx context.Context, id string) (*models.Submission, error) {
	if _, err := s.subs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.subs.Patch(ctx, id, map[string]any{"position": models.PositionDone}); err != nil {
		return nil, err
	}
	return s.subs.GetByID(ctx, id)
}

// SetQueueOrder overrides the queue order directly, for manual reordering.
func (s *Service) SetQueueOrder(ctx context.Context, id string, order int) (*models.Submission, error) {
	if _, err := s.subs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.subs.Patch(ctx, id, map[string]any{"queueOrder": order}); err != nil {
		return nil, err
	}
	return s.subs.GetByID(ctx, id)
}

// Annotate records an on-air answer and/or moderator notes. When the
// submission is currently active, the live snapshot is republished so the
// answer shows up on air.
func (s *Service) Annotate(ctx context.Context, id string, answer, notes *string) (*models.Submission, error) {
	if _, err := s.subs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	patch := map[string]any{}
	if answer != nil {
		patch["answer"] = *answer
	}
	if notes != nil {
		patch["moderatorNotes"] = *notes
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: nothing to annotate", models.ErrValidation)
	}
	if err := s.subs.Patch(ctx, id, patch); err != nil {
		return nil, err
	}
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Position == models.PositionActive {
		if err := s.publishQA(ctx, sub); err != nil {
			return sub, err
		}
	}
	return sub, nil
}

// ResetAll returns every submission under the event to pending with no
// position. Irreversible; the HTTP boundary requires explicit confirmation.
// A failure mid-sweep leaves some documents reset and others not; callers
// reconcile by re-reading.
func (s *Service) ResetAll(ctx context.Context, eventID string) (int, error) {
	subs, err := s.subs.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	reset := 0
	for _, sub := range subs {
		if err := s.subs.Patch(ctx, sub.ID, map[string]any{
			"status":   models.StatusPending,
			"position": models.PositionNone,
		}); err != nil {
			return reset, err
		}
		reset++
	}
	return reset, nil
}

// Delete permanently removes a submission. Any moderator view holding it
// as the current selection clears that selection on its next refresh.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.subs.Delete(ctx, id)
}

// List returns all submissions under an event, for moderator views and the
// polling reconciler.
func (s *Service) List(ctx context.Context, eventID string) ([]models.Submission, error) {
	return s.subs.ListByEvent(ctx, eventID)
}

// ListBySession narrows the moderator view to a single session, including
// the synthetic unassigned bucket legacy submissions are backfilled into.
func (s *Service) ListBySession(ctx context.Context, sessionID string) ([]models.Submission, error) {
	return s.subs.ListBySession(ctx, sessionID)
}

func (s *Service) publishQA(ctx context.Context, sub *models.Submission) error {
	eventName := ""
	if event, err := s.events.GetByID(ctx, sub.EventID); err == nil {
		eventName = event.Name
		if event.BackupConfigured() {
			s.dispatcher.Dispatch(event.SheetWebAppURL, sheetsync.TypeQAActive, event.SheetName, map[string]any{
				"question":      sub.Question,
				"answer":        sub.Answer,
				"submitterName": sub.SubmitterName,
			})
		}
	}
	return s.projector.PublishQA(ctx, sub.EventID, eventName, sub)
}
