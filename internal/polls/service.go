package polls

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crowdcue/backend/internal/events"
	"github.com/crowdcue/backend/internal/livestate"
	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/internal/sheetsync"
)

// Service owns poll lifecycle and vote recording.
type Service struct {
	repo       *Repository
	events     *events.Repository
	projector  *livestate.Projector
	dispatcher *sheetsync.Dispatcher
	logger     *zap.Logger
}

// NewService creates the polls service.
func NewService(repo *Repository, eventRepo *events.Repository, projector *livestate.Projector, dispatcher *sheetsync.Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, events: eventRepo, projector: projector, dispatcher: dispatcher, logger: logger}
}

// Create validates and stores a new poll.
func (s *Service) Create(ctx context.Context, p *models.Poll) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: poll title is required", models.ErrValidation)
	}
	if !models.ValidPollType(p.Type) {
		return fmt.Errorf("%w: unknown poll type %q", models.ErrValidation, p.Type)
	}
	if len(p.Options) < 2 {
		return fmt.Errorf("%w: a poll needs at least two options", models.ErrValidation)
	}
	for i := range p.Options {
		if strings.TrimSpace(p.Options[i].Text) == "" {
			return fmt.Errorf("%w: option text is required", models.ErrValidation)
		}
		p.Options[i].Votes = 0
	}
	return s.repo.Create(ctx, p)
}

// Activate puts the poll on air. All other polls in the event are
// deactivated first, one document at a time, then the live snapshot is
// projected and the poll mirrored to the spreadsheet.
func (s *Service) Activate(ctx context.Context, id string) (*models.Poll, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	siblings, err := s.repo.ListByEvent(ctx, p.EventID)
	if err != nil {
		return nil, err
	}
	for _, sib := range siblings {
		if sib.ID != id && sib.IsActive {
			if err := s.repo.Patch(ctx, sib.ID, map[string]any{"isActive": false}); err != nil {
				return nil, err
			}
		}
	}
	if err := s.repo.Patch(ctx, id, map[string]any{"isActive": true}); err != nil {
		return nil, err
	}
	p, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, p, sheetsync.TypePoll); err != nil {
		return p, err
	}
	return p, nil
}

// Deactivate takes the poll off air and clears it from the live snapshot.
func (s *Service) Deactivate(ctx context.Context, id string) (*models.Poll, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Patch(ctx, id, map[string]any{"isActive": false}); err != nil {
		return nil, err
	}
	p.IsActive = false
	if err := s.projector.ClearPoll(ctx, p.EventID); err != nil {
		return p, err
	}
	return p, nil
}

// GetActive returns the event's currently active poll, if any.
func (s *Service) GetActive(ctx context.Context, eventID string) (*models.Poll, error) {
	list, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].IsActive {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no active poll for event %s", models.ErrNotFound, eventID)
}

// SubmitVotes records one ballot: each listed option id is incremented by
// one. The whole options array is read, bumped in memory and written back,
// so two simultaneous voters can race and one ballot can be lost to a
// last-write-wins overwrite. Votes are not deduplicated or attributed.
func (s *Service) SubmitVotes(ctx context.Context, pollID string, optionIDs []string) (*models.Poll, error) {
	p, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: poll %s is not open for voting", models.ErrInvalidState, pollID)
	}
	if len(optionIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one option is required", models.ErrValidation)
	}
	if p.Type != models.PollMultipleChoice && len(optionIDs) != 1 {
		return nil, fmt.Errorf("%w: poll type %s accepts exactly one option", models.ErrValidation, p.Type)
	}

	byID := make(map[string]int, len(p.Options))
	for i, o := range p.Options {
		byID[o.ID] = i
	}
	for _, id := range optionIDs {
		i, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown option %s", models.ErrValidation, id)
		}
		p.Options[i].Votes++
	}
	if err := s.repo.Patch(ctx, pollID, map[string]any{"options": p.Options}); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, p, sheetsync.TypePollBackup); err != nil {
		return p, err
	}
	return p, nil
}

// Delete removes a poll permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ListByEvent returns all polls under an event.
func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]models.Poll, error) {
	return s.repo.ListByEvent(ctx, eventID)
}

func (s *Service) publish(ctx context.Context, p *models.Poll, typ sheetsync.EventType) error {
	eventName := ""
	if event, err := s.events.GetByID(ctx, p.EventID); err == nil {
		eventName = event.Name
		if event.BackupConfigured() {
			s.dispatcher.Dispatch(event.SheetWebAppURL, typ, event.SheetName, map[string]any{
				"id":      p.ID,
				"title":   p.Title,
				"type":    p.Type,
				"options": p.Options,
			})
		}
	}
	return s.projector.PublishPoll(ctx, p.EventID, eventName, p)
}
