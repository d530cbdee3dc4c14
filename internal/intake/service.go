// Package intake records public question submissions against a session.
package intake

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/crowdcue/backend/internal/events"
	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/internal/sessions"
	"github.com/crowdcue/backend/internal/sheetsync"
	"github.com/crowdcue/backend/internal/submissions"
)

// SubmitInput carries a public submission.
type SubmitInput struct {
	SessionID      string
	Question       string
	SubmitterName  string
	SubmitterEmail string
	Anonymous      bool
}

// Service validates and records submissions.
type Service struct {
	sessions   *sessions.Repository
	subs       *submissions.Repository
	events     *events.Repository
	dispatcher *sheetsync.Dispatcher
	logger     *zap.Logger
}

// NewService creates the intake service.
func NewService(sessionRepo *sessions.Repository, subRepo *submissions.Repository, eventRepo *events.Repository, dispatcher *sheetsync.Dispatcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sessions: sessionRepo, subs: subRepo, events: eventRepo, dispatcher: dispatcher, logger: logger}
}

// Submit validates the input against the session and creates a pending
// submission. Session configuration is copied onto the submission so it is
// self-contained regardless of later session edits. When the event has
// spreadsheet backup configured, a backup record is dispatched without
// blocking or failing the submission.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Submission, error) {
	session, err := s.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.EnablePublicSubmission {
		return nil, fmt.Errorf("%w: session %s is not open for public submission", models.ErrInvalidState, session.ID)
	}

	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question text is required", models.ErrValidation)
	}

	name, email := strings.TrimSpace(in.SubmitterName), strings.TrimSpace(in.SubmitterEmail)
	if in.Anonymous {
		// Anonymity overrides any supplied identity.
		name, email = "", ""
	} else if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: malformed email address", models.ErrValidation)
		}
	}

	sub := &models.Submission{
		EventID:        session.EventID,
		SessionID:      session.ID,
		Question:       question,
		Status:         models.StatusPending,
		Position:       models.PositionNone,
		SubmitterName:  name,
		SubmitterEmail: email,

		CollectName:            session.CollectName,
		CollectEmail:           session.CollectEmail,
		AllowAnonymous:         session.AllowAnonymous,
		EnablePublicSubmission: false,
		Display:                session.Display,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.backup(ctx, sub)
	return sub, nil
}

// backup mirrors the submission to the event's spreadsheet if configured.
// Best effort only; never surfaces an error to the submitter.
func (s *Service) backup(ctx context.Context, sub *models.Submission) {
	event, err := s.events.GetByID(ctx, sub.EventID)
	if err != nil {
		s.logger.Debug("backup skipped, event lookup failed", zap.String("event_id", sub.EventID), zap.Error(err))
		return
	}
	if !event.BackupConfigured() {
		return
	}
	s.dispatcher.Dispatch(event.SheetWebAppURL, sheetsync.TypeQABackup, event.SheetName, map[string]any{
		"id":            sub.ID,
		"sessionId":     sub.SessionID,
		"question":      sub.Question,
		"submitterName": sub.SubmitterName,
		"createdAt":     sub.CreatedAt,
	})
}
