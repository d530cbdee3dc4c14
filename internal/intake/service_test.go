package intake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdcue/backend/internal/events"
	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/internal/sessions"
	"github.com/crowdcue/backend/internal/sheetsync"
	"github.com/crowdcue/backend/internal/submissions"
	"github.com/crowdcue/backend/pkg/docstore"
)

type fixture struct {
	svc     *Service
	subs    *submissions.Repository
	session *models.Session
}

func newFixture(t *testing.T, configure func(*models.Session)) *fixture {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()

	eventRepo := events.NewRepository(store)
	event := &models.Event{Name: "Town Hall"}
	require.NoError(t, eventRepo.Create(ctx, event))

	sessionRepo := sessions.NewRepository(store)
	session := &models.Session{
		EventID:                event.ID,
		Name:                   "Opening Q&A",
		CollectName:            true,
		CollectEmail:           true,
		AllowAnonymous:         true,
		EnablePublicSubmission: true,
	}
	if configure != nil {
		configure(session)
	}
	require.NoError(t, sessionRepo.Create(ctx, session))

	subRepo := submissions.NewRepository(store)
	dispatcher := sheetsync.NewDispatcher(time.Second, nil)
	return &fixture{
		svc:     NewService(sessionRepo, subRepo, eventRepo, dispatcher, nil),
		subs:    subRepo,
		session: session,
	}
}

func TestSubmitCreatesPendingSubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	sub, err := f.svc.Submit(ctx, SubmitInput{
		SessionID:      f.session.ID,
		Question:       "  When does it ship?  ",
		SubmitterName:  "Ada",
		SubmitterEmail: "ada@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "When does it ship?", sub.Question, "question is trimmed")
	assert.Equal(t, models.StatusPending, sub.Status)
	assert.Equal(t, models.PositionNone, sub.Position)
	assert.Equal(t, f.session.EventID, sub.EventID)
	assert.Equal(t, "Ada", sub.SubmitterName)

	stored, err := f.subs.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.Question, stored.Question)
}

func TestSubmitCopiesSessionConfig(t *testing.T) {
	f := newFixture(t, nil)

	sub, err := f.svc.Submit(context.Background(), SubmitInput{
		SessionID: f.session.ID,
		Question:  "config copy?",
	})
	require.NoError(t, err)

	assert.True(t, sub.CollectName)
	assert.True(t, sub.CollectEmail)
	assert.True(t, sub.AllowAnonymous)
	assert.False(t, sub.EnablePublicSubmission, "submissions are never themselves open for submission")
}

func TestSubmitAnonymousDropsIdentity(t *testing.T) {
	f := newFixture(t, nil)

	sub, err := f.svc.Submit(context.Background(), SubmitInput{
		SessionID:      f.session.ID,
		Question:       "who am I?",
		SubmitterName:  "Ada",
		SubmitterEmail: "ada@example.com",
		Anonymous:      true,
	})
	require.NoError(t, err)

	assert.Empty(t, sub.SubmitterName)
	assert.Empty(t, sub.SubmitterEmail)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, SubmitInput{SessionID: f.session.ID, Question: "   "})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.svc.Submit(ctx, SubmitInput{
		SessionID:      f.session.ID,
		Question:       "valid question",
		SubmitterEmail: "not-an-email",
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSubmitClosedSession(t *testing.T) {
	f := newFixture(t, func(s *models.Session) { s.EnablePublicSubmission = false })

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		SessionID: f.session.ID,
		Question:  "anyone there?",
	})
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSubmitTargetingSubmissionIsInvalidState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	first, err := f.svc.Submit(ctx, SubmitInput{
		SessionID: f.session.ID,
		Question:  "the real session",
	})
	require.NoError(t, err)

	// Submissions share the qa collection with sessions, so a submission id
	// is a resolvable document. It still must not accept child submissions.
	_, err = f.svc.Submit(ctx, SubmitInput{
		SessionID: first.ID,
		Question:  "nesting attempt",
	})
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSubmitUnknownSession(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Submit(context.Background(), SubmitInput{
		SessionID: "missing",
		Question:  "hello?",
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
