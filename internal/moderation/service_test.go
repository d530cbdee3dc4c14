package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdcue/backend/internal/events"
	"github.com/crowdcue/backend/internal/livestate"
	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/internal/sheetsync"
	"github.com/crowdcue/backend/internal/submissions"
	"github.com/crowdcue/backend/pkg/docstore"
)

type fixture struct {
	svc       *Service
	subs      *submissions.Repository
	projector *livestate.Projector
	eventID   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()

	eventRepo := events.NewRepository(store)
	event := &models.Event{Name: "Town Hall"}
	require.NoError(t, eventRepo.Create(ctx, event))

	subRepo := submissions.NewRepository(store)
	projector := livestate.NewProjector(store)
	dispatcher := sheetsync.NewDispatcher(time.Second, nil)

	return &fixture{
		svc:       NewService(subRepo, eventRepo, projector, dispatcher, nil),
		subs:      subRepo,
		projector: projector,
		eventID:   event.ID,
	}
}

func (f *fixture) newSubmission(t *testing.T, question string) *models.Submission {
	t.Helper()
	s := &models.Submission{
		EventID:   f.eventID,
		SessionID: "sess1",
		Question:  question,
		Status:    models.StatusPending,
	}
	require.NoError(t, f.subs.Create(context.Background(), s))
	return s
}

func TestApproveAssignsIncreasingQueueOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "first")
	b := f.newSubmission(t, "second")

	got, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, 1, got.QueueOrder)

	got, err = f.svc.Approve(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QueueOrder)
}

func TestApproveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "only")

	first, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	again, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.QueueOrder, again.QueueOrder, "re-approval never re-bumps the order")
}

func TestListBySessionFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "in session one")
	other := &models.Submission{
		EventID:   f.eventID,
		SessionID: "sess2",
		Question:  "in session two",
		Status:    models.StatusPending,
	}
	require.NoError(t, f.subs.Create(ctx, other))

	list, err := f.svc.ListBySession(ctx, "sess1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestApproveUnknownSubmission(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Approve(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestQueueDisplacesPreviousHolderToNext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "first")
	b := f.newSubmission(t, "second")

	_, err := f.svc.Queue(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.Queue(ctx, b.ID)
	require.NoError(t, err)

	gotA, err := f.subs.GetByID(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := f.subs.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PositionNext, gotA.Position, "displaced holder moves to next")
	assert.Equal(t, models.PositionQueued, gotB.Position)
}

func TestQueueApprovesAsSideEffect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "pending one")

	got, err := f.svc.Queue(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, 1, got.QueueOrder)
}

func TestSetNextClearsOtherNextHolders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "first")
	b := f.newSubmission(t, "second")

	_, err := f.svc.SetNext(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.SetNext(ctx, b.ID)
	require.NoError(t, err)

	gotA, err := f.subs.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PositionNone, gotA.Position)
	gotB, err := f.subs.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PositionNext, gotB.Position)
}

func TestSetActiveRequiresApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "still pending")

	_, err := f.svc.SetActive(ctx, a.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = f.svc.Reject(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.SetActive(ctx, a.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSetActiveDeactivatesSiblingAndProjects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "first on air")
	b := f.newSubmission(t, "second on air")
	_, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, b.ID)
	require.NoError(t, err)

	_, err = f.svc.SetActive(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.SetActive(ctx, b.ID)
	require.NoError(t, err)

	gotA, err := f.subs.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PositionNone, gotA.Position, "previous active is cleared")

	ls, err := f.projector.Get(ctx, f.eventID)
	require.NoError(t, err)
	require.NotNil(t, ls.ActiveQA)
	assert.Equal(t, "second on air", ls.ActiveQA.Question)
	assert.Equal(t, "Town Hall", ls.EventName)
}

func TestMarkDone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "shown")
	_, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.SetActive(ctx, a.ID)
	require.NoError(t, err)

	got, err := f.svc.MarkDone(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PositionDone, got.Position)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestAnnotateRepublishesWhenActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "what changed?")
	_, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.SetActive(ctx, a.ID)
	require.NoError(t, err)

	answer := "everything"
	_, err = f.svc.Annotate(ctx, a.ID, &answer, nil)
	require.NoError(t, err)

	ls, err := f.projector.Get(ctx, f.eventID)
	require.NoError(t, err)
	require.NotNil(t, ls.ActiveQA)
	assert.Equal(t, "everything", ls.ActiveQA.Answer)
}

func TestAnnotateRejectsEmptyPatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "q")

	_, err := f.svc.Annotate(ctx, a.ID, nil, nil)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestResetAllReturnsEverythingToPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "first")
	b := f.newSubmission(t, "second")
	_, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.SetActive(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, b.ID)
	require.NoError(t, err)

	count, err := f.svc.ResetAll(ctx, f.eventID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, id := range []string{a.ID, b.ID} {
		got, err := f.subs.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Equal(t, models.PositionNone, got.Position)
	}
}

func TestQueueOrderSurvivesReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "first")
	_, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)

	_, err = f.svc.ResetAll(ctx, f.eventID)
	require.NoError(t, err)

	got, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.QueueOrder, "order numbers are never reused")
}

func TestSetQueueOrderOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "first")
	_, err := f.svc.Approve(ctx, a.ID)
	require.NoError(t, err)

	got, err := f.svc.SetQueueOrder(ctx, a.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, got.QueueOrder)

	b := f.newSubmission(t, "second")
	gotB, err := f.svc.Approve(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 41, gotB.QueueOrder, "manual override raises the high-water mark")
}

func TestDeleteRemovesSubmission(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.newSubmission(t, "gone")

	require.NoError(t, f.svc.Delete(ctx, a.ID))
	_, err := f.subs.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, a.ID), models.ErrNotFound)
}
