package livestate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdcue/backend/internal/models"
	"github.com/crowdcue/backend/pkg/docstore"
)

func TestGetMissingSnapshot(t *testing.T) {
	p := NewProjector(docstore.NewMemory())
	_, err := p.Get(context.Background(), "ev1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPublishQACreatesAndOverwrites(t *testing.T) {
	ctx := context.Background()
	p := NewProjector(docstore.NewMemory())

	first := &models.Submission{Question: "first?", SubmitterName: "Ada"}
	require.NoError(t, p.PublishQA(ctx, "ev1", "Town Hall", first))

	ls, err := p.Get(ctx, "ev1")
	require.NoError(t, err)
	require.NotNil(t, ls.ActiveQA)
	assert.Equal(t, "first?", ls.ActiveQA.Question)
	assert.Equal(t, "Town Hall", ls.EventName)
	assert.False(t, ls.UpdatedAt.IsZero())

	second := &models.Submission{Question: "second?", Answer: "yes"}
	require.NoError(t, p.PublishQA(ctx, "ev1", "Town Hall", second))

	ls, err = p.Get(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, "second?", ls.ActiveQA.Question)
	assert.Equal(t, "yes", ls.ActiveQA.Answer)
	assert.Empty(t, ls.ActiveQA.SubmitterName, "snapshot is replaced, not merged")
}

func TestPublishPollAndClear(t *testing.T) {
	ctx := context.Background()
	p := NewProjector(docstore.NewMemory())

	poll := &models.Poll{
		ID:    "p1",
		Title: "ship it?",
		Type:  models.PollSingleChoice,
		Options: []models.PollOption{
			{ID: "o1", Text: "Yes", Votes: 2},
			{ID: "o2", Text: "No", Votes: 1},
		},
	}
	require.NoError(t, p.PublishPoll(ctx, "ev1", "Town Hall", poll))

	ls, err := p.Get(ctx, "ev1")
	require.NoError(t, err)
	require.NotNil(t, ls.ActivePoll)
	assert.Equal(t, "ship it?", ls.ActivePoll.Title)
	require.Len(t, ls.ActivePoll.Options, 2)
	assert.Equal(t, 2, ls.ActivePoll.Options[0].Votes)

	require.NoError(t, p.ClearPoll(ctx, "ev1"))
	ls, err = p.Get(ctx, "ev1")
	require.NoError(t, err)
	assert.Nil(t, ls.ActivePoll)
}

func TestPollAndQACoexist(t *testing.T) {
	ctx := context.Background()
	p := NewProjector(docstore.NewMemory())

	require.NoError(t, p.PublishQA(ctx, "ev1", "Town Hall", &models.Submission{Question: "q?"}))
	require.NoError(t, p.PublishPoll(ctx, "ev1", "Town Hall", &models.Poll{ID: "p1", Title: "poll"}))

	ls, err := p.Get(ctx, "ev1")
	require.NoError(t, err)
	require.NotNil(t, ls.ActiveQA, "poll publish leaves the QA half untouched")
	require.NotNil(t, ls.ActivePoll)
}

func TestSelectCSVSource(t *testing.T) {
	ctx := context.Background()
	p := NewProjector(docstore.NewMemory())

	require.NoError(t, p.SelectCSVSource(ctx, "ev1", "sess1", "poll1"))

	ls, err := p.Get(ctx, "ev1")
	require.NoError(t, err)
	assert.Equal(t, "sess1", ls.CSVSourceSessionID)
	assert.Equal(t, "poll1", ls.CSVSourcePollID)
}
