package reconciler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdcue/backend/internal/models"
)

func sub(id string, status models.Status, pos models.Position, age time.Duration) models.Submission {
	return models.Submission{
		ID:        id,
		Status:    status,
		Position:  pos,
		CreatedAt: time.Now().Add(-age),
	}
}

func TestProjectPendingNewestFirst(t *testing.T) {
	p := Project([]models.Submission{
		sub("old", models.StatusPending, models.PositionNone, 3*time.Hour),
		sub("new", models.StatusRejected, models.PositionNone, time.Hour),
		sub("mid", models.StatusApproved, models.PositionNone, 2*time.Hour),
	})

	require.Len(t, p.Pending, 3, "pending view carries every submission")
	assert.Equal(t, "new", p.Pending[0].ID)
	assert.Equal(t, "mid", p.Pending[1].ID)
	assert.Equal(t, "old", p.Pending[2].ID)
}

func TestProjectApprovedQueuedFirst(t *testing.T) {
	p := Project([]models.Submission{
		sub("a", models.StatusApproved, models.PositionNone, time.Hour),
		sub("b", models.StatusApproved, models.PositionQueued, 4*time.Hour),
		sub("c", models.StatusPending, models.PositionNone, time.Minute),
		sub("d", models.StatusApproved, models.PositionNone, 2*time.Hour),
	})

	require.Len(t, p.Approved, 3)
	assert.Equal(t, "b", p.Approved[0].ID, "queued submission leads despite being oldest")
	assert.Equal(t, "a", p.Approved[1].ID)
	assert.Equal(t, "d", p.Approved[2].ID)
}

func TestChangedDetectsStructuralDifference(t *testing.T) {
	base := Project([]models.Submission{
		sub("a", models.StatusPending, models.PositionNone, time.Hour),
		sub("b", models.StatusApproved, models.PositionQueued, 2*time.Hour),
	})

	t.Run("identical", func(t *testing.T) {
		same := Project([]models.Submission{
			sub("a", models.StatusPending, models.PositionNone, time.Hour),
			sub("b", models.StatusApproved, models.PositionQueued, 2*time.Hour),
		})
		assert.False(t, Changed(base, same))
	})

	t.Run("status moved", func(t *testing.T) {
		next := Project([]models.Submission{
			sub("a", models.StatusApproved, models.PositionNone, time.Hour),
			sub("b", models.StatusApproved, models.PositionQueued, 2*time.Hour),
		})
		assert.True(t, Changed(base, next))
	})

	t.Run("position moved", func(t *testing.T) {
		next := Project([]models.Submission{
			sub("a", models.StatusPending, models.PositionNone, time.Hour),
			sub("b", models.StatusApproved, models.PositionActive, 2*time.Hour),
		})
		assert.True(t, Changed(base, next))
	})

	t.Run("submission added", func(t *testing.T) {
		next := Project([]models.Submission{
			sub("a", models.StatusPending, models.PositionNone, time.Hour),
			sub("b", models.StatusApproved, models.PositionQueued, 2*time.Hour),
			sub("c", models.StatusPending, models.PositionNone, time.Minute),
		})
		assert.True(t, Changed(base, next))
	})

	t.Run("submission deleted", func(t *testing.T) {
		next := Project([]models.Submission{
			sub("a", models.StatusPending, models.PositionNone, time.Hour),
		})
		assert.True(t, Changed(base, next))
	})

	t.Run("replaced at same length", func(t *testing.T) {
		next := Project([]models.Submission{
			sub("a", models.StatusPending, models.PositionNone, time.Hour),
			sub("z", models.StatusApproved, models.PositionQueued, 2*time.Hour),
		})
		assert.True(t, Changed(base, next))
	})

	t.Run("text-only edit is not structural", func(t *testing.T) {
		edited := Project([]models.Submission{
			func() models.Submission {
				s := sub("a", models.StatusPending, models.PositionNone, time.Hour)
				s.Question = "reworded"
				return s
			}(),
			sub("b", models.StatusApproved, models.PositionQueued, 2*time.Hour),
		})
		assert.False(t, Changed(base, edited))
	})
}

func TestWatcherReplacesOnlyOnChange(t *testing.T) {
	var fetches atomic.Int32
	var swaps atomic.Int32

	list := func(ctx context.Context, eventID string) ([]models.Submission, error) {
		n := fetches.Add(1)
		subs := []models.Submission{sub("a", models.StatusPending, models.PositionNone, time.Hour)}
		if n >= 3 {
			subs[0].Status = models.StatusApproved
		}
		return subs, nil
	}

	w := NewWatcher("ev1", 20*time.Millisecond, list, func(Projection) { swaps.Add(1) }, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	assert.Eventually(t, func() bool { return fetches.Load() >= 5 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	// first accepted view + the single structural change, no churn from
	// identical refetches
	assert.Equal(t, int32(2), swaps.Load())
	assert.Equal(t, models.StatusApproved, w.Current().Pending[0].Status)
}

func TestWatcherKeepsViewOnFetchError(t *testing.T) {
	var fetches atomic.Int32
	list := func(ctx context.Context, eventID string) ([]models.Submission, error) {
		if fetches.Add(1) > 1 {
			return nil, context.DeadlineExceeded
		}
		return []models.Submission{sub("a", models.StatusApproved, models.PositionQueued, time.Hour)}, nil
	}

	w := NewWatcher("ev1", 10*time.Millisecond, list, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	assert.Eventually(t, func() bool { return fetches.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	require.Len(t, w.Current().Pending, 1, "failed refresh retains previous view")
	assert.Equal(t, "a", w.Current().Pending[0].ID)
}
