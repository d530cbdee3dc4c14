package moderation

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crowdcue/backend/internal/realtime"
)

func newRouter(t *testing.T, f *fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := realtime.NewHub(zap.NewNop(), nil, nil)
	h := NewHandler(f.svc, hub, nil, nil)
	r := gin.New()
	r.PATCH("/submissions/:id/order", h.SetQueueOrder)
	r.PATCH("/submissions/:id/active", h.SetActive)
	return r
}

func patchJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetQueueOrderAcceptsZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.newSubmission(t, "send me to the front")
	_, err := f.svc.SetQueueOrder(ctx, sub.ID, 5)
	require.NoError(t, err)
	r := newRouter(t, f)

	w := patchJSON(r, "/submissions/"+sub.ID+"/order", `{"order":0}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := f.subs.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.QueueOrder, "an explicit zero is a real order value")
}

func TestSetQueueOrderRequiresOrderField(t *testing.T) {
	f := newFixture(t)
	sub := f.newSubmission(t, "no order given")
	r := newRouter(t, f)

	w := patchJSON(r, "/submissions/"+sub.ID+"/order", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetActiveWithoutArchiveQueue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sub := f.newSubmission(t, "on air without S3")
	_, err := f.svc.Approve(ctx, sub.ID)
	require.NoError(t, err)
	r := newRouter(t, f)

	w := patchJSON(r, "/submissions/"+sub.ID+"/active", `{}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	ls, err := f.projector.Get(ctx, f.eventID)
	require.NoError(t, err)
	require.NotNil(t, ls.ActiveQA)
	assert.Equal(t, "on air without S3", ls.ActiveQA.Question)
}
