package sheetsync

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proxyRouter(p *Proxy) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/sheets/proxy", p.Forward)
	return r
}

func postProxy(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/sheets/proxy", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProxyRejectsNonAllowListedURL(t *testing.T) {
	var upstreamCalls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls.Add(1)
	}))
	defer upstream.Close()

	p := NewProxy("https://script.google.com/macros/", upstream.Client(), nil)
	w := postProxy(t, proxyRouter(p), gin.H{"url": upstream.URL, "body": gin.H{"type": "poll"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int32(0), upstreamCalls.Load(), "rejected target must never be contacted")
}

func TestProxyRequiresURL(t *testing.T) {
	p := NewProxy("https://script.google.com/macros/", nil, nil)
	w := postProxy(t, proxyRouter(p), gin.H{"body": gin.H{"type": "poll"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProxyPassesThroughUpstreamStatusAndBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]any
		_ = json.NewDecoder(r.Body).Decode(&got)
		assert.Equal(t, "poll", got["type"])
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true,"rows":3}`))
	}))
	defer upstream.Close()

	p := NewProxy(upstream.URL, upstream.Client(), nil)
	w := postProxy(t, proxyRouter(p), gin.H{"url": upstream.URL + "/exec", "body": gin.H{"type": "poll"}})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"ok":true,"rows":3}`, w.Body.String())
}

func TestProxyUpstreamFailureIs502(t *testing.T) {
	p := NewProxy("http://127.0.0.1:1/", nil, nil)
	w := postProxy(t, proxyRouter(p), gin.H{"url": "http://127.0.0.1:1/exec"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
