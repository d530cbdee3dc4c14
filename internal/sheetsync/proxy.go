package sheetsync

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crowdcue/backend/pkg/response"
)

// ProxyRequest is the body for POST /sheets/proxy. Body is forwarded to
// url verbatim.
type ProxyRequest struct {
	URL  string          `json:"url" binding:"required"`
	Body json.RawMessage `json:"body"`
}

// Proxy forwards spreadsheet webhook calls from browser clients that cannot
// reach the script host directly because of cross-origin restrictions.
// Only targets under the configured prefix are forwarded.
type Proxy struct {
	allowedPrefix string
	client        *http.Client
	logger        *zap.Logger
}

// NewProxy creates the allow-listed forwarding proxy.
func NewProxy(allowedPrefix string, client *http.Client, logger *zap.Logger) *Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Proxy{allowedPrefix: allowedPrefix, client: client, logger: logger}
}

// Forward handles POST /sheets/proxy. A target outside the allow-list is
// rejected before any upstream call is made. On success the upstream status
// and body pass through unmodified.
func (p *Proxy) Forward(c *gin.Context) {
	var req ProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !strings.HasPrefix(req.URL, p.allowedPrefix) {
		response.BadRequest(c, "target url is not allow-listed")
		return
	}

	upstream, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		response.BadRequest(c, "invalid target url")
		return
	}
	upstream.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(upstream)
	if err != nil {
		p.logger.Warn("proxy upstream failed", zap.String("url", req.URL), zap.Error(err))
		response.BadGateway(c, "upstream fetch failed")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		response.BadGateway(c, "upstream read failed")
		return
	}
	c.Data(resp.StatusCode, "application/json", body)
}
