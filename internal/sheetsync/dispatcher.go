// Package sheetsync mirrors poll and Q&A events to an external spreadsheet
// web-app. The spreadsheet is a convenience mirror, never the system of
// record: delivery is fire-and-forget, at-most-once, with no retry and no
// ordering across concurrent dispatches. A slow or failing webhook must
// never stall a submission, vote or moderation action.
package sheetsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/crowdcue/backend/internal/models"
)

// EventType identifies the webhook record kind.
type EventType string

const (
	TypeInitialize EventType = "initialize"
	TypePoll       EventType = "poll"
	TypePollBackup EventType = "poll_backup"
	TypeQAActive   EventType = "qa_active"
	TypeQABackup   EventType = "qa_backup"
)

// Envelope is the JSON body the spreadsheet script accepts.
type Envelope struct {
	Type      EventType `json:"type"`
	SheetName string    `json:"sheetName,omitempty"`
	Data      any       `json:"data"`
}

type webhookResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Dispatcher posts envelopes to a spreadsheet web-app endpoint.
type Dispatcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher. timeout bounds one delivery attempt.
func NewDispatcher(timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch delivers in a detached goroutine. Failures are logged and
// swallowed; the triggering action has already succeeded in the store.
func (d *Dispatcher) Dispatch(webAppURL string, typ EventType, sheetName string, data any) {
	if webAppURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.Send(ctx, webAppURL, typ, sheetName, data); err != nil {
			d.logger.Warn("sheet dispatch failed",
				zap.String("type", string(typ)),
				zap.String("sheet", sheetName),
				zap.Error(err))
		}
	}()
}

// Send performs one synchronous delivery. Exposed for callers that need
// the result, such as tests and the initialize handshake.
func (d *Dispatcher) Send(ctx context.Context, webAppURL string, typ EventType, sheetName string, data any) error {
	body, err := json.Marshal(Envelope{Type: typ, SheetName: sheetName, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webAppURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	var result webhookResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: decode webhook response: %v", models.ErrUpstream, err)
	}
	if !result.OK {
		return fmt.Errorf("%w: webhook rejected %s: %s", models.ErrUpstream, typ, result.Error)
	}
	return nil
}
