package models

import (
	"encoding/json"
	"time"
)

// DocKind is the explicit document type discriminator. Sessions and
// submissions share the qa collection and are told apart by it; events and
// users carry theirs so whole collections can be listed with a field query.
type DocKind string

const (
	KindSession    DocKind = "session"
	KindSubmission DocKind = "submission"
	KindEvent      DocKind = "event"
	KindUser       DocKind = "user"
)

// CollectionQA is the shared document collection for sessions and
// submissions. The kind field tells them apart.
const CollectionQA = "qa"

// SessionUnassigned is the sentinel session id stamped onto legacy
// submissions that predate session linking. Backfilled at startup; read
// paths never branch on a missing link.
const SessionUnassigned = "unassigned"

// Status is the triage state of a submission.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Position is the on-air sequencing slot of an approved submission.
// At most one submission per event should hold PositionActive; that
// invariant is enforced by a sequential sweep, not atomically.
type Position string

const (
	PositionNone   Position = ""
	PositionQueued Position = "queued"
	PositionNext   Position = "next"
	PositionActive Position = "active"
	PositionDone   Position = "done"
)

// Session is a named collection point for public question submissions.
type Session struct {
	ID                     string         `json:"id"`
	Kind                   DocKind        `json:"kind"`
	EventID                string         `json:"eventId"`
	Name                   string         `json:"name"`
	CollectName            bool           `json:"collectName"`
	CollectEmail           bool           `json:"collectEmail"`
	AllowAnonymous         bool           `json:"allowAnonymous"`
	EnablePublicSubmission bool           `json:"enablePublicSubmission"`
	IsActiveForPublic      bool           `json:"isActiveForPublic"`
	Display                map[string]any `json:"display,omitempty"`
	CreatedAt              time.Time      `json:"createdAt"`
}

// Submission is a single public question, optionally answered on air.
// Session configuration is copied onto the submission at intake so it
// stays self-contained when the session is later edited or deleted.
type Submission struct {
	ID             string   `json:"id"`
	Kind           DocKind  `json:"kind"`
	EventID        string   `json:"eventId"`
	SessionID      string   `json:"sessionId"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer,omitempty"`
	Status         Status   `json:"status"`
	Position       Position `json:"position"`
	QueueOrder     int      `json:"queueOrder"`
	SubmitterName  string   `json:"submitterName,omitempty"`
	SubmitterEmail string   `json:"submitterEmail,omitempty"`
	ModeratorNotes string   `json:"moderatorNotes,omitempty"`

	CollectName            bool           `json:"collectName"`
	CollectEmail           bool           `json:"collectEmail"`
	AllowAnonymous         bool           `json:"allowAnonymous"`
	EnablePublicSubmission bool           `json:"enablePublicSubmission"`
	Display                map[string]any `json:"display,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (s *Submission) IsQueued() bool { return s.Position == PositionQueued }
func (s *Submission) IsNext() bool   { return s.Position == PositionNext }
func (s *Submission) IsActive() bool { return s.Position == PositionActive }
func (s *Submission) IsDone() bool   { return s.Position == PositionDone }

// InferKind returns the kind of a raw qa document. Documents written by
// this codebase carry an explicit kind; legacy documents are classified by
// which of name/question is present.
func InferKind(raw json.RawMessage) DocKind {
	var probe struct {
		Kind     DocKind `json:"kind"`
		Name     string  `json:"name"`
		Question string  `json:"question"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	if probe.Kind != "" {
		return probe.Kind
	}
	if probe.Name != "" && probe.Question == "" {
		return KindSession
	}
	if probe.Question != "" && probe.Name == "" {
		return KindSubmission
	}
	return ""
}
