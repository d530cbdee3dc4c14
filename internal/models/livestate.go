package models

import "time"

// LiveQA is the denormalized on-air question snapshot.
type LiveQA struct {
	Question      string `json:"question"`
	Answer        string `json:"answer,omitempty"`
	SubmitterName string `json:"submitterName,omitempty"`
}

// LivePollOption mirrors a poll option with its current vote count.
type LivePollOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// LivePoll is the denormalized on-air poll snapshot.
type LivePoll struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Type    PollType         `json:"type"`
	Options []LivePollOption `json:"options"`
}

// LiveState is the single per-event snapshot consumed by on-air output and
// the CSV exporter. Keyed by event id; last write wins on every field.
type LiveState struct {
	EventID            string    `json:"eventId"`
	EventName          string    `json:"eventName,omitempty"`
	ActivePoll         *LivePoll `json:"activePoll,omitempty"`
	ActiveQA           *LiveQA   `json:"activeQA,omitempty"`
	CSVSourceSessionID string    `json:"csvSourceSessionId,omitempty"`
	CSVSourcePollID    string    `json:"csvSourcePollId,omitempty"`
	SheetName          string    `json:"sheetName,omitempty"`
	SheetCell          string    `json:"sheetCell,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
