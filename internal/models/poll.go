package models

import "time"

// PollType identifies the poll question style.
type PollType string

const (
	PollSingleChoice   PollType = "single_choice"
	PollMultipleChoice PollType = "multiple_choice"
	PollRatingScale    PollType = "rating_scale"
	PollYesNo          PollType = "yes_no"
)

// ValidPollType reports whether t is one of the supported poll types.
func ValidPollType(t PollType) bool {
	switch t {
	case PollSingleChoice, PollMultipleChoice, PollRatingScale, PollYesNo:
		return true
	}
	return false
}

// PollOption is one votable choice. Votes only ever increases.
type PollOption struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Votes    int    `json:"votes"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Poll is an audience poll within an event.
type Poll struct {
	ID                string         `json:"id"`
	EventID           string         `json:"eventId"`
	Type              PollType       `json:"type"`
	Title             string         `json:"title"`
	Options           []PollOption   `json:"options"`
	IsActive          bool           `json:"isActive"`
	IsActiveForPublic bool           `json:"isActiveForPublic"`
	Display           map[string]any `json:"display,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// TotalVotes sums the vote counts across all options.
func (p *Poll) TotalVotes() int {
	n := 0
	for _, o := range p.Options {
		n += o.Votes
	}
	return n
}
