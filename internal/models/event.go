package models

import "time"

// Event is the top-level container a live show runs under. Sessions,
// submissions, polls and the live snapshot all hang off its id.
type Event struct {
	ID   string  `json:"id"`
	Kind DocKind `json:"kind"`
	Name string  `json:"name"`

	// Spreadsheet mirroring; empty SheetWebAppURL disables backup dispatch.
	SheetWebAppURL string `json:"sheetWebAppUrl,omitempty"`
	SheetName      string `json:"sheetName,omitempty"`
	BackupEnabled  bool   `json:"backupEnabled"`

	// Key of the most recent archived CSV snapshot in S3, empty until the
	// archiver has run for this event.
	LastSnapshotKey string `json:"lastSnapshotKey,omitempty"`

	PeakAudience int       `json:"peakAudience"`
	CreatedAt    time.Time `json:"createdAt"`
}

// BackupConfigured reports whether spreadsheet mirroring should run.
func (e *Event) BackupConfigured() bool {
	return e.BackupEnabled && e.SheetWebAppURL != ""
}
