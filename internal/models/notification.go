// internal/models/notification.go
package models

import "time"

// RunSummary is what gets published when a discovery run ends.
type RunSummary struct {
	RunID       string        `json:"runId"`
	Request     SearchRequest `json:"request"`
	RecordCount int           `json:"recordCount"`
	Pages       int           `json:"pages"`
	Status      string        `json:"status"` // "completed" or "failed"
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	FinishedAt  time.Time     `json:"finishedAt"`
}

type Notification struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"` // "sns", "email"
	Status    string `json:"status"`  // "sent", "failed", "disabled"
	MessageID string `json:"messageId,omitempty"`
	SentAt    string `json:"sentAt,omitempty"`
}
