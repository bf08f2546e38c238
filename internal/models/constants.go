package models

import "strings"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCheckedIn = "checked-in"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	// StatusCheckedOut is accepted on input and stored as StatusCompleted.
	StatusCheckedOut = "checked-out"
)

// Defaults for config values left empty. Durations are in seconds.
const (
	DefaultDraftTTL   = 2 * 60 * 60
	WorkerQueueSize   = 1000
	RateLimitRequests = 60 // per session and window
	RateLimitWindow   = 60
	CatalogCacheTTL   = 30 * 60
	SheetsCacheTTL    = 60 * 60
)

var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCheckedIn, StatusCancelled},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn: {StatusCompleted},
}

// NormalizeStatus lowercases a status and folds aliases. It returns "" for
// unknown values.
func NormalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case StatusCheckedOut:
		return StatusCompleted
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCompleted, StatusCancelled:
		return s
	}
	return ""
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
