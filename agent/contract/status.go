package contract

import "strings"

// Provider call lifecycle statuses. The ordering below is total:
// queued < ringing < in-progress = forwarding < ended. Progress derived from
// a call is always the highest-ordered status seen so far, which makes
// merging updates from polling and webhooks commutative and idempotent.
const (
	StatusQueued     = "queued"
	StatusRinging    = "ringing"
	StatusInProgress = "in-progress"
	StatusForwarding = "forwarding"
	StatusEnded      = "ended"
)

// StatusRank returns the position of a provider status in the total order.
// Unknown statuses rank alongside queued so they can never regress progress
// already earned; the raw text is still passed through as status detail.
func StatusRank(status string) int {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusRinging:
		return 2
	case StatusInProgress, StatusForwarding:
		return 3
	case StatusEnded:
		return 4
	default:
		return 1
	}
}

// StatusTerminal reports whether the status ends the call lifecycle.
func StatusTerminal(status string) bool {
	return strings.ToLower(strings.TrimSpace(status)) == StatusEnded
}
