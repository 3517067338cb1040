// Package notifylog is the durable record of notification batches that were
// actually sent, and the decision policies that consult it.
//
// The log answers two questions for a scenario's current request snapshot:
// which requests must be suppressed because they were already notified and
// are unchanged (exclusion), and which must be re-notified because a waiting
// period elapsed without a change (resend).
package notifylog

import "time"

// Entry records one notification batch at the moment it was sent.
// Entries are created once, never mutated, and removed only by retention
// pruning.
type Entry struct {
	// Timestamp is the instant the batch was sent.
	Timestamp time.Time `json:"timestamp"`

	// Scenario identifies the notification workflow this batch belongs to.
	Scenario string `json:"scenario"`

	// RequestIDs lists the request identifiers included in this batch.
	// Duplicates within a batch carry no meaning.
	RequestIDs []string `json:"request_ids"`

	// Recipient and Subject are informational only; the decision policies
	// never read them.
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`

	// ChangeFingerprints maps request id to that request's change token as
	// it was at send time. A missing id means the fingerprint is unknown.
	ChangeFingerprints map[string]string `json:"request_changes,omitempty"`

	// SentDates maps request id to the instant that specific request was
	// included in a send. Only the resend policy reads it. Absent in
	// entries written by older versions.
	SentDates map[string]time.Time `json:"request_sent_dates,omitempty"`
}

// document is the wholesale on-disk representation of the log.
type document struct {
	Entries []Entry `json:"entries"`
}
