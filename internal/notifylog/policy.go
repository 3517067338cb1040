package notifylog

import (
	"sort"
	"time"

	"github.com/procurelab/reqnotify/internal/requests"
)

// IDSet is a set of request identifiers produced by the decision policies.
type IDSet map[string]struct{}

// Contains reports whether id is in the set.
func (s IDSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RequestsToExclude returns the ids that must NOT be notified: requests that
// were already included in a sent batch for scenario within the lookback
// window and whose change token has not moved since, plus requests that are
// no longer present in the current snapshot.
//
// A request whose current change token differs from every recorded
// fingerprint remains eligible, even if it was notified before. Fingerprint
// comparison is exact equality; there is no semantic diffing.
//
// Pure function of its arguments: no I/O, no hidden state.
func RequestsToExclude(entries []Entry, scenario string, current []requests.Snapshot, lookbackDays int, now time.Time) IDSet {
	cutoff := now.AddDate(0, 0, -lookbackDays)

	currentChange := make(map[string]string, len(current))
	for _, snap := range current {
		if snap.ID == "" {
			// Malformed snapshot rows are skipped individually.
			continue
		}
		currentChange[snap.ID] = snap.ChangeDateTime
	}

	excluded := make(IDSet)
	for _, e := range entries {
		// Entries are appended in send order by convention only, so filter
		// by timestamp instead of assuming the slice is ordered.
		if e.Scenario != scenario || e.Timestamp.Before(cutoff) {
			continue
		}
		for _, id := range e.RequestIDs {
			change, present := currentChange[id]
			if !present {
				// Resolved or closed since the last send; nothing left to
				// notify about.
				excluded[id] = struct{}{}
				continue
			}
			if fp, ok := e.ChangeFingerprints[id]; ok && fp == change {
				excluded[id] = struct{}{}
			}
		}
	}
	return excluded
}

// RequestsToResend returns the ids that should be deliberately re-notified:
// requests whose recorded send date is at least daysToWait old and whose
// change token still equals the fingerprint recorded at that send. A request
// absent from the current snapshot is never resent.
//
// Exclusion and resend intentionally may disagree for the same id; callers
// choose which policy applies to which scenario.
func RequestsToResend(entries []Entry, scenario string, current []requests.Snapshot, daysToWait int, now time.Time) IDSet {
	retrigger := now.AddDate(0, 0, -daysToWait)

	currentChange := make(map[string]string, len(current))
	for _, snap := range current {
		if snap.ID == "" {
			continue
		}
		currentChange[snap.ID] = snap.ChangeDateTime
	}

	resend := make(IDSet)
	for _, e := range entries {
		if e.Scenario != scenario || len(e.SentDates) == 0 {
			continue
		}
		for id, sentDate := range e.SentDates {
			change, present := currentChange[id]
			if !present {
				continue
			}
			// Absent fingerprints read as empty and therefore never match a
			// real change token: a request sent without a recorded
			// fingerprint is not reminded.
			lastChange := e.ChangeFingerprints[id]
			if !sentDate.After(retrigger) && lastChange == change {
				resend[id] = struct{}{}
			}
		}
	}
	return resend
}
