// Package requests supplies the current snapshot of candidate workflow
// requests for a notification scenario.
package requests

import "context"

// Snapshot is one candidate request as it exists right now in the source
// system. ChangeDateTime is an opaque version token (a last-modified
// timestamp in practice): two snapshots of the same request are unchanged
// iff the token compares byte-equal.
type Snapshot struct {
	ID             string `json:"id"`
	StatusID       string `json:"status_id"`
	ChangeDateTime string `json:"change_datetime"`
}

// Source loads the current request snapshot for a scenario. The query is the
// scenario-configured selection; implementations decide what it means.
type Source interface {
	Current(ctx context.Context, query string) ([]Snapshot, error)
}
