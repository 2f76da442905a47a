package namespace

import "time"

// Event is the payload of the lifecycle events a Resolver publishes.
// Loaded events carry Count; resolved and failed events carry Key and TypeName
// (a failed load has neither). Failed events carry Err.
type Event struct {
	ResolverID string
	Location   string
	Key        string
	TypeName   string
	Count      int
	Duration   time.Duration
	Err        error
}
