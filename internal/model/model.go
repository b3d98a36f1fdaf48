// Package model manages completion backends and candidate resolution.
//
// Two boundaries live here:
//   - CompletionClient: "complete this conversation" against one named
//     model, plus a listing of currently usable models. Any backend
//     implementing the two calls satisfies it.
//   - Resolver: picks which candidate to attempt, in what order, and
//     degrades to a fixed fallback text when every attempt fails.
package model

import "context"

// CompletionClient is the generation call boundary.
type CompletionClient interface {
	// Complete runs one generation call against the named model.
	Complete(ctx context.Context, req *Request) (*Completion, error)

	// ListModels reports the identifiers the backend currently serves.
	// Errors are expected and mean "no information", never "abort".
	ListModels(ctx context.Context) ([]Candidate, error)
}
