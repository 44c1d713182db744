package api

import "fmt"

// ValidateResponseTransition checks whether a response status transition is
// valid. An empty "from" represents the initial state before any status has
// been set. completed/incomplete/failed are terminal: no outgoing transitions.
func ValidateResponseTransition(from, to ResponseStatus) *APIError {
	valid := map[ResponseStatus][]ResponseStatus{
		"":                       {ResponseStatusInProgress},
		ResponseStatusInProgress: {ResponseStatusCompleted, ResponseStatusIncomplete, ResponseStatusFailed},
	}

	allowed, exists := valid[from]
	if !exists {
		return NewInvalidRequestError("status", fmt.Sprintf("invalid transition from %s to %s", from, to))
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return NewInvalidRequestError("status", fmt.Sprintf("invalid transition from %s to %s", from, to))
}

// ValidateItemTransition checks whether an OutputItem status transition is
// valid. completed/incomplete/failed are terminal.
func ValidateItemTransition(from, to ItemStatus) *APIError {
	valid := map[ItemStatus][]ItemStatus{
		"":                   {ItemStatusInProgress},
		ItemStatusInProgress: {ItemStatusCompleted, ItemStatusIncomplete, ItemStatusFailed},
	}

	allowed, exists := valid[from]
	if !exists {
		return NewInvalidRequestError("status", fmt.Sprintf("invalid transition from %s to %s", from, to))
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return NewInvalidRequestError("status", fmt.Sprintf("invalid transition from %s to %s", from, to))
}
