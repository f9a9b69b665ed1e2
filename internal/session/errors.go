package session

import "fmt"

// ValidationError reports a room-creation precondition violation. It is
// surfaced to the user and aborts the operation; no partial room is
// created and no network call is issued.
type ValidationError struct {
	Kind  string
	Count int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cannot create %s room with %d participants", e.Kind, e.Count)
}

// StaleResponseError reports a network response that arrived after its
// owning room was closed. The result is discarded, never applied.
type StaleResponseError struct {
	RoomID string
}

func (e *StaleResponseError) Error() string {
	return fmt.Sprintf("discarding stale response for closed room %s", e.RoomID)
}
