package transport

import "fmt"

// ConnectionError reports a failed connect: either an unmet precondition
// (missing member or room ID) or a transport/handshake failure. It is
// recoverable only by an explicit, user-triggered retry.
type ConnectionError struct {
	RoomID string
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connect room %s: %s: %v", e.RoomID, e.Reason, e.Err)
	}
	return fmt.Sprintf("connect room %s: %s", e.RoomID, e.Reason)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DeliveryError reports a Send attempted while the session was not
// CONNECTED. The frame is dropped from the wire; any optimistic local
// copy stays where the caller put it.
type DeliveryError struct {
	RoomID string
	State  ConnectionState
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("send to room %s dropped: session %s", e.RoomID, e.State)
}
