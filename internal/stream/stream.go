// Package stream keeps the per-open-room ordered message log, merging
// one fetched history page with live-arriving frames, and derives the
// grouping decisions the view needs (sender meta, timestamps, date
// separators).
package stream

import (
	"context"
	"sort"
	"sync"

	"workchat/client/internal/models"
	"workchat/client/pkg/logger"
)

// HistoryFetcher fetches a room's full message history, ordered
// ascending by the collaborator.
type HistoryFetcher interface {
	History(ctx context.Context, roomID string) ([]models.Message, error)
}

// MessageStream is the ordered log for one open room. The authoritative
// order is ascending SentAt; messages are never mutated in place, only
// appended.
type MessageStream struct {
	roomID string
	selfID string

	mu       sync.Mutex
	messages []models.Message
	seen     map[string]struct{}
}

func New(roomID, selfID string) *MessageStream {
	return &MessageStream{
		roomID: roomID,
		selfID: selfID,
		seen:   make(map[string]struct{}),
	}
}

func (s *MessageStream) RoomID() string { return s.roomID }

// LoadHistory fetches the full history and merges it with anything
// already buffered from the live subscription. Records are sorted
// ascending before the merge; the merge itself is idempotent per
// message ID.
func (s *MessageStream) LoadHistory(ctx context.Context, fetcher HistoryFetcher) error {
	history, err := fetcher.History(ctx, s.roomID)
	if err != nil {
		return err
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].SentAt.Before(history[j].SentAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	buffered := s.messages
	s.messages = nil
	s.seen = make(map[string]struct{})
	for _, m := range history {
		s.appendLocked(m)
	}
	for _, m := range buffered {
		s.appendLocked(m)
	}
	return nil
}

// Append inserts the message at its sorted position. A message whose ID
// is already present leaves the stream unchanged, which covers the wire
// echo of a self-sent message landing on top of the optimistic copy.
// Returns whether the stream changed.
func (s *MessageStream) Append(msg models.Message) bool {
	if msg.RoomID != s.roomID {
		logger.Error("dropping message for room %s appended to stream for room %s", msg.RoomID, s.roomID)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(msg)
}

// AppendInbound applies a live frame. Frames from the local member are
// excluded; their optimistic copy is already in the stream.
func (s *MessageStream) AppendInbound(frame models.InboundFrame) bool {
	msg, err := frame.ToMessage()
	if err != nil {
		logger.Error("dropping inbound frame for room %s: %v", s.roomID, err)
		return false
	}
	if msg.IsMine(s.selfID) {
		return false
	}
	return s.Append(msg)
}

func (s *MessageStream) appendLocked(msg models.Message) bool {
	if _, dup := s.seen[msg.ID]; dup {
		return false
	}
	s.seen[msg.ID] = struct{}{}

	// Insert before the first later message; equal timestamps keep
	// arrival order.
	at := sort.Search(len(s.messages), func(i int) bool {
		return s.messages[i].SentAt.After(msg.SentAt)
	})
	s.messages = append(s.messages, models.Message{})
	copy(s.messages[at+1:], s.messages[at:])
	s.messages[at] = msg
	return true
}

// Messages returns a copy of the ordered log.
func (s *MessageStream) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *MessageStream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
