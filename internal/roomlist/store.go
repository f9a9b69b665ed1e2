// Package roomlist maintains the member's ordered conversation list:
// last-message metadata, unread counters, and search derivation. It is
// the only state shared across open rooms in the process.
package roomlist

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"workchat/client/internal/models"
	"workchat/client/pkg/logger"
)

// Lister fetches the member's rooms from the room-listing collaborator.
type Lister interface {
	ListRooms(ctx context.Context, member models.Member) ([]models.Conversation, error)
}

// Store holds the conversation list sorted by last activity, most
// recent first.
type Store struct {
	member models.Member
	lister Lister

	mu      sync.Mutex
	rooms   []models.Conversation
	focused string
}

func NewStore(member models.Member, lister Lister) *Store {
	return &Store{member: member, lister: lister}
}

// Refresh replaces the list with a full fetch. Not incremental.
func (s *Store) Refresh(ctx context.Context) error {
	rooms, err := s.lister.ListRooms(ctx, s.member)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rooms = rooms
	s.sortLocked()
	s.mu.Unlock()
	return nil
}

// Conversations returns a copy of the ordered list.
func (s *Store) Conversations() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Conversation, len(s.rooms))
	copy(out, s.rooms)
	return out
}

// Get returns the room with the given ID.
func (s *Store) Get(roomID string) (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.RoomID == roomID {
			return r, true
		}
	}
	return models.Conversation{}, false
}

// Add inserts a newly created room at its sorted position. A room that
// already exists is updated in place.
func (s *Store) Add(room models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rooms {
		if s.rooms[i].RoomID == room.RoomID {
			s.rooms[i] = room
			s.sortLocked()
			return
		}
	}
	s.rooms = append(s.rooms, room)
	s.sortLocked()
}

// ApplyIncomingMessage records a message event against the room: preview
// and last-active update always happen; the unread counter increments
// only while the room is not focused. Each call counts exactly once.
func (s *Store) ApplyIncomingMessage(roomID, preview, senderName string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rooms {
		if s.rooms[i].RoomID != roomID {
			continue
		}
		s.rooms[i].LastMessagePreview = preview
		s.rooms[i].LastActiveAt = at
		if s.focused != roomID {
			s.rooms[i].UnreadCount++
		}
		logger.Debug("room %s updated: from=%s unread=%d", roomID, senderName, s.rooms[i].UnreadCount)
		s.sortLocked()
		return
	}
}

// ApplyOutgoingMessage records the member's own send against the room:
// preview and last-active update, never the unread counter. Unread
// counts inbound messages only.
func (s *Store) ApplyOutgoingMessage(roomID, preview string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rooms {
		if s.rooms[i].RoomID != roomID {
			continue
		}
		s.rooms[i].LastMessagePreview = preview
		s.rooms[i].LastActiveAt = at
		s.sortLocked()
		return
	}
}

// SetFocused marks a room as the one the member is looking at and zeroes
// its unread counter.
func (s *Store) SetFocused(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = roomID
	for i := range s.rooms {
		if s.rooms[i].RoomID == roomID {
			s.rooms[i].UnreadCount = 0
			return
		}
	}
}

// FocusedRoom returns the ID of the focused room, or "".
func (s *Store) FocusedRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// ClearFocused marks no room as focused.
func (s *Store) ClearFocused() {
	s.mu.Lock()
	s.focused = ""
	s.mu.Unlock()
}

// Filter derives a filtered view without mutating the list.
func (s *Store) Filter(keep func(models.Conversation) bool) []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Conversation
	for _, r := range s.rooms {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// SearchByName filters rooms whose title contains the term,
// case-insensitively. Recomputed in full on every call.
func (s *Store) SearchByName(term string) []models.Conversation {
	term = strings.ToLower(term)
	self := s.member.MemberID
	return s.Filter(func(c models.Conversation) bool {
		return strings.Contains(strings.ToLower(c.Title(self)), term)
	})
}

// Remove drops the room from the local list. The server-side membership
// table is the source of truth; this is only the local reflection.
func (s *Store) Remove(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rooms {
		if s.rooms[i].RoomID == roomID {
			s.rooms = append(s.rooms[:i], s.rooms[i+1:]...)
			return
		}
	}
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.rooms, func(i, j int) bool {
		return s.rooms[i].LastActiveAt.After(s.rooms[j].LastActiveAt)
	})
}
