package stream

import (
	"time"

	"workchat/client/internal/models"
)

// The grouping predicates are pure functions of the ordered sequence.
// Avatar and name-label grouping both use ShouldShowSenderMeta.

// ShouldShowSenderMeta reports whether the message at index starts a
// visual group: the first message, or any message whose sender or
// minute-truncated send time differs from the one before it.
func (s *MessageStream) ShouldShowSenderMeta(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.messages) {
		return false
	}
	if index == 0 {
		return true
	}
	return differs(s.messages[index-1], s.messages[index])
}

// ShouldShowTimestamp reports whether the message at index ends a
// visual group: the last message, or any message whose sender or
// minute-truncated send time differs from the one after it.
func (s *MessageStream) ShouldShowTimestamp(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.messages) {
		return false
	}
	if index == len(s.messages)-1 {
		return true
	}
	return differs(s.messages[index], s.messages[index+1])
}

// ShouldShowDateSeparator reports whether a date separator precedes the
// message at index: never for the first message, otherwise when the
// calendar date changed from the previous one. Invalid (zero)
// timestamps suppress the separator.
func (s *MessageStream) ShouldShowDateSeparator(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index <= 0 || index >= len(s.messages) {
		return false
	}
	prev, cur := s.messages[index-1].SentAt, s.messages[index].SentAt
	if prev.IsZero() || cur.IsZero() {
		return false
	}
	py, pm, pd := prev.Date()
	cy, cm, cd := cur.Date()
	return py != cy || pm != cm || pd != cd
}

// differs reports a group boundary between two adjacent messages:
// different sender, or different minute.
func differs(a, b models.Message) bool {
	if a.SenderID != b.SenderID {
		return true
	}
	return !a.SentAt.Truncate(time.Minute).Equal(b.SentAt.Truncate(time.Minute))
}
