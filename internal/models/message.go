package models

import (
	"fmt"
	"time"
)

// Message is one chat message. Messages are immutable once created;
// streams only append, never rewrite.
//
// Historical messages carry a server-assigned ID. Messages created
// locally before server confirmation use ProvisionalID, which the wire
// echo of a self-send reproduces, so the echo dedupes against the
// optimistic copy.
type Message struct {
	ID               string    `json:"id"`
	RoomID           string    `json:"chatRoomId"`
	SenderID         string    `json:"senderId"`
	SenderName       string    `json:"senderName"`
	SenderProfileRef string    `json:"profile"`
	Content          string    `json:"content"`
	SentAt           time.Time `json:"timestamp"`
}

// IsMine reports whether the message was sent by the given member.
func (m Message) IsMine(memberID string) bool {
	return m.SenderID == memberID
}

// ProvisionalID derives the client-side key for a message that has no
// server-assigned ID yet.
func ProvisionalID(senderID string, sentAt time.Time) string {
	return fmt.Sprintf("%s-%d", senderID, sentAt.UnixMilli())
}
