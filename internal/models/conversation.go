package models

import (
	"strings"
	"time"
)

// TopicKind distinguishes direct rooms from group rooms.
type TopicKind string

const (
	TopicOneToOne TopicKind = "ONE_TO_ONE"
	TopicGroup    TopicKind = "GROUP"
)

// Conversation is one entry in a member's room list. LastMessagePreview
// and LastActiveAt are updated on every message event for the room,
// whether or not the room is open. UnreadCount never goes below zero.
type Conversation struct {
	RoomID             string    `json:"chatRoomId"`
	DisplayName        string    `json:"chatRoomName"`
	Participants       []Member  `json:"participants"`
	Kind               TopicKind `json:"topic"`
	LastMessagePreview string    `json:"lastMessage"`
	LastActiveAt       time.Time `json:"lastActive"`
	UnreadCount        int       `json:"unreadCount"`
}

// Title returns the name to show for the room. Rooms without an explicit
// display name fall back to the other participants' names, excluding the
// local member.
func (c *Conversation) Title(selfID string) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	var names []string
	for _, p := range c.Participants {
		if p.MemberID == selfID {
			continue
		}
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}
