package broker

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ChatRoom is the persisted room record.
type ChatRoom struct {
	RoomID string `gorm:"primaryKey"`
	Name   string
	Kind   string
	// ParticipantIDs backs the membership check on publish.
	ParticipantIDs pq.StringArray `gorm:"type:text[]"`
	LastMessage    string
	LastActive     time.Time
}

// Participant is one member's view of a room, including the unread
// counter the read endpoint resets.
type Participant struct {
	gorm.Model
	RoomID   string `gorm:"index:idx_room_member,unique"`
	MemberID string `gorm:"index:idx_room_member,unique"`
	Name     string
	Profile  string
	Unread   int
}

// ChatHistory is one persisted message. The embedded gorm.Model ID is
// the server-assigned message ID.
type ChatHistory struct {
	gorm.Model
	RoomID     string `gorm:"index"`
	SenderID   string
	SenderName string
	Profile    string
	Content    string
	SentAt     time.Time
}
