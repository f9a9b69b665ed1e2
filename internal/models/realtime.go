package models

import (
	"errors"
	"time"
)

// PublishEnvelope is the JSON body of a SEND frame to /app/chat.
type PublishEnvelope struct {
	ChatRoomID  string `json:"chatRoomId"`
	SenderID    string `json:"senderId"`
	SenderName  string `json:"senderName"`
	Content     string `json:"content"`
	Profile     string `json:"profile"`
	RecipientID string `json:"recipientId,omitempty"`
	Timestamp   string `json:"timestamp"`
	Topic       string `json:"topic"`
}

// InboundFrame is the JSON body of a MESSAGE frame delivered on a room
// topic. Frames that fail Validate are logged and dropped rather than
// applied.
type InboundFrame struct {
	ChatRoomID string `json:"chatRoomId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
	Profile    string `json:"profile"`
	Timestamp  string `json:"timestamp"`
}

// ReadReceipt is the JSON body of a SEND frame to /app/chat/{roomId}/read.
type ReadReceipt struct {
	MemberID string `json:"memberId"`
}

var errIncompleteFrame = errors.New("inbound frame missing required fields")

// Validate checks the required fields of an inbound frame.
func (f InboundFrame) Validate() error {
	if f.ChatRoomID == "" || f.SenderID == "" || f.Timestamp == "" {
		return errIncompleteFrame
	}
	return nil
}

// ToMessage converts a validated frame into a Message. The timestamp
// must be RFC3339; a frame with an unparseable timestamp is rejected.
func (f InboundFrame) ToMessage() (Message, error) {
	if err := f.Validate(); err != nil {
		return Message{}, err
	}
	sentAt, err := time.Parse(time.RFC3339, f.Timestamp)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:               ProvisionalID(f.SenderID, sentAt),
		RoomID:           f.ChatRoomID,
		SenderID:         f.SenderID,
		SenderName:       f.SenderName,
		SenderProfileRef: f.Profile,
		Content:          f.Content,
		SentAt:           sentAt,
	}, nil
}
