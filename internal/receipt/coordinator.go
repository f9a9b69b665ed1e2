// Package receipt tracks whether the member is looking at a room and
// propagates read receipts: outbound on focus, unread bookkeeping for
// everything arriving elsewhere.
package receipt

import (
	"sync"
	"time"

	"workchat/client/internal/models"
	"workchat/client/pkg/logger"
)

// Sender publishes a read receipt over an open session.
type Sender interface {
	SendReadReceipt(memberID string) error
}

// Unreads is the slice of the conversation list the coordinator drives.
type Unreads interface {
	SetFocused(roomID string)
	ClearFocused()
	ApplyIncomingMessage(roomID, preview, senderName string, at time.Time)
}

// Coordinator holds the local focus state for the current view session.
// Nothing persists across app restarts; a fresh process starts
// not-focused until the first explicit focus event.
type Coordinator struct {
	memberID string
	store    Unreads

	mu           sync.Mutex
	foregrounded bool
}

func New(memberID string, store Unreads) *Coordinator {
	return &Coordinator{memberID: memberID, store: store}
}

// SetForegrounded records whether the owning view is visible.
func (c *Coordinator) SetForegrounded(visible bool) {
	c.mu.Lock()
	c.foregrounded = visible
	c.mu.Unlock()
}

// OnFocus fires when a room gains focus. While the view is
// foregrounded it sends the read receipt immediately and zeroes the
// room's unread counter; otherwise it does nothing.
func (c *Coordinator) OnFocus(sender Sender, roomID string) {
	c.mu.Lock()
	visible := c.foregrounded
	c.mu.Unlock()
	if !visible {
		return
	}
	if err := sender.SendReadReceipt(c.memberID); err != nil {
		logger.Error("read receipt for room %s not sent: %v", roomID, err)
	}
	c.store.SetFocused(roomID)
}

// OnBlur marks the view not-focused. No network effect.
func (c *Coordinator) OnBlur() {
	c.store.ClearFocused()
}

// OnInboundMessage routes a live message. The store updates the room's
// preview either way and increments unread only while the room is not
// focused; a focused room additionally acknowledges with a receipt.
func (c *Coordinator) OnInboundMessage(sender Sender, msg models.Message, isFocused bool) {
	c.store.ApplyIncomingMessage(msg.RoomID, msg.Content, msg.SenderName, msg.SentAt)
	if isFocused {
		c.OnFocus(sender, msg.RoomID)
	}
}
