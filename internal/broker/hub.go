package broker

import (
	"encoding/json"
	"strings"
	"time"

	"workchat/client/internal/models"
	"workchat/client/pkg/logger"
)

// subscription binds one live connection to one room topic.
type subscription struct {
	conn   *wsSession
	roomID string
}

// publish is a client SEND waiting to be persisted and fanned out.
type publish struct {
	roomID string
	frame  models.InboundFrame
}

// Hub routes frames between live connections, storage, and the Redis
// fanout channel. One goroutine owns all of its maps.
type Hub struct {
	RegisterCh   chan subscription
	UnregisterCh chan *wsSession
	IncomingCh   chan publish

	storage Storage

	// roomID -> set of sessions subscribed to it
	rooms    map[string]map[*wsSession]bool
	pubSubCh chan publish
}

func NewHub(storage Storage) *Hub {
	return &Hub{
		RegisterCh:   make(chan subscription),
		UnregisterCh: make(chan *wsSession),
		IncomingCh:   make(chan publish),
		storage:      storage,
		rooms:        make(map[string]map[*wsSession]bool),
		pubSubCh:     make(chan publish),
	}
}

// Run is the hub dispatcher. Start it once, as a goroutine.
func (h *Hub) Run() {
	h.startPubSubListener()

	for {
		select {
		case sub := <-h.RegisterCh:
			if h.rooms[sub.roomID] == nil {
				h.rooms[sub.roomID] = make(map[*wsSession]bool)
			}
			h.rooms[sub.roomID][sub.conn] = true
			logger.Debug("subscription: member=%s room=%s", sub.conn.member.MemberID, sub.roomID)

		case conn := <-h.UnregisterCh:
			for roomID, conns := range h.rooms {
				if conns[conn] {
					delete(conns, conn)
					if len(conns) == 0 {
						delete(h.rooms, roomID)
					}
				}
			}

		case p := <-h.IncomingCh:
			h.handlePublish(p)

		case p := <-h.pubSubCh:
			h.fanOut(p)
		}
	}
}

// handlePublish persists the message, updates room metadata and unread
// counters, then hands the frame to Redis. Fanout to live subscribers
// happens on the pub/sub side so every broker instance behaves the
// same.
func (h *Hub) handlePublish(p publish) {
	sentAt, err := time.Parse(time.RFC3339, p.frame.Timestamp)
	if err != nil {
		logger.Error("publish with bad timestamp for room %s: %v", p.roomID, err)
		return
	}
	rec := &ChatHistory{
		RoomID:     p.roomID,
		SenderID:   p.frame.SenderID,
		SenderName: p.frame.SenderName,
		Profile:    p.frame.Profile,
		Content:    p.frame.Content,
		SentAt:     sentAt,
	}
	if err := h.storage.SaveMessage(rec); err != nil {
		return
	}
	if err := h.storage.TouchRoom(p.roomID, p.frame.Content, sentAt); err != nil {
		logger.Error("touch room %s: %v", p.roomID, err)
	}
	if err := h.storage.IncrementUnread(p.roomID, p.frame.SenderID); err != nil {
		logger.Error("increment unread for room %s: %v", p.roomID, err)
	}
	if err := h.storage.PublishFrame(p.roomID, p.frame); err != nil {
		logger.Error("redis publish for room %s: %v", p.roomID, err)
	}
}

func (h *Hub) fanOut(p publish) {
	for conn := range h.rooms[p.roomID] {
		if !conn.enqueueMessage(p.roomID, p.frame) {
			// Slow consumer; drop the connection, not the hub.
			delete(h.rooms[p.roomID], conn)
			conn.shutdown()
		}
	}
}

func (h *Hub) startPubSubListener() {
	pubsub := h.storage.SubscribeToAllRooms()
	go func() {
		defer pubsub.Close()
		for msg := range pubsub.Channel() {
			var frame models.InboundFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				logger.Error("unmarshal pubsub payload: %v", err)
				continue
			}
			roomID := strings.TrimPrefix(msg.Channel, roomChannelPrefix)
			h.pubSubCh <- publish{roomID: roomID, frame: frame}
		}
	}()
}
