// Package session orchestrates one room's lifecycle: transport session,
// message stream, and read receipts, bound together per user action.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"workchat/client/internal/models"
	"workchat/client/internal/receipt"
	"workchat/client/internal/roomlist"
	"workchat/client/internal/stream"
	"workchat/client/internal/transport"
	"workchat/client/pkg/logger"
)

// RoomState is the per-room lifecycle: CLOSED→OPENING→OPEN→CLOSING→CLOSED.
type RoomState int

const (
	RoomClosed RoomState = iota
	RoomOpening
	RoomOpen
	RoomClosing
)

func (s RoomState) String() string {
	switch s {
	case RoomClosed:
		return "CLOSED"
	case RoomOpening:
		return "OPENING"
	case RoomOpen:
		return "OPEN"
	case RoomClosing:
		return "CLOSING"
	}
	return "UNKNOWN"
}

// Conn is the transport surface the controller drives.
type Conn interface {
	Send(envelope models.PublishEnvelope) error
	SendReadReceipt(memberID string) error
	Disconnect()
	State() transport.ConnectionState
}

// Connector establishes transport sessions.
type Connector interface {
	Connect(ctx context.Context, memberID, roomID string, kind models.TopicKind, handlers transport.Handlers) (Conn, error)
}

// API is the slice of the REST collaborators the controller needs.
type API interface {
	stream.HistoryFetcher
	CreateRoom(ctx context.Context, room models.Conversation) (models.Conversation, error)
}

// ManagerConnector adapts transport.Manager to the Connector interface.
type ManagerConnector struct {
	Manager *transport.Manager
}

func (m ManagerConnector) Connect(ctx context.Context, memberID, roomID string, kind models.TopicKind, handlers transport.Handlers) (Conn, error) {
	s, err := m.Manager.Connect(ctx, memberID, roomID, kind, handlers)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Controller owns at most one open room at a time. Session and
// MessageStream are exclusive to it; the conversation list is the only
// state shared with the rest of the process.
type Controller struct {
	member    models.Member
	connector Connector
	api       API
	store     *roomlist.Store
	receipts  *receipt.Coordinator

	mu         sync.Mutex
	state      RoomState
	roomID     string
	kind       models.TopicKind
	conn       Conn
	stream     *stream.MessageStream
	generation uint64
}

func NewController(member models.Member, connector Connector, api API, store *roomlist.Store, receipts *receipt.Coordinator) *Controller {
	return &Controller{
		member:    member,
		connector: connector,
		api:       api,
		store:     store,
		receipts:  receipts,
	}
}

func (c *Controller) State() RoomState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stream returns the open room's message log, or nil when no room is
// open.
func (c *Controller) Stream() *stream.MessageStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// OpenRoom transitions CLOSED→OPENING, establishes the transport
// session and loads history, then commits OPENING→OPEN and focuses the
// room. A close that lands while either call is in flight wins: the
// results are discarded and a StaleResponseError comes back.
func (c *Controller) OpenRoom(ctx context.Context, room models.Conversation) error {
	c.mu.Lock()
	if c.state != RoomClosed {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot open room %s: controller is %s", room.RoomID, state)
	}
	c.state = RoomOpening
	c.roomID = room.RoomID
	c.kind = room.Kind
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	// The stream exists before the subscription so frames arriving
	// during the history fetch buffer into it; it becomes visible only
	// on commit.
	st := stream.New(room.RoomID, c.member.MemberID)

	conn, err := c.connector.Connect(ctx, c.member.MemberID, room.RoomID, room.Kind, transport.Handlers{
		OnFrame: func(frame models.InboundFrame) {
			c.handleFrame(gen, st, frame)
		},
		OnError: func(err error) {
			// No automatic retry; the surrounding UI prompts a
			// reconnect.
			logger.Error("room %s session lost: %v", room.RoomID, err)
		},
	})
	if err != nil {
		c.abortOpen(gen)
		return err
	}

	if err := st.LoadHistory(ctx, c.api); err != nil {
		conn.Disconnect()
		c.abortOpen(gen)
		return err
	}

	c.mu.Lock()
	if c.generation != gen || c.state != RoomOpening {
		c.mu.Unlock()
		conn.Disconnect()
		err := &StaleResponseError{RoomID: room.RoomID}
		logger.Info("%v", err)
		return err
	}
	c.conn = conn
	c.stream = st
	c.state = RoomOpen
	c.mu.Unlock()

	c.receipts.OnFocus(conn, room.RoomID)
	return nil
}

// CloseRoom transitions to CLOSED, disconnecting the session and
// discarding the in-memory stream. History is re-fetched on the next
// open; nothing is cached across closes. Closing a room that is not
// open is a no-op.
func (c *Controller) CloseRoom() {
	c.mu.Lock()
	if c.state == RoomClosed {
		c.mu.Unlock()
		return
	}
	c.state = RoomClosing
	c.generation++
	conn := c.conn
	roomID := c.roomID
	c.conn = nil
	c.stream = nil
	c.roomID = ""
	c.state = RoomClosed
	c.mu.Unlock()

	if conn != nil {
		conn.Disconnect()
	}
	if c.store.FocusedRoom() == roomID {
		c.receipts.OnBlur()
	}
}

// CreateRoom validates the participant set, asks the room-management
// collaborator to create the room, then opens it. ONE_TO_ONE requires
// exactly two participants including self; GROUP requires at least two.
func (c *Controller) CreateRoom(ctx context.Context, kind models.TopicKind, name string, participants []models.Member) (models.Conversation, error) {
	members := withSelf(c.member, participants)
	switch kind {
	case models.TopicOneToOne:
		if len(members) != 2 {
			return models.Conversation{}, &ValidationError{Kind: string(kind), Count: len(members)}
		}
	case models.TopicGroup:
		if len(members) < 2 {
			return models.Conversation{}, &ValidationError{Kind: string(kind), Count: len(members)}
		}
	default:
		return models.Conversation{}, &ValidationError{Kind: string(kind), Count: len(members)}
	}

	room := models.Conversation{
		RoomID:       uuid.New().String(),
		DisplayName:  name,
		Participants: members,
		Kind:         kind,
		LastActiveAt: time.Now(),
	}
	created, err := c.api.CreateRoom(ctx, room)
	if err != nil {
		return models.Conversation{}, err
	}
	c.store.Add(created)

	if err := c.OpenRoom(ctx, created); err != nil {
		return created, err
	}
	return created, nil
}

// SendMessage appends an optimistic local copy and publishes the
// envelope. A drop on the wire leaves the optimistic copy in place; the
// caller decides whether to re-send after reconnecting.
func (c *Controller) SendMessage(content string) error {
	c.mu.Lock()
	if c.state != RoomOpen || c.conn == nil {
		state := c.state
		roomID := c.roomID
		c.mu.Unlock()
		logger.Error("send dropped: no open room (state %s)", state)
		return &transport.DeliveryError{RoomID: roomID}
	}
	conn := c.conn
	st := c.stream
	roomID := c.roomID
	kind := c.kind
	c.mu.Unlock()

	now := time.Now()
	msg := models.Message{
		ID:               models.ProvisionalID(c.member.MemberID, now),
		RoomID:           roomID,
		SenderID:         c.member.MemberID,
		SenderName:       c.member.Name,
		SenderProfileRef: c.member.ProfileRef,
		Content:          content,
		SentAt:           now,
	}
	st.Append(msg)
	c.store.ApplyOutgoingMessage(roomID, content, now)

	return conn.Send(models.PublishEnvelope{
		ChatRoomID: roomID,
		SenderID:   c.member.MemberID,
		SenderName: c.member.Name,
		Content:    content,
		Profile:    c.member.ProfileRef,
		Timestamp:  now.Format(time.RFC3339),
		Topic:      transport.TopicForRoom(roomID, kind),
	})
}

// handleFrame applies one live frame if its generation is still
// current.
func (c *Controller) handleFrame(gen uint64, st *stream.MessageStream, frame models.InboundFrame) {
	c.mu.Lock()
	current := c.generation == gen && (c.state == RoomOpening || c.state == RoomOpen)
	conn := c.conn
	c.mu.Unlock()
	if !current {
		logger.Debug("dropping frame for closed room %s", frame.ChatRoomID)
		return
	}

	msg, err := frame.ToMessage()
	if err != nil {
		logger.Error("dropping malformed frame for room %s: %v", frame.ChatRoomID, err)
		return
	}
	st.AppendInbound(frame)

	if msg.IsMine(c.member.MemberID) {
		// Echo of an own send: the optimistic copy and the preview are
		// already in place, and unread counts inbound messages only.
		return
	}

	isFocused := c.store.FocusedRoom() == msg.RoomID
	if conn == nil {
		// Still OPENING: bookkeeping only, the receipt follows on
		// commit.
		c.store.ApplyIncomingMessage(msg.RoomID, msg.Content, msg.SenderName, msg.SentAt)
		return
	}
	c.receipts.OnInboundMessage(conn, msg, isFocused)
}

// withSelf returns the participant list with the local member included
// exactly once. The input is never mutated.
func withSelf(self models.Member, participants []models.Member) []models.Member {
	out := make([]models.Member, 0, len(participants)+1)
	seen := map[string]bool{self.MemberID: true}
	out = append(out, self)
	for _, p := range participants {
		if seen[p.MemberID] {
			continue
		}
		seen[p.MemberID] = true
		out = append(out, p)
	}
	return out
}

// abortOpen rolls OPENING back to CLOSED after a failed connect or
// history fetch, unless a close already got there first.
func (c *Controller) abortOpen(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.state != RoomOpening {
		return
	}
	c.state = RoomClosed
	c.roomID = ""
}
