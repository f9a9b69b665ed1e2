// Package transport owns the WebSocket+STOMP session lifecycle: one
// socket, one handshake, one topic subscription per open room. It does
// no message interpretation; every inbound frame is handed to the
// caller's handler as-is.
package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"workchat/client/internal/models"
	"workchat/client/internal/stomp"
	"workchat/client/pkg/logger"
)

const (
	wsPath          = "/ws"
	sendDestination = "/app/chat"
	stompVersion    = "1.2"
)

// TopicForRoom derives the subscription topic for a room. Both room
// kinds use the chatRoom namespace, which is the path the service
// publishes to.
func TopicForRoom(roomID string, kind models.TopicKind) string {
	_ = kind
	return "chatRoom/" + roomID
}

// Handlers receives transport events. OnFrame fires for every valid
// inbound MESSAGE frame, in arrival order. OnError fires once when the
// session fails; after that the session is dead until a fresh Connect.
type Handlers struct {
	OnFrame func(frame models.InboundFrame)
	OnError func(err error)
}

// Manager opens sessions against one messaging deployment. Sessions are
// independent of each other; a failure in one room's session never
// affects another's.
type Manager struct {
	wsBaseURL string
	token     string
	dialer    *websocket.Dialer
}

func NewManager(wsBaseURL, token string) *Manager {
	return &Manager{
		wsBaseURL: wsBaseURL,
		token:     token,
		dialer:    websocket.DefaultDialer,
	}
}

// Connect opens the socket, completes the STOMP handshake, and issues
// exactly one SUBSCRIBE for the room's topic. There is no automatic
// retry: on failure the caller gets a ConnectionError and must prompt
// an explicit reconnect.
func (m *Manager) Connect(ctx context.Context, memberID, roomID string, kind models.TopicKind, handlers Handlers) (*Session, error) {
	if memberID == "" || roomID == "" {
		err := &ConnectionError{RoomID: roomID, Reason: "memberId and roomId are required"}
		logger.Error("connect aborted: %v", err)
		return nil, err
	}

	topic := TopicForRoom(roomID, kind)
	session := &Session{
		RoomID: roomID,
		Topic:  topic,
		state:  StateConnecting,
		done:   make(chan struct{}),
	}

	conn, _, err := m.dialer.DialContext(ctx, m.wsBaseURL+wsPath, nil)
	if err != nil {
		session.setState(StateFailed)
		return nil, &ConnectionError{RoomID: roomID, Reason: "dial failed", Err: err}
	}
	session.conn = conn

	if err := m.handshake(session, memberID); err != nil {
		session.setState(StateFailed)
		conn.Close()
		return nil, err
	}

	if err := session.subscribe(); err != nil {
		session.setState(StateFailed)
		conn.Close()
		return nil, &ConnectionError{RoomID: roomID, Reason: "subscribe failed", Err: err}
	}

	session.setState(StateConnected)
	go session.readLoop(handlers)
	logger.Info("session connected: room=%s topic=%s", roomID, topic)
	return session, nil
}

func (m *Manager) handshake(s *Session, memberID string) error {
	connect := stomp.NewFrame(stomp.CommandConnect, nil)
	connect.Set(stomp.HeaderAcceptVersion, stompVersion)
	connect.Set(stomp.HeaderHost, "workchat")
	if m.token != "" {
		connect.Set(stomp.HeaderAuthorization, "Bearer "+m.token)
	}
	if err := s.writeFrame(connect); err != nil {
		return &ConnectionError{RoomID: s.RoomID, Reason: "CONNECT write failed", Err: err}
	}

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return &ConnectionError{RoomID: s.RoomID, Reason: "handshake read failed", Err: err}
	}
	reply, err := stomp.Decode(data)
	if err != nil {
		return &ConnectionError{RoomID: s.RoomID, Reason: "handshake decode failed", Err: err}
	}
	if reply.Command != stomp.CommandConnected {
		return &ConnectionError{
			RoomID: s.RoomID,
			Reason: fmt.Sprintf("handshake rejected: %s %s", reply.Command, reply.Get(stomp.HeaderMessage)),
		}
	}
	logger.Debug("handshake complete: member=%s room=%s", memberID, s.RoomID)
	return nil
}

// encodeBody marshals a frame body; used by Session send paths.
func encodeBody(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
