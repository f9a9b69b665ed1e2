package transport

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"workchat/client/internal/models"
	"workchat/client/internal/stomp"
	"workchat/client/pkg/logger"
)

// ConnectionState is the lifecycle state of one room's session.
// Transitions: DISCONNECTED→CONNECTING→{CONNECTED,FAILED};
// CONNECTED→DISCONNECTED on explicit close. FAILED is terminal until a
// fresh Connect.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Session is one client's live transport connection scoped to one open
// room. Not shared across rooms.
type Session struct {
	RoomID string
	Topic  string

	mu    sync.Mutex
	state ConnectionState
	conn  *websocket.Conn
	done  chan struct{}
}

func (s *Session) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Send publishes one message envelope to the application destination.
// When the session is not CONNECTED the frame is dropped and logged;
// nothing is queued for later — re-sending after a reconnect is the
// caller's job.
func (s *Session) Send(envelope models.PublishEnvelope) error {
	if state := s.State(); state != StateConnected {
		err := &DeliveryError{RoomID: s.RoomID, State: state}
		logger.Error("%v", err)
		return err
	}

	body, err := encodeBody(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	frame := stomp.NewFrame(stomp.CommandSend, body)
	frame.Set(stomp.HeaderDestination, sendDestination)
	frame.Set(stomp.HeaderContentType, "application/json")
	return s.writeFrame(frame)
}

// SendReadReceipt publishes a read receipt to the room's read endpoint.
func (s *Session) SendReadReceipt(memberID string) error {
	if state := s.State(); state != StateConnected {
		err := &DeliveryError{RoomID: s.RoomID, State: state}
		logger.Error("read receipt: %v", err)
		return err
	}

	body, err := encodeBody(models.ReadReceipt{MemberID: memberID})
	if err != nil {
		return fmt.Errorf("encode read receipt: %w", err)
	}
	frame := stomp.NewFrame(stomp.CommandSend, body)
	frame.Set(stomp.HeaderDestination, fmt.Sprintf("/app/chat/%s/read", s.RoomID))
	frame.Set(stomp.HeaderContentType, "application/json")
	return s.writeFrame(frame)
}

// Disconnect tears the session down. Closing an already-closed session
// is a no-op.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	wasConnected := s.state == StateConnected
	s.state = StateDisconnected
	conn := s.conn
	close(s.done)
	if conn != nil && wasConnected {
		disconnect := stomp.NewFrame(stomp.CommandDisconnect, nil)
		if err := conn.WriteMessage(websocket.TextMessage, disconnect.Encode()); err != nil {
			logger.Debug("DISCONNECT frame not delivered for room %s: %v", s.RoomID, err)
		}
	}
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	logger.Info("session disconnected: room=%s", s.RoomID)
}

func (s *Session) subscribe() error {
	frame := stomp.NewFrame(stomp.CommandSubscribe, nil)
	frame.Set(stomp.HeaderID, "sub-"+s.RoomID)
	frame.Set(stomp.HeaderDestination, s.Topic)
	return s.writeFrame(frame)
}

func (s *Session) writeFrame(frame *stomp.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, frame.Encode())
}

// readLoop delivers inbound frames in arrival order. Malformed frames
// are logged and dropped. A transport error while not deliberately
// closed marks the session FAILED and fires OnError once.
func (s *Session) readLoop(handlers Handlers) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.setState(StateFailed)
			logger.Error("session read failed: room=%s: %v", s.RoomID, err)
			if handlers.OnError != nil {
				handlers.OnError(&ConnectionError{RoomID: s.RoomID, Reason: "connection lost", Err: err})
			}
			return
		}

		frame, err := stomp.Decode(data)
		if err != nil {
			logger.Error("dropping undecodable frame: room=%s: %v", s.RoomID, err)
			continue
		}

		switch frame.Command {
		case stomp.CommandMessage:
			var inbound models.InboundFrame
			if err := json.Unmarshal(frame.Body, &inbound); err != nil {
				logger.Error("dropping malformed message body: room=%s: %v", s.RoomID, err)
				continue
			}
			if err := inbound.Validate(); err != nil {
				logger.Error("dropping incomplete message: room=%s: %v", s.RoomID, err)
				continue
			}
			if handlers.OnFrame != nil {
				handlers.OnFrame(inbound)
			}
		case stomp.CommandError:
			s.setState(StateFailed)
			logger.Error("broker error frame: room=%s: %s", s.RoomID, frame.Get(stomp.HeaderMessage))
			if handlers.OnError != nil {
				handlers.OnError(&ConnectionError{RoomID: s.RoomID, Reason: frame.Get(stomp.HeaderMessage)})
			}
			return
		default:
			logger.Debug("ignoring frame %s: room=%s", frame.Command, s.RoomID)
		}
	}
}
