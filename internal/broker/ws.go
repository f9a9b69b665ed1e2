package broker

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"workchat/client/internal/auth"
	"workchat/client/internal/models"
	"workchat/client/internal/stomp"
	"workchat/client/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192

	topicPrefix   = "chatRoom/"
	sendDest      = "/app/chat"
	readDestStart = "/app/chat/"
	readDestEnd   = "/read"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dev broker; tighten per deployment.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSession is one client's STOMP session over a WebSocket.
type wsSession struct {
	hub       *Hub
	storage   Storage
	jwtSecret []byte

	conn      *websocket.Conn
	httpToken string

	member    models.Member
	connected bool

	send      chan []byte
	closeOnce sync.Once
}

// ServeWebSocket upgrades the connection and runs the STOMP session.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		return
	}

	s := &wsSession{
		hub:       h.Hub,
		storage:   h.Storage,
		jwtSecret: h.JWTSecret,
		conn:      conn,
		httpToken: bearerToken(c.GetHeader("Authorization")),
		send:      make(chan []byte, 256),
	}
	go s.writePump()
	go s.readPump()
}

func bearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return header[len("Bearer "):]
	}
	return ""
}

func (s *wsSession) readPump() {
	defer func() {
		s.hub.UnregisterCh <- s
		s.shutdown()
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("ws read: %v", err)
			}
			return
		}
		frame, err := stomp.Decode(data)
		if err != nil {
			logger.Error("dropping undecodable frame from %s: %v", s.member.MemberID, err)
			continue
		}
		if done := s.handleFrame(frame); done {
			return
		}
	}
}

// handleFrame dispatches one client frame. Returns true when the
// session should end.
func (s *wsSession) handleFrame(frame *stomp.Frame) bool {
	switch frame.Command {
	case stomp.CommandConnect:
		return s.handleConnect(frame)

	case stomp.CommandSubscribe:
		if !s.connected {
			s.sendError("not connected")
			return true
		}
		s.handleSubscribe(frame)
		return false

	case stomp.CommandSend:
		if !s.connected {
			s.sendError("not connected")
			return true
		}
		s.handleSend(frame)
		return false

	case stomp.CommandDisconnect:
		return true

	default:
		logger.Debug("ignoring %s frame from %s", frame.Command, s.member.MemberID)
		return false
	}
}

func (s *wsSession) handleConnect(frame *stomp.Frame) bool {
	token := bearerToken(frame.Get(stomp.HeaderAuthorization))
	if token == "" {
		token = s.httpToken
	}
	member, err := auth.ValidateToken(s.jwtSecret, token)
	if err != nil {
		s.sendError("authentication failed")
		return true
	}
	s.member = member
	s.connected = true

	reply := stomp.NewFrame(stomp.CommandConnected, nil)
	reply.Set(stomp.HeaderVersion, "1.2")
	s.enqueue(reply.Encode())
	return false
}

func (s *wsSession) handleSubscribe(frame *stomp.Frame) {
	dest := frame.Get(stomp.HeaderDestination)
	if !strings.HasPrefix(dest, topicPrefix) {
		s.sendError("unknown destination " + dest)
		return
	}
	roomID := strings.TrimPrefix(dest, topicPrefix)

	room, err := s.storage.GetRoomByID(roomID)
	if err != nil {
		s.sendError("no such room " + roomID)
		return
	}
	if !containsID(room.ParticipantIDs, s.member.MemberID) {
		s.sendError("not a participant of " + roomID)
		return
	}
	s.hub.RegisterCh <- subscription{conn: s, roomID: roomID}
}

func (s *wsSession) handleSend(frame *stomp.Frame) {
	dest := frame.Get(stomp.HeaderDestination)
	switch {
	case dest == sendDest:
		var env models.PublishEnvelope
		if err := json.Unmarshal(frame.Body, &env); err != nil {
			logger.Error("malformed publish from %s: %v", s.member.MemberID, err)
			return
		}
		room, err := s.storage.GetRoomByID(env.ChatRoomID)
		if err != nil {
			s.sendError("no such room " + env.ChatRoomID)
			return
		}
		if !containsID(room.ParticipantIDs, s.member.MemberID) {
			s.sendError("not a participant of " + env.ChatRoomID)
			return
		}
		s.hub.IncomingCh <- publish{
			roomID: env.ChatRoomID,
			frame: models.InboundFrame{
				ChatRoomID: env.ChatRoomID,
				// The session identity is authoritative, not the body.
				SenderID:   s.member.MemberID,
				SenderName: env.SenderName,
				Content:    env.Content,
				Profile:    env.Profile,
				Timestamp:  env.Timestamp,
			},
		}

	case strings.HasPrefix(dest, readDestStart) && strings.HasSuffix(dest, readDestEnd):
		roomID := strings.TrimSuffix(strings.TrimPrefix(dest, readDestStart), readDestEnd)
		var receipt models.ReadReceipt
		if err := json.Unmarshal(frame.Body, &receipt); err != nil {
			logger.Error("malformed read receipt from %s: %v", s.member.MemberID, err)
			return
		}
		if err := s.storage.ResetUnread(roomID, s.member.MemberID); err != nil {
			logger.Error("reset unread room=%s member=%s: %v", roomID, s.member.MemberID, err)
		}

	default:
		s.sendError("unknown destination " + dest)
	}
}

// enqueueMessage queues a MESSAGE frame for this client. False means
// the client is too slow and should be dropped.
func (s *wsSession) enqueueMessage(roomID string, frame models.InboundFrame) bool {
	body, err := json.Marshal(frame)
	if err != nil {
		logger.Error("encode fanout frame: %v", err)
		return true
	}
	msg := stomp.NewFrame(stomp.CommandMessage, body)
	msg.Set(stomp.HeaderDestination, topicPrefix+roomID)
	msg.Set(stomp.HeaderContentType, "application/json")

	select {
	case s.send <- msg.Encode():
		return true
	default:
		return false
	}
}

func (s *wsSession) enqueue(data []byte) {
	select {
	case s.send <- data:
	default:
		logger.Error("send buffer full for %s, dropping frame", s.member.MemberID)
	}
}

func (s *wsSession) sendError(message string) {
	frame := stomp.NewFrame(stomp.CommandError, nil)
	frame.Set(stomp.HeaderMessage, message)
	s.enqueue(frame.Encode())
}

func (s *wsSession) shutdown() {
	s.closeOnce.Do(func() { close(s.send) })
}

func (s *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
