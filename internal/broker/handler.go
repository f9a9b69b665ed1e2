package broker

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"workchat/client/internal/auth"
	"workchat/client/internal/models"
)

// Handler carries the broker's REST and WebSocket endpoints.
type Handler struct {
	Hub       *Hub
	Storage   Storage
	JWTSecret []byte
}

func NewHandler(hub *Hub, storage Storage, jwtSecret []byte) *Handler {
	return &Handler{Hub: hub, Storage: storage, JWTSecret: jwtSecret}
}

// Register wires all routes. Everything except the token endpoint and
// the WebSocket upgrade requires a bearer token; the upgrade
// authenticates at the STOMP CONNECT instead.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/auth/token", h.IssueToken)
	r.GET("/ws", h.ServeWebSocket)

	authed := r.Group("/", h.requireAuth)
	authed.GET("/history", h.GetHistory)
	authed.POST("/chat/list", h.ListRooms)
	authed.POST("/chat/create", h.CreateRoom)
	authed.DELETE("/chat/delete", h.ExitRoom)
	authed.DELETE("/chat/exit", h.ExitAll)
}

// IssueToken hands out a development token embedding the requested
// identity. Production deployments front this with the real session
// service.
func (h *Handler) IssueToken(c *gin.Context) {
	member := models.Member{
		MemberID:   c.Query("memberId"),
		Name:       c.Query("name"),
		ProfileRef: c.Query("profile"),
	}
	if member.MemberID == "" {
		member.MemberID = uuid.New().String()
	}
	token, err := auth.IssueToken(h.JWTSecret, member, 72*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "memberId": member.MemberID})
}

func (h *Handler) requireAuth(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
		return
	}
	member, err := auth.ValidateToken(h.JWTSecret, token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	c.Set("member", member)
	c.Next()
}

// GetHistory returns the room's messages ordered ascending by send
// time.
func (h *Handler) GetHistory(c *gin.Context) {
	roomID := c.Query("chatRoomId")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chatRoomId is required"})
		return
	}
	records, err := h.Storage.GetChatHistory(roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	out := make([]models.Message, 0, len(records))
	for _, rec := range records {
		out = append(out, models.Message{
			ID:               strconv.FormatUint(uint64(rec.ID), 10),
			RoomID:           rec.RoomID,
			SenderID:         rec.SenderID,
			SenderName:       rec.SenderName,
			SenderProfileRef: rec.Profile,
			Content:          rec.Content,
			SentAt:           rec.SentAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// ListRooms returns the member's conversations, most recent first.
func (h *Handler) ListRooms(c *gin.Context) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	rooms, err := h.Storage.GetRoomsForMember(body.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
		return
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].LastActiveAt.After(rooms[j].LastActiveAt)
	})
	c.JSON(http.StatusOK, gin.H{"data": rooms})
}

// CreateRoom persists a room and its participant rows.
func (h *Handler) CreateRoom(c *gin.Context) {
	var body struct {
		ChatRoomID   string          `json:"chatRoomId"`
		ChatRoomName string          `json:"chatRoomName"`
		Participants []models.Member `json:"participants"`
		LastMessage  string          `json:"lastMessage"`
		Topic        string          `json:"topic"`
		LastActive   time.Time       `json:"lastActive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed room request"})
		return
	}
	if len(body.Participants) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a room needs at least two participants"})
		return
	}
	if body.ChatRoomID == "" {
		body.ChatRoomID = uuid.New().String()
	}

	ids := make([]string, 0, len(body.Participants))
	participants := make([]Participant, 0, len(body.Participants))
	for _, p := range body.Participants {
		ids = append(ids, p.MemberID)
		participants = append(participants, Participant{
			RoomID:   body.ChatRoomID,
			MemberID: p.MemberID,
			Name:     p.Name,
			Profile:  p.ProfileRef,
		})
	}
	room := &ChatRoom{
		RoomID:         body.ChatRoomID,
		Name:           body.ChatRoomName,
		Kind:           body.Topic,
		ParticipantIDs: ids,
		LastMessage:    body.LastMessage,
		LastActive:     body.LastActive,
	}
	if err := h.Storage.SaveRoom(room, participants); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": models.Conversation{
		RoomID:             room.RoomID,
		DisplayName:        room.Name,
		Participants:       body.Participants,
		Kind:               models.TopicKind(room.Kind),
		LastMessagePreview: room.LastMessage,
		LastActiveAt:       room.LastActive,
	}})
}

// ExitRoom removes one member from one room.
func (h *Handler) ExitRoom(c *gin.Context) {
	roomID := c.Query("chatRoomId")
	memberID := c.Query("memberId")
	if roomID == "" || memberID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chatRoomId and memberId are required"})
		return
	}
	if err := h.Storage.RemoveMember(roomID, memberID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to exit room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "ok"})
}

// ExitAll removes the member from every room.
func (h *Handler) ExitAll(c *gin.Context) {
	memberID := c.Query("memberId")
	if memberID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "memberId is required"})
		return
	}
	if err := h.Storage.RemoveMemberEverywhere(memberID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to exit rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": "ok"})
}
