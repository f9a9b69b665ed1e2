package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"workchat/client/internal/models"
	"workchat/client/pkg/logger"
)

// Storage is everything the broker persists or fans out.
type Storage interface {
	SaveRoom(room *ChatRoom, participants []Participant) error
	GetRoomByID(roomID string) (*ChatRoom, error)
	GetRoomsForMember(memberID string) ([]models.Conversation, error)
	RemoveMember(roomID, memberID string) error
	RemoveMemberEverywhere(memberID string) error

	SaveMessage(rec *ChatHistory) error
	GetChatHistory(roomID string) ([]ChatHistory, error)
	TouchRoom(roomID, preview string, at time.Time) error
	IncrementUnread(roomID, senderID string) error
	ResetUnread(roomID, memberID string) error

	PublishFrame(roomID string, frame models.InboundFrame) error
	SubscribeToAllRooms() *redis.PubSub
}

const roomChannelPrefix = "room:"

// Service implements Storage over PostgreSQL and Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{DB: db, Redis: rdb, Ctx: context.Background()}
}

func (s *Service) SaveRoom(room *ChatRoom, participants []Participant) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(room).Error; err != nil {
			return err
		}
		for i := range participants {
			participants[i].RoomID = room.RoomID
			if err := tx.Save(&participants[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) GetRoomByID(roomID string) (*ChatRoom, error) {
	var room ChatRoom
	err := s.DB.Where("room_id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("chat room not found")
	}
	if err != nil {
		logger.Error("get room %s: %v", roomID, err)
		return nil, err
	}
	return &room, nil
}

// GetRoomsForMember assembles the member's conversation list, most
// recent activity first.
func (s *Service) GetRoomsForMember(memberID string) ([]models.Conversation, error) {
	var memberships []Participant
	if err := s.DB.Where("member_id = ?", memberID).Find(&memberships).Error; err != nil {
		return nil, err
	}

	out := make([]models.Conversation, 0, len(memberships))
	for _, m := range memberships {
		room, err := s.GetRoomByID(m.RoomID)
		if err != nil {
			logger.Error("membership for missing room %s, skipping", m.RoomID)
			continue
		}
		var others []Participant
		if err := s.DB.Where("room_id = ?", m.RoomID).Find(&others).Error; err != nil {
			return nil, err
		}
		participants := make([]models.Member, 0, len(others))
		for _, p := range others {
			participants = append(participants, models.Member{
				MemberID: p.MemberID, Name: p.Name, ProfileRef: p.Profile,
			})
		}
		out = append(out, models.Conversation{
			RoomID:             room.RoomID,
			DisplayName:        room.Name,
			Participants:       participants,
			Kind:               models.TopicKind(room.Kind),
			LastMessagePreview: room.LastMessage,
			LastActiveAt:       room.LastActive,
			UnreadCount:        m.Unread,
		})
	}
	return out, nil
}

func (s *Service) RemoveMember(roomID, memberID string) error {
	return s.DB.Where("room_id = ? AND member_id = ?", roomID, memberID).
		Delete(&Participant{}).Error
}

func (s *Service) RemoveMemberEverywhere(memberID string) error {
	return s.DB.Where("member_id = ?", memberID).Delete(&Participant{}).Error
}

func (s *Service) SaveMessage(rec *ChatHistory) error {
	if err := s.DB.Create(rec).Error; err != nil {
		logger.Error("save message for room %s: %v", rec.RoomID, err)
		return err
	}
	return nil
}

func (s *Service) GetChatHistory(roomID string) ([]ChatHistory, error) {
	var history []ChatHistory
	err := s.DB.Where("room_id = ?", roomID).Order("sent_at asc").Find(&history).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return history, nil
	}
	if err != nil {
		logger.Error("get history for room %s: %v", roomID, err)
		return nil, err
	}
	return history, nil
}

func (s *Service) TouchRoom(roomID, preview string, at time.Time) error {
	return s.DB.Model(&ChatRoom{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"last_message": preview,
			"last_active":  at,
		}).Error
}

// IncrementUnread bumps every participant except the sender.
func (s *Service) IncrementUnread(roomID, senderID string) error {
	return s.DB.Model(&Participant{}).
		Where("room_id = ? AND member_id <> ?", roomID, senderID).
		Update("unread", gorm.Expr("unread + 1")).Error
}

func (s *Service) ResetUnread(roomID, memberID string) error {
	return s.DB.Model(&Participant{}).
		Where("room_id = ? AND member_id = ?", roomID, memberID).
		Update("unread", 0).Error
}

// PublishFrame fans the frame out through Redis so every broker
// instance sees every room's traffic.
func (s *Service) PublishFrame(roomID string, frame models.InboundFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, roomChannelPrefix+roomID, payload).Err()
}

func (s *Service) SubscribeToAllRooms() *redis.PubSub {
	return s.Redis.PSubscribe(s.Ctx, roomChannelPrefix+"*")
}
