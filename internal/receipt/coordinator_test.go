package receipt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"workchat/client/internal/models"
	"workchat/client/internal/receipt"
	"workchat/client/internal/roomlist"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendReadReceipt(memberID string) error {
	args := m.Called(memberID)
	return args.Error(0)
}

var (
	self = models.Member{MemberID: "m1", Name: "Mina"}
	t0   = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

func storeWithRoom(roomID string) *roomlist.Store {
	store := roomlist.NewStore(self, nil)
	store.Add(models.Conversation{
		RoomID:       roomID,
		Kind:         models.TopicOneToOne,
		Participants: []models.Member{self, {MemberID: "m2", Name: "Jiho"}},
		LastActiveAt: t0,
	})
	return store
}

func TestFocusSendsReceiptWhenForegrounded(t *testing.T) {
	store := storeWithRoom("r1")
	store.ApplyIncomingMessage("r1", "msg", "Jiho", t0.Add(time.Minute))
	coord := receipt.New(self.MemberID, store)
	coord.SetForegrounded(true)

	sender := &MockSender{}
	sender.On("SendReadReceipt", "m1").Return(nil).Once()

	coord.OnFocus(sender, "r1")

	sender.AssertExpectations(t)
	got, _ := store.Get("r1")
	assert.Equal(t, 0, got.UnreadCount)
	assert.Equal(t, "r1", store.FocusedRoom())
}

func TestFocusIsSilentWhileBackgrounded(t *testing.T) {
	store := storeWithRoom("r1")
	coord := receipt.New(self.MemberID, store)

	sender := &MockSender{}

	coord.OnFocus(sender, "r1")

	sender.AssertNotCalled(t, "SendReadReceipt", mock.Anything)
	assert.Empty(t, store.FocusedRoom())
}

func TestBlurHasNoNetworkEffect(t *testing.T) {
	store := storeWithRoom("r1")
	coord := receipt.New(self.MemberID, store)
	coord.SetForegrounded(true)

	sender := &MockSender{}
	sender.On("SendReadReceipt", "m1").Return(nil).Once()
	coord.OnFocus(sender, "r1")

	coord.OnBlur()

	assert.Empty(t, store.FocusedRoom())
	sender.AssertNumberOfCalls(t, "SendReadReceipt", 1)
}

func TestInboundFocusedAcknowledges(t *testing.T) {
	store := storeWithRoom("r1")
	coord := receipt.New(self.MemberID, store)
	coord.SetForegrounded(true)

	sender := &MockSender{}
	sender.On("SendReadReceipt", "m1").Return(nil)

	msg := models.Message{RoomID: "r1", SenderID: "m2", SenderName: "Jiho", Content: "hi", SentAt: t0.Add(time.Minute)}
	coord.OnInboundMessage(sender, msg, true)

	got, _ := store.Get("r1")
	assert.Equal(t, 0, got.UnreadCount)
	assert.Equal(t, "hi", got.LastMessagePreview)
	sender.AssertExpectations(t)
}

func TestInboundUnfocusedCountsUnread(t *testing.T) {
	store := storeWithRoom("r1")
	coord := receipt.New(self.MemberID, store)
	coord.SetForegrounded(true)

	sender := &MockSender{}

	msg := models.Message{RoomID: "r1", SenderID: "m2", SenderName: "Jiho", Content: "hi", SentAt: t0.Add(time.Minute)}
	coord.OnInboundMessage(sender, msg, false)

	got, _ := store.Get("r1")
	assert.Equal(t, 1, got.UnreadCount)
	assert.Equal(t, "hi", got.LastMessagePreview)
	sender.AssertNotCalled(t, "SendReadReceipt", mock.Anything)
}
