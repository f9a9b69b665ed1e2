package roomlist_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"workchat/client/internal/models"
	"workchat/client/internal/roomlist"
)

type MockLister struct {
	mock.Mock
}

func (m *MockLister) ListRooms(ctx context.Context, member models.Member) ([]models.Conversation, error) {
	args := m.Called(ctx, member)
	return args.Get(0).([]models.Conversation), args.Error(1)
}

var (
	self = models.Member{MemberID: "m1", Name: "Mina"}
	t0   = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

func room(id, name string, lastActive time.Time) models.Conversation {
	return models.Conversation{
		RoomID:       id,
		DisplayName:  name,
		Participants: []models.Member{self, {MemberID: "m2", Name: "Jiho"}},
		Kind:         models.TopicOneToOne,
		LastActiveAt: lastActive,
	}
}

func TestRefreshSortsMostRecentFirst(t *testing.T) {
	lister := &MockLister{}
	lister.On("ListRooms", mock.Anything, self).Return([]models.Conversation{
		room("r-old", "old", t0),
		room("r-new", "new", t0.Add(time.Hour)),
	}, nil)
	store := roomlist.NewStore(self, lister)

	assert.NoError(t, store.Refresh(context.Background()))

	rooms := store.Conversations()
	assert.Equal(t, "r-new", rooms[0].RoomID)
	assert.Equal(t, "r-old", rooms[1].RoomID)
	lister.AssertExpectations(t)
}

func TestUnreadIncrementsOncePerMessage(t *testing.T) {
	store := roomlist.NewStore(self, nil)
	store.Add(room("r1", "team", t0))

	for i := 1; i <= 3; i++ {
		store.ApplyIncomingMessage("r1", "msg", "Jiho", t0.Add(time.Duration(i)*time.Minute))
		got, _ := store.Get("r1")
		assert.Equal(t, i, got.UnreadCount, "exactly one increment per call")
	}
}

func TestUnreadResetsToZeroOnFocus(t *testing.T) {
	store := roomlist.NewStore(self, nil)
	store.Add(room("r1", "team", t0))
	store.ApplyIncomingMessage("r1", "msg", "Jiho", t0.Add(time.Minute))

	store.SetFocused("r1")

	got, _ := store.Get("r1")
	assert.Equal(t, 0, got.UnreadCount)
}

func TestFocusedRoomDoesNotAccumulateUnread(t *testing.T) {
	store := roomlist.NewStore(self, nil)
	store.Add(room("r1", "team", t0))
	store.SetFocused("r1")

	store.ApplyIncomingMessage("r1", "hello", "Jiho", t0.Add(time.Minute))

	got, _ := store.Get("r1")
	assert.Equal(t, 0, got.UnreadCount)
	assert.Equal(t, "hello", got.LastMessagePreview, "preview still updates while focused")
}

func TestOutgoingMessageUpdatesPreviewWithoutUnread(t *testing.T) {
	store := roomlist.NewStore(self, nil)
	store.Add(room("r1", "one", t0))
	store.Add(room("r2", "two", t0.Add(time.Minute)))

	// r1 is not focused, yet an own send must not count as unread.
	store.ApplyOutgoingMessage("r1", "on my way", t0.Add(time.Hour))

	got, _ := store.Get("r1")
	assert.Equal(t, 0, got.UnreadCount)
	assert.Equal(t, "on my way", got.LastMessagePreview)
	assert.Equal(t, "r1", store.Conversations()[0].RoomID, "own sends still bump recency")
}

func TestIncomingMessageReordersList(t *testing.T) {
	store := roomlist.NewStore(self, nil)
	store.Add(room("r1", "one", t0))
	store.Add(room("r2", "two", t0.Add(time.Minute)))

	store.ApplyIncomingMessage("r1", "bump", "Jiho", t0.Add(time.Hour))

	rooms := store.Conversations()
	assert.Equal(t, "r1", rooms[0].RoomID)
}

func TestSearchByNameDoesNotMutate(t *testing.T) {
	store := roomlist.NewStore(self, nil)
	store.Add(room("r1", "Platform Team", t0))
	store.Add(room("r2", "Random", t0))

	found := store.SearchByName("platform")

	assert.Len(t, found, 1)
	assert.Equal(t, "r1", found[0].RoomID)
	assert.Len(t, store.Conversations(), 2)
}

func TestSearchFallsBackToParticipantNames(t *testing.T) {
	store := roomlist.NewStore(self, nil)
	unnamed := room("r1", "", t0)
	store.Add(unnamed)

	found := store.SearchByName("jiho")

	assert.Len(t, found, 1)
}

func TestRemoveDropsOnlyThatRoom(t *testing.T) {
	store := roomlist.NewStore(self, nil)
	store.Add(room("r1", "one", t0))
	store.Add(room("r2", "two", t0))

	store.Remove("r1")

	rooms := store.Conversations()
	assert.Len(t, rooms, 1)
	assert.Equal(t, "r2", rooms[0].RoomID)
}

func TestUnreadNeverNegative(t *testing.T) {
	store := roomlist.NewStore(self, nil)
	store.Add(room("r1", "one", t0))

	store.SetFocused("r1")
	store.SetFocused("r1")

	got, _ := store.Get("r1")
	assert.GreaterOrEqual(t, got.UnreadCount, 0)
}
