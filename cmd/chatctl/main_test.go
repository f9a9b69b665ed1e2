package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"workchat/client/internal/models"
	"workchat/client/internal/restapi"
	"workchat/client/internal/roomlist"
)

func newRestFixture(t *testing.T) (*app, *int) {
	t.Helper()
	exitCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/chat/list":
			w.Write([]byte(`{"data":[` +
				`{"chatRoomId":"r1","chatRoomName":"one","topic":"ONE_TO_ONE","lastActive":"2024-03-01T09:00:00Z"},` +
				`{"chatRoomId":"r2","chatRoomName":"two","topic":"GROUP","lastActive":"2024-03-01T10:00:00Z"}]}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/chat/exit":
			exitCalls++
			w.Write([]byte(`{"data":"ok"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/chat/delete":
			w.Write([]byte(`{"data":"ok"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	member := models.Member{MemberID: "m1", Name: "Mina"}
	rest := restapi.NewClient(server.URL, "test-token")
	return &app{
		member: member,
		rest:   rest,
		store:  roomlist.NewStore(member, rest),
	}, &exitCalls
}

func TestLeaveAllRefreshesThenClearsList(t *testing.T) {
	a, exitCalls := newRestFixture(t)

	assert.NoError(t, a.leaveAll())

	assert.Equal(t, 1, *exitCalls)
	assert.Empty(t, a.store.Conversations(), "every fetched room must be dropped locally")
}

func TestLeaveRoomDropsOnlyThatRoom(t *testing.T) {
	a, _ := newRestFixture(t)
	a.store.Add(models.Conversation{RoomID: "r1", DisplayName: "one", LastActiveAt: time.Now()})
	a.store.Add(models.Conversation{RoomID: "r2", DisplayName: "two", LastActiveAt: time.Now()})

	assert.NoError(t, a.leaveRoom("r1"))

	rooms := a.store.Conversations()
	assert.Len(t, rooms, 1)
	assert.Equal(t, "r2", rooms[0].RoomID)
}
