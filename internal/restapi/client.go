// Package restapi wraps the REST collaborators of the chat service.
// Every response arrives as a JSON envelope with a "data" field, per
// the service convention.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"workchat/client/internal/models"
)

// Client talks to the chat REST endpoints with a bearer token attached
// to every request.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// History fetches the full ordered message history for a room.
func (c *Client) History(ctx context.Context, roomID string) ([]models.Message, error) {
	q := url.Values{"chatRoomId": {roomID}}
	var out []models.Message
	if err := c.do(ctx, http.MethodGet, "/history?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("fetch history for room %s: %w", roomID, err)
	}
	return out, nil
}

// ListRooms fetches the member's conversations.
func (c *Client) ListRooms(ctx context.Context, member models.Member) ([]models.Conversation, error) {
	body := map[string]string{
		"userId":  member.MemberID,
		"name":    member.Name,
		"profile": member.ProfileRef,
	}
	var out []models.Conversation
	if err := c.do(ctx, http.MethodPost, "/chat/list", body, &out); err != nil {
		return nil, fmt.Errorf("list rooms for %s: %w", member.MemberID, err)
	}
	return out, nil
}

// CreateRoom asks the room-management collaborator to create a room.
func (c *Client) CreateRoom(ctx context.Context, room models.Conversation) (models.Conversation, error) {
	body := map[string]interface{}{
		"chatRoomId":   room.RoomID,
		"chatRoomName": room.DisplayName,
		"participants": room.Participants,
		"lastMessage":  room.LastMessagePreview,
		"topic":        room.Kind,
		"lastActive":   room.LastActiveAt.Format(time.RFC3339),
	}
	var out models.Conversation
	if err := c.do(ctx, http.MethodPost, "/chat/create", body, &out); err != nil {
		return models.Conversation{}, fmt.Errorf("create room: %w", err)
	}
	return out, nil
}

// ExitRoom removes one member from a room.
func (c *Client) ExitRoom(ctx context.Context, roomID, memberID string) error {
	q := url.Values{"chatRoomId": {roomID}, "memberId": {memberID}}
	if err := c.do(ctx, http.MethodDelete, "/chat/delete?"+q.Encode(), nil, nil); err != nil {
		return fmt.Errorf("exit room %s: %w", roomID, err)
	}
	return nil
}

// ExitAll removes the member from every room they are in.
func (c *Client) ExitAll(ctx context.Context, memberID string) error {
	q := url.Values{"memberId": {memberID}}
	if err := c.do(ctx, http.MethodDelete, "/chat/exit?"+q.Encode(), nil, nil); err != nil {
		return fmt.Errorf("exit all rooms: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}
	return json.Unmarshal(env.Data, out)
}
