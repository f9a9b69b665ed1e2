package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"workchat/client/internal/auth"
	"workchat/client/internal/config"
	"workchat/client/internal/models"
	"workchat/client/internal/receipt"
	"workchat/client/internal/restapi"
	"workchat/client/internal/roomlist"
	"workchat/client/internal/session"
	"workchat/client/internal/transport"
	"workchat/client/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: chatctl <command> [args]")
		fmt.Println("Commands: token, rooms, create, open, leave, leave-all")
		os.Exit(1)
	}

	cfg := config.Load()
	command := os.Args[1]

	if command == "token" {
		if len(os.Args) < 4 {
			fmt.Println("Usage: chatctl token <member_id> <name>")
			os.Exit(1)
		}
		token, err := fetchToken(cfg.Client.APIBaseURL, os.Args[2], os.Args[3])
		if err != nil {
			logger.Fatal("fetching token: %v", err)
		}
		fmt.Println(token)
		return
	}

	app, err := newApp(cfg.Client)
	if err != nil {
		logger.Fatal("%v", err)
	}

	switch command {
	case "rooms":
		if err := app.listRooms(); err != nil {
			logger.Fatal("listing rooms: %v", err)
		}
	case "create":
		if len(os.Args) < 5 {
			fmt.Println("Usage: chatctl create <ONE_TO_ONE|GROUP> <name> <member_id:member_name>...")
			os.Exit(1)
		}
		if err := app.createRoom(os.Args[2], os.Args[3], os.Args[4:]); err != nil {
			logger.Fatal("creating room: %v", err)
		}
	case "open":
		if len(os.Args) != 3 {
			fmt.Println("Usage: chatctl open <room_id>")
			os.Exit(1)
		}
		if err := app.openRoom(os.Args[2]); err != nil {
			logger.Fatal("opening room: %v", err)
		}
	case "leave":
		if len(os.Args) != 3 {
			fmt.Println("Usage: chatctl leave <room_id>")
			os.Exit(1)
		}
		if err := app.leaveRoom(os.Args[2]); err != nil {
			logger.Fatal("leaving room: %v", err)
		}
	case "leave-all":
		if err := app.leaveAll(); err != nil {
			logger.Fatal("leaving rooms: %v", err)
		}
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

type app struct {
	member     models.Member
	rest       *restapi.Client
	store      *roomlist.Store
	receipts   *receipt.Coordinator
	controller *session.Controller
}

func newApp(cfg config.ClientConfig) (*app, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("CHAT_TOKEN is not set; run 'chatctl token' first")
	}
	member, err := auth.MemberFromToken(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("reading identity from token: %w", err)
	}

	rest := restapi.NewClient(cfg.APIBaseURL, cfg.Token)
	store := roomlist.NewStore(member, rest)
	receipts := receipt.New(member.MemberID, store)
	// A terminal session counts as a foregrounded view.
	receipts.SetForegrounded(true)

	manager := transport.NewManager(cfg.WSBaseURL, cfg.Token)
	controller := session.NewController(member, session.ManagerConnector{Manager: manager}, rest, store, receipts)

	return &app{member: member, rest: rest, store: store, receipts: receipts, controller: controller}, nil
}

func (a *app) listRooms() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.store.Refresh(ctx); err != nil {
		return err
	}
	for _, room := range a.store.Conversations() {
		fmt.Printf("%-36s  %-20s  unread=%-3d  %s\n",
			room.RoomID, room.Title(a.member.MemberID), room.UnreadCount, room.LastMessagePreview)
	}
	return nil
}

func (a *app) createRoom(kind, name string, memberArgs []string) error {
	var participants []models.Member
	for _, arg := range memberArgs {
		id, memberName, ok := strings.Cut(arg, ":")
		if !ok {
			memberName = id
		}
		participants = append(participants, models.Member{MemberID: id, Name: memberName})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	room, err := a.controller.CreateRoom(ctx, models.TopicKind(kind), name, participants)
	if err != nil {
		return err
	}
	defer a.controller.CloseRoom()
	fmt.Printf("created room %s\n", room.RoomID)
	return nil
}

func (a *app) openRoom(roomID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.store.Refresh(ctx); err != nil {
		return err
	}
	room, ok := a.store.Get(roomID)
	if !ok {
		return fmt.Errorf("room %s is not in your list", roomID)
	}

	if err := a.controller.OpenRoom(ctx, room); err != nil {
		return err
	}
	defer a.controller.CloseRoom()

	printTranscript(a.controller)
	fmt.Println("-- type a message and press enter; EOF closes the room --")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := a.controller.SendMessage(line); err != nil {
			logger.Error("send failed: %v", err)
		}
	}
	return scanner.Err()
}

func (a *app) leaveRoom(roomID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.rest.ExitRoom(ctx, roomID, a.member.MemberID); err != nil {
		return err
	}
	a.store.Remove(roomID)
	fmt.Printf("left room %s\n", roomID)
	return nil
}

func (a *app) leaveAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.store.Refresh(ctx); err != nil {
		return err
	}
	if err := a.rest.ExitAll(ctx, a.member.MemberID); err != nil {
		return err
	}
	for _, room := range a.store.Conversations() {
		a.store.Remove(room.RoomID)
	}
	fmt.Println("left all rooms")
	return nil
}

func printTranscript(controller *session.Controller) {
	st := controller.Stream()
	if st == nil {
		return
	}
	msgs := st.Messages()
	for i, msg := range msgs {
		if st.ShouldShowDateSeparator(i) {
			fmt.Printf("---- %s ----\n", msg.SentAt.Format("2006-01-02"))
		}
		if st.ShouldShowSenderMeta(i) {
			fmt.Printf("[%s]\n", msg.SenderName)
		}
		fmt.Printf("  %s", msg.Content)
		if st.ShouldShowTimestamp(i) {
			fmt.Printf("  (%s)", msg.SentAt.Format("15:04"))
		}
		fmt.Println()
	}
}

func fetchToken(apiBase, memberID, name string) (string, error) {
	q := url.Values{"memberId": {memberID}, "name": {name}}
	resp, err := http.Get(apiBase + "/auth/token?" + q.Encode())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Token, nil
}
