package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/crewlink/crewchat/internal/chat"
	"github.com/crewlink/crewchat/internal/types"
)

var (
	serverURL string
	email     string
	password  string
	offline   bool
)

func main() {
	flag.StringVar(&serverURL, "server", "http://localhost:8000", "crewchat server URL")
	flag.StringVar(&email, "email", "", "account email")
	flag.StringVar(&password, "password", "", "account password")
	flag.BoolVar(&offline, "offline", false, "browse history without a live connection")
	flag.Parse()

	logger := log.New(os.Stderr, "[crewchat] ", log.LstdFlags)

	if email == "" || password == "" {
		logger.Fatal("both -email and -password are required")
	}

	ctx := context.Background()

	creds := chat.NewStaticCredentials()
	apiClient := chat.NewAPIClient(serverURL, creds, logger)

	token, user, err := apiClient.Login(ctx, email, password)
	if err != nil {
		logger.Fatal("login:", err)
	}
	creds.Set(token, user.Id)
	fmt.Printf("logged in as %s\n", user.Name)

	var channel chat.LiveChannel = chat.OfflineChannel{}
	if !offline {
		wsURL := strings.Replace(serverURL, "http", "ws", 1)
		channel = chat.NewWebsocketChannel(wsURL, logger)
	}

	directory := chat.NewDirectory(apiClient, logger)
	history := chat.NewHistory(apiClient, logger)
	session := chat.NewSession(history, apiClient, channel, creds, logger)
	defer session.Close()

	// updates arrive on the channel's read goroutine, so the print
	// cursor needs its own lock
	var printMu sync.Mutex
	printed := 0
	session.OnUpdate(func() {
		printMu.Lock()
		defer printMu.Unlock()

		messages := session.Messages()
		if len(messages) < printed {
			printed = 0
		}
		for _, m := range messages[printed:] {
			printMessage(m)
		}
		printed = len(messages)
	})

	rooms := directory.ListRooms(ctx)
	printRooms(rooms)

	fmt.Println(`commands: /rooms, /join <n>, /delete <message-id>, /quit`)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return
		case line == "/rooms":
			rooms = directory.ListRooms(ctx)
			printRooms(rooms)
		case strings.HasPrefix(line, "/join "):
			n, err := strconv.Atoi(strings.TrimPrefix(line, "/join "))
			if err != nil || n < 1 || n > len(rooms) {
				fmt.Println("usage: /join <room number>")
				continue
			}
			printMu.Lock()
			printed = 0
			printMu.Unlock()
			if err := session.SelectRoom(ctx, rooms[n-1]); err != nil {
				fmt.Println("join failed:", err)
				continue
			}
			fmt.Printf("joined %s (%s)\n", rooms[n-1].Name, session.Status())
		case strings.HasPrefix(line, "/delete "):
			id := strings.TrimPrefix(line, "/delete ")
			if err := session.DeleteMessage(ctx, id); err != nil {
				fmt.Println("delete failed:", err)
			}
		default:
			if err := session.SendMessage(line, nil); err != nil {
				fmt.Println("send failed:", err)
			}
		}
	}
}

func printRooms(rooms []types.Room) {
	if len(rooms) == 0 {
		fmt.Println("no rooms available")
		return
	}

	fmt.Println("rooms:")
	for i, room := range rooms {
		role := room.MyRole
		if room.IsCreator {
			role = "creator"
		}
		fmt.Printf("  %d. %s (%s)\n", i+1, room.Name, role)
	}
}

func printMessage(m types.Message) {
	fmt.Printf("[%s] %s: %s\n", m.SentAt.Local().Format("15:04"), m.SenderName, m.Content)
}
