package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/emna-bh/EchecGame/internal/chessclient"
	"github.com/emna-bh/EchecGame/pkg/chessdto"
)

func main() {
	baseURL := os.Getenv("CHESS_BASE_URL")
	username := os.Getenv("CHESS_USERNAME")
	password := os.Getenv("CHESS_PASSWORD")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if username == "" || password == "" {
		log.Fatal("CHESS_USERNAME and CHESS_PASSWORD are required")
	}

	client := chessclient.NewClient(baseURL, chessclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	me, err := client.Login(ctx, username, password)
	var apiErr *chessclient.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		me, err = client.Register(ctx, username, password)
	}
	cancel()
	if err != nil {
		log.Fatalf("auth error: %v", err)
	}
	log.Printf("signed in as %s (id=%d)", me.Username, me.UserID)

	ws, err := chessclient.Dial(context.Background(), client.WebsocketURL(), client.Token())
	if err != nil {
		log.Fatalf("ws connect error: %v", err)
	}
	ws.OnStateChange(func(s chessclient.State) {
		log.Printf("WS state: %s", s)
	})

	go printEvents(ws)

	cmds := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			cmds <- sc.Text()
		}
		close(cmds)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case <-sigCh:
			break loop
		case line, ok := <-cmds:
			if !ok {
				break loop
			}
			if err := run(ws, line); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
		}
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	_ = ws.Close(closeCtx)
}

func run(ws *chessclient.WS, line string) error {
	f := strings.Fields(line)
	if len(f) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch strings.ToLower(f[0]) {
	case "invite", "accept", "decline", "resign":
		if len(f) != 2 {
			return fmt.Errorf("usage: %s <id>", f[0])
		}
		id, err := strconv.ParseInt(f[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad id %q", f[1])
		}
		switch strings.ToLower(f[0]) {
		case "invite":
			return ws.Invite(ctx, id)
		case "accept":
			return ws.Respond(ctx, id, true)
		case "decline":
			return ws.Respond(ctx, id, false)
		default:
			return ws.Resign(ctx, id)
		}
	case "move":
		if len(f) != 4 {
			return errors.New("usage: move <game> <from> <to>")
		}
		id, err := strconv.ParseInt(f[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad game id %q", f[1])
		}
		return ws.Move(ctx, id, strings.ToLower(f[2]), strings.ToLower(f[3]))
	case "help":
		fmt.Println(helpText)
		return nil
	}
	return fmt.Errorf("unknown command %q (try help)", f[0])
}

const helpText = `commands:
  invite <userId>
  accept <userId>
  decline <userId>
  move <gameId> <from> <to>
  resign <gameId>`

func printEvents(ws *chessclient.WS) {
	for {
		ev, err := ws.Next(context.Background())
		if err != nil {
			log.Printf("connection closed: %v", err)
			return
		}
		fmt.Println(describe(ev))
	}
}

func describe(ev chessdto.Event) string {
	switch ev.Type {
	case chessdto.TypeOnlineUsers:
		names := make([]string, len(ev.Users))
		for i, u := range ev.Users {
			names[i] = fmt.Sprintf("%s(%d)", u.Username, u.UserID)
		}
		return "online: " + strings.Join(names, ", ")
	case chessdto.TypeInvite:
		return fmt.Sprintf("invite from %s(%d)", ev.FromUsername, ev.FromUserID)
	case chessdto.TypeInviteSent:
		return fmt.Sprintf("invite sent to %s(%d)", ev.ToUsername, ev.ToUserID)
	case chessdto.TypeInviteResponse:
		if ev.Accepted {
			return fmt.Sprintf("user %d accepted", ev.FromUserID)
		}
		return fmt.Sprintf("user %d declined", ev.FromUserID)
	case chessdto.TypeGameStart:
		return fmt.Sprintf("game %d started: you are %s vs %d", ev.GameID, ev.Color, ev.OpponentID)
	case chessdto.TypeMove:
		return fmt.Sprintf("game %d move %d: %s %s-%s", ev.GameID, ev.MoveNumber, ev.Piece, ev.From, ev.To)
	case chessdto.TypeGameOver:
		return fmt.Sprintf("game %d over: winner %d (%s)", ev.GameID, ev.WinnerUserID, ev.EndReason)
	case chessdto.TypeError:
		return "server: " + ev.Message
	}
	return "event: " + ev.Type
}
