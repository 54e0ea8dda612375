package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/p2pchat/internal/client"
	"github.com/vovakirdan/p2pchat/internal/transcript"
)

type chatFlags struct {
	room     string
	nickname string
	public   bool
	host     bool
	strategy string
	relay    bool
}

func newChatCmd(global *globalFlags) *cobra.Command {
	var flags chatFlags

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join a room and chat with its members",
		Long: `Join a room and chat with everyone in it over direct WebRTC links.

Without --room the shared public room is joined. With --host and no --room a
fresh room id is generated. Lines starting with / are commands:
  /peers         list room members and link state
  /rooms         show public rooms
  /join <room>   switch rooms
  /leave         leave the current room
  /quit          leave and exit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), global, flags)
		},
	}

	cmd.Flags().StringVar(&flags.room, "room", "", "room to join")
	cmd.Flags().StringVar(&flags.nickname, "nick", "", "nickname shown to other members")
	cmd.Flags().BoolVar(&flags.public, "public", false, "list the room in the public directory when creating it")
	cmd.Flags().BoolVar(&flags.host, "host", false, "create the room")
	cmd.Flags().StringVar(&flags.strategy, "signal-strategy", "", "eager or queue")
	cmd.Flags().BoolVar(&flags.relay, "relay", false, "relay chat through the server until direct links are up")
	_ = cmd.MarkFlagRequired("nick")

	return cmd
}

func runChat(parent context.Context, global *globalFlags, flags chatFlags) error {
	cfg, logger, err := loadClient(global)
	if err != nil {
		return err
	}
	if flags.strategy != "" {
		cfg.SignalStrategy = flags.strategy
	}
	if flags.relay {
		cfg.ChatRelay = true
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	console := transcript.NewConsole(os.Stdout)

	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx) }()
	defer session.Close()

	go func() {
		for ev := range session.Events() {
			console.Render(ev)
		}
	}()

	if err := session.Connect(ctx); err != nil {
		return err
	}

	switch {
	case flags.host:
		roomID, err := session.HostRoom(flags.room, flags.nickname, flags.public)
		if err != nil {
			return err
		}
		console.System("hosting room " + roomID)
	case flags.room == "":
		if err := session.JoinPublic(flags.nickname); err != nil {
			return err
		}
	default:
		if err := session.JoinRoom(flags.room, flags.nickname, flags.public); err != nil {
			return err
		}
	}

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-runErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handleLine(ctx, session, console, flags, line)
			if err != nil {
				console.Error(err.Error())
			}
			if quit {
				return nil
			}
		}
	}
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}

func handleLine(ctx context.Context, session *client.Session, console *transcript.Console, flags chatFlags, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, session.SendChat(line)
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/leave":
		return false, session.LeaveRoom()
	case "/join":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /join <room>")
		}
		return false, session.JoinRoom(fields[1], flags.nickname, flags.public)
	case "/peers":
		snap, err := session.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		transcript.RenderPeers(os.Stdout, snap.Peers)
		return false, nil
	case "/rooms":
		snap, err := session.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		if !snap.DirectoryReceived {
			console.System("directory not received yet")
			return false, nil
		}
		transcript.RenderDirectory(os.Stdout, snap.Directory)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
}
