package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"tunedeck/internal/apiclient"
	"tunedeck/internal/catalog"
	"tunedeck/internal/models"
	"tunedeck/internal/playback"
	"tunedeck/internal/playlistsync"
)

const (
	flagAPI      = "api"
	flagEmail    = "email"
	flagPassword = "password"
	flagSignup   = "signup"
)

func shellCommand() *cli.Command {
	return &cli.Command{
		Name:   "shell",
		Usage:  "Browse tracks and manage playlists from the terminal",
		Action: shell,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagAPI, Usage: "Service base URL", Value: "http://localhost:8000", EnvVars: []string{"TUNEDECK_API"}},
			&cli.StringFlag{Name: flagEmail, Usage: "Account email", EnvVars: []string{"TUNEDECK_EMAIL"}},
			&cli.StringFlag{Name: flagPassword, Usage: "Account password", EnvVars: []string{"TUNEDECK_PASSWORD"}},
			&cli.BoolFlag{Name: flagSignup, Usage: "Create the account before signing in"},
		},
	}
}

// session bundles the client core for one terminal.
type session struct {
	out     io.Writer
	client  *apiclient.Client
	players *playback.Coordinator
	browser *catalog.Browser
	lists   *playlistsync.Synchronizer
}

func shell(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()

	client, err := apiclient.New(c.String(flagAPI))
	if err != nil {
		return err
	}

	if email := c.String(flagEmail); email != "" {
		password := c.String(flagPassword)
		if c.Bool(flagSignup) {
			_, err = client.Signup(ctx, email, password, "")
		} else {
			_, err = client.Login(ctx, email, password)
		}
		if err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
	}

	players := playback.NewCoordinator(logger)
	s := &session{
		out:     c.App.Writer,
		client:  client,
		players: players,
		browser: catalog.NewBrowser(client, players, catalog.WithLogger(logger)),
		lists:   playlistsync.New(client, client, logger),
	}
	defer s.browser.Close()

	if user, ok := client.CurrentUser(); ok {
		fmt.Fprintf(s.out, "signed in as %s\n", user.Email)
	}
	if err := s.lists.Load(ctx); err != nil {
		fmt.Fprintln(s.out, s.lists.Notice())
	}
	if _, err := s.browser.Submit(ctx, ""); err != nil {
		fmt.Fprintf(s.out, "could not load tracks: %v\n", err)
	} else {
		s.printTracks()
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(s.out, "> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := s.exec(ctx, line); quit {
				return nil
			}
		}
	}
}

func (s *session) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]

	callCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(s.out, "search <text> | tracks | play <track> | pause | playlists | in <track>")
		fmt.Fprintln(s.out, "new <name> | toggle <playlist> <track> | rename <playlist> <name> | rm <playlist> | quit")
	case "tracks":
		s.search(callCtx, "")
	case "search":
		s.search(callCtx, strings.Join(args, " "))
	case "play":
		s.play(args)
	case "pause":
		if id, ok := s.players.Active(); ok {
			if h, ok := s.browser.Handle(id); ok {
				h.Pause()
			}
		}
	case "playlists":
		if err := s.lists.Load(callCtx); err != nil {
			fmt.Fprintln(s.out, s.lists.Notice())
		}
		s.printPlaylists()
	case "in":
		s.memberships(args)
	case "new":
		created, err := s.lists.Create(callCtx, strings.Join(args, " "))
		switch {
		case err != nil:
			fmt.Fprintln(s.out, s.lists.Notice())
		case created.ID != 0:
			fmt.Fprintf(s.out, "created #%d %s\n", created.ID, created.Name)
		}
	case "toggle":
		s.toggle(callCtx, args)
	case "rename":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "usage: rename <playlist> <name>")
			return false
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Fprintln(s.out, "playlist must be a number")
			return false
		}
		if err := s.lists.Rename(callCtx, id, strings.Join(args[1:], " ")); err != nil {
			fmt.Fprintln(s.out, s.lists.Notice())
		}
	case "rm":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "usage: rm <playlist>")
			return false
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Fprintln(s.out, "playlist must be a number")
			return false
		}
		if err := s.lists.Remove(callCtx, id); err != nil {
			fmt.Fprintln(s.out, s.lists.Notice())
		}
	default:
		fmt.Fprintf(s.out, "unknown command %q, try help\n", cmd)
	}
	return false
}

func (s *session) search(ctx context.Context, query string) {
	if _, err := s.browser.Submit(ctx, query); err != nil {
		if errors.Is(err, catalog.ErrStale) {
			return
		}
		fmt.Fprintf(s.out, "search failed: %v\n", err)
		return
	}
	s.printTracks()
}

func (s *session) play(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "usage: play <track>")
		return
	}
	var id models.TrackID
	if err := id.UnmarshalJSON([]byte(args[0])); err != nil {
		fmt.Fprintln(s.out, "track must be a number")
		return
	}
	h, ok := s.browser.Handle(id)
	if !ok {
		fmt.Fprintf(s.out, "track %s is not in the list\n", id)
		return
	}
	if el, ok := h.(*playback.Element); ok {
		el.Play()
		fmt.Fprintf(s.out, "playing %s\n", el.Src())
	}
}

func (s *session) toggle(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.out, "usage: toggle <playlist> <track>")
		return
	}
	playlistID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintln(s.out, "playlist must be a number")
		return
	}
	var trackID models.TrackID
	if err := trackID.UnmarshalJSON([]byte(args[1])); err != nil {
		fmt.Fprintln(s.out, "track must be a number")
		return
	}

	state, err := s.lists.Toggle(ctx, playlistID, trackID)
	if err != nil {
		fmt.Fprintln(s.out, s.lists.Notice())
		return
	}
	if state == playlistsync.Idle {
		fmt.Fprintln(s.out, "nothing to do")
		return
	}
	s.memberships([]string{args[1]})
}

func (s *session) memberships(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "usage: in <track>")
		return
	}
	var trackID models.TrackID
	if err := trackID.UnmarshalJSON([]byte(args[0])); err != nil {
		fmt.Fprintln(s.out, "track must be a number")
		return
	}
	for _, m := range s.lists.Memberships(trackID) {
		mark := " "
		if m.Member {
			mark = "x"
		}
		if m.Busy {
			mark = "~"
		}
		fmt.Fprintf(s.out, "[%s] #%d %s\n", mark, m.Playlist.ID, m.Playlist.Name)
	}
}

func (s *session) printTracks() {
	active, playing := s.players.Active()
	for _, t := range s.browser.Visible() {
		marker := " "
		if playing && t.ID == active {
			marker = ">"
		}
		fmt.Fprintf(s.out, "%s %4s  %s - %s\n", marker, t.ID, t.Artist, t.Title)
	}
}

func (s *session) printPlaylists() {
	all := s.lists.Playlists()
	if len(all) == 0 {
		fmt.Fprintln(s.out, "no playlists")
		return
	}
	width := lo.Max(lo.Map(all, func(p models.Playlist, _ int) int { return len(p.Name) }))
	for _, p := range all {
		fmt.Fprintf(s.out, "#%-4d %-*s %d tracks\n", p.ID, width, p.Name, len(p.Tracks))
	}
}
