package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	grpcstatus "google.golang.org/grpc/status"

	"github.com/HornetGeek/petow-frontend-sub000/internal/api"
	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
	"github.com/HornetGeek/petow-frontend-sub000/internal/profile"
	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/client"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = printUsage
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c, err := client.New(profile.SocketPath(name))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for profile %q: %v\n", name, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	// watch runs until interrupted; everything else is a single call.
	ctx := context.Background()
	if args[0] != "watch" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "open":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: petoctl open <feed-id>")
			os.Exit(1)
		}
		cmdOpen(ctx, c, args[1], *jsonFlag)
	case "messages":
		cmdMessages(ctx, c, *jsonFlag)
	case "send":
		cmdSend(ctx, c, args[1:], *jsonFlag)
	case "archive":
		check(c.Archive(ctx))
		fmt.Println("Archived.")
	case "dismiss":
		check(c.DismissError(ctx))
	case "watch":
		cmdWatch(ctx, c, *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: petoctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                        Show daemon and room state")
	fmt.Fprintln(os.Stderr, "  open <feed-id>                Open a chat room")
	fmt.Fprintln(os.Stderr, "  messages                      Print the room's messages")
	fmt.Fprintln(os.Stderr, "  send [--image <path>] <text>  Send a message")
	fmt.Fprintln(os.Stderr, "  archive                       Archive the open room")
	fmt.Fprintln(os.Stderr, "  dismiss                       Clear the error banner")
	fmt.Fprintln(os.Stderr, "  watch                         Stream room events")
}

func check(err error) {
	if err == nil {
		return
	}
	if s, ok := grpcstatus.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "error: %s (%s)\n", s.Message(), s.Code())
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func cmdStatus(ctx context.Context, c *client.Client, jsonOut bool) {
	st, err := c.Status(ctx)
	check(err)
	if jsonOut {
		outputJSON(st)
		return
	}
	fmt.Printf("Profile:  %s\n", st.Profile)
	fmt.Printf("State:    %s\n", st.State)
	if st.FeedID != "" {
		fmt.Printf("Room:     %s (#%d)\n", st.FeedID, st.RoomID)
	}
	fmt.Printf("Messages: %d\n", st.MessageCount)
	if st.Sending {
		fmt.Println("Sending:  yes")
	}
	if st.Error != "" {
		fmt.Printf("Error:    %s\n", st.Error)
	}
	fmt.Printf("Uptime:   %s\n", (time.Duration(st.UptimeMs) * time.Millisecond).Round(time.Second))
}

func cmdOpen(ctx context.Context, c *client.Client, feedID string, jsonOut bool) {
	info, err := c.Open(ctx, feedID)
	check(err)
	if jsonOut {
		outputJSON(info)
		return
	}
	fmt.Printf("Room %s (#%d) with %s\n", info.FeedID, info.RoomID, info.Counterpart.Name)
	if info.PetName != "" {
		fmt.Printf("Pet:   %s\n", info.PetName)
	}
	if info.RequestKind != "" {
		fmt.Printf("Request: %s %s\n", info.RequestKind, info.RequestStatus)
	}
	fmt.Printf("State: %s\n", info.State)
}

func cmdMessages(ctx context.Context, c *client.Client, jsonOut bool) {
	list, err := c.Messages(ctx)
	check(err)
	if jsonOut {
		outputJSON(list)
		return
	}
	if len(list.Messages) == 0 {
		fmt.Println("No messages.")
		return
	}
	for _, m := range list.Messages {
		ts := time.UnixMilli(m.Timestamp).Format("2006-01-02 15:04")
		body := m.Text
		if m.ImageURL != "" {
			body = strings.TrimSpace(m.ImageURL + " " + body)
		}
		fmt.Printf("%s  %-12s %s\n", ts, m.SenderName, body)
	}
}

func cmdSend(ctx context.Context, c *client.Client, args []string, jsonOut bool) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	imageFlag := fs.String("image", "", "path of an image to attach")
	_ = fs.Parse(args)

	req := api.SendRequest{Text: strings.Join(fs.Args(), " ")}
	if *imageFlag != "" {
		img, err := api.LoadImage(*imageFlag)
		check(err)
		req.Image = img
	}

	reply, err := c.Send(ctx, req)
	check(err)
	if jsonOut {
		outputJSON(reply)
		return
	}
	fmt.Printf("Sent %s\n", reply.Message.ID)
	if !reply.Notified {
		fmt.Printf("  notification failed: %s\n", reply.NotifyError)
	}
	if reply.MetaError != "" {
		fmt.Printf("  metadata update failed: %s\n", reply.MetaError)
	}
}

func cmdWatch(ctx context.Context, c *client.Client, jsonOut bool) {
	w, err := c.Watch(ctx)
	check(err)
	for {
		evt, err := w.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		check(err)
		if jsonOut {
			outputJSON(evt)
			continue
		}
		printEvent(evt)
	}
}

func printEvent(evt *api.Event) {
	ts := time.UnixMilli(evt.OccurredAtUnixMs).Format("15:04:05")
	switch evt.Kind {
	case bus.KindRoomStatus:
		fmt.Printf("%s %s %s -> %s\n", ts, evt.FeedID, evt.From, evt.To)
	case bus.KindRoomSnapshot:
		fmt.Printf("%s %s snapshot, %d messages\n", ts, evt.FeedID, len(evt.Messages))
		if n := len(evt.Messages); n > 0 {
			last := evt.Messages[n-1]
			fmt.Printf("         last: %s: %s\n", last.SenderName, last.Text)
		}
	case bus.KindRoomError:
		if evt.Error == "" {
			fmt.Printf("%s %s error dismissed\n", ts, evt.FeedID)
		} else {
			fmt.Printf("%s %s error: %s\n", ts, evt.FeedID, evt.Error)
		}
	case bus.KindRoomArchived:
		fmt.Printf("%s %s archived (room #%d)\n", ts, evt.FeedID, evt.RoomID)
	case bus.KindSendAck:
		fmt.Printf("%s %s sent %s (%s)\n", ts, evt.FeedID, evt.MessageID, evt.ClientMsgID)
	case bus.KindSendFailed:
		fmt.Printf("%s %s send failed at %s: %s\n", ts, evt.FeedID, evt.Stage, evt.Error)
	default:
		fmt.Printf("%s %s %s\n", ts, evt.Kind, evt.FeedID)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
