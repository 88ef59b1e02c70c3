// Package main provides the queue CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/hibiki/internal/api/connect"
	"github.com/osa030/hibiki/internal/api/queuev1"
	"github.com/osa030/hibiki/internal/domain/queue"
	"github.com/osa030/hibiki/internal/domain/track"
)

var (
	app    = kingpin.New("hibiki-queuecli", "hibiki playback queue client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Access token").Envar("HIBIKI_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show the queue").Default()

	// search command
	searchCmd   = app.Command("search", "Search the catalog")
	searchQuery = searchCmd.Arg("query", "Search words").Required().Strings()
	searchLimit = searchCmd.Flag("limit", "Maximum results").Default("10").Int()

	// add command
	addCmd   = app.Command("add", "Search and append the best match (or every match with --all)")
	addQuery = addCmd.Arg("query", "Search words").Required().Strings()
	addAll   = addCmd.Flag("all", "Append every result").Bool()

	// play command
	playCmd   = app.Command("play", "Search and play the best match")
	playQuery = playCmd.Arg("query", "Search words").Required().Strings()

	// play-next command
	playNextCmd   = app.Command("play-next", "Search and insert the best match after the current track")
	playNextQuery = playNextCmd.Arg("query", "Search words").Required().Strings()

	nextCmd = app.Command("next", "Skip to the next track")
	prevCmd = app.Command("prev", "Go back to the previous track")

	// remove command
	removeCmd  = app.Command("remove", "Remove a queue item")
	removeItem = removeCmd.Arg("item-id", "Queue item ID").Required().String()

	// move command
	moveCmd  = app.Command("move", "Move a queue item")
	moveFrom = moveCmd.Arg("from", "Current position").Required().Int()
	moveTo   = moveCmd.Arg("to", "New position").Required().Int()

	// jump command
	jumpCmd   = app.Command("jump", "Jump to a position")
	jumpIndex = jumpCmd.Arg("index", "Position").Required().Int()

	shuffleCmd = app.Command("shuffle", "Toggle shuffle")
	loopCmd    = app.Command("loop", "Toggle loop")
	clearCmd   = app.Command("clear", "Empty the queue")
	muteCmd    = app.Command("mute", "Toggle mute")

	// volume commands
	volumeCmd     = app.Command("volume", "Change the volume")
	volumeSetCmd  = volumeCmd.Command("set", "Set the volume")
	volumeValue   = volumeSetCmd.Arg("value", "Volume between 0 and 1").Required().Float64()
	volumeUpCmd   = volumeCmd.Command("up", "Raise the volume")
	volumeUpStep  = volumeUpCmd.Flag("step", "Step (server default when 0)").Default("0").Float64()
	volumeDownCmd = volumeCmd.Command("down", "Lower the volume")
	volumeDnStep  = volumeDownCmd.Flag("step", "Step (server default when 0)").Default("0").Float64()

	// stream-url command
	streamURLCmd   = app.Command("stream-url", "Resolve a playable URL")
	streamURLTrack = streamURLCmd.Arg("track-id", "Catalog track ID").Required().String()

	// subscribe command
	subscribeCmd = app.Command("subscribe", "Subscribe to queue notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create clients
	opts := connect.WithInterceptors(apiconnect.NewClientTokenInterceptor(*token))
	q := queuev1.NewQueueServiceClient(http.DefaultClient, *server, opts)
	c := queuev1.NewCatalogServiceClient(http.DefaultClient, *server, opts)

	if command == subscribeCmd.FullCommand() {
		subscribe(q)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var (
		resp *queuev1.StateResponse
		err  error
	)

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		resp, err = q.GetState(ctx)
	case searchCmd.FullCommand():
		err = search(ctx, c, joinWords(*searchQuery), *searchLimit)
	case addCmd.FullCommand():
		var tracks []track.Track
		limit := 1
		if *addAll {
			limit = 10
		}
		tracks, err = find(ctx, c, joinWords(*addQuery), limit)
		if err == nil {
			resp, err = q.AddTracks(ctx, &queuev1.AddTracksRequest{Tracks: tracks})
		}
	case playCmd.FullCommand():
		resp, err = playFound(ctx, c, joinWords(*playQuery), func(t track.Track) (*queuev1.StateResponse, error) {
			return q.PlayTrack(ctx, &queuev1.TrackRequest{Track: t})
		})
	case playNextCmd.FullCommand():
		resp, err = playFound(ctx, c, joinWords(*playNextQuery), func(t track.Track) (*queuev1.StateResponse, error) {
			return q.PlayNext(ctx, &queuev1.TrackRequest{Track: t})
		})
	case nextCmd.FullCommand():
		resp, err = q.Next(ctx)
	case prevCmd.FullCommand():
		resp, err = q.Previous(ctx)
	case removeCmd.FullCommand():
		resp, err = q.RemoveTrack(ctx, &queuev1.RemoveTrackRequest{ItemID: *removeItem})
	case moveCmd.FullCommand():
		resp, err = q.Reorder(ctx, &queuev1.ReorderRequest{From: *moveFrom, To: *moveTo})
	case jumpCmd.FullCommand():
		resp, err = q.SetCurrentIndex(ctx, &queuev1.SetCurrentIndexRequest{Index: *jumpIndex})
	case shuffleCmd.FullCommand():
		resp, err = q.ToggleShuffle(ctx)
	case loopCmd.FullCommand():
		resp, err = q.ToggleLoop(ctx)
	case clearCmd.FullCommand():
		resp, err = q.Clear(ctx)
	case muteCmd.FullCommand():
		resp, err = q.ToggleMute(ctx)
	case volumeSetCmd.FullCommand():
		resp, err = q.SetVolume(ctx, &queuev1.SetVolumeRequest{Volume: *volumeValue})
	case volumeUpCmd.FullCommand():
		resp, err = q.AdjustVolume(ctx, &queuev1.AdjustVolumeRequest{Up: true, Step: *volumeUpStep})
	case volumeDownCmd.FullCommand():
		resp, err = q.AdjustVolume(ctx, &queuev1.AdjustVolumeRequest{Up: false, Step: *volumeDnStep})
	case streamURLCmd.FullCommand():
		var u *queuev1.StreamURLResponse
		u, err = c.StreamURL(ctx, &queuev1.StreamURLRequest{TrackID: *streamURLTrack})
		if err == nil {
			fmt.Println(u.URL)
		}
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if resp != nil {
		printState(resp.Seq, resp.State)
	}
}

func joinWords(words []string) string {
	return strings.Join(words, " ")
}

func find(ctx context.Context, c *queuev1.CatalogServiceClient, query string, limit int) ([]track.Track, error) {
	resp, err := c.Search(ctx, &queuev1.SearchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	if len(resp.Tracks) == 0 {
		return nil, errors.Newf("no track matches %q", query)
	}
	return resp.Tracks, nil
}

func playFound(
	ctx context.Context,
	c *queuev1.CatalogServiceClient,
	query string,
	play func(track.Track) (*queuev1.StateResponse, error),
) (*queuev1.StateResponse, error) {
	tracks, err := find(ctx, c, query, 1)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Found: %s\n", tracks[0].DisplayName())
	return play(tracks[0])
}

func search(ctx context.Context, c *queuev1.CatalogServiceClient, query string, limit int) error {
	resp, err := c.Search(ctx, &queuev1.SearchRequest{Query: query, Limit: limit})
	if err != nil {
		return err
	}
	if len(resp.Tracks) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, t := range resp.Tracks {
		fmt.Printf("%2d. %-40s %s  [id: %s]\n", i+1, t.DisplayName(), formatDuration(t.Duration), t.ID)
	}
	return nil
}

func subscribe(q *queuev1.QueueServiceClient) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := q.Subscribe(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		cancel()
	}()

	// Receive notifications
	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printNotification(n *queuev1.Notification) {
	// Print sequence number
	fmt.Printf("\n[Sequence: %d] ", n.SequenceNo)

	// Print event type header
	switch n.Type {
	case queuev1.NotificationTypeInitialState:
		fmt.Println("=== INITIAL STATE ===")
	case queuev1.NotificationTypeStateChanged:
		fmt.Printf("=== STATE CHANGED (%s) ===\n", n.Action)
	default:
		fmt.Printf("=== UNKNOWN EVENT (%v) ===\n", n.Type)
	}

	printState(n.SequenceNo, n.State)
}

func printState(seq uint64, st queue.State) {
	views := queue.ViewsOf(st)

	fmt.Printf("Queue (seq %d): %d tracks", seq, views.QueueLength)
	var modes []string
	if st.Shuffle {
		modes = append(modes, "shuffle")
	}
	if st.Loop {
		modes = append(modes, "loop")
	}
	if len(modes) > 0 {
		fmt.Printf(" [%s]", strings.Join(modes, ", "))
	}
	fmt.Println()

	if views.IsMuted {
		fmt.Println("Volume: muted")
	} else {
		fmt.Printf("Volume: %.0f%%\n", views.Volume*100)
	}

	if views.CurrentTrack != nil {
		fmt.Printf("Now playing: %s (%s)\n", views.CurrentTrack.DisplayName(), formatDuration(views.CurrentTrack.Duration))
	} else {
		fmt.Println("Now playing: -")
	}

	for i, it := range st.Items {
		marker := "  "
		if i == st.CurrentIndex {
			marker = "▶ "
		}
		fmt.Printf("%s%2d. %-40s %s  [item: %s]\n", marker, i, it.Track.DisplayName(), formatDuration(it.Track.Duration), it.ID)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
