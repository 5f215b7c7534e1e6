// Package main provides the player CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/nostrbeat/internal/api/connect"
	"github.com/osa030/nostrbeat/internal/infra/config"
)

var (
	app    = kingpin.New("nostrbeat", "nostrbeat player client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Control token").Envar(config.EnvControlToken).String()

	statusCmd = app.Command("status", "Show the player")

	playCmd   = app.Command("play", "Play a track, release or profile (toggles if already current)")
	playID    = playCmd.Arg("identifier", "NIP-19 identifier or nostr: URI").Required().String()
	playIndex = playCmd.Arg("index", "Track index within the queue").Default("0").Int()

	urlCmd    = app.Command("url", "Play an audio URL")
	urlURL    = urlCmd.Arg("url", "Audio URL").Required().String()
	urlTitle  = urlCmd.Arg("title", "Title").String()
	urlArtist = urlCmd.Arg("artist", "Artist").String()

	pauseCmd  = app.Command("pause", "Pause playback")
	resumeCmd = app.Command("resume", "Resume or retry playback")
	stopCmd   = app.Command("stop", "Stop and close the player")
	nextCmd   = app.Command("next", "Skip to the next track")
	prevCmd   = app.Command("prev", "Go back to the previous track")

	seekCmd     = app.Command("seek", "Seek within the current track")
	seekSeconds = seekCmd.Arg("seconds", "Position in seconds").Required().String()

	volumeCmd     = app.Command("volume", "Set the volume")
	volumePercent = volumeCmd.Arg("percent", "Volume 0-100").Required().String()

	rateCmd   = app.Command("rate", "Set the playback rate")
	rateValue = rateCmd.Arg("rate", "Rate preset").Required().Enum(rateChoices()...)

	resolveCmd = app.Command("resolve", "Show the page behind an identifier")
	resolveID  = resolveCmd.Arg("identifier", "NIP-19 identifier or nostr: URI").Required().String()

	engagementCmd    = app.Command("engagement", "Show likes, zaps and comments for an event")
	engagementTarget = engagementCmd.Arg("target", "Event address or id").Required().String()

	watchCmd   = app.Command("watch", "Follow the player")
	consoleCmd = app.Command("console", "Interactive console")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	var opts []connect.ClientOption
	if *token != "" {
		opts = append(opts, apiconnect.WithControlToken(*token))
	}
	c := &cli{
		player:  apiconnect.NewPlayerClient(http.DefaultClient, *server),
		control: apiconnect.NewControlClient(http.DefaultClient, *server, opts...),
		out:     os.Stdout,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case statusCmd.FullCommand():
		err = c.exec(ctx, "status", nil)
	case playCmd.FullCommand():
		err = c.exec(ctx, "play", []string{*playID, strconv.Itoa(*playIndex)})
	case urlCmd.FullCommand():
		err = c.exec(ctx, "url", []string{*urlURL, *urlTitle, *urlArtist})
	case pauseCmd.FullCommand():
		err = c.exec(ctx, "pause", nil)
	case resumeCmd.FullCommand():
		err = c.exec(ctx, "resume", nil)
	case stopCmd.FullCommand():
		err = c.exec(ctx, "stop", nil)
	case nextCmd.FullCommand():
		err = c.exec(ctx, "next", nil)
	case prevCmd.FullCommand():
		err = c.exec(ctx, "prev", nil)
	case seekCmd.FullCommand():
		err = c.exec(ctx, "seek", []string{*seekSeconds})
	case volumeCmd.FullCommand():
		err = c.exec(ctx, "volume", []string{*volumePercent})
	case rateCmd.FullCommand():
		err = c.exec(ctx, "rate", []string{*rateValue})
	case resolveCmd.FullCommand():
		err = c.exec(ctx, "resolve", []string{*resolveID})
	case engagementCmd.FullCommand():
		err = c.exec(ctx, "engagement", []string{*engagementTarget})
	case watchCmd.FullCommand():
		err = c.watch(ctx)
	case consoleCmd.FullCommand():
		err = c.console(ctx)
	}

	if err != nil && ctx.Err() == nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
