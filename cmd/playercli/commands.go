package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	apiconnect "github.com/osa030/nostrbeat/internal/api/connect"
	"github.com/osa030/nostrbeat/internal/app/playback"
	"github.com/osa030/nostrbeat/internal/app/playerview"
)

// ErrUsage is returned for malformed command arguments.
var ErrUsage = errors.New("usage")

type usage struct {
	name  string
	args  string
	help  string
	nargs int // required arguments
}

var usages = []usage{
	{"status", "", "show the player", 0},
	{"play", "<identifier> [index]", "play or toggle a track, release or profile", 1},
	{"url", "<url> [title] [artist]", "play an audio URL", 1},
	{"pause", "", "pause playback", 0},
	{"resume", "", "resume or retry playback", 0},
	{"stop", "", "stop and close the player", 0},
	{"next", "", "next track", 0},
	{"prev", "", "previous track", 0},
	{"seek", "<seconds>", "seek within the current track", 1},
	{"volume", "<0-100>", "set the volume", 1},
	{"rate", "<rate>", "set the playback rate: " + strings.Join(rateChoices(), ", "), 1},
	{"resolve", "<identifier>", "show the page behind an identifier", 1},
	{"engagement", "<target>", "likes, zaps and comments for an event", 1},
	{"help", "", "list commands", 0},
}

func lookupUsage(name string) (usage, bool) {
	for _, u := range usages {
		if u.name == name {
			return u, true
		}
	}
	return usage{}, false
}

type cli struct {
	player  *apiconnect.PlayerClient
	control *apiconnect.ControlClient
	out     io.Writer
}

// exec runs one command. It is shared by the command line and the console.
func (c *cli) exec(ctx context.Context, name string, args []string) error {
	u, ok := lookupUsage(name)
	if !ok {
		return errors.Newf("unknown command %q (try help)", name)
	}
	if u.nargs > 0 && (len(args) < u.nargs || args[0] == "") {
		return errors.Wrapf(ErrUsage, "%s %s", u.name, u.args)
	}

	switch name {
	case "help":
		c.printHelp()
		return nil
	case "status":
		return c.showState(c.player.GetState(ctx))
	case "play":
		index := 0
		if len(args) > 1 && args[1] != "" {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 0 {
				return errors.Wrapf(ErrUsage, "%s %s", u.name, u.args)
			}
			index = n
		}
		resp, err := c.control.PlayRoute(ctx, args[0], index)
		if err != nil {
			return err
		}
		c.printQueue(resp)
		return nil
	case "url":
		req := &apiconnect.PlayTrackRequest{URL: args[0]}
		if len(args) > 1 {
			req.Title = args[1]
		}
		if len(args) > 2 {
			req.Artist = strings.Join(args[2:], " ")
		}
		return c.showState(c.control.PlayTrack(ctx, req))
	case "pause":
		return c.showState(c.control.Pause(ctx))
	case "resume":
		return c.showState(c.control.Play(ctx))
	case "stop":
		return c.showState(c.control.Stop(ctx))
	case "next":
		return c.showState(c.control.Next(ctx))
	case "prev":
		return c.showState(c.control.Previous(ctx))
	case "seek":
		v, err := parseNumber(u, args[0])
		if err != nil {
			return err
		}
		return c.showState(c.control.Seek(ctx, v))
	case "volume":
		v, err := parseNumber(u, args[0])
		if err != nil {
			return err
		}
		return c.showState(c.control.SetVolume(ctx, v/100))
	case "rate":
		v, err := parseRate(u, args[0])
		if err != nil {
			return err
		}
		return c.showState(c.control.SetPlaybackRate(ctx, v))
	case "resolve":
		resp, err := c.player.Resolve(ctx, &apiconnect.ResolveRequest{Identifier: args[0], Load: true})
		if err != nil {
			return err
		}
		c.printPage(resp)
		return nil
	case "engagement":
		resp, err := c.player.Engagement(ctx, args[0])
		if err != nil {
			return err
		}
		c.printEngagement(resp)
		return nil
	}
	return nil
}

func parseNumber(u usage, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrUsage, "%s %s", u.name, u.args)
	}
	return v, nil
}

// watch prints the player every time the server reports a change.
// rateChoices lists the playback rate presets as typed on the command line.
func rateChoices() []string {
	choices := make([]string, len(playback.PlaybackRatePresets))
	for i, r := range playback.PlaybackRatePresets {
		choices[i] = strings.TrimSuffix(playerview.FormatRate(r), "x")
	}
	return choices
}

// parseRate accepts a preset rate, with or without a trailing "x".
func parseRate(u usage, s string) (float64, error) {
	v, err := parseNumber(u, strings.TrimSuffix(s, "x"))
	if err != nil {
		return 0, err
	}
	for _, r := range playback.PlaybackRatePresets {
		if v == r {
			return v, nil
		}
	}
	return 0, errors.Wrapf(ErrUsage, "rate %s (one of %s)", s, strings.Join(rateChoices(), ", "))
}

func (c *cli) watch(ctx context.Context) error {
	stream, err := c.player.SubscribeState(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Fprintln(c.out, "Watching the player. Press Ctrl+C to exit.")
	for stream.Receive() {
		u := stream.Msg()
		fmt.Fprintf(c.out, "\n[Sequence: %d] %s\n", u.SequenceNo, u.Event)
		c.render(u.State)
	}
	return stream.Err()
}

func (c *cli) showState(resp *apiconnect.StateResponse, err error) error {
	if err != nil {
		return err
	}
	c.render(resp.State)
	return nil
}

func (c *cli) render(s apiconnect.StateMessage) {
	out := playerview.Render(s.Snapshot())
	if out == "" {
		fmt.Fprintln(c.out, "Player closed")
		return
	}
	fmt.Fprintln(c.out, out)
}

func (c *cli) printQueue(resp *apiconnect.PlayRouteResponse) {
	fmt.Fprintf(c.out, "Queued %d tracks from %s: %s\n", resp.Queued, resp.Page, resp.Label)
	for _, r := range resp.Rejected {
		fmt.Fprintf(c.out, "  skipped %s [%s]\n", r.Title, r.Code)
	}
	c.render(resp.State)
}

func (c *cli) printPage(p *apiconnect.ResolveResponse) {
	fmt.Fprintf(c.out, "Page: %s\n", p.Page)
	if p.Reason != "" {
		fmt.Fprintf(c.out, "  Reason: %s\n", p.Reason)
		return
	}
	if p.Address != "" {
		fmt.Fprintf(c.out, "  Address: %s\n", p.Address)
	}
	if p.EventID != "" {
		fmt.Fprintf(c.out, "  Event: %s\n", p.EventID)
	}
	if p.Title != "" {
		fmt.Fprintf(c.out, "  Title: %s\n", p.Title)
	}
	if p.Description != "" {
		fmt.Fprintf(c.out, "  Description: %s\n", p.Description)
	}
	if p.Content != "" {
		fmt.Fprintf(c.out, "  Content: %s\n", p.Content)
	}
	for i, t := range p.Tracks {
		playable := ""
		if t.AudioURL == "" {
			playable = " (no audio)"
		}
		fmt.Fprintf(c.out, "  %2d. %s - %s%s\n", i+1, t.Title, t.Artist, playable)
	}
}

func (c *cli) printEngagement(e *apiconnect.EngagementResponse) {
	fmt.Fprintf(c.out, "Likes: %d\n", e.Likes)
	for r, n := range e.Reactions {
		fmt.Fprintf(c.out, "  %s x%d\n", r, n)
	}
	fmt.Fprintf(c.out, "Zaps: %d (%d sats)\n", e.ZapCount, e.ZapTotalMsats/1000)
	fmt.Fprintf(c.out, "Comments: %d\n", len(e.Comments))
	for _, cm := range e.Comments {
		fmt.Fprintf(c.out, "  %s: %s\n", shortKey(cm.Pubkey), cm.Content)
	}
}

func (c *cli) printHelp() {
	for _, u := range usages {
		fmt.Fprintf(c.out, "  %-28s %s\n", strings.TrimSpace(u.name+" "+u.args), u.help)
	}
	fmt.Fprintf(c.out, "  %-28s %s\n", "quit", "leave the console")
}

func shortKey(pubkey string) string {
	if len(pubkey) > 8 {
		return pubkey[:8]
	}
	return pubkey
}
