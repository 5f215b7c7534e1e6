// Package playerview renders the persistent player surface from a playback snapshot.
package playerview

import (
	"fmt"
	"math"
	"strings"

	"github.com/osa030/nostrbeat/internal/app/playback"
	"github.com/osa030/nostrbeat/internal/domain/track"
)

// DefaultBarWidth is the width of the progress bar in cells.
const DefaultBarWidth = 30

// Controls reports which transport controls are enabled.
type Controls struct {
	Play     bool
	Pause    bool
	Previous bool
	Next     bool
	Seek     bool
	Retry    bool
}

// View is the presentation model of the player.
type View struct {
	Visible  bool
	Status   string
	Title    string
	Artist   string
	Label    string
	Origin   string // NIP-19 identifier of the page the track came from
	Position string // "2/5"
	Elapsed  string
	Total    string
	Progress float64
	Volume   int // percent
	Rate     string
	Error    string
	Controls Controls
}

// Build derives the view from a snapshot. The view is hidden when nothing is queued.
func Build(s playback.Snapshot) View {
	if s.IsEmpty() {
		return View{}
	}

	t := s.CurrentTrack
	v := View{
		Visible:  true,
		Status:   statusIcon(s.State),
		Title:    t.DisplayTitle(),
		Artist:   t.DisplayArtist(),
		Label:    s.Label,
		Position: fmt.Sprintf("%d/%d", s.Index+1, len(s.Tracks)),
		Elapsed:  playback.FormatTime(s.CurrentTime),
		Total:    playback.FormatTime(s.Duration),
		Progress: s.Progress(),
		Volume:   int(math.Round(s.Volume * 100)),
		Rate:     FormatRate(s.PlaybackRate),
		Error:    s.Error,
		Origin:   OriginOf(*t),
		Controls: Controls{
			Play:     !s.IsPlaying && !s.IsLoading,
			Pause:    s.IsPlaying,
			Previous: s.HasPrevious,
			Next:     s.HasNext,
			Seek:     s.Duration > 0 && !s.IsLoading,
			Retry:    s.State == playback.StateErrored,
		},
	}
	if s.Duration <= 0 && t.HasDuration() {
		v.Total = playback.FormatTime(t.Duration.Seconds())
	}
	return v
}

// Render returns the text form of the player, or "" when it is hidden.
func Render(s playback.Snapshot) string {
	return RenderWidth(s, DefaultBarWidth)
}

// RenderWidth renders with a progress bar of the given width.
func RenderWidth(s playback.Snapshot, width int) string {
	v := Build(s)
	if !v.Visible {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s - %s\n", v.Status, v.Title, v.Artist)
	fmt.Fprintf(&b, "%s %s / %s\n", ProgressBar(v.Progress, width), v.Elapsed, v.Total)

	line := fmt.Sprintf("Track %s  Vol %d%%  %s", v.Position, v.Volume, v.Rate)
	if v.Label != "" {
		line += "  [" + v.Label + "]"
	}
	b.WriteString(line + "\n")

	if v.Origin != "" {
		fmt.Fprintf(&b, "From: nostr:%s\n", v.Origin)
	}
	if v.Error != "" {
		fmt.Fprintf(&b, "Error: %s (play to retry)\n", v.Error)
	}
	b.WriteString(renderControls(v.Controls))
	return b.String()
}

// ProgressBar draws a bar like "[=====>    ]" for p in [0,1].
func ProgressBar(p float64, width int) string {
	if width <= 0 {
		width = DefaultBarWidth
	}
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	filled := int(math.Round(p * float64(width)))
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < width; i++ {
		switch {
		case i < filled-1 || (i == filled-1 && filled == width):
			b.WriteByte('=')
		case i == filled-1:
			b.WriteByte('>')
		default:
			b.WriteByte(' ')
		}
	}
	b.WriteByte(']')
	return b.String()
}

// FormatRate renders a playback rate such as "1x" or "1.25x".
func FormatRate(r float64) string {
	if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		r = 1
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", r), "0"), ".") + "x"
}

// OriginOf returns the NIP-19 origin of a track, or "" for standalone tracks.
func OriginOf(t track.Track) string {
	if t.Source == nil {
		return ""
	}
	origin, err := t.Source.Origin()
	if err != nil {
		return ""
	}
	return origin
}

func statusIcon(s playback.State) string {
	switch s {
	case playback.StatePlaying:
		return "▶️ "
	case playback.StatePaused:
		return "⏸ "
	case playback.StateLoading:
		return "⏳"
	case playback.StateErrored:
		return "⚠️ "
	default:
		return "⏹ "
	}
}

func renderControls(c Controls) string {
	var parts []string
	if c.Previous {
		parts = append(parts, "prev")
	}
	switch {
	case c.Retry:
		parts = append(parts, "retry")
	case c.Pause:
		parts = append(parts, "pause")
	case c.Play:
		parts = append(parts, "play")
	}
	if c.Next {
		parts = append(parts, "next")
	}
	if c.Seek {
		parts = append(parts, "seek")
	}
	parts = append(parts, "stop")
	return "Controls: " + strings.Join(parts, " | ") + "\n"
}
