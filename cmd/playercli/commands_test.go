package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiconnect "github.com/osa030/nostrbeat/internal/api/connect"
)

func TestSplitLine(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantArgs []string
	}{
		{"", "", nil},
		{"   ", "", nil},
		{"STATUS", "status", []string{}},
		{"play naddr1abc 2", "play", []string{"naddr1abc", "2"}},
		{`url https://x.test/a.mp3 "Long Title" The  Band`, "url", []string{"https://x.test/a.mp3", "Long Title", "The", "Band"}},
		{`url u ""`, "url", []string{"u", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, args := splitLine(tt.line)
			assert.Equal(t, tt.wantName, name)
			if tt.wantArgs == nil {
				assert.Nil(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestExec_Usage(t *testing.T) {
	c := &cli{out: &bytes.Buffer{}}
	ctx := context.Background()

	tests := []struct {
		name string
		args []string
	}{
		{"play", nil},
		{"play", []string{""}},
		{"play", []string{"naddr1abc", "-1"}},
		{"play", []string{"naddr1abc", "two"}},
		{"seek", nil},
		{"seek", []string{"soon"}},
		{"volume", []string{"loud"}},
		{"rate", []string{"fast"}},
		{"rate", []string{"3"}},
		{"rate", []string{"0.6x"}},
		{"resolve", nil},
		{"engagement", nil},
		{"url", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.exec(ctx, tt.name, tt.args)
			assert.ErrorIs(t, err, ErrUsage)
		})
	}

	err := c.exec(ctx, "dance", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestExec_Help(t *testing.T) {
	var buf bytes.Buffer
	c := &cli{out: &buf}

	require.NoError(t, c.exec(context.Background(), "help", nil))
	assert.Contains(t, buf.String(), "play <identifier> [index]")
	assert.Contains(t, buf.String(), "quit")
	assert.Contains(t, buf.String(), "set the playback rate: 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2")
}

func TestParseRate(t *testing.T) {
	u, _ := lookupUsage("rate")

	for _, in := range []string{"1.25", "1.25x", "2", "0.5x"} {
		_, err := parseRate(u, in)
		assert.NoError(t, err, in)
	}
	v, err := parseRate(u, "0.75x")
	require.NoError(t, err)
	assert.Equal(t, 0.75, v)

	_, err = parseRate(u, "1.1")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestCompleter_RatePresets(t *testing.T) {
	var rate readline.PrefixCompleterInterface
	for _, item := range completer().GetChildren() {
		if strings.TrimSpace(string(item.GetName())) == "rate" {
			rate = item
		}
	}
	require.NotNil(t, rate)

	var got []string
	for _, child := range rate.GetChildren() {
		got = append(got, strings.TrimSpace(string(child.GetName())))
	}
	assert.Equal(t, rateChoices(), got)
}

func TestPrintPage(t *testing.T) {
	var buf bytes.Buffer
	c := &cli{out: &buf}

	c.printPage(&apiconnect.ResolveResponse{
		Page:    "release",
		Address: "34139:pk:album",
		Title:   "Album",
		Tracks: []apiconnect.TrackMessage{
			{Title: "One", Artist: "The Band", AudioURL: "https://x.test/1.mp3"},
			{Title: "Two", Artist: "The Band"},
		},
	})
	assert.Contains(t, buf.String(), "Page: release")
	assert.Contains(t, buf.String(), " 1. One - The Band\n")
	assert.Contains(t, buf.String(), " 2. Two - The Band (no audio)\n")

	buf.Reset()
	c.printPage(&apiconnect.ResolveResponse{Page: "not_found", Reason: "unsupported identifier"})
	assert.Equal(t, "Page: not_found\n  Reason: unsupported identifier\n", buf.String())
}

func TestPrintEngagement(t *testing.T) {
	var buf bytes.Buffer
	c := &cli{out: &buf}

	c.printEngagement(&apiconnect.EngagementResponse{
		Likes:         2,
		ZapCount:      2,
		ZapTotalMsats: 1021000,
		Comments: []apiconnect.CommentMessage{
			{Pubkey: "0123456789abcdef", Content: "great"},
		},
	})
	assert.Contains(t, buf.String(), "Likes: 2")
	assert.Contains(t, buf.String(), "Zaps: 2 (1021 sats)")
	assert.Contains(t, buf.String(), "01234567: great")
}

func TestRender_Closed(t *testing.T) {
	var buf bytes.Buffer
	c := &cli{out: &buf}

	c.render(apiconnect.StateMessage{State: "empty"})
	assert.Equal(t, "Player closed\n", buf.String())
}
