package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/osa030/nostrbeat/internal/domain/track"
)

// DuplicateTrackFilter drops tracks already in the queue.
// Detects:
// - Exact track ID matches
// - Remasters and alternate edits (normalized title + same artist)
// Excludes:
// - Covers (same title but different artist)
// - Remixes
type DuplicateTrackFilter struct{}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter() *DuplicateTrackFilter {
	return &DuplicateTrackFilter{}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Skips tracks (including remasters and edits) that are already queued; covers are kept"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// AppliesTo returns which queue origins this filter applies to.
func (f *DuplicateTrackFilter) AppliesTo(origin track.SourceKind) bool {
	return true
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(config map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the track duplicates a queued track.
func (f *DuplicateTrackFilter) Check(ctx context.Context, t track.Track, queued []track.Track) Result {
	for _, q := range queued {
		if track.Same(&q, &t) || isSameSong(q, t) {
			return Reject("duplicate_track")
		}
	}
	return Accept()
}

// isSameSong reports whether two tracks are versions of the same song by the same artist.
func isSameSong(a, b track.Track) bool {
	titleA := normalizeTitle(a.Title)
	if titleA == "" || titleA != normalizeTitle(b.Title) {
		return false
	}
	return isSameArtist(a, b)
}

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),        // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),           // "(Radio Edit)"
		regexp.MustCompile(`\s*\(live\)`),              // "(Live)"
		regexp.MustCompile(`\s*-\s*live\b.*$`),         // "- Live at ..."
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),     // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`), // "- Single Version"
	}
	whitespace = regexp.MustCompile(`\s+`)
)

// normalizeTitle removes remaster information and version details.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(title)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = whitespace.ReplaceAllString(normalized, " ")

	// Remove trailing dashes
	return strings.TrimRight(normalized, " -")
}

// isSameArtist compares publishing pubkeys, falling back to the artist name.
func isSameArtist(a, b track.Track) bool {
	if a.Pubkey != "" && b.Pubkey != "" {
		return a.Pubkey == b.Pubkey
	}
	if a.Artist == "" || b.Artist == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.Artist), strings.TrimSpace(b.Artist))
}

func init() {
	Register("duplicate_track_filter", func() Filter {
		return NewDuplicateTrackFilter()
	})
}
