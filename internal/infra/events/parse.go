package events

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/nbd-wtf/go-nostr"

	"github.com/osa030/nostrbeat/internal/domain/profile"
	"github.com/osa030/nostrbeat/internal/domain/release"
	"github.com/osa030/nostrbeat/internal/domain/track"
)

// Errors
var (
	ErrWrongKind         = errors.New("unexpected event kind")
	ErrMissingIdentifier = errors.New("event has no d tag")
	ErrInvalidContent    = errors.New("invalid event content")
	ErrMissingTarget     = errors.New("event does not reference a target")
)

// ParseTrack parses a track event. The source is StandaloneSource; callers
// that know the origin replace it.
func ParseTrack(evt *nostr.Event, kinds Kinds) (track.Track, error) {
	if evt == nil || evt.Kind != kinds.Track {
		return track.Track{}, errors.Wrapf(ErrWrongKind, "want %d", kinds.Track)
	}

	d := tagValue(evt.Tags, "d")
	if d == "" {
		return track.Track{}, ErrMissingIdentifier
	}

	t := track.Track{
		ID:       track.Address(evt.Kind, evt.PubKey, d),
		Title:    firstNonEmpty(tagValue(evt.Tags, "title"), tagValue(evt.Tags, "subject")),
		Artist:   tagValue(evt.Tags, "artist"),
		AudioURL: httpURL(firstNonEmpty(tagValue(evt.Tags, "url"), tagValue(evt.Tags, "media"))),
		Duration: parseSeconds(tagValue(evt.Tags, "duration")),
		ImageURL: httpURL(tagValue(evt.Tags, "image")),
		Explicit: isExplicit(evt.Tags),
		Language: language(evt.Tags),
		Pubkey:   evt.PubKey,
		Genres:   tagValues(evt.Tags, "t"),
		Source:   track.StandaloneSource{},
	}
	return t, nil
}

// ParseRelease parses a release event. Tracks are left unresolved; TrackRefs
// lists the referenced track addresses in order without duplicates.
func ParseRelease(evt *nostr.Event, kinds Kinds) (*release.Release, error) {
	if evt == nil || evt.Kind != kinds.Release {
		return nil, errors.Wrapf(ErrWrongKind, "want %d", kinds.Release)
	}

	d := tagValue(evt.Tags, "d")
	if d == "" {
		return nil, ErrMissingIdentifier
	}

	r := &release.Release{
		Pubkey:      evt.PubKey,
		ID:          d,
		Kind:        evt.Kind,
		Title:       firstNonEmpty(tagValue(evt.Tags, "title"), tagValue(evt.Tags, "name")),
		Description: firstNonEmpty(tagValue(evt.Tags, "description"), evt.Content),
		ImageURL:    httpURL(tagValue(evt.Tags, "image")),
		CreatedAt:   evt.CreatedAt.Time(),
	}

	prefix := strconv.Itoa(kinds.Track) + ":"
	seen := make(map[string]bool)
	for _, ref := range tagValues(evt.Tags, "a") {
		if !strings.HasPrefix(ref, prefix) || seen[ref] {
			continue
		}
		if _, _, err := SplitAddress(ref); err != nil {
			continue
		}
		seen[ref] = true
		r.TrackRefs = append(r.TrackRefs, ref)
	}
	return r, nil
}

// profileContent mirrors the kind-0 JSON content.
type profileContent struct {
	Name        string `mapstructure:"name"`
	DisplayName string `mapstructure:"display_name"`
	DisplayAlt  string `mapstructure:"displayName"`
	About       string `mapstructure:"about"`
	Picture     string `mapstructure:"picture"`
	Banner      string `mapstructure:"banner"`
	Website     string `mapstructure:"website"`
	NIP05       string `mapstructure:"nip05"`
	LUD16       string `mapstructure:"lud16"`
}

// ParseProfile parses kind-0 metadata. Values of the wrong JSON type are coerced
// where possible, since clients in the wild disagree on types.
func ParseProfile(evt *nostr.Event, kinds Kinds) (*profile.Profile, error) {
	if evt == nil || evt.Kind != kinds.Profile {
		return nil, errors.Wrapf(ErrWrongKind, "want %d", kinds.Profile)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(evt.Content), &raw); err != nil {
		return nil, errors.Wrap(ErrInvalidContent, err.Error())
	}

	var content profileContent
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &content,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(ErrInvalidContent, err.Error())
	}

	p := profile.New(evt.PubKey)
	p.Name = strings.TrimSpace(content.Name)
	p.DisplayName = strings.TrimSpace(firstNonEmpty(content.DisplayName, content.DisplayAlt))
	p.About = content.About
	p.Picture = httpURL(content.Picture)
	p.Banner = httpURL(content.Banner)
	p.Website = content.Website
	p.NIP05 = content.NIP05
	p.LUD16 = content.LUD16
	return p, nil
}

// Reaction is a kind-7 reaction to an event.
type Reaction struct {
	ID        string
	Pubkey    string
	Target    string // Address or event ID of the reacted event
	Content   string // "+", "-" or an emoji
	CreatedAt time.Time
}

// IsLike reports whether the reaction counts as a like.
func (r Reaction) IsLike() bool {
	return r.Content == "" || r.Content == "+"
}

// ParseReaction parses a reaction. The target is the last a tag, else the last e tag.
func ParseReaction(evt *nostr.Event, kinds Kinds) (Reaction, error) {
	if evt == nil || evt.Kind != kinds.Reaction {
		return Reaction{}, errors.Wrapf(ErrWrongKind, "want %d", kinds.Reaction)
	}

	target := lastTagValue(evt.Tags, "a")
	if target == "" {
		target = lastTagValue(evt.Tags, "e")
	}
	if target == "" {
		return Reaction{}, ErrMissingTarget
	}

	return Reaction{
		ID:        evt.ID,
		Pubkey:    evt.PubKey,
		Target:    target,
		Content:   strings.TrimSpace(evt.Content),
		CreatedAt: evt.CreatedAt.Time(),
	}, nil
}

// Zap is a parsed zap receipt.
type Zap struct {
	ID          string
	Sender      string // Pubkey of the zap request author
	Recipient   string
	Target      string // Address or event ID that was zapped
	AmountMsats int64
	Comment     string
	CreatedAt   time.Time
}

// ParseZapReceipt parses a kind-9735 receipt. The amount comes from the embedded
// zap request, falling back to the bolt11 invoice amount.
func ParseZapReceipt(evt *nostr.Event, kinds Kinds) (Zap, error) {
	if evt == nil || evt.Kind != kinds.ZapReceipt {
		return Zap{}, errors.Wrapf(ErrWrongKind, "want %d", kinds.ZapReceipt)
	}

	z := Zap{
		ID:        evt.ID,
		Recipient: tagValue(evt.Tags, "p"),
		Target:    firstNonEmpty(tagValue(evt.Tags, "a"), tagValue(evt.Tags, "e")),
		CreatedAt: evt.CreatedAt.Time(),
	}
	if z.Target == "" {
		return Zap{}, ErrMissingTarget
	}

	if desc := tagValue(evt.Tags, "description"); desc != "" {
		var req nostr.Event
		if err := json.Unmarshal([]byte(desc), &req); err == nil {
			z.Sender = req.PubKey
			z.Comment = req.Content
			if amount, err := strconv.ParseInt(tagValue(req.Tags, "amount"), 10, 64); err == nil && amount > 0 {
				z.AmountMsats = amount
			}
		}
	}

	if z.AmountMsats == 0 {
		amount, err := Bolt11AmountMsats(tagValue(evt.Tags, "bolt11"))
		if err != nil {
			return Zap{}, errors.Wrap(err, "zap receipt has no amount")
		}
		z.AmountMsats = amount
	}
	return z, nil
}

// Comment is a kind-1111 comment on a release or track.
type Comment struct {
	ID        string
	Pubkey    string
	Root      string // Root address or event ID
	Parent    string // Direct parent (equal to Root for top-level comments)
	Content   string
	CreatedAt time.Time
}

// ParseComment parses a comment. Uppercase tags reference the root, lowercase the parent.
func ParseComment(evt *nostr.Event, kinds Kinds) (Comment, error) {
	if evt == nil || evt.Kind != kinds.Comment {
		return Comment{}, errors.Wrapf(ErrWrongKind, "want %d", kinds.Comment)
	}

	root := firstNonEmpty(tagValue(evt.Tags, "A"), tagValue(evt.Tags, "E"))
	parent := firstNonEmpty(tagValue(evt.Tags, "a"), tagValue(evt.Tags, "e"))
	if root == "" {
		root = parent
	}
	if root == "" {
		return Comment{}, ErrMissingTarget
	}
	if parent == "" {
		parent = root
	}

	return Comment{
		ID:        evt.ID,
		Pubkey:    evt.PubKey,
		Root:      root,
		Parent:    parent,
		Content:   evt.Content,
		CreatedAt: evt.CreatedAt.Time(),
	}, nil
}

// SplitAddress splits "<kind>:<pubkey>:<d>" into its parts.
func SplitAddress(address string) (int, string, error) {
	parts := strings.SplitN(address, ":", 3)
	if len(parts) != 3 || parts[1] == "" {
		return 0, "", errors.Newf("invalid address %q", address)
	}
	kind, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", errors.Wrapf(err, "invalid address kind %q", address)
	}
	return kind, parts[1], nil
}

// Identifier returns the d part of an address.
func Identifier(address string) string {
	parts := strings.SplitN(address, ":", 3)
	if len(parts) != 3 {
		return ""
	}
	return parts[2]
}

func tagValue(tags nostr.Tags, key string) string {
	for _, t := range tags {
		if len(t) >= 2 && t[0] == key {
			return strings.TrimSpace(t[1])
		}
	}
	return ""
}

func lastTagValue(tags nostr.Tags, key string) string {
	for i := len(tags) - 1; i >= 0; i-- {
		if t := tags[i]; len(t) >= 2 && t[0] == key && t[1] != "" {
			return strings.TrimSpace(t[1])
		}
	}
	return ""
}

func tagValues(tags nostr.Tags, key string) []string {
	var values []string
	for _, t := range tags {
		if len(t) >= 2 && t[0] == key && t[1] != "" {
			values = append(values, strings.TrimSpace(t[1]))
		}
	}
	return values
}

func hasTag(tags nostr.Tags, key string) bool {
	for _, t := range tags {
		if len(t) >= 1 && t[0] == key {
			return true
		}
	}
	return false
}

func isExplicit(tags nostr.Tags) bool {
	switch strings.ToLower(tagValue(tags, "explicit")) {
	case "true", "1", "yes":
		return true
	}
	return hasTag(tags, "content-warning")
}

// language reads a "language" tag or a NIP-32 label in the ISO-639-1 namespace.
func language(tags nostr.Tags) string {
	if l := tagValue(tags, "language"); l != "" {
		return strings.ToLower(l)
	}
	for _, t := range tags {
		if len(t) >= 3 && t[0] == "l" && t[2] == "ISO-639-1" {
			return strings.ToLower(t[1])
		}
	}
	return ""
}

func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f > 7*24*3600 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

// httpURL returns s if it is an absolute http(s) URL, otherwise "".
func httpURL(s string) string {
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
