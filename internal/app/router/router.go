// Package router maps NIP-19 identifiers to the page that should display them.
package router

import (
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/nostrbeat/internal/domain/track"
	"github.com/osa030/nostrbeat/internal/infra/events"
)

// Page identifies what kind of page renders an identifier.
type Page string

const (
	PageProfile  Page = "profile"
	PageRelease  Page = "release"
	PageTrack    Page = "track"
	PageNote     Page = "note"
	PageEvent    Page = "event"
	PageNotFound Page = "not_found"
)

// Route is the result of resolving an identifier.
type Route struct {
	Page       Page
	Identifier string // Input without the nostr: prefix
	Pubkey     string
	EventID    string
	Kind       int
	D          string // d tag of addressable events
	Relays     []string
	Reason     string // Set when Page is PageNotFound
}

// Address returns the "kind:pubkey:d" address of addressable routes.
func (r Route) Address() string {
	if r.Page != PageRelease && r.Page != PageTrack {
		return ""
	}
	return track.Address(r.Kind, r.Pubkey, r.D)
}

// Found reports whether the route points at a page.
func (r Route) Found() bool {
	return r.Page != PageNotFound
}

// Router resolves identifiers using the configured event kinds.
type Router struct {
	kinds events.Kinds
}

// New creates a router.
func New(kinds events.Kinds) *Router {
	return &Router{kinds: kinds}
}

// Resolve decodes identifier and picks a page. It never fails; undecodable or
// unsupported identifiers resolve to PageNotFound with a reason.
func (r *Router) Resolve(identifier string) Route {
	id := strings.TrimSpace(identifier)
	id = strings.TrimPrefix(id, "nostr:")
	route := Route{Identifier: id}

	if id == "" {
		return notFound(route, "empty identifier")
	}

	prefix, value, err := nip19.Decode(id)
	if err != nil {
		zlog.Debug().Msgf("Failed to decode identifier %q: %v", id, err)
		return notFound(route, "invalid identifier")
	}

	switch prefix {
	case "npub":
		pk, ok := value.(string)
		if !ok {
			return notFound(route, "invalid npub")
		}
		route.Page = PageProfile
		route.Pubkey = pk
		return route

	case "nprofile":
		var pp nostr.ProfilePointer
		switch v := value.(type) {
		case nostr.ProfilePointer:
			pp = v
		case *nostr.ProfilePointer:
			pp = *v
		default:
			return notFound(route, "invalid nprofile")
		}
		route.Page = PageProfile
		route.Pubkey = pp.PublicKey
		route.Relays = pp.Relays
		return route

	case "note":
		eid, ok := value.(string)
		if !ok {
			return notFound(route, "invalid note")
		}
		route.Page = PageNote
		route.EventID = eid
		route.Kind = r.kinds.Note
		return route

	case "nevent":
		var ep nostr.EventPointer
		switch v := value.(type) {
		case nostr.EventPointer:
			ep = v
		case *nostr.EventPointer:
			ep = *v
		default:
			return notFound(route, "invalid nevent")
		}
		route.EventID = ep.ID
		route.Pubkey = ep.Author
		route.Kind = ep.Kind
		route.Relays = ep.Relays
		route.Page = PageEvent
		if ep.Kind == r.kinds.Note {
			route.Page = PageNote
		}
		return route

	case "naddr":
		var ap nostr.EntityPointer
		switch v := value.(type) {
		case nostr.EntityPointer:
			ap = v
		case *nostr.EntityPointer:
			ap = *v
		default:
			return notFound(route, "invalid naddr")
		}
		route.Pubkey = ap.PublicKey
		route.Kind = ap.Kind
		route.D = ap.Identifier
		route.Relays = ap.Relays
		switch ap.Kind {
		case r.kinds.Release:
			route.Page = PageRelease
		case r.kinds.Track:
			route.Page = PageTrack
		default:
			return notFound(route, "unsupported address kind")
		}
		return route
	}

	return notFound(route, "unsupported identifier type "+prefix)
}

func notFound(route Route, reason string) Route {
	route.Page = PageNotFound
	route.Reason = reason
	return route
}
