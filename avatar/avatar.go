// Package avatar resolves and caches avatar image URLs of roster members.
//
// Lookups against the external profile service are bounded by a time-expiring
// in-process Cache. Failed lookups are cached as well, as an absent Avatar,
// so a failing upstream is not hammered on every roster render.
package avatar

import (
	"context"
	"strings"
)

// Avatar is the result of an avatar lookup. The zero value is the absent
// marker, meaning no avatar is available for the user.
type Avatar struct {
	URL string `json:"url,omitempty"`
}

// Absent is the marker for "no avatar available"
var Absent = Avatar{}

// Found reports whether an image URL is available
func (a Avatar) Found() bool {
	return a.URL != ""
}

// Fetcher looks up the avatar of a username at the external profile service.
// Implementations must fail closed: any error results in Absent.
type Fetcher interface {
	Fetch(ctx context.Context, username string) Avatar
}

// FetcherFunc is an adapter to allow the use of ordinary functions as Fetcher
type FetcherFunc func(ctx context.Context, username string) Avatar

// Fetch implements the Fetcher interface
func (f FetcherFunc) Fetch(ctx context.Context, username string) Avatar {
	return f(ctx, username)
}

// Resolver resolves the avatar of a username, using whatever caching the
// implementation has.
type Resolver interface {
	Resolve(ctx context.Context, username string) Avatar
}

// key normalizes a username to a cache key
func key(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
