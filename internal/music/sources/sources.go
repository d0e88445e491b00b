// Package sources describes where tracks come from.
package sources

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a query or playlist yields nothing playable.
var ErrNotFound = errors.New("nothing found")

// Track is a playable item as described by a music provider.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Duration time.Duration
	URL      string
	Source   string
}

// FullTitle is "Artist - Title" when the artist is known.
func (t Track) FullTitle() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

// Provider looks tracks up and resolves them to something ffmpeg can read.
type Provider interface {
	// Search returns matching tracks, best match first.
	Search(ctx context.Context, query string) ([]Track, error)

	// Playlist loads the kind-th playlist (1-based) of profile. Providers
	// may also accept a direct playlist reference as profile.
	Playlist(ctx context.Context, profile string, kind int) ([]Track, error)

	// StreamURL returns a direct media URL for t.
	StreamURL(ctx context.Context, t Track) (string, error)
}
