// Package track holds the Track model and the Spotify-backed search client.
package track

import "time"

// MaxResults caps every search; the pager relies on it.
const MaxResults = 10

// Track is a search result. Values are never mutated after a search returns.
type Track struct {
	ID     string
	Name   string
	Artist string
	Album  string
	// ArtworkURLs lists album art from the largest to the smallest image.
	ArtworkURLs []string
	DurationMS  int
	ReleaseDate string
	// ReleaseDatePrecision is "day", "month" or "year".
	ReleaseDatePrecision string
	URL                  string
}

// Duration returns the track length.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// Artwork returns the largest artwork URL or an empty string.
func (t Track) Artwork() string {
	if len(t.ArtworkURLs) == 0 {
		return ""
	}
	return t.ArtworkURLs[0]
}

// Thumbnail returns the smallest artwork URL or an empty string.
func (t Track) Thumbnail() string {
	if len(t.ArtworkURLs) == 0 {
		return ""
	}
	return t.ArtworkURLs[len(t.ArtworkURLs)-1]
}
