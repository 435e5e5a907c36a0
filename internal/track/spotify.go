package track

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/zmb3/spotify"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/m3rciful/spotdl-bot/core/logger"
	"github.com/m3rciful/spotdl-bot/internal/apperr"
)

// Searcher returns tracks matching a free-text query, at most limit of them.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Track, error)
}

// searchAPI is the subset of *spotify.Client used by SpotifySearcher.
type searchAPI interface {
	SearchOpt(query string, t spotify.SearchType, opt *spotify.Options) (*spotify.SearchResult, error)
}

// SpotifyOptions configures NewSpotifySearcher.
type SpotifyOptions struct {
	ClientID     string
	ClientSecret string
	Market       string
	// HTTPClient is used for token and API calls; nil selects http.DefaultClient.
	HTTPClient *http.Client
}

// SpotifySearcher implements Searcher with the Spotify Web API using the
// client-credentials flow; no user login is involved.
type SpotifySearcher struct {
	api    searchAPI
	client *http.Client
	market string
	creds  *clientcredentials.Config
	base   *http.Client
}

// NewSpotifySearcher builds a searcher whose HTTP client refreshes app tokens on demand.
func NewSpotifySearcher(opts SpotifyOptions) (*SpotifySearcher, error) {
	if strings.TrimSpace(opts.ClientID) == "" || strings.TrimSpace(opts.ClientSecret) == "" {
		return nil, fmt.Errorf("spotify: client id and secret are required")
	}
	creds := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     spotify.TokenURL,
	}
	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return &SpotifySearcher{
		client: creds.Client(ctx),
		market: strings.ToUpper(strings.TrimSpace(opts.Market)),
		creds:  creds,
		base:   base,
	}, nil
}

// Probe fetches a token so invalid credentials surface at startup.
func (s *SpotifySearcher) Probe(ctx context.Context) error {
	if s.creds == nil {
		return nil
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.base)
	if _, err := s.creds.Token(ctx); err != nil {
		return apperr.Upstream("spotify", "token", err)
	}
	return nil
}

// Search implements Searcher. The limit is clamped to [1, MaxResults].
func (s *SpotifySearcher) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > MaxResults {
		limit = MaxResults
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opt := &spotify.Options{Limit: &limit}
	if s.market != "" {
		opt.Country = &s.market
	}

	start := time.Now()
	res, err := s.apiFor(ctx).SearchOpt(query, spotify.SearchTypeTrack, opt)
	if err != nil {
		logger.Warn(ctx, "service.search", "search.fail",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil, apperr.Upstream("spotify", "search", err)
	}

	var tracks []Track
	if res != nil && res.Tracks != nil {
		for _, ft := range res.Tracks.Tracks {
			tracks = append(tracks, fromFullTrack(ft))
			if len(tracks) == limit {
				break
			}
		}
	}

	logger.Debug(ctx, "service.search", "search.done",
		slog.String("status", "ok"),
		slog.Int("tracks", len(tracks)),
		slog.Duration("duration", logger.Took(start)),
	)
	return tracks, nil
}

// apiFor returns a client whose requests carry ctx. The library call
// takes no context, so cancellation rides on the transport instead.
func (s *SpotifySearcher) apiFor(ctx context.Context) searchAPI {
	if s.client == nil {
		return s.api
	}
	client := spotify.NewClient(&http.Client{
		Transport: ctxTransport{ctx: ctx, next: s.client.Transport},
		Timeout:   s.client.Timeout,
	})
	return &client
}

type ctxTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req.WithContext(t.ctx))
}

func fromFullTrack(ft spotify.FullTrack) Track {
	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		if name := strings.TrimSpace(a.Name); name != "" {
			artists = append(artists, name)
		}
	}

	images := append([]spotify.Image(nil), ft.Album.Images...)
	sort.SliceStable(images, func(i, j int) bool { return images[i].Width > images[j].Width })
	artwork := make([]string, 0, len(images))
	for _, img := range images {
		if img.URL != "" {
			artwork = append(artwork, img.URL)
		}
	}

	url := ft.ExternalURLs["spotify"]
	if url == "" && ft.ID != "" {
		url = TrackURLPrefix + string(ft.ID)
	}

	return Track{
		ID:                   string(ft.ID),
		Name:                 ft.Name,
		Artist:               strings.Join(artists, ", "),
		Album:                ft.Album.Name,
		ArtworkURLs:          artwork,
		DurationMS:           ft.Duration,
		ReleaseDate:          ft.Album.ReleaseDate,
		ReleaseDatePrecision: ft.Album.ReleaseDatePrecision,
		URL:                  url,
	}
}

// TrackURLPrefix is the only accepted shape for direct-download links.
const TrackURLPrefix = "https://open.spotify.com/track/"

// IsTrackURL reports whether raw is a canonical Spotify track link.
func IsTrackURL(raw string) bool {
	return strings.HasPrefix(raw, TrackURLPrefix)
}
