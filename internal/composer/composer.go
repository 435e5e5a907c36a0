// Package composer talks to the third-party composer service that turns a
// Spotify track link into a downloadable audio URL and display metadata.
package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m3rciful/spotdl-bot/core/logger"
	"github.com/m3rciful/spotdl-bot/core/netutil"
	"github.com/m3rciful/spotdl-bot/core/telegram/format"
	"github.com/m3rciful/spotdl-bot/internal/apperr"
)

const (
	serviceName     = "composer"
	maxResponseSize = 1 << 20
)

// Details is the enriched display metadata for a track.
type Details struct {
	Name       string
	Artist     string
	DurationMS int
	ArtworkURL string
}

// Options configures New.
type Options struct {
	ResolveURL  string
	MetadataURL string
	Timeout     time.Duration
	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client
}

// Client implements both the download resolver and the metadata lookup.
type Client struct {
	resolveURL  string
	metadataURL string
	http        *http.Client
}

// New validates the endpoints and builds a client. Retries are disabled: the
// download pipeline owns its failure policy.
func New(opts Options) (*Client, error) {
	for name, raw := range map[string]string{"resolve_url": opts.ResolveURL, "metadata_url": opts.MetadataURL} {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("composer: invalid %s %q", name, raw)
		}
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = netutil.NewClient(netutil.ClientOptions{
			Timeout:               opts.Timeout,
			ResponseHeaderTimeout: opts.Timeout,
			MaxRetries:            -1,
		})
	}
	return &Client{
		resolveURL:  strings.TrimSpace(opts.ResolveURL),
		metadataURL: strings.TrimSpace(opts.MetadataURL),
		http:        hc,
	}, nil
}

type resolveResponse struct {
	Link *string `json:"link"`
}

// Resolve submits the track URL as form data and returns the direct audio URL.
func (c *Client) Resolve(ctx context.Context, trackURL string) (string, error) {
	form := url.Values{"url": {trackURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolveURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperr.Upstream(serviceName, "resolve", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var body resolveResponse
	if err := c.do(ctx, "resolve", req, &body); err != nil {
		return "", err
	}
	link := strings.TrimSpace(format.Text(body.Link))
	if link == "" {
		return "", apperr.Upstream(serviceName, "resolve", fmt.Errorf("response has no link"))
	}
	if u, err := url.Parse(link); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", apperr.Upstream(serviceName, "resolve", fmt.Errorf("link %q is not an http url", link))
	}
	return link, nil
}

type detailsResponse struct {
	Name       *string `json:"name"`
	Artist     *string `json:"artist"`
	DurationMS *int    `json:"duration_ms"`
	Image      *string `json:"image"`
}

// FetchDetails queries the metadata endpoint with the track URL.
func (c *Client) FetchDetails(ctx context.Context, trackURL string) (Details, error) {
	u, err := url.Parse(c.metadataURL)
	if err != nil {
		return Details{}, apperr.Upstream(serviceName, "metadata", err)
	}
	q := u.Query()
	q.Set("url", trackURL)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Details{}, apperr.Upstream(serviceName, "metadata", err)
	}
	req.Header.Set("Accept", "application/json")

	var body detailsResponse
	if err := c.do(ctx, "metadata", req, &body); err != nil {
		return Details{}, err
	}
	d := Details{
		Name:       format.Text(body.Name),
		Artist:     format.Text(body.Artist),
		DurationMS: format.Deref(body.DurationMS, 0),
		ArtworkURL: format.Text(body.Image),
	}
	if d.Name == "" {
		return Details{}, apperr.Upstream(serviceName, "metadata", fmt.Errorf("response has no name"))
	}
	return d, nil
}

func (c *Client) do(ctx context.Context, op string, req *http.Request, dst any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logFailure(ctx, op, 0, err, start)
		return apperr.Upstream(serviceName, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		err := fmt.Errorf("unexpected status %s", resp.Status)
		c.logFailure(ctx, op, resp.StatusCode, err, start)
		return apperr.Upstream(serviceName, op, err)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(dst); err != nil {
		err = fmt.Errorf("decode response: %w", err)
		c.logFailure(ctx, op, resp.StatusCode, err, start)
		return apperr.Upstream(serviceName, op, err)
	}

	logger.Debug(ctx, "service.composer", "composer.call",
		slog.String("status", "ok"),
		slog.String("op", op),
		slog.Int("http_code", resp.StatusCode),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func (c *Client) logFailure(ctx context.Context, op string, code int, err error, start time.Time) {
	attrs := []slog.Attr{
		slog.String("status", "fail"),
		slog.String("op", op),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		slog.Duration("duration", logger.Took(start)),
	}
	if code != 0 {
		attrs = append(attrs, slog.Int("http_code", code))
	}
	logger.Warn(ctx, "service.composer", "composer.call", attrs...)
}
