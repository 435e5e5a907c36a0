package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/spotdl-bot/core/netutil"
)

const (
	defaultRetryAttempts  = 3
	defaultClientTimeout  = 90 * time.Second
	defaultResponseWindow = 80 * time.Second
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// sendAudio by URL makes Telegram fetch the file before it answers, so both
// timeouts are well above the netutil defaults.
func BuildHTTPClient() *http.Client {
	return netutil.NewClient(netutil.ClientOptions{
		Timeout:               defaultClientTimeout,
		ResponseHeaderTimeout: defaultResponseWindow,
		MaxRetries:            defaultRetryAttempts,
	})
}
