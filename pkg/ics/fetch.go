package ics

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// httpClient allows mocking http.Client in tests.
type httpClient interface {
	Get(url string) (*http.Response, error)
}

// FetchTimeout bounds the total time spent fetching the remote ICS feed.
const FetchTimeout = 10 * time.Second

// Fetcher retrieves raw ICS text over HTTP with a short timeout. On any
// error it returns empty text and logs a warning rather than failing the
// caller — an unreachable calendar degrades the plan to all-DELETE, it
// never aborts the run.
type Fetcher struct {
	client httpClient
}

// NewFetcher builds a Fetcher with TLS verification disabled, a field
// appliance constraint documented as an explicit non-goal (many FPP
// deployments sit behind self-signed reverse proxies).
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout:   FetchTimeout,
			Transport: insecureTransport(),
		},
	}
}

// Fetch performs a single GET against url and returns the response body as
// text. Never returns an error to the caller; failures are logged and
// surfaced as an empty string.
func (f *Fetcher) Fetch(url string) string {
	if url == "" {
		return ""
	}

	resp, err := f.client.Get(url)
	if err != nil {
		slog.Warn("failed to fetch ICS calendar", "url", url, "error", err)
		return ""
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("ICS calendar fetch returned non-200 status", "url", url, "status", resp.StatusCode)
		return ""
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("failed to read ICS calendar response body", "url", url, "error", err)
		return ""
	}

	return string(body)
}
