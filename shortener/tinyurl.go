package shortener

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	tinyURLName     = "tinyurl"
	tinyURLEndpoint = "https://tinyurl.com/api-create.php"
	maxResponseSize = 4096
)

// StatusError is returned for non-200 shortener responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shortener responded with status %d", e.StatusCode)
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// TinyURL shortens links with the public tinyurl.com creation endpoint.
type TinyURL struct {
	Client   *http.Client
	Endpoint string
}

// NewTinyURL creates a TinyURL shortener using the given client
func NewTinyURL(client *http.Client) *TinyURL {
	if client == nil {
		client = http.DefaultClient
	}
	return &TinyURL{
		Client:   client,
		Endpoint: tinyURLEndpoint,
	}
}

func (t *TinyURL) Name() string {
	return tinyURLName
}

// Shorten asks tinyurl.com for a short alias of longURL
func (t *TinyURL) Shorten(ctx context.Context, longURL string) (string, error) {
	if strings.TrimSpace(longURL) == "" {
		return "", ErrEmptyURL
	}

	endpoint, err := url.Parse(t.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid tinyurl endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", longURL)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build tinyurl request: %w", err)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tinyurl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read tinyurl response: %w", err)
	}

	short := strings.TrimSpace(string(body))
	if !strings.HasPrefix(short, "http://") && !strings.HasPrefix(short, "https://") {
		return "", fmt.Errorf("unexpected tinyurl response %q", truncate(short, 64))
	}
	return short, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
