package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	devtoolsProbeAttempts     = 20
	devtoolsProbeRetryBackoff = 250 * time.Millisecond
)

// DevToolsInfo is the subset of /json/version the bot relies on.
type DevToolsInfo struct {
	WebSocketURL   string `json:"websocket_url"`
	WebSocketPath  string `json:"websocket_path"`
	BrowserVersion string `json:"browser_version"`
	UserAgent      string `json:"user_agent"`
}

// Probe polls a DevTools HTTP endpoint until it advertises a debugger URL.
type Probe struct {
	Client   *http.Client
	Attempts int
	Backoff  time.Duration
}

// Discover polls http://127.0.0.1:<port>/json/version.
func (p Probe) Discover(ctx context.Context, port int) (DevToolsInfo, error) {
	return p.DiscoverURL(ctx, fmt.Sprintf("http://127.0.0.1:%d/json/version", port))
}

// DiscoverURL polls versionURL with bounded retries.
func (p Probe) DiscoverURL(ctx context.Context, versionURL string) (DevToolsInfo, error) {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = devtoolsProbeAttempts
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = devtoolsProbeRetryBackoff
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return DevToolsInfo{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		info, err := fetchVersion(ctx, client, versionURL)
		if err == nil {
			return info, nil
		}
		if errors.Is(err, errMalformedDebuggerURL) {
			return DevToolsInfo{}, err
		}
		lastErr = err
	}
	return DevToolsInfo{}, fmt.Errorf("browser: devtools endpoint %s not ready after %d attempts: %w", versionURL, attempts, lastErr)
}

var errMalformedDebuggerURL = errors.New("browser: malformed devtools url")

func fetchVersion(ctx context.Context, client *http.Client, versionURL string) (DevToolsInfo, error) {
	type response struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
		Browser              string `json:"Browser"`
		UserAgent            string `json:"User-Agent"`
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return DevToolsInfo{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return DevToolsInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DevToolsInfo{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return DevToolsInfo{}, fmt.Errorf("decode: %w", err)
	}
	if payload.WebSocketDebuggerURL == "" {
		return DevToolsInfo{}, errors.New("no webSocketDebuggerUrl advertised")
	}

	parsed, err := url.Parse(payload.WebSocketDebuggerURL)
	if err != nil || parsed.Host == "" {
		return DevToolsInfo{}, fmt.Errorf("%w: %q", errMalformedDebuggerURL, payload.WebSocketDebuggerURL)
	}

	return DevToolsInfo{
		WebSocketURL:   payload.WebSocketDebuggerURL,
		WebSocketPath:  parsed.RequestURI(),
		BrowserVersion: payload.Browser,
		UserAgent:      payload.UserAgent,
	}, nil
}
