package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ccheshirecat/rollerbot/internal/bot/events"
)

// DefaultBaseURL is where rollerbotd listens by default.
const DefaultBaseURL = "http://127.0.0.1:5000"

const apiKeyHeader = "X-Rollerbot-API-Key"

// Client wraps REST access to the rollerbotd operator API.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	// streamClient has no overall timeout so event streams can stay open.
	streamClient *http.Client
}

// New creates a client for rawURL (e.g. http://127.0.0.1:5000). apiKey may
// be empty.
func New(rawURL, apiKey string) (*Client, error) {
	if rawURL == "" {
		rawURL = DefaultBaseURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("client: base url %q must include scheme and host", rawURL)
	}
	return &Client{
		baseURL:      parsed,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
	}, nil
}

// Status is the bot snapshot served by /api/v1/status. LastRun is nil until
// the first successful cycle.
type Status struct {
	Running       bool    `json:"running"`
	LastRun       *string `json:"last_run"`
	TotalRuns     int64   `json:"total_runs"`
	Errors        int64   `json:"errors"`
	CurrentAction string  `json:"current_action"`
}

// BotEvent is one streamed bot event.
type BotEvent = events.BotEvent

// ControlResult is the outcome of a start or stop request.
type ControlResult struct {
	Status string `json:"status"`
}

// Logs is a tail of the bot log file.
type Logs struct {
	File  string   `json:"file"`
	Lines []string `json:"lines"`
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/status", nil, nil)
	if err != nil {
		return nil, err
	}
	var status Status
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Start(ctx context.Context) (*ControlResult, error) {
	return c.control(ctx, "/api/v1/bot/start")
}

func (c *Client) Stop(ctx context.Context) (*ControlResult, error) {
	return c.control(ctx, "/api/v1/bot/stop")
}

func (c *Client) control(ctx context.Context, path string) (*ControlResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var result ControlResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logs returns the last n log lines; n <= 0 uses the server default.
func (c *Client) Logs(ctx context.Context, n int) (*Logs, error) {
	query := url.Values{}
	if n > 0 {
		query.Set("lines", strconv.Itoa(n))
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/logs", query, nil)
	if err != nil {
		return nil, err
	}
	var logs Logs
	if err := c.do(req, &logs); err != nil {
		return nil, err
	}
	return &logs, nil
}

// DownloadLogs copies the zipped log file to w and returns the byte count.
func (c *Client) DownloadLogs(ctx context.Context, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/logs/archive", nil, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("client: download logs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, apiError(resp)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("client: download logs: %w", err)
	}
	return n, nil
}

// SetCredentials replaces the account the bot signs in with.
func (c *Client) SetCredentials(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/config", nil, body)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// WatchEvents streams bot events and invokes handler for each payload until
// the context is cancelled or the server closes the connection.
func (c *Client) WatchEvents(ctx context.Context, handler func(BotEvent)) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/events", nil, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: watch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: watch events http %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var event BotEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return fmt.Errorf("client: decode event: %w", err)
		}
		if handler != nil {
			handler(event)
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return fmt.Errorf("client: event stream error: %w", err)
		}
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	resolved := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("client: encode body: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), &buf)
	if err != nil {
		return nil, fmt.Errorf("client: new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apiError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var apiErr map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		return fmt.Errorf("client: http %d", resp.StatusCode)
	}
	if msg, ok := apiErr["error"].(string); ok {
		return fmt.Errorf("client: http %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("client: http %d", resp.StatusCode)
}
