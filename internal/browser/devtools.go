package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// VersionInfo is the payload of the DevTools /json/version endpoint.
type VersionInfo struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Target is one entry of /json/list.
type Target struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// ProbeResult summarises a DevTools round trip.
type ProbeResult struct {
	Version   VersionInfo
	Product   string
	Revision  string
	RoundTrip time.Duration
}

var devtoolsClient = &http.Client{Timeout: 5 * time.Second}

// httpBase turns "host:port", "http://host:port/" or a ws URL into an
// http base URL without a trailing slash.
func httpBase(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", fmt.Errorf("empty DevTools endpoint")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid DevTools endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	return u.Scheme + "://" + u.Host, nil
}

func getJSON(ctx context.Context, rawURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := devtoolsClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Chrome DevTools: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code from %s: %d", rawURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	return nil
}

// FetchVersion reads /json/version from a DevTools endpoint.
func FetchVersion(ctx context.Context, endpoint string) (VersionInfo, error) {
	var info VersionInfo
	base, err := httpBase(endpoint)
	if err != nil {
		return info, err
	}
	err = getJSON(ctx, base+"/json/version", &info)
	return info, err
}

// ListTargets reads /json/list from a DevTools endpoint.
func ListTargets(ctx context.Context, endpoint string) ([]Target, error) {
	base, err := httpBase(endpoint)
	if err != nil {
		return nil, err
	}
	var targets []Target
	if err := getJSON(ctx, base+"/json/list", &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// ResolveWebSocketURL returns the browser-level DevTools WebSocket URL. A ws
// URL with a path is returned as is.
func ResolveWebSocketURL(ctx context.Context, endpoint string) (string, error) {
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		if u, err := url.Parse(endpoint); err == nil && strings.Trim(u.Path, "/") != "" {
			return endpoint, nil
		}
	}
	info, err := FetchVersion(ctx, endpoint)
	if err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("DevTools endpoint %s did not report a WebSocket URL", endpoint)
	}
	return info.WebSocketDebuggerURL, nil
}

type cdpMessage struct {
	ID     int             `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ProbeDevTools checks that a running Chrome answers over its DevTools
// WebSocket by round-tripping Browser.getVersion.
func ProbeDevTools(ctx context.Context, endpoint string) (*ProbeResult, error) {
	info, err := FetchVersion(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if info.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("DevTools endpoint %s did not report a WebSocket URL", endpoint)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, info.WebSocketDebuggerURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to WebSocket %s (status %d): %w", info.WebSocketDebuggerURL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to WebSocket %s: %w", info.WebSocketDebuggerURL, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(10 * time.Second)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)

	start := time.Now()
	const id = 1
	if err := conn.WriteJSON(cdpMessage{ID: id, Method: "Browser.getVersion"}); err != nil {
		return nil, fmt.Errorf("failed to send Browser.getVersion: %w", err)
	}

	for {
		var msg cdpMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("failed to read DevTools response: %w", err)
		}
		if msg.ID != id {
			continue
		}
		if msg.Error != nil {
			return nil, fmt.Errorf("Browser.getVersion failed: %s (%d)", msg.Error.Message, msg.Error.Code)
		}

		var v struct {
			Product  string `json:"product"`
			Revision string `json:"revision"`
		}
		if err := json.Unmarshal(msg.Result, &v); err != nil {
			return nil, fmt.Errorf("failed to parse Browser.getVersion result: %w", err)
		}
		return &ProbeResult{
			Version:   info,
			Product:   v.Product,
			Revision:  v.Revision,
			RoundTrip: time.Since(start),
		}, nil
	}
}
