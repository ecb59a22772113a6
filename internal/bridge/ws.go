package bridge

import (
	"context"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

const (
	// LogStreamPath is the WebSocket endpoint pushing log entries
	LogStreamPath = "/logs/stream"

	// EventStreamPath is the WebSocket endpoint pushing system events
	EventStreamPath = "/events/stream"
)

// wsURL converts the client's HTTP base URL to a WebSocket URL for path.
func (c *Client) wsURL(path string, query url.Values) string {
	base := strings.Replace(c.BaseURL, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	if len(query) > 0 {
		return base + path + "?" + query.Encode()
	}
	return base + path
}

// DialLogStream opens the log stream WebSocket, optionally filtered by
// level and logger name. The caller owns the returned connection.
func (c *Client) DialLogStream(ctx context.Context, level, logger string) (*websocket.Conn, error) {
	query := url.Values{}
	if level != "" {
		query.Set("level", level)
	}
	if logger != "" {
		query.Set("logger", logger)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL(LogStreamPath, query), c.authHeaders())
	if err != nil {
		return nil, NewNetworkError("log stream connection failed", err)
	}
	return conn, nil
}

// DialEventStream opens the system event stream WebSocket.
func (c *Client) DialEventStream(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL(EventStreamPath, nil), c.authHeaders())
	if err != nil {
		return nil, NewNetworkError("event stream connection failed", err)
	}
	return conn, nil
}

// LogFilter is the message pushed over the log stream to change the
// server-side filters mid-stream.
type LogFilter struct {
	Level  string `json:"level"`
	Logger string `json:"logger"`
}

// WriteLogFilter pushes a filter update onto an open log stream.
func WriteLogFilter(conn *websocket.Conn, level, logger string) error {
	if err := conn.WriteJSON(LogFilter{Level: level, Logger: logger}); err != nil {
		return NewNetworkError("failed to send filter update", err)
	}
	return nil
}

// IsPing reports whether a decoded stream message is the bridge's
// keepalive ping. Pings are swallowed, never forwarded to handlers.
func IsPing(message map[string]any) bool {
	messageType, _ := message["type"].(string)
	return messageType == "ping"
}
