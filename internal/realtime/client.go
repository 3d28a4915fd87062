package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the engine connection surface the bridge depends on. Tests drive a
// fake; production uses Client.
type Conn interface {
	// Send marshals and writes one client event to the engine.
	Send(v any) error
	// Close tears the connection down.
	Close() error
}

// DialConfig configures an engine connection.
type DialConfig struct {
	// URL of the realtime endpoint, without the model query parameter.
	URL    string
	Model  string
	APIKey string
}

// DefaultURL is the engine's realtime websocket endpoint.
const DefaultURL = "wss://api.openai.com/v1/realtime"

// Client is a websocket connection to the upstream AI engine. Writes are
// serialized with a mutex; reads happen on a single pump goroutine owned by
// the caller via ReadLoop.
type Client struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// Dial opens an engine connection.
func Dial(ctx context.Context, cfg DialConfig) (*Client, error) {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	url += "?model=" + cfg.Model

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial engine (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial engine: %w", err)
	}
	return &Client{ws: ws}, nil
}

// Send marshals and writes one client event to the engine.
func (c *Client) Send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(v); err != nil {
		return fmt.Errorf("write engine event: %w", err)
	}
	return nil
}

// Close tears the connection down.
func (c *Client) Close() error {
	return c.ws.Close()
}

// ReadLoop reads engine events and hands each to handler until the
// connection closes or ctx is cancelled. The returned error is the read
// failure that ended the loop; a clean remote close returns nil.
func (c *Client) ReadLoop(ctx context.Context, handler func(ServerEvent)) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read engine event: %w", err)
		}

		var ev ServerEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			// A single malformed frame is logged and skipped, never fatal.
			slog.Warn("malformed engine event", "error", err)
			continue
		}
		handler(ev)
	}
}
