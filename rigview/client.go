package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// maxBackoff caps the WebSocket reconnect delay.
const maxBackoff = 30 * time.Second

// Client talks to the supervisor: commands go over the HTTP API, telemetry
// comes back on the WebSocket stream.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// NewClient creates a client for the supervisor at base (e.g.
// "http://localhost:8000").
func NewClient(base, token string) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 5 * time.Second},
	}
}

// SendCommand posts one rig command line.
func (c *Client) SendCommand(line string) error {
	body, err := json.Marshal(map[string]string{"cmd": line})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.base+"/api/command", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("command rejected: %s", resp.Status)
	}
	return nil
}

// wsURL derives the telemetry stream address from the API base.
func (c *Client) wsURL() (string, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	if c.token != "" {
		u.RawQuery = "token=" + url.QueryEscape(c.token)
	}
	return u.String(), nil
}

// Consume connects to the telemetry stream and invokes onUpdate for every
// payload, reconnecting with exponential backoff until ctx is cancelled.
// onStatus reports connection state changes for the status line.
func (c *Client) Consume(ctx context.Context, onUpdate func(map[string]any), onStatus func(string)) {
	addr, err := c.wsURL()
	if err != nil {
		onStatus(fmt.Sprintf("Bad server address: %v", err))
		return
	}

	backoff := time.Second
	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
		if err != nil {
			onStatus(fmt.Sprintf("Telemetry reconnecting in %.0fs: %v", backoff.Seconds(), err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		onStatus("Telemetry connected")
		backoff = time.Second

		// Drop the connection when the context ends mid-read.
		readDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-readDone:
			}
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var payload map[string]any
			if err := json.Unmarshal(data, &payload); err != nil {
				continue
			}
			onUpdate(payload)
		}
		close(readDone)
		conn.Close()
	}
}
