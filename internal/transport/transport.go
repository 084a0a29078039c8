// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_transport owns the single WebSocket connection to the
// remote realtime service: handshake, outbound command framing, inbound
// event parsing, and client.*/server.* mirroring onto the event bus. It
// never interprets event payloads beyond extracting `type`.
package internal_transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/ticos-ai/realtime-go/pkg/commons"
	"github.com/ticos-ai/realtime-go/pkg/utils"

	internal_eventbus "github.com/ticos-ai/realtime-go/internal/eventbus"
)

// ProviderMode selects the subprotocol negotiation scheme.
type ProviderMode string

const (
	ProviderTicos  ProviderMode = "ticos"
	ProviderOpenAI ProviderMode = "openai"
)

// Options configures a Transport.
type Options struct {
	URL                             string
	APIKey                          string
	ProviderMode                    ProviderMode
	DangerouslyAllowAPIKeyInBrowser bool
	Debug                           bool
}

// ErrBrowserUnsafeAPIKey is returned by Connect when an API key is set,
// the process looks like it's running in a browser-like environment
// (GOOS=js), and the caller has not set DangerouslyAllowAPIKeyInBrowser.
// The provider mode plays no part in this check.
var ErrBrowserUnsafeAPIKey = fmt.Errorf("transport: refusing to attach API key in a browser-like environment without DangerouslyAllowAPIKeyInBrowser")

// isBrowserLike reports whether this binary was built for a browser-like
// runtime (the WASM/JS target), mirroring the spec's "detection of a
// document global or equivalent."
func isBrowserLike() bool {
	return runtime.GOOS == "js"
}

// Transport owns one WebSocket connection and mirrors every event onto bus.
type Transport struct {
	opts   Options
	bus    *internal_eventbus.Bus
	logger commons.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu        sync.RWMutex
	connected bool
}

// New constructs a Transport bound to bus. No network activity occurs until Connect.
func New(opts Options, bus *internal_eventbus.Bus, logger commons.Logger) *Transport {
	return &Transport{opts: opts, bus: bus, logger: logger}
}

// IsConnected reports whether the WebSocket is currently open.
func (t *Transport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// Connect dials the configured URL, negotiates subprotocols, and starts the
// background read loop. On success it dispatches client.connected; on
// failure it dispatches client.error and returns the error.
func (t *Transport) Connect(ctx context.Context) error {
	if t.opts.APIKey != "" && isBrowserLike() && !t.opts.DangerouslyAllowAPIKeyInBrowser {
		t.dispatchClientError(ErrBrowserUnsafeAPIKey)
		return ErrBrowserUnsafeAPIKey
	}

	wsURL, subprotocols, err := t.buildDialTarget()
	if err != nil {
		t.dispatchClientError(err)
		return fmt.Errorf("transport: build dial target: %w", err)
	}

	header := http.Header{}
	if t.opts.APIKey != "" {
		header.Set("Authorization", "Bearer "+t.opts.APIKey)
	}

	g, gCtx := errgroup.WithContext(ctx)

	var conn *websocket.Conn
	g.Go(func() error {
		dialer := websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
			Subprotocols:     subprotocols,
		}
		c, _, dialErr := dialer.DialContext(gCtx, wsURL, header)
		if dialErr != nil {
			return fmt.Errorf("dial websocket: %w", dialErr)
		}
		conn = c
		return nil
	})
	g.Go(func() error {
		if t.opts.Debug {
			logged := make([]string, len(subprotocols))
			for i, p := range subprotocols {
				if t.opts.APIKey != "" {
					p = strings.ReplaceAll(p, t.opts.APIKey, "***redacted***")
				}
				logged[i] = p
			}
			t.logger.Debugf("transport: connecting to %s with subprotocols %v", wsURL, logged)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		t.dispatchClientError(err)
		return err
	}

	conn.SetReadLimit(16 * 1024 * 1024)
	conn.SetPongHandler(func(string) error {
		t.logger.Debugf("transport: pong received")
		return nil
	})

	t.writeMu.Lock()
	t.conn = conn
	t.writeMu.Unlock()

	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()

	t.bus.Dispatch("client.connected", nil)

	go t.readLoop()
	return nil
}

func (t *Transport) buildDialTarget() (string, []string, error) {
	parsed, err := url.Parse(t.opts.URL)
	if err != nil {
		return "", nil, fmt.Errorf("invalid URL %q: %w", t.opts.URL, err)
	}

	var subprotocols []string
	subprotocols = append(subprotocols, "realtime")
	if t.opts.APIKey != "" {
		switch t.opts.ProviderMode {
		case ProviderOpenAI:
			subprotocols = append(subprotocols, "openai-insecure-api-key."+t.opts.APIKey)
		default:
			subprotocols = append(subprotocols, "api-key."+t.opts.APIKey)
		}
	}
	switch t.opts.ProviderMode {
	case ProviderOpenAI:
		subprotocols = append(subprotocols, "openai-beta.realtime-v1")
	default:
		subprotocols = append(subprotocols, "realtime-v1")
	}

	return parsed.String(), subprotocols, nil
}

// Send frames payload as {event_id, type, ...payload}, writes it to the
// socket, and locally dispatches client.<type>. Returns false (no queueing)
// if the transport is not connected.
func (t *Transport) Send(eventType string, payload map[string]any) bool {
	if !t.IsConnected() {
		return false
	}

	frame := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		frame[k] = v
	}
	frame["event_id"] = utils.GenerateID("evt_", 12)
	frame["type"] = eventType

	data, err := json.Marshal(frame)
	if err != nil {
		t.logger.Errorf("transport: marshal outbound %q: %v", eventType, err)
		return false
	}

	if t.opts.Debug {
		t.logger.Debugf("transport: sending %s", redactForLog(frame))
	}

	t.writeMu.Lock()
	conn := t.conn
	var writeErr error
	if conn != nil {
		writeErr = conn.WriteMessage(websocket.TextMessage, data)
	}
	t.writeMu.Unlock()

	if conn == nil || writeErr != nil {
		if writeErr != nil {
			t.logger.Errorf("transport: write %q failed: %v", eventType, writeErr)
		}
		return false
	}

	t.bus.Dispatch("client."+eventType, frame)
	return true
}

// readLoop parses each inbound text frame and dispatches server.<type>.
// JSON errors and frames without a `type` are dropped with a logged
// warning; they are never treated as fatal. A socket error or close frame
// ends the loop and dispatches client.error (for errors) and
// client.disconnected.
func (t *Transport) readLoop() {
	for {
		t.writeMu.Lock()
		conn := t.conn
		t.writeMu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			t.connected = false
			t.mu.Unlock()

			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.dispatchClientError(fmt.Errorf("websocket read error: %w", err))
			}
			t.bus.Dispatch("client.disconnected", nil)
			return
		}

		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.logger.Warnf("transport: dropping inbound frame, invalid JSON: %v", err)
			continue
		}

		rawType, ok := parsed["type"].(string)
		if !ok || rawType == "" {
			t.logger.Warnf("transport: dropping inbound frame with missing type")
			continue
		}

		t.bus.Dispatch("server."+rawType, parsed)
	}
}

// Close gracefully closes the WebSocket, if open.
func (t *Transport) Close() error {
	t.writeMu.Lock()
	conn := t.conn
	t.conn = nil
	t.writeMu.Unlock()

	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := conn.Close()
	t.bus.Dispatch("client.disconnected", nil)
	return err
}

func (t *Transport) dispatchClientError(err error) {
	t.bus.Dispatch("client.error", map[string]any{"error": err.Error()})
}

// redactForLog returns a copy of frame with API-key-bearing values masked,
// safe to pass to a debug log line.
func redactForLog(frame map[string]any) map[string]any {
	redacted := make(map[string]any, len(frame))
	for k, v := range frame {
		if looksSecret(k) {
			redacted[k] = "***redacted***"
			continue
		}
		redacted[k] = v
	}
	return redacted
}

func looksSecret(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "api_key") || strings.Contains(lower, "apikey") ||
		strings.Contains(lower, "authorization") || strings.Contains(lower, "secret") ||
		strings.Contains(lower, "token")
}
