// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package realtime is the public façade of this module: a bidirectional
// realtime conversational-AI client that maintains a long-lived WebSocket
// session, streams user input into it, reconstructs incremental assistant
// output into structured conversation items, and mediates tool calls back
// to the server.
package realtime

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	internal_conversation "github.com/ticos-ai/realtime-go/internal/conversation"
	internal_eventbus "github.com/ticos-ai/realtime-go/internal/eventbus"
	internal_session "github.com/ticos-ai/realtime-go/internal/session"
	internal_transport "github.com/ticos-ai/realtime-go/internal/transport"
	"github.com/ticos-ai/realtime-go/pkg/commons"
	"github.com/ticos-ai/realtime-go/pkg/utils"
)

// Client composes the event bus, transport, conversation state machine,
// session config, and tool registry, and wires them together per the three
// rules in spec.md §4.4.
type Client struct {
	id     string
	opts   Options
	logger commons.Logger

	bus          *internal_eventbus.Bus
	transport    *internal_transport.Transport
	conversation *internal_conversation.Conversation
	tools        *internal_session.ToolRegistry
	toolSem      *semaphore.Weighted

	mu     sync.Mutex
	config *internal_session.Config

	inputAudioMu sync.Mutex
	inputAudio   []int16

	sessionCreated bool
}

// New constructs a Client with default Config and an empty tool registry.
// No network activity occurs until Connect is called.
func New(opts Options, logger commons.Logger) (*Client, error) {
	resolved := opts.withDefaults()
	if err := resolved.validate(); err != nil {
		return nil, err
	}
	if resolved.APIKey != "" && runtime.GOOS == "js" && !resolved.DangerouslyAllowAPIKeyInBrowser {
		return nil, newConfigError("New", internal_transport.ErrBrowserUnsafeAPIKey)
	}
	if logger == nil {
		logger = commons.NewApplicationLogger()
	}

	bus := internal_eventbus.New(logger)
	c := &Client{
		id:           uuid.NewString(),
		opts:         resolved,
		logger:       logger,
		bus:          bus,
		conversation: internal_conversation.New(logger),
		tools:        internal_session.NewToolRegistry(),
		toolSem:      semaphore.NewWeighted(int64(resolved.MaxConcurrentTools)),
		config:       internal_session.Default(),
	}
	c.transport = internal_transport.New(internal_transport.Options{
		URL:                             resolved.URL,
		APIKey:                          resolved.APIKey,
		ProviderMode:                    resolved.ProviderMode,
		DangerouslyAllowAPIKeyInBrowser: resolved.DangerouslyAllowAPIKeyInBrowser,
		Debug:                           resolved.Debug,
	}, bus, logger)

	c.wireEventMirroring()
	c.wireConversationRouting()
	c.wireToolClosure()
	return c, nil
}

// ID is this Client instance's opaque identifier, stable for its lifetime.
func (c *Client) ID() string { return c.id }

// Bus exposes the underlying event bus for externally observable events
// (realtime.event, conversation.*, client.*) per spec.md §6.
func (c *Client) Bus() *internal_eventbus.Bus { return c.bus }

// Connect establishes the WebSocket session.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.transport.Connect(ctx); err != nil {
		return newTransportError("Connect", err)
	}
	return nil
}

// Disconnect closes the WebSocket session, if open.
func (c *Client) Disconnect() error {
	return c.transport.Close()
}

// IsConnected reports whether the WebSocket session is currently open.
func (c *Client) IsConnected() bool {
	return c.transport.IsConnected()
}

// UpdateConfig deep-merges partial onto the live Config. If connected, it
// sends session.update{session: Config} afterward — per spec.md §9's
// resolution of the "buffer until connect" open question, a disconnected
// Client mutates local state only and does not queue the update.
func (c *Client) UpdateConfig(partial map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := internal_session.UpdateConfig(c.config, partial); err != nil {
		return newConfigError("UpdateConfig", err)
	}
	if err := internal_session.Validate(c.config); err != nil {
		return newConfigError("UpdateConfig", err)
	}

	if c.transport.IsConnected() {
		c.transport.Send("session.update", map[string]any{"session": c.config})
	}
	return nil
}

// GetTurnDetectionType returns the active turn-detection type, or "" when
// turn detection is disabled.
func (c *Client) GetTurnDetectionType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.TurnDetectionType()
}

// RegisterTool adds a tool to the registry and, if connected, resends
// session.update with the current Config. That payload carries the Config
// only; registered tool definitions are not part of it.
func (c *Client) RegisterTool(def internal_session.ToolDefinition, handler internal_session.ToolHandler) error {
	if err := c.tools.Register(def, handler); err != nil {
		return newConfigError("RegisterTool", err)
	}
	c.sendSessionUpdateLocked()
	return nil
}

// UnregisterTool removes a tool and re-syncs the session if connected.
func (c *Client) UnregisterTool(name string) {
	c.tools.Unregister(name)
	c.sendSessionUpdateLocked()
}

// GetTools returns every registered tool definition.
func (c *Client) GetTools() []internal_session.ToolDefinition {
	return c.tools.List()
}

// Reset clears tools, restores default config, and re-syncs the session if
// connected.
func (c *Client) Reset() error {
	c.mu.Lock()
	c.config = internal_session.Default()
	c.mu.Unlock()

	c.tools.Clear()
	c.conversation.Reset()

	c.inputAudioMu.Lock()
	c.inputAudio = nil
	c.inputAudioMu.Unlock()

	c.sendSessionUpdateLocked()
	return nil
}

func (c *Client) sendSessionUpdateLocked() {
	if !c.transport.IsConnected() {
		return
	}
	c.mu.Lock()
	cfg := c.config
	c.mu.Unlock()
	c.transport.Send("session.update", map[string]any{"session": cfg})
}

// AppendInputAudio base64-encodes samples, sends
// input_audio_buffer.append{audio}, and merges them into the local
// accumulator so a later speech-stop/createResponse can slice against it.
func (c *Client) AppendInputAudio(samples []int16) error {
	c.inputAudioMu.Lock()
	c.inputAudio = utils.MergeInt16(c.inputAudio, samples)
	c.inputAudioMu.Unlock()

	c.transport.Send("input_audio_buffer.append", map[string]any{
		"audio": utils.Int16ToBase64(samples),
	})
	return nil
}

// CreateResponse commits and hands off the local input accumulator when no
// turn-detection is configured and the accumulator is non-empty, then
// requests a new response.
func (c *Client) CreateResponse() error {
	if c.GetTurnDetectionType() == "" {
		c.inputAudioMu.Lock()
		pending := c.inputAudio
		c.inputAudio = nil
		c.inputAudioMu.Unlock()

		if len(pending) > 0 {
			c.transport.Send("input_audio_buffer.commit", map[string]any{})
			c.conversation.QueueInputAudio(pending)
		}
	}
	c.transport.Send("response.create", map[string]any{})
	return nil
}

// CancelResponse cancels the in-flight response. With no id, it just emits
// response.cancel. With an id, the target item must exist, be an assistant
// message, and carry an audio content part — otherwise this returns a
// *CancelError without sending anything. sampleCount converts to
// audio_end_ms via floor(sampleCount/24000*1000).
func (c *Client) CancelResponse(id string, sampleCount int) (*internal_conversation.Item, error) {
	if id == "" {
		c.transport.Send("response.cancel", map[string]any{})
		return nil, nil
	}

	item := c.conversation.GetItem(id)
	if item == nil {
		return nil, newCancelError(id, "item not found")
	}
	if item.Kind != internal_conversation.KindMessage || item.Role != internal_conversation.RoleAssistant {
		return nil, newCancelError(id, "item is not an assistant message")
	}

	contentIndex := -1
	for i, part := range item.Content {
		if part.Type == internal_conversation.ContentAudio {
			contentIndex = i
			break
		}
	}
	if contentIndex == -1 {
		return nil, newCancelError(id, "item has no audio content part")
	}

	c.transport.Send("response.cancel", map[string]any{})
	c.transport.Send("conversation.item.truncate", map[string]any{
		"item_id":       id,
		"content_index": contentIndex,
		"audio_end_ms":  utils.MillisFromSampleCount(sampleCount),
	})
	return item, nil
}

// WaitForNextItem blocks for the next conversation.item.appended event.
func (c *Client) WaitForNextItem(timeout time.Duration) (*internal_conversation.Item, bool) {
	event, ok := c.bus.WaitForNext("conversation.item.appended", timeout)
	if !ok {
		return nil, false
	}
	item, _ := event.(*internal_conversation.Item)
	return item, item != nil
}

// WaitForNextCompletedItem blocks for the next conversation.item.completed event.
func (c *Client) WaitForNextCompletedItem(timeout time.Duration) (*internal_conversation.Item, bool) {
	event, ok := c.bus.WaitForNext("conversation.item.completed", timeout)
	if !ok {
		return nil, false
	}
	item, _ := event.(*internal_conversation.Item)
	return item, item != nil
}

// WaitForSessionCreated blocks until server.session.created has been
// observed (possibly already, before this call).
func (c *Client) WaitForSessionCreated(timeout time.Duration) bool {
	c.mu.Lock()
	if c.sessionCreated {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	_, ok := c.bus.WaitForNext("server.session.created", timeout)
	return ok
}

// SendUserMessageContent normalizes parts (input_text→text, input_audio→
// audio; raw audio samples → base64), emits conversation.item.create for a
// user message, and requests a response.
func (c *Client) SendUserMessageContent(parts []ContentPartInput) error {
	wireParts := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		wireParts = append(wireParts, p.normalize())
	}

	c.transport.Send("conversation.item.create", map[string]any{
		"item": map[string]any{
			"type":    "message",
			"role":    "user",
			"content": wireParts,
		},
	})
	return c.CreateResponse()
}
