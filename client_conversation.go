// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package realtime

import (
	"time"

	internal_conversation "github.com/ticos-ai/realtime-go/internal/conversation"
)

// mirroredClientEvents and mirroredServerEvents are the curated event names
// Rule 1 re-emits under realtime.event. The full client.*/server.* traffic
// includes transport-internal bookkeeping that subscribers don't need.
var mirroredClientEvents = []string{
	"connected",
	"disconnected",
	"error",
	"session.update",
	"conversation.item.create",
	"conversation.item.truncate",
	"conversation.item.delete",
	"input_audio_buffer.append",
	"input_audio_buffer.commit",
	"response.create",
	"response.cancel",
}

var mirroredServerEvents = []string{
	"session.created",
	"session.updated",
	"error",
	"conversation.item.created",
	"conversation.item.truncated",
	"conversation.item.deleted",
	"conversation.item.input_audio_transcription.completed",
	"response.created",
	"response.done",
	"response.output_item.added",
	"response.output_item.done",
	"response.content_part.added",
	"response.audio.delta",
	"response.audio_transcript.delta",
	"response.text.delta",
	"response.function_call_arguments.delta",
	"input_audio_buffer.speech_started",
	"input_audio_buffer.speech_stopped",
}

// conversationRoutedEvents is Rule 2's event set: everything routed through
// Conversation.ProcessEvent.
var conversationRoutedEvents = []string{
	"response.created",
	"response.output_item.added",
	"response.content_part.added",
	"conversation.item.created",
	"conversation.item.truncated",
	"conversation.item.deleted",
	"conversation.item.input_audio_transcription.completed",
	"response.audio_transcript.delta",
	"response.audio.delta",
	"response.text.delta",
	"response.function_call_arguments.delta",
	"response.output_item.done",
	"input_audio_buffer.speech_started",
	"input_audio_buffer.speech_stopped",
}

// wireEventMirroring attaches Rule 1's realtime.event re-emitter and the
// sessionCreated flag flip.
func (c *Client) wireEventMirroring() {
	for _, name := range mirroredClientEvents {
		name := name
		c.bus.On("client."+name, func(eventName string, event any) {
			c.mirror("client", eventName, event)
		})
	}
	for _, name := range mirroredServerEvents {
		name := name
		c.bus.On("server."+name, func(eventName string, event any) {
			c.mirror("server", eventName, event)
			if name == "session.created" {
				c.mu.Lock()
				c.sessionCreated = true
				c.mu.Unlock()
			}
		})
	}
}

func (c *Client) mirror(source, originalEvent string, event any) {
	c.bus.Dispatch("realtime.event", map[string]any{
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
		"source": source,
		"event":  originalEvent,
		"type":   "realtime.event",
		"data":   event,
	})
}

// wireConversationRouting attaches Rule 2's routing into
// Conversation.ProcessEvent and the resulting conversation.* dispatch, and
// triggers Rule 3's tool closure on a completed function-call item.
func (c *Client) wireConversationRouting() {
	for _, name := range conversationRoutedEvents {
		name := name
		c.bus.On("server."+name, func(_ string, event any) {
			c.routeConversationEvent(name, event)
		})
	}
}

func (c *Client) routeConversationEvent(eventType string, event any) {
	raw, _ := event.(map[string]any)

	if eventType == "input_audio_buffer.speech_started" {
		c.bus.Dispatch("conversation.interrupted", nil)
	}

	var inputAudioSnapshot []int16
	if eventType == "input_audio_buffer.speech_stopped" {
		c.inputAudioMu.Lock()
		inputAudioSnapshot = c.inputAudio
		c.inputAudioMu.Unlock()
	}

	item, delta := c.conversation.ProcessEvent(eventType, raw, inputAudioSnapshot)
	if item == nil {
		return
	}

	c.bus.Dispatch("conversation.updated", map[string]any{"item": item, "delta": delta})

	if eventType == "conversation.item.created" {
		c.bus.Dispatch("conversation.item.appended", item)
	}

	completedBy := eventType == "conversation.item.created" || eventType == "response.output_item.done"
	if completedBy && item.Status == internal_conversation.StatusCompleted {
		c.bus.Dispatch("conversation.item.completed", item)
		c.invokeToolIfNeeded(item)
	}
}
