// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticos-ai/realtime-go/pkg/commons"
	"github.com/ticos-ai/realtime-go/pkg/utils"
)

func newTestConversation() *Conversation {
	return New(commons.NewMockLogger())
}

// S3 — streaming assistant text.
func TestStreamingAssistantText(t *testing.T) {
	c := newTestConversation()

	item, _ := c.ProcessEvent("conversation.item.created", map[string]any{
		"item": map[string]any{
			"id": "a1", "type": "message", "role": "assistant",
			"content": []any{map[string]any{"type": "text", "text": ""}},
		},
	}, nil)
	require.NotNil(t, item)
	assert.Equal(t, StatusInProgress, item.Status)

	item, delta := c.ProcessEvent("response.text.delta", map[string]any{
		"item_id": "a1", "content_index": 0.0, "delta": "He",
	}, nil)
	require.NotNil(t, item)
	assert.Equal(t, "He", *delta.Text)

	item, delta = c.ProcessEvent("response.text.delta", map[string]any{
		"item_id": "a1", "content_index": 0.0, "delta": "llo",
	}, nil)
	assert.Equal(t, "llo", *delta.Text)

	item, _ = c.ProcessEvent("response.output_item.done", map[string]any{
		"item": map[string]any{"id": "a1", "status": "completed"},
	}, nil)
	require.NotNil(t, item)
	assert.Equal(t, StatusCompleted, item.Status)

	assert.Equal(t, "Hello", c.GetItem("a1").Formatted.Text)
}

// S5 — transcript arrives before the item.
func TestTranscriptBeforeItemCreated(t *testing.T) {
	c := newTestConversation()

	item, _ := c.ProcessEvent("conversation.item.input_audio_transcription.completed", map[string]any{
		"item_id": "u1", "content_index": 0.0, "transcript": "hi",
	}, nil)
	assert.Nil(t, item, "transcript for unknown item must be queued, not dispatched")

	item, _ = c.ProcessEvent("conversation.item.created", map[string]any{
		"item": map[string]any{
			"id": "u1", "type": "message", "role": "user",
			"content": []any{map[string]any{"type": "input_audio"}},
		},
	}, nil)
	require.NotNil(t, item)

	got := c.GetItem("u1")
	assert.Equal(t, "hi", got.Formatted.Transcript)
	assert.Equal(t, "hi", got.Content[0].Transcript)
}

// Out-of-order speech boundaries: speech_stopped arriving before
// speech_started (both ahead of item-created) should yield the same final
// audio as the in-order started, stopped, created sequence.
func TestSpeechBoundariesBeforeItemCreated(t *testing.T) {
	inputAudio := []int16{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	c1 := newTestConversation()
	c1.ProcessEvent("input_audio_buffer.speech_started", map[string]any{"item_id": "u1", "audio_start_ms": 0.0}, nil)
	c1.ProcessEvent("input_audio_buffer.speech_stopped", map[string]any{"item_id": "u1", "audio_end_ms": 0.0}, inputAudio)
	c1.ProcessEvent("conversation.item.created", map[string]any{
		"item": map[string]any{"id": "u1", "type": "message", "role": "user", "content": []any{map[string]any{"type": "input_audio"}}},
	}, nil)

	c2 := newTestConversation()
	c2.ProcessEvent("input_audio_buffer.speech_stopped", map[string]any{"item_id": "u2", "audio_end_ms": 0.0}, inputAudio)
	c2.ProcessEvent("input_audio_buffer.speech_started", map[string]any{"item_id": "u2", "audio_start_ms": 0.0}, nil)
	c2.ProcessEvent("conversation.item.created", map[string]any{
		"item": map[string]any{"id": "u2", "type": "message", "role": "user", "content": []any{map[string]any{"type": "input_audio"}}},
	}, nil)

	assert.Equal(t, c1.GetItem("u1").Formatted.Audio, c2.GetItem("u2").Formatted.Audio)
}

func TestAudioDeltaMerge(t *testing.T) {
	c := newTestConversation()
	c.ProcessEvent("conversation.item.created", map[string]any{
		"item": map[string]any{"id": "a1", "type": "message", "role": "assistant"},
	}, nil)

	encoded := utils.Int16ToBase64([]int16{1, 2, 3})
	item, delta := c.ProcessEvent("response.audio.delta", map[string]any{"item_id": "a1", "delta": encoded}, nil)
	require.NotNil(t, item)
	assert.Equal(t, []int16{1, 2, 3}, delta.Audio)
	assert.Equal(t, []int16{1, 2, 3}, c.GetItem("a1").Formatted.Audio)

	encoded2 := utils.Int16ToBase64([]int16{4, 5})
	c.ProcessEvent("response.audio.delta", map[string]any{"item_id": "a1", "delta": encoded2}, nil)
	assert.Equal(t, []int16{1, 2, 3, 4, 5}, c.GetItem("a1").Formatted.Audio)
}

// S4 — tool call argument accumulation.
func TestFunctionCallArgumentsAccumulate(t *testing.T) {
	c := newTestConversation()
	c.ProcessEvent("conversation.item.created", map[string]any{
		"item": map[string]any{"id": "a2", "type": "function_call", "name": "add", "call_id": "call_1", "arguments": ""},
	}, nil)

	c.ProcessEvent("response.function_call_arguments.delta", map[string]any{"item_id": "a2", "delta": `{"a":2,`}, nil)
	c.ProcessEvent("response.function_call_arguments.delta", map[string]any{"item_id": "a2", "delta": `"b":3}`}, nil)

	item, _ := c.ProcessEvent("response.output_item.done", map[string]any{
		"item": map[string]any{"id": "a2", "status": "completed"},
	}, nil)

	require.NotNil(t, item)
	assert.Equal(t, StatusCompleted, item.Status)
	assert.Equal(t, `{"a":2,"b":3}`, item.Formatted.Tool.Arguments)
	assert.Equal(t, "call_1", item.Formatted.Tool.CallID)
}

func TestDeltaForUnknownItemIsNoop(t *testing.T) {
	c := newTestConversation()
	item, delta := c.ProcessEvent("response.text.delta", map[string]any{"item_id": "ghost", "delta": "x"}, nil)
	assert.Nil(t, item)
	assert.Nil(t, delta)
}

func TestUnknownEventTypeIsNoop(t *testing.T) {
	c := newTestConversation()
	item, delta := c.ProcessEvent("some.unrecognized.event", map[string]any{}, nil)
	assert.Nil(t, item)
	assert.Nil(t, delta)
}

func TestItemIdentityMatchesOrderedList(t *testing.T) {
	c := newTestConversation()
	c.ProcessEvent("conversation.item.created", map[string]any{
		"item": map[string]any{"id": "x1", "type": "message", "role": "user"},
	}, nil)

	byID := c.GetItem("x1")
	items := c.GetItems()
	require.Len(t, items, 1)
	assert.Same(t, byID, items[0])
}

func TestInvalidSpeechSliceRangeYieldsEmptySlice(t *testing.T) {
	c := newTestConversation()
	inputAudio := []int16{1, 2, 3}

	c.ProcessEvent("input_audio_buffer.speech_started", map[string]any{"item_id": "u1", "audio_start_ms": 1000.0}, nil)
	item, _ := c.ProcessEvent("input_audio_buffer.speech_stopped", map[string]any{"item_id": "u1", "audio_end_ms": 2000.0}, inputAudio)
	assert.Nil(t, item)

	created, _ := c.ProcessEvent("conversation.item.created", map[string]any{
		"item": map[string]any{"id": "u1", "type": "message", "role": "user"},
	}, nil)
	assert.Equal(t, []int16{}, created.Formatted.Audio)
}

func TestQueueInputAudioAdoptedByNextUserMessage(t *testing.T) {
	c := newTestConversation()
	c.QueueInputAudio([]int16{0, 1, 2, 3, 0, 1, 2, 3})

	item, _ := c.ProcessEvent("conversation.item.created", map[string]any{
		"item": map[string]any{"id": "u1", "type": "message", "role": "user", "content": []any{map[string]any{"type": "input_audio"}}},
	}, nil)

	require.NotNil(t, item)
	assert.Equal(t, []int16{0, 1, 2, 3, 0, 1, 2, 3}, item.Formatted.Audio)
}

func TestFunctionCallOutputItemCompletesImmediately(t *testing.T) {
	c := newTestConversation()
	item, _ := c.ProcessEvent("conversation.item.created", map[string]any{
		"item": map[string]any{"id": "o1", "type": "function_call_output", "call_id": "call_1", "output": "5"},
	}, nil)

	require.NotNil(t, item)
	assert.Equal(t, StatusCompleted, item.Status)
	assert.Equal(t, "5", item.Formatted.Output)
}

func TestResetClearsItemsAndQueues(t *testing.T) {
	c := newTestConversation()
	c.ProcessEvent("conversation.item.created", map[string]any{
		"item": map[string]any{"id": "x", "type": "message", "role": "user"},
	}, nil)
	c.Reset()
	assert.Empty(t, c.GetItems())
	assert.Nil(t, c.GetItem("x"))
}
