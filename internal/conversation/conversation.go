// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_conversation

import (
	"sync"

	"github.com/ticos-ai/realtime-go/pkg/commons"
	"github.com/ticos-ai/realtime-go/pkg/utils"
)

type queuedSpeech struct {
	audioStartMs *int
	audioEndMs   *int
	audio        []int16
}

type queuedTranscript struct {
	transcript string
}

// Conversation holds the ordered item list + ID lookup and translates raw
// server events into item creations/updates. It tolerates out-of-order
// arrivals: speech boundaries and transcripts may precede the
// conversation.item.created event for the same ID.
type Conversation struct {
	logger commons.Logger

	mu    sync.Mutex
	items []*Item
	byID  map[string]*Item

	queuedSpeechItems     map[string]*queuedSpeech
	queuedTranscriptItems map[string]*queuedTranscript

	// pendingUserAudio holds audio committed by the Client (via
	// QueueInputAudio) ahead of the conversation.item.created event for the
	// user message it belongs to. Consumed by the next created user
	// message, per spec.md §4.3's item-created handling.
	pendingUserAudio []int16
}

// New returns an empty Conversation.
func New(logger commons.Logger) *Conversation {
	return &Conversation{
		logger:                logger,
		byID:                  make(map[string]*Item),
		queuedSpeechItems:     make(map[string]*queuedSpeech),
		queuedTranscriptItems: make(map[string]*queuedTranscript),
	}
}

// GetItem returns the item with id, or nil. The returned pointer is the
// same reference stored in the ordered list.
func (c *Conversation) GetItem(id string) *Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byID[id]
}

// GetItems returns a snapshot slice of every item in arrival order.
func (c *Conversation) GetItems() []*Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Item, len(c.items))
	copy(out, c.items)
	return out
}

// QueueInputAudio hands samples to the Conversation to be adopted as the
// next created user message's formatted.audio. Called by the Client when
// CreateResponse commits and drains the input accumulator.
func (c *Conversation) QueueInputAudio(samples []int16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingUserAudio = utils.MergeInt16(c.pendingUserAudio, samples)
}

// Reset clears every item and queued out-of-order fragment.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.byID = make(map[string]*Item)
	c.queuedSpeechItems = make(map[string]*queuedSpeech)
	c.queuedTranscriptItems = make(map[string]*queuedTranscript)
	c.pendingUserAudio = nil
}

// ProcessEvent translates one raw server event into an (item, delta) pair.
// eventType is the bare event name (e.g. "conversation.item.created").
// inputAudio is the Client-held input-audio accumulator, consulted only by
// input_audio_buffer.speech_stopped. Unrecognized event types, and deltas
// referencing an unknown item id, return (nil, nil) — the caller dispatches
// nothing.
func (c *Conversation) ProcessEvent(eventType string, raw map[string]any, inputAudio []int16) (*Item, *Delta) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch eventType {
	case "conversation.item.created":
		return c.handleItemCreated(raw)
	case "conversation.item.input_audio_transcription.completed":
		return c.handleTranscriptionCompleted(raw)
	case "response.audio_transcript.delta":
		return c.handleAudioTranscriptDelta(raw)
	case "response.audio.delta":
		return c.handleAudioDelta(raw)
	case "response.text.delta":
		return c.handleTextDelta(raw)
	case "response.function_call_arguments.delta":
		return c.handleFunctionCallArgumentsDelta(raw)
	case "input_audio_buffer.speech_started":
		return c.handleSpeechStarted(raw)
	case "input_audio_buffer.speech_stopped":
		return c.handleSpeechStopped(raw, inputAudio)
	case "response.output_item.done":
		return c.handleOutputItemDone(raw)
	default:
		return nil, nil
	}
}

func (c *Conversation) insert(item *Item) {
	c.items = append(c.items, item)
	c.byID[item.ID] = item
}

func (c *Conversation) handleItemCreated(raw map[string]any) (*Item, *Delta) {
	rawItem, _ := raw["item"].(map[string]any)
	if rawItem == nil {
		c.logger.Warnf("conversation: conversation.item.created missing item payload")
		return nil, nil
	}

	item := parseItem(rawItem)
	if item.ID == "" {
		c.logger.Warnf("conversation: conversation.item.created item missing id")
		return nil, nil
	}

	if existing := c.byID[item.ID]; existing != nil {
		item = existing
	} else {
		item.Formatted = Formatted{Audio: []int16{}}
		c.insert(item)
	}

	if queued, ok := c.queuedSpeechItems[item.ID]; ok {
		item.Formatted.Audio = utils.MergeInt16(item.Formatted.Audio, queued.audio)
		delete(c.queuedSpeechItems, item.ID)
	}

	if queued, ok := c.queuedTranscriptItems[item.ID]; ok {
		item.Formatted.Transcript = queued.transcript
		applyTranscriptToContent(item, 0, queued.transcript)
		delete(c.queuedTranscriptItems, item.ID)
	}

	item.Formatted.Text = concatTextContent(item.Content)

	switch item.Kind {
	case KindMessage:
		if item.Role == RoleUser {
			item.Status = StatusCompleted
			if len(c.pendingUserAudio) > 0 {
				item.Formatted.Audio = c.pendingUserAudio
				c.pendingUserAudio = nil
			}
		}
	case KindFunctionCall:
		item.Formatted.Tool = &ToolFormatted{Name: item.Name, CallID: item.CallID, Arguments: item.Arguments}
		item.Status = StatusInProgress
	case KindFunctionCallOutput:
		item.Formatted.Output = item.Output
		item.Status = StatusCompleted
	}

	return item, nil
}

func (c *Conversation) handleTranscriptionCompleted(raw map[string]any) (*Item, *Delta) {
	itemID, _ := raw["item_id"].(string)
	contentIndex := intField(raw, "content_index")
	transcript, _ := raw["transcript"].(string)
	if transcript == "" {
		// Normalize empty transcripts to a single space to distinguish
		// "transcribed as silence" from "not yet transcribed".
		transcript = " "
	}

	item := c.byID[itemID]
	if item == nil {
		c.queuedTranscriptItems[itemID] = &queuedTranscript{transcript: transcript}
		return nil, nil
	}

	applyTranscriptToContent(item, contentIndex, transcript)
	item.Formatted.Transcript = transcript
	return item, &Delta{Transcript: &transcript}
}

func (c *Conversation) handleAudioTranscriptDelta(raw map[string]any) (*Item, *Delta) {
	itemID, _ := raw["item_id"].(string)
	delta, _ := raw["delta"].(string)

	item := c.byID[itemID]
	if item == nil {
		c.logger.Warnf("conversation: response.audio_transcript.delta for unknown item %q", itemID)
		return nil, nil
	}

	item.Formatted.Transcript += delta
	return item, &Delta{Transcript: &delta}
}

func (c *Conversation) handleAudioDelta(raw map[string]any) (*Item, *Delta) {
	itemID, _ := raw["item_id"].(string)
	encoded, _ := raw["delta"].(string)

	item := c.byID[itemID]
	if item == nil {
		c.logger.Warnf("conversation: response.audio.delta for unknown item %q", itemID)
		return nil, nil
	}

	samples, err := utils.Base64ToInt16(encoded)
	if err != nil {
		c.logger.Warnf("conversation: response.audio.delta invalid base64 for item %q: %v", itemID, err)
		return nil, nil
	}

	item.Formatted.Audio = utils.MergeInt16(item.Formatted.Audio, samples)
	return item, &Delta{Audio: samples}
}

func (c *Conversation) handleTextDelta(raw map[string]any) (*Item, *Delta) {
	itemID, _ := raw["item_id"].(string)
	contentIndex := intField(raw, "content_index")
	delta, _ := raw["delta"].(string)

	item := c.byID[itemID]
	if item == nil {
		c.logger.Warnf("conversation: response.text.delta for unknown item %q", itemID)
		return nil, nil
	}

	if contentIndex >= 0 && contentIndex < len(item.Content) {
		item.Content[contentIndex].Text += delta
	}
	item.Formatted.Text += delta
	return item, &Delta{Text: &delta}
}

func (c *Conversation) handleFunctionCallArgumentsDelta(raw map[string]any) (*Item, *Delta) {
	itemID, _ := raw["item_id"].(string)
	delta, _ := raw["delta"].(string)

	item := c.byID[itemID]
	if item == nil {
		c.logger.Warnf("conversation: response.function_call_arguments.delta for unknown item %q", itemID)
		return nil, nil
	}

	item.Arguments += delta
	if item.Formatted.Tool == nil {
		item.Formatted.Tool = &ToolFormatted{Name: item.Name, CallID: item.CallID}
	}
	item.Formatted.Tool.Arguments += delta
	return item, &Delta{Arguments: &delta}
}

func (c *Conversation) handleSpeechStarted(raw map[string]any) (*Item, *Delta) {
	itemID, _ := raw["item_id"].(string)
	startMs := intField(raw, "audio_start_ms")

	queued := c.queuedSpeechItems[itemID]
	if queued == nil {
		queued = &queuedSpeech{}
		c.queuedSpeechItems[itemID] = queued
	}
	queued.audioStartMs = &startMs
	return nil, nil
}

func (c *Conversation) handleSpeechStopped(raw map[string]any, inputAudio []int16) (*Item, *Delta) {
	itemID, _ := raw["item_id"].(string)
	endMs := intField(raw, "audio_end_ms")

	queued := c.queuedSpeechItems[itemID]
	if queued == nil {
		queued = &queuedSpeech{}
		c.queuedSpeechItems[itemID] = queued
	}
	queued.audioEndMs = &endMs

	startMs := 0
	if queued.audioStartMs != nil {
		startMs = *queued.audioStartMs
	}

	start := utils.SamplesFromMillis(startMs)
	end := utils.SamplesFromMillis(endMs)

	if start < 0 || end < start || start > len(inputAudio) {
		c.logger.Warnf("conversation: invalid speech slice range [%d,%d) over %d input samples for item %q", start, end, len(inputAudio), itemID)
		queued.audio = []int16{}
		return nil, nil
	}
	if end > len(inputAudio) {
		end = len(inputAudio)
	}

	queued.audio = append([]int16(nil), inputAudio[start:end]...)
	return nil, nil
}

func (c *Conversation) handleOutputItemDone(raw map[string]any) (*Item, *Delta) {
	rawItem, _ := raw["item"].(map[string]any)
	if rawItem == nil {
		return nil, nil
	}
	itemID, _ := rawItem["id"].(string)

	item := c.byID[itemID]
	if item == nil {
		c.logger.Warnf("conversation: response.output_item.done for unknown item %q", itemID)
		return nil, nil
	}

	if status, ok := rawItem["status"].(string); ok && status != "" {
		item.Status = Status(status)
	}
	return item, nil
}

func applyTranscriptToContent(item *Item, contentIndex int, transcript string) {
	if contentIndex >= 0 && contentIndex < len(item.Content) {
		item.Content[contentIndex].Transcript = transcript
	}
}

func concatTextContent(parts []ContentPart) string {
	var out string
	for _, p := range parts {
		if p.Type == ContentText || p.Type == ContentInputText {
			out += p.Text
		}
	}
	return out
}

func intField(raw map[string]any, key string) int {
	switch v := raw[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func parseItem(raw map[string]any) *Item {
	item := &Item{}
	item.ID, _ = raw["id"].(string)
	item.Kind = Kind(stringField(raw, "type"))
	item.Role = Role(stringField(raw, "role"))
	item.Status = Status(stringField(raw, "status"))
	if item.Status == "" {
		item.Status = StatusInProgress
	}

	if rawContent, ok := raw["content"].([]any); ok {
		for _, rc := range rawContent {
			m, ok := rc.(map[string]any)
			if !ok {
				continue
			}
			item.Content = append(item.Content, ContentPart{
				Type:       ContentPartType(stringField(m, "type")),
				Text:       stringField(m, "text"),
				AudioB64:   stringField(m, "audio"),
				Transcript: stringField(m, "transcript"),
				ImageB64:   stringField(m, "image"),
				Caption:    stringField(m, "caption"),
			})
		}
	}

	item.Name = stringField(raw, "name")
	item.CallID = stringField(raw, "call_id")
	item.Arguments = stringField(raw, "arguments")
	item.OutputCallID = stringField(raw, "call_id")
	item.Output = stringField(raw, "output")

	return item
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}
