// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package realtime

import (
	"context"
	"encoding/json"

	internal_conversation "github.com/ticos-ai/realtime-go/internal/conversation"
)

// wireToolClosure exists only to keep New's three-rule wiring symmetric;
// tool invocation is triggered from routeConversationEvent, not from a bus
// subscription, since it needs the completed item's Formatted.Tool.
func (c *Client) wireToolClosure() {}

// invokeToolIfNeeded starts Rule 3's closure for a completed function_call
// item: parse arguments, look up and run the handler, and send the result
// back. Runs on its own goroutine, bounded by toolSem, so the dispatch loop
// that called it is never blocked on handler execution.
func (c *Client) invokeToolIfNeeded(item *internal_conversation.Item) {
	if item.Kind != internal_conversation.KindFunctionCall || item.Formatted.Tool == nil {
		return
	}
	tool := item.Formatted.Tool
	go c.runTool(tool.Name, tool.CallID, tool.Arguments)
}

func (c *Client) runTool(name, callID, argumentsJSON string) {
	ctx := context.Background()
	if err := c.toolSem.Acquire(ctx, 1); err != nil {
		c.logger.Errorf("realtime: tool %q: could not acquire worker slot: %v", name, err)
		return
	}
	defer c.toolSem.Release(1)

	output := c.executeTool(name, argumentsJSON)

	// Ordering guarantee (spec.md §5d): function_call_output must be
	// observable before the response.create that follows it.
	c.transport.Send("conversation.item.create", map[string]any{
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	})
	c.transport.Send("response.create", map[string]any{})
}

// executeTool parses argumentsJSON, validates it against the tool's
// compiled parameter schema, invokes the handler, and returns the
// JSON-serialized result or {"error": message} on any failure.
func (c *Client) executeTool(name, argumentsJSON string) string {
	args, err := c.tools.Validate(name, argumentsJSON)
	if err != nil {
		return encodeToolFailure(newToolError(name, err))
	}

	_, handler, ok := c.tools.Get(name)
	if !ok || handler == nil {
		return encodeToolFailure(newToolError(name, errUnknownTool))
	}

	result, err := handler(args)
	if err != nil {
		return encodeToolFailure(newToolError(name, err))
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return encodeToolFailure(newToolError(name, err))
	}
	return string(encoded)
}

func encodeToolFailure(err error) string {
	encoded, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return `{"error":"tool failed and the error itself could not be encoded"}`
	}
	return string(encoded)
}
