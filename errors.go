// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package realtime

import (
	"errors"
	"fmt"
)

// errUnknownTool is wrapped into a ToolError when a tool's handler can't be
// found after its arguments were validated (the tool was unregistered in
// between). A tool that is not registered at validation time fails in
// ToolRegistry.Validate instead.
var errUnknownTool = errors.New("tool is not registered")

// ConfigError wraps a synchronous, construction/registration-time
// validation failure (e.g. an API key in a browser context without the
// explicit override, or a tool registered with no name). Fatal to the
// calling operation, never to the Client instance.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("realtime: config error in %s: %v", e.Op, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

func newConfigError(op string, err error) error {
	return &ConfigError{Op: op, Err: err}
}

// TransportError wraps a connect failure or WebSocket error. Always
// surfaced via the client.error event in addition to being returned from
// Connect when it originates there.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("realtime: transport error in %s: %v", e.Op, e.Err)
}
func (e *TransportError) Unwrap() error { return e.Err }

func newTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// ProtocolWarning documents a non-fatal condition spec.md §7 calls out as
// "logged as warnings, the event is swallowed": an unknown event type, a
// delta for an unknown item id, or an invalid audio slice range. It is
// never returned from a public method — only constructed where a caller
// wants to inspect what the logger already recorded.
type ProtocolWarning struct {
	Condition string
}

func (e *ProtocolWarning) Error() string { return fmt.Sprintf("realtime: protocol warning: %s", e.Condition) }

// ToolError wraps a tool handler failure or an arguments JSON/schema
// validation failure. Never returned to the caller directly — folded into
// the function_call_output sent back to the server.
type ToolError struct {
	ToolName string
	Err      error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("realtime: tool %q failed: %v", e.ToolName, e.Err)
}
func (e *ToolError) Unwrap() error { return e.Err }

func newToolError(toolName string, err error) error {
	return &ToolError{ToolName: toolName, Err: err}
}

// CancelError is returned synchronously by CancelResponse for an illegal
// cancellation target (unknown item, wrong kind/role, or no audio content).
// No network traffic is sent for an illegal cancel.
type CancelError struct {
	ItemID string
	Reason string
}

func (e *CancelError) Error() string {
	return fmt.Sprintf("realtime: cannot cancel item %q: %s", e.ItemID, e.Reason)
}

func newCancelError(itemID, reason string) error {
	return &CancelError{ItemID: itemID, Reason: reason}
}
