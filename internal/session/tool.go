// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ToolHandler is invoked with the parsed-JSON arguments object and returns a
// JSON-serializable result, or an error.
type ToolHandler func(args map[string]any) (any, error)

// ToolDefinition is the declarative schema + metadata for one tool. The
// client-side core only reads Name/Parameters and invokes the handler; the
// remaining fields are validated and stored. The Client's session.update
// payload does not include tool definitions.
type ToolDefinition struct {
	Name            string         `json:"name" validate:"required"`
	Description     string         `json:"description"`
	Parameters      map[string]any `json:"parameters"`
	OperationMode   string         `json:"operation_mode,omitempty" validate:"omitempty,oneof=client_mode server_mode"`
	ExecutionType   string         `json:"execution_type,omitempty" validate:"omitempty,oneof=synchronous asynchronous"`
	ResultHandling  string         `json:"result_handling,omitempty" validate:"omitempty,oneof=process_in_llm process_in_client ignore_result"`
	Language        string         `json:"language,omitempty" validate:"omitempty,oneof=python shell"`
	Platform        string         `json:"platform,omitempty" validate:"omitempty,oneof=linux macos windows"`
}

type toolEntry struct {
	definition ToolDefinition
	handler    ToolHandler
	schema     *jsonschema.Schema
}

// ToolRegistry maps tool name to {definition, handler}, with a compiled
// JSON-schema cached per entry for argument validation.
type ToolRegistry struct {
	mu      sync.RWMutex
	entries map[string]*toolEntry
}

// NewToolRegistry returns an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{entries: make(map[string]*toolEntry)}
}

// Register compiles def.Parameters as a JSON schema and adds {def, handler}
// to the registry under def.Name. Returns an error for an empty name, a
// failed struct validation, a nil handler, or an uncompilable schema;
// Client.RegisterTool wraps it in a *ConfigError.
func (r *ToolRegistry) Register(def ToolDefinition, handler ToolHandler) error {
	if def.Name == "" {
		return fmt.Errorf("register tool: name is required")
	}
	if err := validate.Struct(&def); err != nil {
		return fmt.Errorf("register tool %q: %w", def.Name, err)
	}
	if handler == nil {
		return fmt.Errorf("register tool %q: handler is required", def.Name)
	}

	schema, err := compileParameterSchema(def.Name, def.Parameters)
	if err != nil {
		return fmt.Errorf("register tool %q: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[def.Name] = &toolEntry{definition: def, handler: handler, schema: schema}
	return nil
}

// Unregister removes a tool by name. Removing an unknown name is a no-op.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Get returns the definition and handler for name, or ok=false.
func (r *ToolRegistry) Get(name string) (ToolDefinition, ToolHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return ToolDefinition{}, nil, false
	}
	return e.definition, e.handler, true
}

// List returns every registered tool definition. Order is unspecified.
func (r *ToolRegistry) List() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDefinition, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.definition)
	}
	return out
}

// Clear removes every registered tool.
func (r *ToolRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*toolEntry)
}

// Validate parses argsJSON and checks it against the named tool's compiled
// parameter schema. Returns the decoded arguments object on success.
func (r *ToolRegistry) Validate(name, argsJSON string) (map[string]any, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("validate tool arguments: unknown tool %q", name)
	}

	var decoded any
	if err := json.Unmarshal([]byte(argsJSON), &decoded); err != nil {
		return nil, fmt.Errorf("parse tool arguments: %w", err)
	}

	if e.schema != nil {
		if err := e.schema.Validate(decoded); err != nil {
			return nil, fmt.Errorf("tool arguments do not match schema: %w", err)
		}
	}

	args, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tool arguments must be a JSON object, got %T", decoded)
	}
	return args, nil
}

func compileParameterSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	if len(params) == 0 {
		return nil, nil
	}
	resourceName := fmt.Sprintf("tool:%s.schema.json", name)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceName, params); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("compile parameter schema: %w", err)
	}
	return schema, nil
}
