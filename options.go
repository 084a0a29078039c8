// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package realtime

import (
	"github.com/go-playground/validator/v10"

	internal_transport "github.com/ticos-ai/realtime-go/internal/transport"
)

// defaultURL points at the reference realtime endpoint used when Options.URL
// is empty.
const defaultURL = "wss://api.ticos.ai/v1/realtime"

// defaultMaxConcurrentTools bounds in-flight tool handler executions (§3.2).
const defaultMaxConcurrentTools = 8

// Options configures a Client.
type Options struct {
	// URL is the realtime WebSocket endpoint. Defaults to defaultURL.
	URL string `validate:"omitempty,url"`

	// APIKey, if set, is attached as a subprotocol token and an
	// Authorization header.
	APIKey string

	// ProviderMode selects subprotocol negotiation: "ticos" (default) or
	// "openai".
	ProviderMode internal_transport.ProviderMode `validate:"omitempty,oneof=ticos openai"`

	// DangerouslyAllowAPIKeyInBrowser overrides the browser-safety refusal
	// for an API key set in a browser-like build.
	DangerouslyAllowAPIKeyInBrowser bool

	// Debug enables Debug-level logging of outbound frames and of the
	// connect target (with API-key-bearing values redacted). Inbound frames
	// are not logged.
	Debug bool

	// MaxConcurrentTools bounds the tool worker pool. Defaults to
	// defaultMaxConcurrentTools when <= 0.
	MaxConcurrentTools int
}

var optionsValidator = validator.New()

func (o *Options) withDefaults() Options {
	out := *o
	if out.URL == "" {
		out.URL = defaultURL
	}
	if out.ProviderMode == "" {
		out.ProviderMode = internal_transport.ProviderTicos
	}
	if out.MaxConcurrentTools <= 0 {
		out.MaxConcurrentTools = defaultMaxConcurrentTools
	}
	return out
}

func (o *Options) validate() error {
	if err := optionsValidator.Struct(o); err != nil {
		return newConfigError("Options", err)
	}
	return nil
}
