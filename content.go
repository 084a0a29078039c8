// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package realtime

import "github.com/ticos-ai/realtime-go/pkg/utils"

// ContentPartInput is one element of a user message passed to
// SendUserMessageContent. Exactly one payload field is meaningful,
// matching Type.
type ContentPartInput struct {
	Type string

	Text string

	// Audio carries raw PCM16 samples; normalize encodes them to base64.
	// AudioB64, if already set, takes precedence.
	Audio    []int16
	AudioB64 string

	Image   string
	Caption string
}

// normalize converts an input_text/input_audio part into the wire shapes
// text/audio the server expects, base64-encoding raw audio samples.
func (p ContentPartInput) normalize() map[string]any {
	switch p.Type {
	case "input_text":
		return map[string]any{"type": "text", "text": p.Text}
	case "input_audio":
		return map[string]any{"type": "audio", "audio": p.encodedAudio()}
	case "image":
		return map[string]any{"type": "image", "image": p.Image, "caption": p.Caption}
	default:
		out := map[string]any{"type": p.Type}
		if p.Text != "" {
			out["text"] = p.Text
		}
		if audio := p.encodedAudio(); audio != "" {
			out["audio"] = audio
		}
		return out
	}
}

func (p ContentPartInput) encodedAudio() string {
	if p.AudioB64 != "" {
		return p.AudioB64
	}
	if len(p.Audio) > 0 {
		return utils.Int16ToBase64(p.Audio)
	}
	return ""
}
