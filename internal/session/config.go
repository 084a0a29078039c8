// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_session holds the mutable session Config and the tool
// registry that the Client drives `session.update` synchronization from.
package internal_session

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// ModelConfig is the `model` section of Config.
type ModelConfig struct {
	Provider                string   `mapstructure:"provider" json:"provider" validate:"required,oneof=ticos openai"`
	Name                    string   `mapstructure:"name" json:"name" validate:"required"`
	Modalities              []string `mapstructure:"modalities" json:"modalities" validate:"dive,oneof=text audio"`
	Instructions            string   `mapstructure:"instructions" json:"instructions"`
	Tools                   []string `mapstructure:"tools" json:"tools,omitempty"`
	ToolChoice              string   `mapstructure:"tool_choice" json:"tool_choice" validate:"omitempty,oneof=auto none required"`
	Temperature             float64  `mapstructure:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	MaxResponseOutputTokens int      `mapstructure:"max_response_output_tokens" json:"max_response_output_tokens,omitempty"`
}

// SpeechConfig is the `speech` (output/TTS) section of Config.
type SpeechConfig struct {
	Voice             string  `mapstructure:"voice" json:"voice"`
	OutputAudioFormat string  `mapstructure:"output_audio_format" json:"output_audio_format" validate:"omitempty,oneof=pcm16 g711_ulaw g711_alaw"`
	SpeedRatio        float64 `mapstructure:"speed_ratio" json:"speed_ratio" validate:"gte=0"`
	VolumeRatio       float64 `mapstructure:"volume_ratio" json:"volume_ratio" validate:"gte=0"`
	PitchRatio        float64 `mapstructure:"pitch_ratio" json:"pitch_ratio" validate:"gte=0"`
}

// TurnDetection configures server-side VAD. A nil *TurnDetection on
// HearingConfig means turn detection is disabled (pushed-to-talk mode),
// which CreateResponse consults to decide whether to auto-commit audio.
type TurnDetection struct {
	Type              string  `mapstructure:"type" json:"type" validate:"required,oneof=server_vad none"`
	Threshold         float64 `mapstructure:"threshold" json:"threshold,omitempty"`
	PrefixPaddingMs   int     `mapstructure:"prefix_padding_ms" json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `mapstructure:"silence_duration_ms" json:"silence_duration_ms,omitempty"`
}

// InputAudioTranscription configures automatic input-audio transcription.
type InputAudioTranscription struct {
	Model string `mapstructure:"model" json:"model,omitempty"`
}

// HearingConfig is the `hearing` (input/STT) section of Config.
type HearingConfig struct {
	InputAudioFormat        string                   `mapstructure:"input_audio_format" json:"input_audio_format" validate:"omitempty,oneof=pcm16 g711_ulaw g711_alaw"`
	InputAudioTranscription *InputAudioTranscription `mapstructure:"input_audio_transcription" json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection           `mapstructure:"turn_detection" json:"turn_detection"`
}

// VisionConfig is the `vision` section of Config.
type VisionConfig struct {
	FaceDetection           bool     `mapstructure:"face_detection" json:"face_detection"`
	ObjectDetection         bool     `mapstructure:"object_detection" json:"object_detection"`
	IdentificationDetection bool     `mapstructure:"identification_detection" json:"identification_detection"`
	TargetClasses           []string `mapstructure:"target_classes" json:"target_classes,omitempty"`
}

// DialogueResponse names a message or a function tool reference in a
// knowledge Script response sequence.
type DialogueResponse struct {
	Type     string `mapstructure:"type" json:"type" validate:"required,oneof=message function"`
	Message  string `mapstructure:"message" json:"message,omitempty"`
	Function string `mapstructure:"function" json:"function,omitempty"`
}

// Dialogue maps a list of matching prompts to a response sequence.
type Dialogue struct {
	Prompts   []string           `mapstructure:"prompts" json:"prompts" validate:"required,min=1"`
	Responses []DialogueResponse `mapstructure:"responses" json:"responses" validate:"required,min=1,dive"`
}

// Script groups Dialogues under a name (e.g. a scripted flow for a given
// conversation stage).
type Script struct {
	Name      string     `mapstructure:"name" json:"name" validate:"required"`
	Dialogues []Dialogue `mapstructure:"dialogues" json:"dialogues" validate:"dive"`
}

// KnowledgeConfig is the `knowledge` section of Config.
type KnowledgeConfig struct {
	Scripts []Script `mapstructure:"scripts" json:"scripts,omitempty" validate:"dive"`
}

// Config is the negotiated session configuration mirrored to the server via
// `session.update{session: Config}`. Mutated only through UpdateConfig/Reset.
type Config struct {
	Model     ModelConfig     `mapstructure:"model" json:"model" validate:"required"`
	Speech    SpeechConfig    `mapstructure:"speech" json:"speech"`
	Hearing   HearingConfig   `mapstructure:"hearing" json:"hearing"`
	Vision    VisionConfig    `mapstructure:"vision" json:"vision"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" json:"knowledge"`
}

var validate = validator.New()

// Default returns the Config a Client is constructed with.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "ticos",
			Name:        "default",
			Modalities:  []string{"text", "audio"},
			ToolChoice:  "auto",
			Temperature: 0.8,
		},
		Speech: SpeechConfig{
			OutputAudioFormat: "pcm16",
			SpeedRatio:        1.0,
			VolumeRatio:       1.0,
			PitchRatio:        1.0,
		},
		Hearing: HearingConfig{
			InputAudioFormat: "pcm16",
			TurnDetection: &TurnDetection{
				Type:              "server_vad",
				Threshold:         0.5,
				PrefixPaddingMs:   300,
				SilenceDurationMs: 500,
			},
		},
		Vision:    VisionConfig{},
		Knowledge: KnowledgeConfig{},
	}
}

// Validate runs struct-tag validation over cfg, returning the validator's
// error (which lists every failing field) wrapped with fmt.Errorf;
// Client.UpdateConfig wraps it in a *ConfigError.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid session config: %w", err)
	}
	return nil
}

// UpdateConfig deep-merges partial (a sparse nested map, e.g.
// {"model": {"temperature": 0.8}}) onto cfg in place. Only the leaves
// named in partial change; everything else is left untouched.
func UpdateConfig(cfg *Config, partial map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		Result:           cfg,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("build config decoder: %w", err)
	}
	if err := decoder.Decode(partial); err != nil {
		return fmt.Errorf("merge session config: %w", err)
	}
	return nil
}

// TurnDetectionType returns cfg.Hearing.TurnDetection.Type, or "" if turn
// detection is disabled.
func (cfg *Config) TurnDetectionType() string {
	if cfg.Hearing.TurnDetection == nil {
		return ""
	}
	return cfg.Hearing.TurnDetection.Type
}
