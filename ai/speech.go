package ai

import (
	"context"
	"strings"
)

// Speak renders text as speech with the configured TTS model. It returns nil
// with a nil error when the model produced no audio.
func (a *AIService) Speak(ctx context.Context, text string) (*Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	cfg := &GenerationConfig{ResponseModalities: []string{"AUDIO"}}
	if a.speechVoice != "" {
		cfg.SpeechConfig = &SpeechConfig{}
		cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = a.speechVoice
	}

	resp, err := a.generate(ctx, a.speechModel, &Request{
		Contents:         []Content{UserText(text)},
		GenerationConfig: cfg,
	})
	if err != nil || resp == nil {
		return nil, err
	}
	return ExtractAudio(resp), nil
}
