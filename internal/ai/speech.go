package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"bible-quiz-service/internal/domain"
)

var voiceNames = map[string]string{
	"female": "Kore",
	"male":   "Puck",
}

// Synthesize reads text aloud with the TTS model and returns raw PCM audio
// (16-bit, 24 kHz, mono).
func (c *Client) Synthesize(ctx context.Context, text string, voice domain.VoiceConfig) ([]byte, error) {
	name, ok := voiceNames[voice.Gender]
	if !ok {
		name = voiceNames["female"]
	}
	resp, err := c.call(ctx, c.ttsModel, text, &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: name},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	for _, p := range firstParts(resp) {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return p.InlineData.Data, nil
		}
	}
	return nil, fmt.Errorf("%w: no audio in reply", domain.ErrMalformedResponse)
}
