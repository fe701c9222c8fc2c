// Package speech provides spoken-reply synthesis via the Gemini TTS API
package speech

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"coinchat/internal/common"
	"coinchat/internal/interfaces"
	"coinchat/internal/models"
)

const (
	DefaultModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice = "Kore"
)

// Client implements the SpeechClient interface
type Client struct {
	client *genai.Client
	model  string
	voice  string
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the TTS model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithVoice sets the prebuilt voice name
func WithVoice(voice string) ClientOption {
	return func(c *Client) {
		if voice != "" {
			c.voice = voice
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new speech synthesis client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	c := &Client{
		client: genaiClient,
		model:  DefaultModel,
		voice:  DefaultVoice,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Synthesize renders text as a single audio clip.
func (c *Client) Synthesize(ctx context.Context, text string) (*models.SpeechClip, error) {
	c.logger.Debug().Str("model", c.model).Int("chars", len(text)).Msg("Synthesizing speech")

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: c.voice,
				},
			},
		},
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(text), config)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	blob, err := extractAudioFromResponse(result)
	if err != nil {
		return nil, err
	}

	return &models.SpeechClip{
		Text:      text,
		MIMEType:  blob.MIMEType,
		Data:      blob.Data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// extractAudioFromResponse extracts the inline audio blob from a response
func extractAudioFromResponse(result *genai.GenerateContentResponse) (*genai.Blob, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no audio generated")
	}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData, nil
		}
	}
	return nil, fmt.Errorf("no audio generated")
}

// Ensure Client implements SpeechClient
var _ interfaces.SpeechClient = (*Client)(nil)
