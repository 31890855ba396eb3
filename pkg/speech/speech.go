// Package speech adapts OpenAI's audio endpoints: Whisper transcription for
// intake audio and text-to-speech for spoken replies.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

type Config struct {
	APIKey   string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	BaseURL  string        `envconfig:"BASE_URL" split_words:"true"`
	STTModel string        `envconfig:"STT_MODEL" split_words:"true" default:"whisper-1"`
	TTSModel string        `envconfig:"TTS_MODEL" split_words:"true" default:"tts-1"`
	Voice    string        `envconfig:"VOICE" split_words:"true" default:"alloy"`
	Timeout  time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

type Client struct {
	api      openaisdk.Client
	sttModel string
	ttsModel string
	voice    string
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key", contractx.ErrConfiguration)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		api:      openaisdk.NewClient(opts...),
		sttModel: cfg.STTModel,
		ttsModel: cfg.TTSModel,
		voice:    cfg.Voice,
	}, nil
}

// Transcribe converts an audio payload to text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (contractx.Transcription, error) {
	if len(audio) == 0 {
		return contractx.Transcription{}, fmt.Errorf("%w: audio payload is empty", contractx.ErrValidation)
	}
	if mimeType == "" {
		mimeType = "audio/wav"
	}

	res, err := c.api.Audio.Transcriptions.New(ctx, openaisdk.AudioTranscriptionNewParams{
		Model: openaisdk.AudioModel(c.sttModel),
		File:  openaisdk.File(bytes.NewReader(audio), "recording."+extFor(mimeType), mimeType),
	})
	if err != nil {
		return contractx.Transcription{}, upstream(err)
	}

	log.Debug().Int("audio_bytes", len(audio)).Msg("transcription complete")
	return contractx.Transcription{Text: res.Text}, nil
}

// Synthesize renders text as audio and returns the raw bytes.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", contractx.ErrValidation)
	}
	if voice == "" {
		voice = c.voice
	}

	res, err := c.api.Audio.Speech.New(ctx, openaisdk.AudioSpeechNewParams{
		Model: openaisdk.SpeechModel(c.ttsModel),
		Voice: openaisdk.AudioSpeechNewParamsVoice(voice),
		Input: text,
	})
	if err != nil {
		return nil, upstream(err)
	}
	defer res.Body.Close()

	return io.ReadAll(res.Body)
}

func extFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "webm"):
		return "webm"
	case strings.Contains(mimeType, "mp4"):
		return "mp4"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return "mp3"
	default:
		return "wav"
	}
}

func upstream(err error) error {
	var apierr *openaisdk.Error
	if errors.As(err, &apierr) {
		return &contractx.UpstreamError{
			Provider:   "openai",
			StatusCode: apierr.StatusCode,
			Body:       apierr.RawJSON(),
		}
	}
	return err
}
