package transcriber

import (
	"bytes"
	"context"
	"iter"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is the speech model used when none is configured.
const DefaultOpenAIModel = "whisper-1"

// OpenAIConfig configures an OpenAIRecognizer.
type OpenAIConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// OpenAIRecognizer transcribes audio with an OpenAI-compatible
// transcription endpoint. It yields a single final result.
type OpenAIRecognizer struct {
	client   openai.Client
	model    string
	language string
}

// NewOpenAIRecognizer creates a recognizer. An empty API key falls back to
// the OPENAI_API_KEY environment variable.
func NewOpenAIRecognizer(cfg OpenAIConfig) *OpenAIRecognizer {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIRecognizer{
		client:   openai.NewClient(opts...),
		model:    model,
		language: cfg.Language,
	}
}

func (r *OpenAIRecognizer) Recognize(ctx context.Context, audio []byte) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		params := openai.AudioTranscriptionNewParams{
			File:  openai.File(bytes.NewReader(audio), "recording.m4a", "audio/mp4"),
			Model: openai.AudioModel(r.model),
		}
		if r.language != "" {
			params.Language = openai.String(r.language)
		}

		res, err := r.client.Audio.Transcriptions.New(ctx, params)
		if err != nil {
			yield(Result{}, err)
			return
		}
		yield(Result{Text: strings.TrimSpace(res.Text), Final: true}, nil)
	}
}
