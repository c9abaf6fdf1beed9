// Package openai implements transcript analysis using the OpenAI Chat
// Completions API. It adapts the normalized extraction contract onto the
// SDK's message format.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/lonestardev/dialcore/analysis"
)

// Options configure the OpenAI extractor. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Extractor wraps the OpenAI Chat Completions API behind the
// analysis.Analyzer interface.
type Extractor struct {
	client *openai.Client
	opts   Options
}

// NewExtractor creates an extractor using the official client with ambient
// credentials.
func NewExtractor(optFns ...func(o *Options)) *Extractor {
	client := openai.NewClient()
	return NewExtractorFromClient(&client, optFns...)
}

// NewExtractorFromClient creates an extractor from an existing client.
func NewExtractorFromClient(client *openai.Client, optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.1,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Extractor{client: client, opts: opts}
}

// ExtractCallData runs one non-streaming completion over the transcript and
// decodes the JSON payload.
func (e *Extractor) ExtractCallData(ctx context.Context, transcript string) (analysis.Result, error) {
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: e.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(analysis.SystemPrompt),
			openai.UserMessage(transcript),
		},
		Temperature:         openai.Float(e.opts.Temperature),
		MaxCompletionTokens: openai.Int(e.opts.MaxCompletionTokens),
	})
	if err != nil {
		return analysis.Result{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return analysis.Result{}, fmt.Errorf("no choices returned")
	}
	return analysis.ParseResult(resp.Choices[0].Message.Content)
}
