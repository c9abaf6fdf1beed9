// Package anthropic implements transcript analysis using the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lonestardev/dialcore/analysis"
)

// Options configures the Anthropic extractor (model id, max tokens, API
// key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Extractor wraps the Anthropic Messages API behind the analysis.Analyzer
// interface.
type Extractor struct {
	client *anthropic.Client
	opts   Options
}

// NewExtractor creates an extractor using the official client.
func NewExtractor(optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.1,
		MaxTokens:   1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Extractor{client: &client, opts: opts}
}

// NewExtractorFromClient creates an extractor from an existing client.
func NewExtractorFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Extractor {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.1,
		MaxTokens:   1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Extractor{client: client, opts: opts}
}

// ExtractCallData runs one non-streaming message over the transcript and
// decodes the JSON payload.
func (e *Extractor) ExtractCallData(ctx context.Context, transcript string) (analysis.Result, error) {
	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       e.opts.Model,
		MaxTokens:   e.opts.MaxTokens,
		Temperature: anthropic.Float(e.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: analysis.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(transcript)),
		},
	})
	if err != nil {
		return analysis.Result{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return analysis.Result{}, fmt.Errorf("no text content returned")
	}
	return analysis.ParseResult(sb.String())
}
