// Package analysis extracts structured call data from raw transcripts. It is
// the fallback path of the finalize pipeline: when the voice provider does
// not return structured data alongside the transcript, an Analyzer distills
// the distress signals, property facts and routing flags the scoring engine
// consumes.
//
// The openai and anthropic subpackages wrap the respective vendor SDKs
// behind the Analyzer interface; select one at wiring time.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lonestardev/dialcore/core"
)

// Result is the distilled view of one call transcript.
type Result struct {
	Summary    string
	Structured *core.StructuredCallData
}

// Analyzer distills a transcript into structured call data.
type Analyzer interface {
	ExtractCallData(ctx context.Context, transcript string) (Result, error)
}

// SystemPrompt instructs the extraction model. Exported so callers can
// extend it with market-specific guidance.
const SystemPrompt = `You analyze transcripts of phone calls with property owners.
Return ONLY a JSON object with these fields:
  "summary": two-sentence recap of the call,
  "distress_signals": array from [tax_delinquent, pre_foreclosure, probate, code_violation, divorce, vacant, absentee_owner, tired_landlord],
  "property_type": one of [single_family, duplex, multi_family, mobile_home, land] or "",
  "property_age": years since built, 0 if unknown,
  "sqft": square footage, 0 if unknown,
  "market_signals": array from [appreciating, rental_demand, low_dom],
  "selling_timeline": one of [asap, 30_days, 90_days, exploring] or "",
  "mentioned_price": number or null,
  "do_not_contact": true if the owner asked to never be called again,
  "callback_requested": true if the owner asked to be called back later.`

// payload is the wire shape produced by the extraction models. It embeds the
// structured-data JSON contract plus the summary field.
type payload struct {
	Summary string `json:"summary"`
	core.StructuredCallData
}

// ParseResult decodes a model response into a Result. Markdown code fences
// around the JSON object are tolerated since models add them despite
// instructions.
func ParseResult(raw string) (Result, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var p payload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return Result{}, fmt.Errorf("decode extraction payload: %w", err)
	}
	structured := p.StructuredCallData
	return Result{Summary: p.Summary, Structured: &structured}, nil
}

// Static is an Analyzer returning a fixed result. Useful in tests and as a
// no-LLM placeholder in wiring.
type Static struct {
	Result Result
	Err    error
}

// ExtractCallData returns the fixed result.
func (s Static) ExtractCallData(_ context.Context, _ string) (Result, error) {
	return s.Result, s.Err
}
