package model

import "google.golang.org/genai"

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// defaultPricing provides hardcoded USD pricing per 1M text tokens.
var defaultPricing = map[string]Pricing{
	"gemini-2.5-flash":       {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite":  {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-3-flash-preview": {InputPerM: 0.50, OutputPerM: 3.00},
}

// ResolvePricing returns pricing for a model, zero when unknown.
func ResolvePricing(model string) Pricing {
	return defaultPricing[model]
}

// Usage is the token usage and cost of a single model call.
type Usage struct {
	PromptTokens     int32
	CompletionTokens int32
	TotalTokens      int32
	InputCost        float64
	OutputCost       float64
	TotalCost        float64
}

// ComputeUsage converts response usage metadata to USD cost using per-1M Pricing.
func ComputeUsage(meta *genai.GenerateContentResponseUsageMetadata, p Pricing) Usage {
	if meta == nil {
		return Usage{}
	}
	u := Usage{
		PromptTokens:     meta.PromptTokenCount,
		CompletionTokens: meta.CandidatesTokenCount,
		TotalTokens:      meta.TotalTokenCount,
	}
	u.InputCost = p.InputPerM * float64(u.PromptTokens) / 1_000_000.0
	u.OutputCost = p.OutputPerM * float64(u.CompletionTokens) / 1_000_000.0
	u.TotalCost = u.InputCost + u.OutputCost
	return u
}
