package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"google.golang.org/genai"

	errx "github.com/ebaypulse/server/internal/core/error"
	"github.com/ebaypulse/server/internal/gateway/model"
	"github.com/ebaypulse/server/internal/gateway/prompts"
	"github.com/ebaypulse/server/internal/gateway/schemas"
	"github.com/ebaypulse/server/internal/metrics"
	logx "github.com/ebaypulse/server/pkg/logger"
)

const (
	OpTrends = "fetch_trending_products"
	OpSEO    = "generate_seo_content"

	jsonMIMEType  = "application/json"
	maxLogSnippet = 200
)

var (
	trendsContract = schemas.MustContract("trending_products", schemas.TrendingProducts())
	seoContract    = schemas.MustContract("listing_optimization", schemas.ListingOptimization())
)

// Config holds everything needed to build a Gateway.
type Config struct {
	Model      string
	TrendCount int
	UseSearch  bool
	Generator  ContentGenerator
	// Callbacks are attached to prompt rendering.
	Callbacks []callbacks.Handler
}

// Gateway turns the two domain operations into schema-constrained model calls
// and decodes the results. It is safe for concurrent use.
type Gateway struct {
	model      string
	trendCount int
	useSearch  bool
	gen        ContentGenerator
	prompts    *prompts.Renderer
}

// New builds a Gateway from cfg.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("content generator is nil")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is empty")
	}
	count := cfg.TrendCount
	if count <= 0 {
		count = model.DefaultTrendCount
	}

	r, err := prompts.NewRenderer(ctx, cfg.Callbacks...)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to build prompt renderer")
		return nil, err
	}

	return &Gateway{
		model:      cfg.Model,
		trendCount: count,
		useSearch:  cfg.UseSearch,
		gen:        cfg.Generator,
		prompts:    r,
	}, nil
}

// FetchTrendingProducts asks the model for trending products in category.
// Failures of any kind are logged and reported as an empty result, so an
// empty slice means either "no trends" or "the call failed".
func (g *Gateway) FetchTrendingProducts(ctx context.Context, category string) []model.TrendingProduct {
	category = strings.TrimSpace(category)
	if category == "" {
		category = model.DefaultCategory
	}
	start := time.Now()
	defer func() { metrics.GatewayCallDuration.WithLabelValues(OpTrends).Observe(time.Since(start).Seconds()) }()

	text, err := g.prompts.RenderTrends(ctx, category, g.trendCount)
	if err != nil {
		logx.Error().Err(err).Str("operation", OpTrends).Msg("Failed to render trends prompt")
		metrics.GatewayCalls.WithLabelValues(OpTrends, metrics.OutcomeProviderError).Inc()
		return []model.TrendingProduct{}
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: jsonMIMEType,
		ResponseSchema:   trendsContract.Schema,
	}
	if g.useSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	raw, err := g.call(ctx, OpTrends, text, cfg)
	if err != nil {
		logx.Error().Err(err).Str("operation", OpTrends).Str("category", category).Msg("Trending products request failed")
		metrics.GatewayCalls.WithLabelValues(OpTrends, metrics.OutcomeProviderError).Inc()
		return []model.TrendingProduct{}
	}
	if strings.TrimSpace(raw) == "" {
		raw = "[]"
	}

	var products []model.TrendingProduct
	if err := trendsContract.Decode(raw, &products); err != nil {
		logx.Error().Err(err).
			Str("operation", OpTrends).
			Str("category", category).
			Str("response", snippet(raw)).
			Msg("Failed to parse trending products")
		metrics.GatewayCalls.WithLabelValues(OpTrends, metrics.OutcomeDecodeError).Inc()
		return []model.TrendingProduct{}
	}
	if products == nil {
		products = []model.TrendingProduct{}
	}

	metrics.GatewayCalls.WithLabelValues(OpTrends, metrics.OutcomeOK).Inc()
	logx.Debug().Str("category", category).Int("count", len(products)).Msg("Trending products fetched")
	return products
}

// GenerateSEOContent asks the model for optimized listing copy. Any failure
// is returned as errx.ErrGenerationFailed wrapping the cause; no partial
// result is ever returned.
func (g *Gateway) GenerateSEOContent(ctx context.Context, productDescription string) (model.ListingOptimization, error) {
	if strings.TrimSpace(productDescription) == "" {
		metrics.GatewayCalls.WithLabelValues(OpSEO, metrics.OutcomeRejected).Inc()
		return model.ListingOptimization{}, errx.ErrEmptyDescription
	}
	start := time.Now()
	defer func() { metrics.GatewayCallDuration.WithLabelValues(OpSEO).Observe(time.Since(start).Seconds()) }()

	text, err := g.prompts.RenderSEO(ctx, productDescription)
	if err != nil {
		logx.Error().Err(err).Str("operation", OpSEO).Msg("Failed to render SEO prompt")
		metrics.GatewayCalls.WithLabelValues(OpSEO, metrics.OutcomeProviderError).Inc()
		return model.ListingOptimization{}, errx.Wrap(errx.ErrGenerationFailed, err)
	}

	raw, err := g.call(ctx, OpSEO, text, &genai.GenerateContentConfig{
		ResponseMIMEType: jsonMIMEType,
		ResponseSchema:   seoContract.Schema,
	})
	if err != nil {
		logx.Error().Err(err).Str("operation", OpSEO).Msg("SEO content request failed")
		metrics.GatewayCalls.WithLabelValues(OpSEO, metrics.OutcomeProviderError).Inc()
		return model.ListingOptimization{}, errx.Wrap(errx.ErrGenerationFailed, err)
	}
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	var out model.ListingOptimization
	if err := seoContract.Decode(raw, &out); err != nil {
		logx.Error().Err(err).
			Str("operation", OpSEO).
			Str("response", snippet(raw)).
			Msg("Failed to parse SEO content")
		metrics.GatewayCalls.WithLabelValues(OpSEO, metrics.OutcomeDecodeError).Inc()
		return model.ListingOptimization{}, errx.Wrap(errx.ErrGenerationFailed, err)
	}

	metrics.GatewayCalls.WithLabelValues(OpSEO, metrics.OutcomeOK).Inc()
	return out, nil
}

// call invokes the provider and returns the response text.
func (g *Gateway) call(ctx context.Context, op, text string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.gen.GenerateContent(ctx, g.model, genai.Text(text), cfg)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("empty response from provider")
	}
	g.recordUsage(op, resp.UsageMetadata)
	return resp.Text(), nil
}

func (g *Gateway) recordUsage(op string, meta *genai.GenerateContentResponseUsageMetadata) {
	if meta == nil {
		return
	}
	u := model.ComputeUsage(meta, model.ResolvePricing(g.model))
	metrics.GatewayCostUSD.WithLabelValues(op, g.model).Add(u.TotalCost)
	logx.Debug().
		Str("operation", op).
		Str("model", g.model).
		Int32("prompt_tokens", u.PromptTokens).
		Int32("completion_tokens", u.CompletionTokens).
		Int32("total_tokens", u.TotalTokens).
		Float64("input_cost_usd", u.InputCost).
		Float64("output_cost_usd", u.OutputCost).
		Float64("total_cost_usd", u.TotalCost).
		Msg("LLM usage")
}

// snippet trims raw model output for logging.
func snippet(s string) string {
	if len(s) <= maxLogSnippet {
		return s
	}
	return s[:maxLogSnippet] + "..."
}
