package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/trends_prompt.txt
var trendsPrompt string

//go:embed template/seo_prompt.txt
var seoPrompt string

const (
	NodeTrendsPrompt = "TrendsPrompt"
	NodeSEOPrompt    = "SEOPrompt"

	// TitleLimit and KeywordCount are advisory to the model only.
	TitleLimit   = 80
	KeywordCount = 15
)

// Renderer renders the gateway prompts through compiled Eino chat-template
// chains so prompt callbacks fire on every render.
type Renderer struct {
	trends   compose.Runnable[map[string]any, []*schema.Message]
	seo      compose.Runnable[map[string]any, []*schema.Message]
	handlers []callbacks.Handler
}

// NewRenderer compiles both prompt chains. Handlers are attached to every render.
func NewRenderer(ctx context.Context, handlers ...callbacks.Handler) (*Renderer, error) {
	trends, err := compileTemplate(ctx, NodeTrendsPrompt, trendsPrompt)
	if err != nil {
		return nil, err
	}
	seo, err := compileTemplate(ctx, NodeSEOPrompt, seoPrompt)
	if err != nil {
		return nil, err
	}
	return &Renderer{trends: trends, seo: seo, handlers: handlers}, nil
}

func compileTemplate(ctx context.Context, name, text string) (compose.Runnable[map[string]any, []*schema.Message], error) {
	tpl := prompt.FromMessages(schema.GoTemplate, schema.UserMessage(text))
	chain := compose.NewChain[map[string]any, []*schema.Message]()
	chain.AppendChatTemplate(tpl, compose.WithNodeName(name))
	r, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile %s prompt: %w", name, err)
	}
	return r, nil
}

// RenderTrends renders the trending products instruction for category.
func (r *Renderer) RenderTrends(ctx context.Context, category string, count int) (string, error) {
	return r.render(ctx, NodeTrendsPrompt, r.trends, map[string]any{
		"Category": category,
		"Count":    count,
	})
}

// RenderSEO renders the listing optimization instruction for a product description.
func (r *Renderer) RenderSEO(ctx context.Context, productData string) (string, error) {
	return r.render(ctx, NodeSEOPrompt, r.seo, map[string]any{
		"ProductData":  productData,
		"TitleLimit":   TitleLimit,
		"KeywordCount": KeywordCount,
	})
}

func (r *Renderer) render(ctx context.Context, name string, run compose.Runnable[map[string]any, []*schema.Message], vars map[string]any) (string, error) {
	var opts []compose.Option
	if len(r.handlers) > 0 {
		opts = append(opts, compose.WithCallbacks(r.handlers...))
	}
	msgs, err := run.Invoke(ctx, vars, opts...)
	if err != nil {
		return "", fmt.Errorf("%s render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s render: empty result", name)
	}
	return msgs[0].Content, nil
}
