package gateway

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	logx "github.com/ebaypulse/server/pkg/logger"
)

// ErrAPIKeyMissing is returned by every call made through an unavailable generator.
var ErrAPIKeyMissing = errors.New("gemini api key is not configured")

// ContentGenerator is the provider surface the gateway needs. *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ClientConfig holds the provider credentials.
type ClientConfig struct {
	APIKey  string
	BaseURL string
}

// NewGenerator builds a Gemini content generator. A missing key or a client
// that cannot be built does not fail startup: the returned generator fails
// every call instead, and ok reports false.
func NewGenerator(ctx context.Context, cfg ClientConfig) (gen ContentGenerator, ok bool) {
	if cfg.APIKey == "" {
		logx.Warn().Msg("GEMINI_API_KEY not set; model calls will fail")
		return unavailableGenerator{err: ErrAPIKeyMissing}, false
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return unavailableGenerator{err: fmt.Errorf("error creating Gemini client: %w", err)}, false
	}
	return client.Models, true
}

type unavailableGenerator struct {
	err error
}

func (u unavailableGenerator) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return nil, u.err
}
