// Package openai provides a rewrite oracle backed by the OpenAI API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/pkt0401/kanasub/internal/oracle"
)

const rewriteTemperature = 0.2

// Oracle implements oracle.Oracle using the OpenAI chat completions API.
type Oracle struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the oracle.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Oracle.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Use this for
// Azure-style deployments or OpenAI-compatible gateways.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI-backed rewrite oracle.
func New(apiKey, model string, opts ...Option) (*Oracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Oracle{client: client, model: model}, nil
}

// Rewrite implements oracle.Oracle. The model is asked for a JSON object
// keyed by batch position; responses are parsed back into document order.
func (o *Oracle) Rewrite(ctx context.Context, req oracle.Request) ([]string, error) {
	userPrompt, err := oracle.BuildUserPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(oracle.BuildSystemPrompt(req)),
			oai.UserMessage(userPrompt),
		},
		Temperature: param.NewOpt(rewriteTemperature),
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}

	texts, err := oracle.ParseBatchResponse(resp.Choices[0].Message.Content, req.Texts)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return texts, nil
}
