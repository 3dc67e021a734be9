// Package ollama provides a rewrite oracle backed by a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"

	"github.com/pkt0401/kanasub/internal/oracle"
)

// Oracle implements oracle.Oracle using the Ollama chat API.
type Oracle struct {
	client *api.Client
	model  string
}

// New constructs a new Ollama-backed rewrite oracle. host overrides the
// OLLAMA_HOST environment default when non-empty; timeout bounds each
// request (zero means no client timeout).
func New(host, model string, timeout time.Duration) (*Oracle, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama: model must not be empty")
	}

	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("ollama: invalid host %q: %w", host, err)
		}
		hostURL = parsed
	}

	httpClient := http.DefaultClient
	if timeout > 0 {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Oracle{
		client: api.NewClient(hostURL, httpClient),
		model:  model,
	}, nil
}

// Rewrite implements oracle.Oracle.
func (o *Oracle) Rewrite(ctx context.Context, req oracle.Request) ([]string, error) {
	userPrompt, err := oracle.BuildUserPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	stream := false
	chatReq := api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "system", Content: oracle.BuildSystemPrompt(req)},
			{Role: "user", Content: userPrompt},
		},
		Format: json.RawMessage(`"json"`),
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0.2,
		},
	}

	var content strings.Builder
	err = o.client.Chat(ctx, &chatReq, func(resp api.ChatResponse) error {
		_, err := content.WriteString(resp.Message.Content)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: chat: %w", err)
	}

	texts, err := oracle.ParseBatchResponse(content.String(), req.Texts)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return texts, nil
}
