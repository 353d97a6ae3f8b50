package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"lumis/internal/config"
)

// OllamaClient talks to a local Ollama server. One synchronous,
// non-streaming request per call, no retry.
type OllamaClient struct {
	host  string
	model string
}

func NewOllamaClient(host, model string) *OllamaClient {
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &OllamaClient{host: host, model: model}
}

func (c *OllamaClient) apiClient() (*api.Client, error) {
	parsed, err := url.Parse(c.host)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	return api.NewClient(parsed, http.DefaultClient), nil
}

func (c *OllamaClient) Chat(ctx context.Context, messages []Message) (*Reply, error) {
	client, err := c.apiClient()
	if err != nil {
		return nil, err
	}

	msgs := make([]api.Message, len(messages))
	for i, m := range messages {
		msgs[i] = api.Message{Role: m.Role, Content: m.Content}
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   &stream,
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	start := time.Now()
	var content strings.Builder
	err = client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("Timeout")
		}
		return nil, fmt.Errorf("Ollama not running (ollama serve): %w", err)
	}

	text := content.String()
	config.Debugf("ollama reply: model=%s chars=%d", c.model, len(text))
	return &Reply{
		Content: text,
		Model:   c.model,
		Elapsed: time.Since(start),
		Tokens:  EstimateTokens(text),
	}, nil
}

// ListModels returns the names of locally installed models, for the
// model selector and /doctor.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	client, err := c.apiClient()
	if err != nil {
		return nil, err
	}
	resp, err := client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Reachable reports whether the Ollama server answers a heartbeat.
func (c *OllamaClient) Reachable(ctx context.Context) bool {
	client, err := c.apiClient()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Heartbeat(ctx) == nil
}
