package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"lumis/internal/config"
	"lumis/internal/models"
)

const (
	defaultPoeBaseURL = "https://api.poe.com/v1"

	// Cooperative pacing between credential attempts, plus an extra
	// hold-off after a rate-limit response.
	attemptDelay   = 500 * time.Millisecond
	rateLimitDelay = time.Second
)

const verboseDirective = "\n\n[Think carefully. Take your time. Verify your work before responding.]"

// PoeClient sends conversations to the Poe API, iterating an ordered
// credential list on failure. SDK-level retries are disabled so the
// failover loop owns ordering and pacing.
type PoeClient struct {
	keys        []string
	model       models.AIModel
	experiments config.Experiments

	baseURL string
	sleep   func(time.Duration)
}

func NewPoeClient(keys []string, model models.AIModel, experiments config.Experiments) *PoeClient {
	return &PoeClient{
		keys:        keys,
		model:       model,
		experiments: experiments,
		baseURL:     defaultPoeBaseURL,
		sleep:       time.Sleep,
	}
}

// reasoningFlags maps a model family to the effort directives appended
// to the final user message when the reasoning experiment is on.
func reasoningFlags(modelKey string) []string {
	switch modelKey {
	case "codex", "gpt":
		return []string{"--reasoning_effort high"}
	case "opus":
		return []string{"--thinking_budget 24000", "--web_search true"}
	case "sonnet":
		return []string{"--thinking_budget 16000", "--web_search true"}
	case "haiku":
		return []string{"--thinking_budget 8000", "--web_search true"}
	default:
		return nil
	}
}

// augment returns a copy of the conversation with experiment
// directives appended to the final user message. The stored
// conversation is never mutated.
func (c *PoeClient) augment(messages []Message) []Message {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != models.RoleUser {
		return msgs
	}
	last := &msgs[len(msgs)-1]

	if c.experiments.Reasoning {
		if flags := reasoningFlags(c.model.Key); len(flags) > 0 {
			last.Content = last.Content + " " + strings.Join(flags, " ")
			config.Debugf("applied reasoning flags: %s", strings.Join(flags, ", "))
		}
	}
	if c.experiments.Verbose {
		last.Content += verboseDirective
	}
	return msgs
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case models.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func (c *PoeClient) Chat(ctx context.Context, messages []Message) (*Reply, error) {
	if len(c.keys) == 0 {
		return nil, errors.New("No API keys configured")
	}

	params := openai.ChatCompletionNewParams{
		Model:    c.model.Name,
		Messages: toOpenAIMessages(c.augment(messages)),
	}

	var attemptErrors []string
	for i, key := range c.keys {
		config.Debugf("trying key %d/%d", i+1, len(c.keys))

		reply, attemptErr, rateLimited := c.attempt(ctx, key, params)
		if reply != nil {
			return reply, nil
		}
		attemptErrors = append(attemptErrors, fmt.Sprintf("Key %d: %s", i+1, attemptErr))
		config.Debugf("key %d failed: %s", i+1, attemptErr)

		if rateLimited {
			c.sleep(rateLimitDelay)
		}
		c.sleep(attemptDelay)
	}

	tail := attemptErrors
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	if len(tail) == 0 {
		return nil, errors.New("All keys exhausted")
	}
	return nil, errors.New(strings.Join(tail, "; "))
}

// attempt runs one completion call with a single credential. On
// failure it returns a short diagnostic and whether the backend asked
// for rate-limit backoff.
func (c *PoeClient) attempt(ctx context.Context, key string, params openai.ChatCompletionNewParams) (*Reply, string, bool) {
	client := openai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(c.baseURL),
		option.WithMaxRetries(0),
	)

	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	start := time.Now()
	resp, err := client.Chat.Completions.New(callCtx, params)
	if err != nil {
		var apierr *openai.Error
		switch {
		case errors.As(err, &apierr):
			return nil, fmt.Sprintf("HTTP %d", apierr.StatusCode), apierr.StatusCode == 429
		case errors.Is(err, context.DeadlineExceeded):
			return nil, "Timeout", false
		default:
			return nil, "Connection failed", false
		}
	}
	if len(resp.Choices) == 0 {
		return nil, "Invalid response format", false
	}

	content := resp.Choices[0].Message.Content
	return &Reply{
		Content: content,
		Model:   c.model.Name,
		Elapsed: time.Since(start),
		Tokens:  EstimateTokens(content),
	}, "", false
}
