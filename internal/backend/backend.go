package backend

import (
	"context"
	"time"

	"lumis/internal/config"
	"lumis/internal/models"
)

// requestTimeout bounds a single completion call on either backend.
const requestTimeout = 180 * time.Second

type Message struct {
	Role    string
	Content string
}

// Reply is a successful completion. Tokens is the len/4 heuristic, not
// a real tokenizer count.
type Reply struct {
	Content string
	Model   string
	Elapsed time.Duration
	Tokens  int
}

// Client sends a full conversation and returns the model's reply.
type Client interface {
	Chat(ctx context.Context, messages []Message) (*Reply, error)
}

// EstimateTokens is a rough 4-chars-per-token estimate.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// New builds the client selected by the settings mode.
func New(settings *config.Settings, keys []string) Client {
	if settings.Mode == models.ModeLocal {
		return NewOllamaClient(settings.OllamaHost, settings.OllamaModel)
	}
	model, ok := models.FindModel(settings.Model)
	if !ok {
		model = models.CloudModels[0]
	}
	return NewPoeClient(keys, model, settings.Experiments)
}
