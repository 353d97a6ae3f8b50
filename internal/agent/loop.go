package agent

import (
	"context"
	"fmt"
	"strings"

	"lumis/internal/backend"
	"lumis/internal/config"
	"lumis/internal/models"
	"lumis/internal/tools"
)

const (
	// MaxIterations bounds the tool-call loop so a confused model
	// cannot spin forever.
	MaxIterations = 15
	// MaxContextMessages is a hard cap on messages sent per request,
	// not a token-aware budget.
	MaxContextMessages = 40
)

// Notifier receives per-tool progress for display. Purely
// presentational; nothing flows back into the loop.
type Notifier interface {
	ToolStarted(name string)
	ToolFinished(res tools.Result)
}

// Outcome describes how a run ended when the backend did not fail.
type Outcome struct {
	Content           string
	Model             string
	Elapsed           int64 // milliseconds
	Tokens            int
	HitIterationLimit bool
}

// Agent drives the request → extract → execute → feed-back loop.
type Agent struct {
	Backend  backend.Client
	Executor *tools.Executor
	Notifier Notifier
}

// Run iterates the agent loop over the conversation until the model
// answers without tool calls, the iteration cap is reached, or the
// backend fails. The (possibly grown) conversation is always returned
// so a failed run can be retried without losing state.
func (a *Agent) Run(ctx context.Context, messages []backend.Message) ([]backend.Message, *Outcome, error) {
	for iteration := 1; iteration <= MaxIterations; iteration++ {
		config.Debugf("agent loop iteration %d", iteration)

		messages = TrimContext(messages, MaxContextMessages)

		reply, err := a.Backend.Chat(ctx, messages)
		if err != nil {
			// Retry across credentials already happened inside the
			// client; surface the failure with state intact.
			return messages, nil, err
		}

		calls := tools.Extract(reply.Content)
		if len(calls) == 0 {
			messages = append(messages, backend.Message{Role: models.RoleAssistant, Content: reply.Content})
			return messages, &Outcome{
				Content: reply.Content,
				Model:   reply.Model,
				Elapsed: reply.Elapsed.Milliseconds(),
				Tokens:  reply.Tokens,
			}, nil
		}

		// Sequential execution: side effects must not race and order
		// must match model intent.
		results := make([]string, 0, len(calls))
		for _, call := range calls {
			if a.Notifier != nil {
				a.Notifier.ToolStarted(call.Name())
			}
			res := a.Executor.Execute(call)
			if a.Notifier != nil {
				a.Notifier.ToolFinished(res)
			}
			if res.OK {
				results = append(results, fmt.Sprintf("[%s] Success:\n%s", res.Tool, res.Result))
			} else {
				results = append(results, fmt.Sprintf("[%s] Error: %s", res.Tool, res.Error))
			}
		}

		messages = append(messages,
			backend.Message{Role: models.RoleAssistant, Content: reply.Content},
			backend.Message{Role: models.RoleUser, Content: "Tool results:\n" + strings.Join(results, "\n\n")},
		)
	}

	return messages, &Outcome{HitIterationLimit: true}, nil
}

// TrimContext keeps every system message plus the most recent
// max(maxMessages-systemCount, 2) non-system messages.
func TrimContext(messages []backend.Message, maxMessages int) []backend.Message {
	if len(messages) <= maxMessages {
		return messages
	}

	var system, others []backend.Message
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			system = append(system, m)
		} else {
			others = append(others, m)
		}
	}

	keep := maxMessages - len(system)
	if keep < 2 {
		keep = 2
	}
	if keep < len(others) {
		config.Debugf("trimmed context: %d -> %d messages", len(others), keep)
		others = others[len(others)-keep:]
	}
	return append(system, others...)
}
