package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumis/internal/backend"
	"lumis/internal/models"
	"lumis/internal/tools"
)

// scriptedBackend returns canned replies in order, recording what it
// was sent.
type scriptedBackend struct {
	replies []string
	err     error
	sent    [][]backend.Message
}

func (b *scriptedBackend) Chat(_ context.Context, messages []backend.Message) (*backend.Reply, error) {
	b.sent = append(b.sent, append([]backend.Message(nil), messages...))
	if b.err != nil {
		return nil, b.err
	}
	i := len(b.sent) - 1
	if i >= len(b.replies) {
		i = len(b.replies) - 1
	}
	return &backend.Reply{Content: b.replies[i], Model: "test-model", Elapsed: 5 * time.Millisecond, Tokens: 3}, nil
}

type fixedGate struct{ decision tools.Decision }

func (g fixedGate) Request(string, string) tools.Decision { return g.decision }

type recordingNotifier struct {
	started  []string
	finished []tools.Result
}

func (n *recordingNotifier) ToolStarted(name string)       { n.started = append(n.started, name) }
func (n *recordingNotifier) ToolFinished(res tools.Result) { n.finished = append(n.finished, res) }

func newTestAgent(be backend.Client, decision tools.Decision) (*Agent, *recordingNotifier) {
	n := &recordingNotifier{}
	return &Agent{
		Backend:  be,
		Executor: tools.NewExecutor(fixedGate{decision}, tools.NewTodoStore(nil)),
		Notifier: n,
	}, n
}

func userTurn(content string) []backend.Message {
	return []backend.Message{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: content},
	}
}

func TestRunPlainAnswer(t *testing.T) {
	be := &scriptedBackend{replies: []string{"Just an answer."}}
	a, n := newTestAgent(be, tools.AllowOnce)

	msgs, outcome, err := a.Run(context.Background(), userTurn("hi"))
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, "Just an answer.", outcome.Content)
	assert.Equal(t, "test-model", outcome.Model)
	assert.False(t, outcome.HitIterationLimit)
	assert.Len(t, be.sent, 1)
	assert.Empty(t, n.started)

	// Assistant reply lands on the conversation.
	require.Len(t, msgs, 3)
	assert.Equal(t, models.RoleAssistant, msgs[2].Role)
}

func TestRunExecutesToolsThenAnswers(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(target, []byte("content here\n"), 0o644))

	be := &scriptedBackend{replies: []string{
		"Let me look.\n```json\n{\"tool\": \"read_file\", \"path\": \"" + target + "\"}\n```",
		"The file says: content here",
	}}
	a, n := newTestAgent(be, tools.AllowOnce)

	msgs, outcome, err := a.Run(context.Background(), userTurn("read it"))
	require.NoError(t, err)
	assert.Equal(t, "The file says: content here", outcome.Content)

	// Second request carries the tool results as a synthetic user turn.
	require.Len(t, be.sent, 2)
	second := be.sent[1]
	last := second[len(second)-1]
	assert.Equal(t, models.RoleUser, last.Role)
	assert.True(t, strings.HasPrefix(last.Content, "Tool results:\n"))
	assert.Contains(t, last.Content, "[read_file] Success:\ncontent here")

	assert.Equal(t, []string{"read_file"}, n.started)
	require.Len(t, n.finished, 1)
	assert.True(t, n.finished[0].OK)

	// sys, user, assistant+tool call, tool results, final assistant
	assert.Len(t, msgs, 5)
}

func TestRunDeniedToolFeedsErrorBack(t *testing.T) {
	target := filepath.Join(t.TempDir(), "x.txt")
	be := &scriptedBackend{replies: []string{
		"```json\n{\"tool\": \"write_file\", \"path\": \"" + target + "\", \"content\": \"x\"}\n```",
		"Understood, I won't write it.",
	}}
	a, _ := newTestAgent(be, tools.Deny)

	_, outcome, err := a.Run(context.Background(), userTurn("write it"))
	require.NoError(t, err)
	assert.Equal(t, "Understood, I won't write it.", outcome.Content)

	second := be.sent[1]
	last := second[len(second)-1]
	assert.Contains(t, last.Content, "[write_file] Error: Denied by user")

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMultipleToolsSequential(t *testing.T) {
	dir := t.TempDir()
	a1 := filepath.Join(dir, "a.txt")
	a2 := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a1, []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(a2, []byte("two"), 0o644))

	be := &scriptedBackend{replies: []string{
		"```json\n{\"tool\": \"read_file\", \"path\": \"" + a1 + "\"}\n```\n" +
			"```json\n{\"tool\": \"read_file\", \"path\": \"" + a2 + "\"}\n```",
		"done",
	}}
	a, n := newTestAgent(be, tools.AllowOnce)

	_, _, err := a.Run(context.Background(), userTurn("read both"))
	require.NoError(t, err)
	assert.Equal(t, []string{"read_file", "read_file"}, n.started)

	last := be.sent[1][len(be.sent[1])-1]
	// Results separated by a blank line, in call order.
	assert.Contains(t, last.Content, "one\n\n[read_file] Success:\ntwo")
}

func TestRunIterationCap(t *testing.T) {
	// Every reply asks for another tool call; the loop must stop at the
	// cap rather than spin.
	be := &scriptedBackend{replies: []string{
		"```json\n{\"tool\": \"todo\", \"action\": \"show\"}\n```",
	}}
	a, _ := newTestAgent(be, tools.AllowOnce)

	_, outcome, err := a.Run(context.Background(), userTurn("loop forever"))
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.True(t, outcome.HitIterationLimit)
	assert.Len(t, be.sent, MaxIterations)
}

func TestRunBackendErrorPreservesConversation(t *testing.T) {
	be := &scriptedBackend{err: errors.New("All keys exhausted")}
	a, _ := newTestAgent(be, tools.AllowOnce)

	msgs, outcome, err := a.Run(context.Background(), userTurn("hi"))
	require.Error(t, err)
	assert.Nil(t, outcome)
	// State intact for retry.
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[1].Content)
}

func TestTrimContextUnderLimit(t *testing.T) {
	msgs := userTurn("hi")
	assert.Equal(t, msgs, TrimContext(msgs, MaxContextMessages))
}

func TestTrimContextKeepsSystemAndRecent(t *testing.T) {
	msgs := []backend.Message{{Role: models.RoleSystem, Content: "sys"}}
	for i := 0; i < 50; i++ {
		msgs = append(msgs, backend.Message{Role: models.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	out := TrimContext(msgs, MaxContextMessages)
	require.Len(t, out, MaxContextMessages)
	assert.Equal(t, models.RoleSystem, out[0].Role)
	// 39 most recent non-system messages survive.
	assert.Equal(t, "m11", out[1].Content)
	assert.Equal(t, "m49", out[len(out)-1].Content)
}

func TestTrimContextFloorOfTwo(t *testing.T) {
	var msgs []backend.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, backend.Message{Role: models.RoleSystem, Content: fmt.Sprintf("s%d", i)})
	}
	for i := 0; i < 5; i++ {
		msgs = append(msgs, backend.Message{Role: models.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	out := TrimContext(msgs, 4)
	// All system messages plus at least the last two others.
	require.Len(t, out, 12)
	assert.Equal(t, "m3", out[10].Content)
	assert.Equal(t, "m4", out[11].Content)
}
