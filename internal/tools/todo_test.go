package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoCreate(t *testing.T) {
	var rendered []TodoList
	s := NewTodoStore(func(l TodoList) { rendered = append(rendered, l) })

	res := s.Apply(Call{"tool": "todo", "action": "create", "title": "Refactor", "tasks": []any{"read", "edit", "verify"}})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, "Created TODO with 3 tasks", res.Result)

	require.Len(t, rendered, 1)
	assert.Equal(t, "Refactor", rendered[0].Title)

	list, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 0, list.DoneCount())
}

func TestTodoCreateDefaultsAndCap(t *testing.T) {
	s := NewTodoStore(nil)

	tasks := make([]any, 12)
	for i := range tasks {
		tasks[i] = "t"
	}
	res := s.Apply(Call{"tool": "todo", "action": "create", "tasks": tasks})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, "Created TODO with 8 tasks", res.Result)

	list, _ := s.Snapshot()
	assert.Equal(t, "Task Plan", list.Title)
	assert.Len(t, list.Items, MaxTodoTasks)
}

func TestTodoCreateReplacesExisting(t *testing.T) {
	s := NewTodoStore(nil)
	s.Apply(Call{"tool": "todo", "action": "create", "tasks": []any{"old"}})
	s.Apply(Call{"tool": "todo", "action": "create", "tasks": []any{"new one", "new two"}})

	list, _ := s.Snapshot()
	require.Len(t, list.Items, 2)
	assert.Equal(t, "new one", list.Items[0].Task)
}

func TestTodoCheckIgnoresOutOfRange(t *testing.T) {
	s := NewTodoStore(nil)
	s.Apply(Call{"tool": "todo", "action": "create", "tasks": []any{"a", "b", "c"}})

	res := s.Apply(Call{"tool": "todo", "action": "check", "indices": []any{float64(1), float64(5)}})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, "Checked off 1 task(s)", res.Result)

	list, _ := s.Snapshot()
	assert.True(t, list.Items[0].Done)
	assert.Equal(t, 1, list.DoneCount())
}

func TestTodoCheckWithoutList(t *testing.T) {
	s := NewTodoStore(nil)
	res := s.Apply(Call{"tool": "todo", "action": "check", "indices": []any{float64(1)}})
	assert.False(t, res.OK)
	assert.Equal(t, "No TODO list exists", res.Error)
}

func TestTodoCheckWithoutIndices(t *testing.T) {
	s := NewTodoStore(nil)
	s.Apply(Call{"tool": "todo", "action": "create", "tasks": []any{"a"}})
	res := s.Apply(Call{"tool": "todo", "action": "check"})
	assert.False(t, res.OK)
	assert.Equal(t, "No indices provided", res.Error)
}

func TestTodoShowAndClear(t *testing.T) {
	renders := 0
	s := NewTodoStore(func(TodoList) { renders++ })

	res := s.Apply(Call{"tool": "todo", "action": "show"})
	require.True(t, res.OK)
	assert.Equal(t, "No TODO list", res.Result)
	assert.Zero(t, renders)

	s.Apply(Call{"tool": "todo", "action": "create", "tasks": []any{"a"}})
	res = s.Apply(Call{"tool": "todo", "action": "show"})
	require.True(t, res.OK)
	assert.Equal(t, "Displayed TODO", res.Result)
	assert.Equal(t, 2, renders)

	res = s.Apply(Call{"tool": "todo", "action": "clear"})
	require.True(t, res.OK)
	assert.Equal(t, "Cleared TODO list", res.Result)
	_, ok := s.Snapshot()
	assert.False(t, ok)
}

func TestTodoUnknownAction(t *testing.T) {
	s := NewTodoStore(nil)
	res := s.Apply(Call{"tool": "todo", "action": "reorder"})
	assert.False(t, res.OK)
	assert.Equal(t, "Unknown action: reorder", res.Error)
}

func TestTodoSnapshotIsACopy(t *testing.T) {
	s := NewTodoStore(nil)
	s.Apply(Call{"tool": "todo", "action": "create", "tasks": []any{"a"}})

	snap, _ := s.Snapshot()
	snap.Items[0].Done = true

	fresh, _ := s.Snapshot()
	assert.False(t, fresh.Items[0].Done)
}
