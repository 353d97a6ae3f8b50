package tools

import "fmt"

// MaxTodoTasks caps the session task list.
const MaxTodoTasks = 8

type TodoItem struct {
	Task string
	Done bool
}

type TodoList struct {
	Title string
	Items []TodoItem
}

func (t TodoList) DoneCount() int {
	n := 0
	for _, it := range t.Items {
		if it.Done {
			n++
		}
	}
	return n
}

// TodoStore holds the single session task list, mutated only by the
// todo tool. The render callback is the display collaborator; it fires
// on create, check and show.
type TodoStore struct {
	list   *TodoList
	render func(TodoList)
}

func NewTodoStore(render func(TodoList)) *TodoStore {
	return &TodoStore{render: render}
}

// Snapshot returns a copy of the current list, if one exists.
func (s *TodoStore) Snapshot() (TodoList, bool) {
	if s.list == nil {
		return TodoList{}, false
	}
	out := TodoList{Title: s.list.Title, Items: make([]TodoItem, len(s.list.Items))}
	copy(out.Items, s.list.Items)
	return out, true
}

// Clear discards the list, e.g. on conversation reset.
func (s *TodoStore) Clear() { s.list = nil }

func (s *TodoStore) notify() {
	if s.render != nil && s.list != nil {
		snap, _ := s.Snapshot()
		s.render(snap)
	}
}

// Apply handles a todo tool call.
func (s *TodoStore) Apply(call Call) Result {
	switch call.str("action") {
	case "create":
		tasks := call.strings("tasks")
		if len(tasks) == 0 {
			return failure("todo", "No tasks provided")
		}
		if len(tasks) > MaxTodoTasks {
			tasks = tasks[:MaxTodoTasks]
		}
		title := call.str("title")
		if title == "" {
			title = "Task Plan"
		}
		list := &TodoList{Title: title}
		for _, t := range tasks {
			list.Items = append(list.Items, TodoItem{Task: t})
		}
		s.list = list
		s.notify()
		return success("todo", fmt.Sprintf("Created TODO with %d tasks", len(list.Items)))

	case "check":
		if s.list == nil {
			return failure("todo", "No TODO list exists")
		}
		indices := call.ints("indices")
		if len(indices) == 0 {
			return failure("todo", "No indices provided")
		}
		checked := 0
		for _, idx := range indices {
			if idx > 0 && idx <= len(s.list.Items) {
				s.list.Items[idx-1].Done = true
				checked++
			}
		}
		s.notify()
		return success("todo", fmt.Sprintf("Checked off %d task(s)", checked))

	case "show":
		if s.list == nil {
			return success("todo", "No TODO list")
		}
		s.notify()
		return success("todo", "Displayed TODO")

	case "clear":
		s.list = nil
		return success("todo", "Cleared TODO list")

	default:
		return failure("todo", "Unknown action: "+call.str("action"))
	}
}
