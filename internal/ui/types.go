package ui

import (
	"database/sql"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"lumis/internal/agent"
	"lumis/internal/backend"
	"lumis/internal/config"
	"lumis/internal/models"
	"lumis/internal/tools"
)

const (
	ModalWidthMax = 60

	// Lines of a tool result shown inline before eliding.
	ToolResultPreviewLines = 8

	HistoryPreviewCount = 10
	MaxInputHistory     = 500
)

const SystemPrompt = `You are Lumis, an elite AI terminal agent designed by Tobias Schmidt Services LLC.

TOOLS AVAILABLE (use JSON format):

1. read_file - Read file contents (supports line ranges for large files)
   {"tool": "read_file", "path": "/path/to/file", "start_line": 1, "end_line": 100}

2. write_file - Create/overwrite file
   {"tool": "write_file", "path": "/path/to/file", "content": "content here"}

3. edit_file - Surgical edits (find/replace pairs)
   {"tool": "edit_file", "path": "/path/to/file", "edits": [{"find": "old", "replace": "new"}]}

4. patch_file - Line-based edits (for precise changes)
   {"tool": "patch_file", "path": "/path/to/file", "patches": [{"line": 10, "action": "replace", "content": "new line"}]}
   Actions: "replace", "insert_after", "insert_before", "delete"

5. run_command - Execute shell commands
   {"tool": "run_command", "command": "ls -la"}

6. list_dir - List directory (with depth)
   {"tool": "list_dir", "path": "/path", "depth": 1}

7. search_file - Search for pattern in file
   {"tool": "search_file", "path": "/path/to/file", "pattern": "search term"}

8. delete_file - Delete file (requires permission)
   {"tool": "delete_file", "path": "/path/to/file"}

9. todo - Create and manage a visual task list (use for multi-step tasks)
   Create: {"tool": "todo", "action": "create", "title": "My Plan", "tasks": ["Step 1", "Step 2", "Step 3"]}
   Check off: {"tool": "todo", "action": "check", "indices": [1, 2]}
   Show: {"tool": "todo", "action": "show"}
   Clear: {"tool": "todo", "action": "clear"}

TOOL FORMAT - Output JSON in a code block:
` + "```json" + `
{"tool": "tool_name", ...params}
` + "```" + `

RULES:
- For files larger than 400KB, use 'search_file' to locate relevant code, then 'read_file' with line ranges.
- Use edit_file for small changes, write_file for new/complete rewrites
- Use patch_file for line-specific edits
- Destructive operations need user permission
- After tool results, continue or respond
- Chain tools as needed
- Be concise but thorough
- For complex multi-step tasks, create a TODO list first, then check off items as you complete them`

const planningDirective = "\n\n[If this is a multi-step task, create a TODO list first using the todo tool, then check off items as you complete them.]"

// Commands lists every slash command with its help line, in display
// order.
var Commands = []struct {
	Name string
	Desc string
}{
	{"/help", "Show all commands"},
	{"/model", "Switch AI model"},
	{"/models", "List available models"},
	{"/local", "Switch to Ollama (local)"},
	{"/cloud", "Switch to Poe (cloud)"},
	{"/doctor", "System diagnostics"},
	{"/clear", "Clear screen"},
	{"/history", "Conversation history"},
	{"/reset", "Reset conversation"},
	{"/experiments", "Toggle features"},
	{"/status", "Current settings"},
	{"/save", "Save conversation"},
	{"/load", "Load conversation"},
	{"/exit", "Exit Lumis"},
}

// ExperimentInfo describes a toggleable feature in the experiments
// modal.
var ExperimentInfo = []struct {
	Key  string
	Name string
	Desc string
}{
	{"reasoning", "Enhanced Thinking", "Deep reasoning mode for supported models"},
	{"planning", "Smart Planning", "Model creates visual TODO lists for multi-step tasks"},
	{"verbose", "Verbose Output", "Model thinks more deeply and checks its own work"},
	{"details", "Details", "Shows model, tokens, and timing at bottom of responses"},
}

type ErrMsg error

// PermissionRequestMsg is sent from the agent goroutine when a
// destructive tool needs approval. The goroutine blocks on Reply until
// the user answers in the modal.
type PermissionRequestMsg struct {
	Tool   string
	Target string
	Reply  chan tools.Decision
}

type ToolCallMsg struct {
	Name string
}

type ToolResultMsg struct {
	Result tools.Result
}

// TodoRenderMsg carries a task list snapshot for the TODO box.
type TodoRenderMsg struct {
	List tools.TodoList
}

// AgentDoneMsg ends a run: the grown conversation plus either an
// outcome or an error.
type AgentDoneMsg struct {
	Messages []backend.Message
	Outcome  *agent.Outcome
	Err      error
}

type DoctorMsg struct {
	Report string
}

type LocalModelsMsg struct {
	Models []string
	Err    error
}

type OllamaSwitchMsg struct {
	Reachable bool
	Models    []string
}

type modalKind int

const (
	modalNone modalKind = iota
	modalModels
	modalLocalModels
	modalExperiments
	modalConversations
	modalPermission
)

type Model struct {
	Viewport  viewport.Model
	Messages  []string
	TextInput textarea.Model
	Spinner   spinner.Model
	Renderer  *glamour.TermRenderer

	Settings  *config.Settings
	ConfigDir string
	Keys      []string
	DB        *sql.DB
	DBErr     error

	History  []backend.Message
	Executor *tools.Executor
	Todos    *tools.TodoStore
	Program  *tea.Program

	Loading       bool
	ExecutingTool string
	ToolActions   []tools.Result
	TodoBox       string
	Err           error

	InputHistory []string

	// Details footer state from the last completed run.
	LastModel   string
	LastTokens  int
	LastElapsed int64
	HitCap      bool

	Modal         modalKind
	SelectedIndex int
	LocalModels   []string
	Conversations []models.ConversationItem
	Permission    *PermissionRequestMsg

	ModalWidth   int
	WindowWidth  int
	WindowHeight int
}

// ContextTokens estimates the tokens held by the current conversation.
func (m *Model) ContextTokens() int {
	total := 0
	for _, msg := range m.History {
		total += backend.EstimateTokens(msg.Content)
	}
	return total
}
