package ui

import (
	"database/sql"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lumis/internal/backend"
	"lumis/internal/config"
	"lumis/internal/models"
	"lumis/internal/tools"
)

func InitialModel(settings *config.Settings, configDir string, keys []string, db *sql.DB, dbErr error) Model {
	ti := textarea.New()
	ti.Placeholder = "Type a message or /help..."
	ti.Prompt = "❯ "
	ti.ShowLineNumbers = false
	ti.CharLimit = 0
	ti.MaxHeight = 6
	ti.SetHeight(2)
	ti.SetWidth(80)
	ti.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#81D4FA")).Bold(true)
	ti.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#81D4FA")).Bold(true)
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(lipgloss.Color("#545454"))
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#81D4FA"))

	vp := viewport.New(60, 15)

	return Model{
		TextInput:  ti,
		Viewport:   vp,
		Spinner:    sp,
		Settings:   settings,
		ConfigDir:  configDir,
		Keys:       keys,
		DB:         db,
		DBErr:      dbErr,
		History:    []backend.Message{{Role: models.RoleSystem, Content: SystemPrompt}},
		Messages:   []string{},
		Modal:      modalNone,
		ModalWidth: ModalWidthMax,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.TextInput.Cursor.BlinkCmd(),
		m.Spinner.Tick,
	)
}

// NewProgram wires the model, the executor's permission gate, and the
// TODO renderer to a single tea.Program.
func NewProgram(settings *config.Settings, configDir string, keys []string, db *sql.DB, dbErr error) *tea.Program {
	m := InitialModel(settings, configDir, keys, db, dbErr)
	p := tea.NewProgram(&m, tea.WithAltScreen())
	m.Program = p
	m.Todos = tools.NewTodoStore(func(l tools.TodoList) {
		p.Send(TodoRenderMsg{List: l})
	})
	m.Executor = tools.NewExecutor(&programGate{program: p}, m.Todos)
	return p
}
