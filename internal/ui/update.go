package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"lumis/internal/agent"
	"lumis/internal/backend"
	"lumis/internal/config"
	"lumis/internal/models"
	"lumis/internal/styles"
	"lumis/internal/tools"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.Spinner, spCmd = m.Spinner.Update(msg)
		if m.Loading {
			m.UpdateViewport()
		}
		return m, spCmd

	case PermissionRequestMsg:
		req := msg
		m.Permission = &req
		m.Modal = modalPermission
		return m, nil

	case tea.KeyMsg:
		if m.Modal == modalPermission {
			return m.updatePermissionModal(msg)
		}
		if m.Modal != modalNone {
			return m.updateSelectorModal(msg)
		}

		if isNewlineShortcut(msg) {
			m.TextInput.InsertString("\n")
			m.updateInputLayout()
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if m.Loading {
				return m, nil
			}
			input := strings.TrimSpace(m.TextInput.Value())
			if input == "" {
				return m, nil
			}
			m.TextInput.Reset()
			m.updateInputLayout()

			if strings.HasPrefix(input, "/") {
				if cmd, handled := m.handleCommand(input); handled {
					m.UpdateViewport()
					return m, cmd
				}
				m.Messages = append(m.Messages, styles.InfoStyle("Unknown command. Try /help"))
				m.UpdateViewport()
				return m, nil
			}

			return m, m.submit(input)
		}

	case ToolCallMsg:
		m.ExecutingTool = msg.Name
		m.UpdateViewport()
		return m, nil

	case ToolResultMsg:
		m.ExecutingTool = ""
		m.ToolActions = append(m.ToolActions, msg.Result)
		m.UpdateViewport()
		return m, nil

	case TodoRenderMsg:
		m.TodoBox = RenderTodoBox(msg.List)
		m.UpdateViewport()
		return m, nil

	case AgentDoneMsg:
		return m.finishRun(msg)

	case DoctorMsg:
		m.Loading = false
		m.Messages = append(m.Messages, msg.Report)
		m.UpdateViewport()
		return m, nil

	case OllamaSwitchMsg:
		if msg.Reachable {
			m.Settings.Mode = models.ModeLocal
			m.saveSettings()
			line := styles.SuccessStyle.Render("✓ Switched to Ollama")
			if len(msg.Models) > 0 {
				shown := msg.Models
				if len(shown) > 5 {
					shown = shown[:5]
				}
				line += "\n" + styles.InfoStyle("  Models: "+strings.Join(shown, ", "))
			}
			m.Messages = append(m.Messages, line)
		} else {
			m.Messages = append(m.Messages, styles.WarnStyle.Render("Ollama not running. Start: ollama serve"))
		}
		m.UpdateViewport()
		return m, nil

	case LocalModelsMsg:
		if msg.Err != nil || len(msg.Models) == 0 {
			m.Messages = append(m.Messages, styles.WarnStyle.Render("No Ollama models. Install: ollama pull <model>"))
			m.UpdateViewport()
			return m, nil
		}
		m.LocalModels = msg.Models
		m.Modal = modalLocalModels
		m.SelectedIndex = 0
		for i, name := range msg.Models {
			if name == m.Settings.OllamaModel {
				m.SelectedIndex = i
			}
		}
		return m, nil

	case ErrMsg:
		m.Loading = false
		m.Err = msg
		m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", msg)))
		m.UpdateViewport()
		return m, nil

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height

		m.ModalWidth = msg.Width - 10
		if m.ModalWidth > ModalWidthMax {
			m.ModalWidth = ModalWidthMax
		}
		if m.ModalWidth < 30 {
			m.ModalWidth = 30
		}
		styles.ContentWidth = m.ModalWidth - 6

		chatWidth := msg.Width - 2
		m.Viewport.Width = chatWidth - 2

		m.updateInputLayout()
		glamourStyle := "dark"
		if !lipgloss.HasDarkBackground() {
			glamourStyle = "light"
		}
		m.Renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath(glamourStyle),
			glamour.WithWordWrap(chatWidth-6),
		)
		m.UpdateViewport()
		return m, tea.Batch(tiCmd, vpCmd)
	}

	m.TextInput, tiCmd = m.TextInput.Update(msg)
	m.updateInputLayout()

	// Filter terminal background color queries that leak into the input
	val := m.TextInput.Value()
	if strings.Contains(val, "]11;rgb:") || strings.Contains(val, "1;rgb:") || strings.Contains(val, "[1;1R") {
		m.TextInput.Reset()
	}

	m.Viewport, vpCmd = m.Viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *Model) updatePermissionModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	answer := func(d tools.Decision) (tea.Model, tea.Cmd) {
		if m.Permission != nil {
			m.Permission.Reply <- d
			m.Permission = nil
		}
		m.Modal = modalNone
		return m, nil
	}

	switch msg.String() {
	case "y", "enter":
		return answer(tools.AllowOnce)
	case "t", "a":
		return answer(tools.AllowAll)
	case "n", "esc":
		return answer(tools.Deny)
	case "ctrl+c":
		answer(tools.Deny)
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateSelectorModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := m.modalItemCount()

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.Modal = modalNone
		return m, nil
	case "up", "k":
		if count > 0 {
			m.SelectedIndex--
			if m.SelectedIndex < 0 {
				m.SelectedIndex = count - 1
			}
		}
		return m, nil
	case "down", "j":
		if count > 0 {
			m.SelectedIndex++
			if m.SelectedIndex >= count {
				m.SelectedIndex = 0
			}
		}
		return m, nil
	case "enter":
		return m.selectModalItem()
	}
	return m, nil
}

func (m *Model) modalItemCount() int {
	switch m.Modal {
	case modalModels:
		return len(models.CloudModels)
	case modalLocalModels:
		return len(m.LocalModels)
	case modalExperiments:
		return len(ExperimentInfo) + 1 // trailing Done entry
	case modalConversations:
		return len(m.Conversations)
	}
	return 0
}

func (m *Model) selectModalItem() (tea.Model, tea.Cmd) {
	switch m.Modal {
	case modalModels:
		mdl := models.CloudModels[m.SelectedIndex]
		m.Settings.Model = mdl.Key
		m.saveSettings()
		m.Modal = modalNone
		m.Messages = append(m.Messages, styles.SuccessStyle.Render("✓ "+mdl.Name))
		m.UpdateViewport()
		return m, nil

	case modalLocalModels:
		name := m.LocalModels[m.SelectedIndex]
		m.Settings.OllamaModel = name
		m.saveSettings()
		m.Modal = modalNone
		m.Messages = append(m.Messages, styles.SuccessStyle.Render("✓ "+name))
		m.UpdateViewport()
		return m, nil

	case modalExperiments:
		if m.SelectedIndex >= len(ExperimentInfo) {
			m.Modal = modalNone
			return m, nil
		}
		m.toggleExperiment(ExperimentInfo[m.SelectedIndex].Key)
		m.saveSettings()
		return m, nil

	case modalConversations:
		name := m.Conversations[m.SelectedIndex].Name
		m.Modal = modalNone
		m.loadConversation(name)
		m.UpdateViewport()
		return m, nil
	}

	m.Modal = modalNone
	return m, nil
}

func (m *Model) toggleExperiment(key string) {
	exp := &m.Settings.Experiments
	switch key {
	case "reasoning":
		exp.Reasoning = !exp.Reasoning
	case "planning":
		exp.Planning = !exp.Planning
	case "verbose":
		exp.Verbose = !exp.Verbose
	case "details":
		exp.Details = !exp.Details
	}
}

func (m *Model) experimentOn(key string) bool {
	exp := m.Settings.Experiments
	switch key {
	case "reasoning":
		return exp.Reasoning
	case "planning":
		return exp.Planning
	case "verbose":
		return exp.Verbose
	case "details":
		return exp.Details
	}
	return false
}

// submit records the prompt and starts an agent run.
func (m *Model) submit(input string) tea.Cmd {
	if len(m.InputHistory) >= MaxInputHistory {
		m.InputHistory = m.InputHistory[len(m.InputHistory)/2:]
	}
	m.InputHistory = append(m.InputHistory, input)

	content := input
	if m.Settings.Experiments.Planning {
		content += planningDirective
	}
	m.History = append(m.History, backend.Message{Role: models.RoleUser, Content: content})

	m.Messages = append(m.Messages, FormatUserMessage(input, m.Viewport.Width, len(m.Messages) == 0))
	m.Loading = true
	m.ToolActions = nil
	m.UpdateViewport()

	return tea.Batch(m.runAgent(), m.Spinner.Tick)
}

func (m *Model) runAgent() tea.Cmd {
	history := append([]backend.Message(nil), m.History...)
	a := &agent.Agent{
		Backend:  backend.New(m.Settings, m.Keys),
		Executor: m.Executor,
		Notifier: &programNotifier{program: m.Program},
	}
	return func() tea.Msg {
		msgs, outcome, err := a.Run(context.Background(), history)
		return AgentDoneMsg{Messages: msgs, Outcome: outcome, Err: err}
	}
}

func (m *Model) finishRun(msg AgentDoneMsg) (tea.Model, tea.Cmd) {
	m.Loading = false
	m.ExecutingTool = ""
	m.History = msg.Messages

	if msg.Err != nil {
		m.Err = msg.Err
		m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("Error: %v", msg.Err)))
		m.ToolActions = nil
		m.UpdateViewport()
		return m, nil
	}

	outcome := msg.Outcome
	if outcome.HitIterationLimit {
		m.Messages = append(m.Messages, styles.WarnStyle.Render("Max iterations reached"))
		m.ToolActions = nil
		m.UpdateViewport()
		return m, nil
	}

	m.LastModel = outcome.Model
	m.LastTokens = outcome.Tokens
	m.LastElapsed = outcome.Elapsed

	displayContent := outcome.Content
	if m.Renderer != nil {
		if rendered, err := m.Renderer.Render(outcome.Content); err == nil {
			displayContent = strings.TrimSpace(rendered)
		}
	}

	if len(m.ToolActions) > 0 {
		m.Messages = append(m.Messages, FormatAIMessageWithTools(FormatToolActions(m.ToolActions), displayContent))
	} else {
		m.Messages = append(m.Messages, FormatAIMessage(displayContent))
	}
	if m.Settings.Experiments.Details {
		m.Messages = append(m.Messages, m.detailsFooter(outcome))
	}
	m.ToolActions = nil
	m.UpdateViewport()
	return m, nil
}

func (m *Model) detailsFooter(outcome *agent.Outcome) string {
	line := fmt.Sprintf("%s | %d tokens | %.1fs | ctx: %d",
		outcome.Model, outcome.Tokens, float64(outcome.Elapsed)/1000, m.ContextTokens())
	return styles.ToolDetailStyle.Render(strings.Repeat("─", 41) + "\n" + line)
}

func (m *Model) saveSettings() {
	if err := config.SaveSettings(m.ConfigDir, m.Settings); err != nil {
		m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("Settings error: %v", err)))
	}
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}

func (m *Model) updateInputLayout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}

	inputWidth := m.WindowWidth - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	contentWidth := inputWidth - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	maxInputHeight := 6
	lineCount := WrappedLineCount(m.TextInput.Value(), contentWidth)
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > maxInputHeight {
		lineCount = maxInputHeight
	}

	m.TextInput.MaxHeight = maxInputHeight
	m.TextInput.SetWidth(inputWidth)
	m.TextInput.SetHeight(lineCount)

	inputBoxHeight := m.TextInput.Height() + 2
	reserved := inputBoxHeight + 5
	viewportHeight := m.WindowHeight - reserved
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.Viewport.Height = viewportHeight
}

// ResetSession drops the conversation, the TODO list, and the trust
// latch.
func (m *Model) ResetSession() {
	m.Messages = []string{}
	m.History = []backend.Message{{Role: models.RoleSystem, Content: SystemPrompt}}
	m.ToolActions = nil
	m.TodoBox = ""
	m.Err = nil
	m.LastModel = ""
	m.LastTokens = 0
	m.LastElapsed = 0
	if m.Executor != nil {
		m.Executor.ResetTrust()
	}
	if m.Todos != nil {
		m.Todos.Clear()
	}
	m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
	m.Viewport.GotoTop()
	m.TextInput.Reset()
	m.updateInputLayout()
}
