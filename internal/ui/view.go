package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"lumis/internal/models"
	"lumis/internal/styles"
)

func GetWelcomeScreen(width, height int) string {
	art := `
    ██╗     ██╗   ██╗███╗   ███╗██╗███████╗
    ██║     ██║   ██║████╗ ████║██║██╔════╝
    ██║     ██║   ██║██╔████╔██║██║███████╗
    ██║     ██║   ██║██║╚██╔╝██║██║╚════██║
    ███████╗╚██████╔╝██║ ╚═╝ ██║██║███████║
    ╚══════╝ ╚═════╝ ╚═╝     ╚═╝╚═╝╚══════╝
`
	subtitle := "AI Terminal Agent • Type /help for commands"

	styledArt := styles.WelcomeArtStyle.Render(art)
	styledSubtitle := styles.WelcomeSubtitleStyle.Render(subtitle)

	content := lipgloss.JoinVertical(lipgloss.Center, styledArt, "", styledSubtitle)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) UpdateViewport() {
	if len(m.Messages) == 0 && !m.Loading {
		m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
		return
	}

	content := strings.Join(m.Messages, "\n\n")
	if m.TodoBox != "" {
		content = content + "\n\n" + m.TodoBox
	}
	if m.Loading {
		statusText := " Thinking..."
		if m.ExecutingTool != "" {
			statusText = fmt.Sprintf(" %s...", m.ExecutingTool)
		}

		var loadingParts []string
		loadingParts = append(loadingParts, styles.AiLabelStyle.Render("LUMIS"))
		if len(m.ToolActions) > 0 {
			loadingParts = append(loadingParts, FormatToolActions(m.ToolActions))
		}
		loadingParts = append(loadingParts, fmt.Sprintf("%s%s", m.Spinner.View(), statusText))

		loadingMsg := strings.Join(loadingParts, "\n")
		if len(m.Messages) > 0 {
			content = content + "\n\n" + loadingMsg
		} else {
			content = loadingMsg
		}
	}
	m.Viewport.SetContent(content)
	m.Viewport.GotoBottom()
}

func (m *Model) View() string {
	inputWidth := m.WindowWidth - 4
	inputBox := styles.InputBoxStyle.Width(inputWidth).Render(m.TextInput.View())

	chatContent := lipgloss.JoinVertical(lipgloss.Center,
		styles.TitleStyle.Render("LUMIS"),
		"",
		m.Viewport.View(),
		"",
		inputBox,
	)
	chatArea := lipgloss.PlaceHorizontal(m.WindowWidth, lipgloss.Center, chatContent)
	content := lipgloss.JoinVertical(lipgloss.Left, chatArea, m.RenderBottomBar())

	if m.Modal != modalNone {
		modal := styles.ModalStyle.Width(m.ModalWidth).Render(m.renderModal())
		return lipgloss.Place(
			m.WindowWidth,
			m.WindowHeight,
			lipgloss.Center,
			lipgloss.Center,
			modal,
		)
	}

	return content
}

func (m *Model) renderModal() string {
	switch m.Modal {
	case modalPermission:
		return m.renderPermissionModal()
	case modalModels:
		return m.renderModelSelector()
	case modalLocalModels:
		return m.renderLocalModelSelector()
	case modalExperiments:
		return m.renderExperimentSelector()
	case modalConversations:
		return m.renderConversationSelector()
	}
	return ""
}

func (m *Model) renderPermissionModal() string {
	if m.Permission == nil {
		return ""
	}
	msg := m.Permission.Tool
	if m.Permission.Target != "" {
		msg += " → " + m.Permission.Target
	}
	title := styles.PermissionTitleStyle.Render("⚠ " + msg)

	options := []string{
		styles.ModalItemStyle.Render("y / Enter  Allow"),
		styles.ModalItemStyle.Render("t          Allow all (trust session)"),
		styles.ModalItemStyle.Render("n / Esc    Deny"),
	}
	body := lipgloss.JoinVertical(lipgloss.Left, options...)

	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (m *Model) renderModelSelector() string {
	title := styles.ModalTitleStyle.Render("Select Model")

	var items []string
	for i, mdl := range models.CloudModels {
		cost := mdl.Cost
		if c, ok := styles.CostColors[cost]; ok {
			cost = lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Render(cost)
		}
		marker := "  "
		if mdl.Key == m.Settings.Model {
			marker = "● "
		}
		line := fmt.Sprintf("%s%-26s %s %s", marker, mdl.Name, cost, styles.InfoStyle(mdl.Description))
		if i == m.SelectedIndex {
			items = append(items, styles.ModalSelectedStyle.Render(line))
		} else {
			items = append(items, styles.ModalItemStyle.Render(line))
		}
	}

	return m.selectorLayout(title, items, "↑/↓: navigate • Enter: select • Esc: close")
}

func (m *Model) renderLocalModelSelector() string {
	title := styles.ModalTitleStyle.Render("Ollama Model")

	var items []string
	for i, name := range m.LocalModels {
		marker := "  "
		if name == m.Settings.OllamaModel {
			marker = "● "
		}
		if i == m.SelectedIndex {
			items = append(items, styles.ModalSelectedStyle.Render(marker+name))
		} else {
			items = append(items, styles.ModalItemStyle.Render(marker+name))
		}
	}

	return m.selectorLayout(title, items, "↑/↓: navigate • Enter: select • Esc: close")
}

func (m *Model) renderExperimentSelector() string {
	title := styles.ModalTitleStyle.Render("Experiments")

	var items []string
	for i, e := range ExperimentInfo {
		state := styles.InfoStyle("OFF")
		if m.experimentOn(e.Key) {
			state = styles.SuccessStyle.Render("ON ")
		}
		line := fmt.Sprintf("%s %-18s %s", state, e.Name, styles.InfoStyle(e.Desc))
		line = TruncateRunes(line, styles.ContentWidth-2)
		if i == m.SelectedIndex {
			items = append(items, styles.ModalSelectedStyle.Render(line))
		} else {
			items = append(items, styles.ModalItemStyle.Render(line))
		}
	}
	done := "Done"
	if m.SelectedIndex == len(ExperimentInfo) {
		items = append(items, styles.ModalSelectedStyle.Render(done))
	} else {
		items = append(items, styles.ModalItemStyle.Render(done))
	}

	return m.selectorLayout(title, items, "Enter: toggle • Esc: close")
}

func (m *Model) renderConversationSelector() string {
	title := styles.ModalTitleStyle.Render("Load Conversation")

	var items []string
	for i, conv := range m.Conversations {
		timeStr := RelativeTime(time.Unix(conv.UpdatedAtUnix, 0))
		name := TruncateRunes(conv.Name, styles.ContentWidth-len(timeStr)-10)
		line := fmt.Sprintf("%s (%d msgs) %s", name, conv.MessageCount, styles.InfoStyle(timeStr))
		if i == m.SelectedIndex {
			items = append(items, styles.ModalSelectedStyle.Render(line))
		} else {
			items = append(items, styles.ModalItemStyle.Render(line))
		}
	}

	return m.selectorLayout(title, items, "↑/↓: navigate • Enter: open • Esc: close")
}

func (m *Model) selectorLayout(title string, items []string, hintText string) string {
	body := lipgloss.JoinVertical(lipgloss.Left, items...)
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render(hintText)
	return lipgloss.JoinVertical(lipgloss.Left, title, body, hint)
}

func (m *Model) RenderBottomBar() string {
	modeBadge := "CLOUD"
	modeColor := "#81D4FA"
	modelName := models.ModelName(m.Settings.Model)
	if m.Settings.Mode == models.ModeLocal {
		modeBadge = "LOCAL"
		modeColor = "#A5D6A7"
		modelName = m.Settings.OllamaModel
	}
	mode := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(modeColor)).
		Padding(0, 1).
		Render(modeBadge)

	model := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#81D4FA")).
		Render(TruncateRunes(modelName, 25))

	keys := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(fmt.Sprintf("Keys:%d", len(m.Keys)))

	ctx := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666666")).
		Render(fmt.Sprintf("ctx:%d", m.ContextTokens()))

	trust := ""
	if m.Executor != nil && m.Executor.Trusted() {
		trust = styles.WarnStyle.Render("TRUSTED")
	}

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#555555")).
		Render("/help")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, mode, "  ", model)
	rightParts := []string{ctx, "  ", keys}
	if trust != "" {
		rightParts = append(rightParts, "  ", trust)
	}
	rightParts = append(rightParts, "  ", help)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Center, rightParts...)

	availableWidth := m.WindowWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide) - 2
	if availableWidth < 0 {
		availableWidth = 0
	}
	spacer := strings.Repeat(" ", availableWidth)

	bar := lipgloss.JoinHorizontal(lipgloss.Center, leftSide, spacer, rightSide)

	return lipgloss.NewStyle().
		Width(m.WindowWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(0, 1).
		Render(bar)
}
