package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"lumis/internal/backend"
	"lumis/internal/db"
	"lumis/internal/models"
	"lumis/internal/styles"
)

// handleCommand runs a slash command. The second return reports
// whether the input named a known command.
func (m *Model) handleCommand(input string) (tea.Cmd, bool) {
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/exit":
		return tea.Quit, true

	case "/help":
		m.Messages = append(m.Messages, renderHelp())
		return nil, true

	case "/model", "/models":
		if m.Settings.Mode == models.ModeLocal {
			return m.localModelsCmd(), true
		}
		m.Modal = modalModels
		m.SelectedIndex = 0
		for i, mdl := range models.CloudModels {
			if mdl.Key == m.Settings.Model {
				m.SelectedIndex = i
			}
		}
		return nil, true

	case "/local":
		return m.ollamaSwitchCmd(), true

	case "/cloud":
		m.Settings.Mode = models.ModeCloud
		m.saveSettings()
		m.Messages = append(m.Messages, styles.SuccessStyle.Render("✓ Switched to Poe"))
		return nil, true

	case "/doctor":
		m.Messages = append(m.Messages, styles.InfoStyle("Running diagnostics..."))
		return m.doctorCmd(), true

	case "/clear":
		m.Messages = []string{}
		return nil, true

	case "/history":
		m.Messages = append(m.Messages, m.renderInputHistory())
		return nil, true

	case "/reset":
		m.ResetSession()
		m.Messages = append(m.Messages, styles.SuccessStyle.Render("✓ Reset"))
		return nil, true

	case "/experiments":
		m.Modal = modalExperiments
		m.SelectedIndex = 0
		return nil, true

	case "/status":
		m.Messages = append(m.Messages, m.renderStatus())
		return nil, true

	case "/save":
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		m.saveConversation(name)
		return nil, true

	case "/load":
		if len(args) > 0 {
			m.loadConversation(args[0])
			return nil, true
		}
		m.openConversationSelector()
		return nil, true
	}

	return nil, false
}

func renderHelp() string {
	var sb strings.Builder
	sb.WriteString(styles.TitleStyle.Render("Commands"))
	sb.WriteString("\n")
	for _, c := range Commands {
		sb.WriteString(fmt.Sprintf("  %-14s %s\n", c.Name, styles.InfoStyle(c.Desc)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *Model) renderStatus() string {
	var sb strings.Builder
	sb.WriteString(styles.TitleStyle.Render("Status"))
	sb.WriteString("\n")
	if m.Settings.Mode == models.ModeLocal {
		sb.WriteString("  Mode        Local (Ollama)\n")
		sb.WriteString("  Model       " + m.Settings.OllamaModel + "\n")
	} else {
		sb.WriteString("  Mode        Cloud (Poe)\n")
		sb.WriteString("  Model       " + models.ModelName(m.Settings.Model) + "\n")
	}
	var on []string
	for _, e := range ExperimentInfo {
		if m.experimentOn(e.Key) {
			on = append(on, e.Key)
		}
	}
	if len(on) == 0 {
		sb.WriteString("  Experiments " + styles.InfoStyle("None"))
	} else {
		sb.WriteString("  Experiments " + styles.InfoStyle(strings.Join(on, ", ")))
	}
	return sb.String()
}

func (m *Model) renderInputHistory() string {
	if len(m.InputHistory) == 0 {
		return styles.InfoStyle("No history")
	}
	start := len(m.InputHistory) - HistoryPreviewCount
	if start < 0 {
		start = 0
	}
	var lines []string
	for _, h := range m.InputHistory[start:] {
		lines = append(lines, styles.InfoStyle("▸ "+TruncateRunes(h, 60)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) saveConversation(name string) {
	if m.DBErr != nil || m.DB == nil {
		m.Messages = append(m.Messages, styles.ErrorStyle.Render("Conversation store unavailable"))
		return
	}
	if name == "" {
		name = time.Now().Format("20060102_150405")
	}
	msgs := make([]db.Message, len(m.History))
	for i, h := range m.History {
		msgs[i] = db.Message{Role: h.Role, Content: h.Content}
	}
	if err := db.SaveConversation(m.DB, name, msgs, time.Now().Unix()); err != nil {
		m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("Save failed: %v", err)))
		return
	}
	m.Messages = append(m.Messages, styles.SuccessStyle.Render("✓ Saved: "+name))
}

func (m *Model) loadConversation(name string) {
	if m.DBErr != nil || m.DB == nil {
		m.Messages = append(m.Messages, styles.ErrorStyle.Render("Conversation store unavailable"))
		return
	}
	msgs, err := db.LoadConversation(m.DB, name)
	if err != nil {
		m.Messages = append(m.Messages, styles.ErrorStyle.Render("Not found"))
		return
	}

	m.History = make([]backend.Message, len(msgs))
	for i, msg := range msgs {
		m.History[i] = backend.Message{Role: msg.Role, Content: msg.Content}
	}
	m.Messages = []string{}
	for _, msg := range msgs {
		switch msg.Role {
		case models.RoleUser:
			m.Messages = append(m.Messages, FormatUserMessage(msg.Content, m.Viewport.Width, len(m.Messages) == 0))
		case models.RoleAssistant:
			displayContent := msg.Content
			if m.Renderer != nil {
				if rendered, rerr := m.Renderer.Render(msg.Content); rerr == nil {
					displayContent = strings.TrimSpace(rendered)
				}
			}
			m.Messages = append(m.Messages, FormatAIMessage(displayContent))
		}
	}
	m.Messages = append(m.Messages, styles.SuccessStyle.Render("✓ Loaded"))
}

func (m *Model) openConversationSelector() {
	if m.DBErr != nil || m.DB == nil {
		m.Messages = append(m.Messages, styles.ErrorStyle.Render("Conversation store unavailable"))
		return
	}
	items, err := db.ListConversations(m.DB, HistoryPreviewCount)
	if err != nil {
		m.Messages = append(m.Messages, styles.ErrorStyle.Render(fmt.Sprintf("History error: %v", err)))
		return
	}
	if len(items) == 0 {
		m.Messages = append(m.Messages, styles.InfoStyle("No saved conversations"))
		return
	}
	m.Conversations = items
	m.Modal = modalConversations
	m.SelectedIndex = 0
}

func (m *Model) ollamaSwitchCmd() tea.Cmd {
	host, model := m.Settings.OllamaHost, m.Settings.OllamaModel
	return func() tea.Msg {
		client := backend.NewOllamaClient(host, model)
		ctx := context.Background()
		if !client.Reachable(ctx) {
			return OllamaSwitchMsg{}
		}
		names, _ := client.ListModels(ctx)
		return OllamaSwitchMsg{Reachable: true, Models: names}
	}
}

func (m *Model) localModelsCmd() tea.Cmd {
	host, model := m.Settings.OllamaHost, m.Settings.OllamaModel
	return func() tea.Msg {
		client := backend.NewOllamaClient(host, model)
		names, err := client.ListModels(context.Background())
		return LocalModelsMsg{Models: names, Err: err}
	}
}

// doctorCmd probes keys, the Ollama server, and the Poe endpoint, then
// reports the results as one block.
func (m *Model) doctorCmd() tea.Cmd {
	settings := *m.Settings
	keys := m.Keys
	configDir := m.ConfigDir
	return func() tea.Msg {
		var sb strings.Builder
		sb.WriteString(styles.TitleStyle.Render("Diagnostics"))
		sb.WriteString("\n")

		mark := func(ok bool) string {
			if ok {
				return styles.SuccessStyle.Render("●")
			}
			return styles.InfoStyle("○")
		}

		sb.WriteString(fmt.Sprintf("  API Keys    %s %d/5\n", mark(len(keys) > 0), len(keys)))
		sb.WriteString("  Config      " + configDir + "\n")

		ollama := backend.NewOllamaClient(settings.OllamaHost, settings.OllamaModel)
		if ollama.Reachable(context.Background()) {
			sb.WriteString("  Ollama      " + styles.SuccessStyle.Render("● Running") + "\n")
		} else {
			sb.WriteString("  Ollama      " + styles.InfoStyle("○ Not running") + "\n")
		}

		if len(keys) > 0 {
			probe := backend.NewPoeClient(keys[:1], models.CloudModels[0], settings.Experiments)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_, err := probe.Chat(ctx, []backend.Message{{Role: models.RoleUser, Content: "hi"}})
			cancel()
			if err != nil {
				sb.WriteString("  Poe API     " + styles.ErrorStyle.Render("○ Failed"))
			} else {
				sb.WriteString("  Poe API     " + styles.SuccessStyle.Render("● Connected"))
			}
		}

		return DoctorMsg{Report: strings.TrimRight(sb.String(), "\n")}
	}
}
