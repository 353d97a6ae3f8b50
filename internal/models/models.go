package models

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Backend mode for the chat client
const (
	ModeCloud = "cloud"
	ModeLocal = "local"
)

type AIModel struct {
	Key         string // Short key used in settings and the model menu
	Name        string // Full model identifier sent to the API
	Cost        string
	Description string
}

var CloudModels = []AIModel{
	{Key: "codex", Name: "GPT-5.2-Codex", Cost: "$", Description: "Fast coding"},
	{Key: "grok", Name: "Grok-4.1-Fast-Reasoning", Cost: "$", Description: "Quick reasoning"},
	{Key: "haiku", Name: "Claude-Haiku-4.5", Cost: "$", Description: "Lightweight"},
	{Key: "gpt", Name: "GPT-5.2-Instant", Cost: "$$", Description: "Premium GPT"},
	{Key: "sonnet", Name: "Claude-Sonnet-4.5", Cost: "$$", Description: "Advanced"},
	{Key: "opus", Name: "Claude-Opus-4.5", Cost: "$$$", Description: "Most capable"},
	{Key: "gemini", Name: "Gemini-3-Pro", Cost: "$$", Description: "Google's best"},
}

func FindModel(key string) (AIModel, bool) {
	for _, m := range CloudModels {
		if m.Key == key {
			return m, true
		}
	}
	return AIModel{}, false
}

// ModelName resolves a settings key to the wire model identifier,
// falling back to the default coding model for unknown keys.
func ModelName(key string) string {
	if m, ok := FindModel(key); ok {
		return m.Name
	}
	return CloudModels[0].Name
}

type ConversationItem struct {
	Name          string
	UpdatedAtUnix int64
	MessageCount  int
}
