package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"lumis/internal/styles"
	"lumis/internal/tools"
)

func FormatUserMessage(content string, width int, isFirst bool) string {
	label := styles.UserLabelStyle.Render("YOU")
	msg := styles.UserMsgStyle.Width(width - 4).Render(content)
	if isFirst {
		return fmt.Sprintf("\n%s\n%s", label, msg)
	}
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatAIMessage(content string) string {
	label := styles.AiLabelStyle.Render("LUMIS")
	msg := styles.AiMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatAIMessageWithTools(toolDisplay, content string) string {
	label := styles.AiLabelStyle.Render("LUMIS")
	msg := styles.AiMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s\n%s", label, toolDisplay, msg)
}

// FormatToolActions renders each executed tool with a short result
// preview, eliding anything past a few lines.
func FormatToolActions(actions []tools.Result) string {
	var lines []string
	for _, action := range actions {
		icon := styles.ToolIconStyle.Render("⚡")
		name := styles.ToolNameStyle.Render(action.Tool)
		lines = append(lines, styles.ToolActionStyle.Render(fmt.Sprintf("%s %s", icon, name)))

		preview := action.Result
		if !action.OK {
			preview = "✗ " + action.Error
		}
		previewLines := strings.Split(preview, "\n")
		shown := previewLines
		if len(shown) > ToolResultPreviewLines {
			shown = shown[:ToolResultPreviewLines]
		}
		for _, line := range shown {
			lines = append(lines, styles.ToolDetailStyle.Render("    "+TruncateRunes(line, 80)))
		}
		if len(previewLines) > ToolResultPreviewLines {
			lines = append(lines, styles.ToolDetailStyle.Render("    ..."))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderTodoBox draws the task list with checkmarks and a progress
// bar.
func RenderTodoBox(list tools.TodoList) string {
	if len(list.Items) == 0 {
		return ""
	}

	var lines []string
	lines = append(lines, styles.TitleStyle.Render(list.Title))
	for i, item := range list.Items {
		task := TruncateRunes(item.Task, 45)
		if item.Done {
			lines = append(lines, styles.TodoDoneStyle.Render(fmt.Sprintf("✓ %d. %s", i+1, task)))
		} else {
			lines = append(lines, styles.TodoPendingStyle.Render(fmt.Sprintf("○ %d. %s", i+1, task)))
		}
	}

	const barWidth = 31
	filled := 0
	if len(list.Items) > 0 {
		filled = barWidth * list.DoneCount() / len(list.Items)
	}
	bar := styles.TodoDoneStyle.Render(strings.Repeat("█", filled)) +
		styles.ToolDetailStyle.Render(strings.Repeat("░", barWidth-filled))
	lines = append(lines, bar)

	return styles.TodoBoxStyle.Render(strings.Join(lines, "\n"))
}

func WrappedLineCount(value string, width int) int {
	if width <= 0 {
		return 1
	}
	lines := strings.Split(value, "\n")
	if len(lines) == 0 {
		return 1
	}
	count := 0
	for _, line := range lines {
		w := runewidth.StringWidth(line)
		if w == 0 {
			count++
			continue
		}
		count += (w-1)/width + 1
	}
	return count
}

func PromptPreview(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.Join(strings.Fields(s), " ")
	const maxRunes = 500
	r := []rune(s)
	if len(r) > maxRunes {
		return string(r[:maxRunes])
	}
	return s
}

func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

func RelativeTime(t time.Time) string {
	d := time.Since(t)
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", mins)
	}
	if d < 24*time.Hour {
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1 hr ago"
		}
		return fmt.Sprintf("%d hrs ago", hrs)
	}
	days := int(d.Hours() / 24)
	if days < 14 {
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
	weeks := days / 7
	if weeks == 1 {
		return "1 week ago"
	}
	return fmt.Sprintf("%d weeks ago", weeks)
}
