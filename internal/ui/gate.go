package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"lumis/internal/tools"
)

// programGate bridges the executor's permission check into the
// bubbletea event loop. It runs on the agent goroutine and blocks
// until the Update loop answers through the reply channel.
type programGate struct {
	program *tea.Program
}

func (g *programGate) Request(tool, target string) tools.Decision {
	reply := make(chan tools.Decision, 1)
	g.program.Send(PermissionRequestMsg{Tool: tool, Target: target, Reply: reply})
	return <-reply
}

// programNotifier forwards tool progress to the UI.
type programNotifier struct {
	program *tea.Program
}

func (n *programNotifier) ToolStarted(name string) {
	n.program.Send(ToolCallMsg{Name: name})
}

func (n *programNotifier) ToolFinished(res tools.Result) {
	n.program.Send(ToolResultMsg{Result: res})
}
