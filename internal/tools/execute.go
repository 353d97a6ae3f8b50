package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"lumis/internal/config"
)

const (
	// Whole-file reads above this size are refused in favor of line
	// ranges, unless the file is so large the hard cap kicks in.
	largeFileThreshold = 400000
	// Hard cap on bytes returned by a single read.
	maxReadBytes = 500000

	defaultCommandTimeout = 60
	maxCommandTimeout     = 120
	maxCommandOutput      = 10000

	maxListDepth     = 3
	maxEntriesPerDir = 100
	maxListEntries   = 200

	maxSearchMatches = 50
	maxSearchLineLen = 120
)

// Decision is the outcome of a permission prompt.
type Decision int

const (
	Deny Decision = iota
	AllowOnce
	AllowAll
)

// Gate approves destructive tool calls. Implementations block until
// the user answers.
type Gate interface {
	Request(tool, target string) Decision
}

// Result is the outcome of one tool execution. Exactly one of Result
// or Error is meaningful depending on OK.
type Result struct {
	Tool      string
	OK        bool
	Result    string
	Error     string
	Truncated bool
}

func success(tool, text string) Result {
	return Result{Tool: tool, OK: true, Result: text}
}

func failure(tool, msg string) Result {
	return Result{Tool: tool, OK: false, Error: msg}
}

var destructiveTools = map[string]bool{
	"write_file":  true,
	"edit_file":   true,
	"patch_file":  true,
	"delete_file": true,
	"run_command": true,
}

// Executor validates and routes tool calls to their handlers. It is
// driven from the single agent-loop goroutine; the trust latch needs
// no locking.
type Executor struct {
	gate    Gate
	todos   *TodoStore
	homeDir string
	trusted bool
}

func NewExecutor(gate Gate, todos *TodoStore) *Executor {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Executor{gate: gate, todos: todos, homeDir: home}
}

// Trusted reports whether the session-wide blanket permission is set.
func (e *Executor) Trusted() bool { return e.trusted }

// ResetTrust drops the blanket permission, e.g. on conversation reset.
func (e *Executor) ResetTrust() { e.trusted = false }

// Execute runs a single tool call. It never returns a Go error; every
// failure is captured in the Result.
func (e *Executor) Execute(call Call) Result {
	tool := call.Name()
	if tool == "" {
		return failure("action", "Invalid tool format")
	}

	if destructiveTools[tool] && !e.trusted {
		target := call.str("path")
		if target == "" {
			target = truncateRunes(call.str("command"), 60)
		}
		switch e.gate.Request(tool, target) {
		case AllowAll:
			e.trusted = true
		case AllowOnce:
		default:
			return failure(tool, "Denied by user")
		}
	}

	start := time.Now()
	config.Debugf("executing %s", tool)
	res := e.dispatch(tool, call)
	config.Debugf("%s finished in %s (ok=%v)", tool, time.Since(start).Round(time.Millisecond), res.OK)
	return res
}

func (e *Executor) dispatch(tool string, call Call) Result {
	switch tool {
	case "read_file":
		return e.readFile(call)
	case "write_file":
		return e.writeFile(call)
	case "edit_file":
		return e.editFile(call)
	case "patch_file":
		return e.patchFile(call)
	case "run_command":
		return e.runCommand(call)
	case "list_dir":
		return e.listDir(call)
	case "search_file":
		return e.searchFile(call)
	case "delete_file":
		return e.deleteFile(call)
	case "todo":
		return e.todos.Apply(call)
	default:
		return failure(tool, "Unknown tool: "+tool)
	}
}

// resolvePath expands a leading ~ and makes the path absolute before
// any existence or type check.
func (e *Executor) resolvePath(path string) string {
	if path == "~" {
		return e.homeDir
	}
	if strings.HasPrefix(path, "~/") {
		path = filepath.Join(e.homeDir, path[2:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func (e *Executor) readFile(call Call) Result {
	path := call.str("path")
	if path == "" {
		return failure("read_file", "No path")
	}
	p := e.resolvePath(path)

	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return failure("read_file", "Not found: "+p)
		}
		return failure("read_file", "Permission denied: "+p)
	}
	if info.IsDir() {
		return failure("read_file", "Is directory: "+p)
	}

	startLine, hasStart := call.intField("start_line")
	endLine, hasEnd := call.intField("end_line")

	// Mid-sized files still demand a line range; truly oversized ones
	// fall through to the hard cap below.
	if !hasStart && info.Size() > largeFileThreshold && info.Size() <= maxReadBytes {
		return failure("read_file",
			"File > 400KB. Use 'search_file' to locate relevant code, then 'read_file' with start_line/end_line to read specific sections.")
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return failure("read_file", "Permission denied: "+p)
	}
	if !utf8.Valid(data) {
		return failure("read_file", "Binary file, cannot read as text")
	}

	if hasStart {
		lines := splitKeepNewlines(string(data))
		startIdx := startLine - 1
		if startIdx < 0 {
			startIdx = 0
		}
		if startIdx >= len(lines) {
			return failure("read_file", fmt.Sprintf("Start line %d out of range (max %d)", startLine, len(lines)))
		}
		endIdx := len(lines)
		if hasEnd && endLine < endIdx {
			endIdx = endLine
		}
		if endIdx < startIdx {
			endIdx = startIdx
		}
		return success("read_file", strings.Join(lines[startIdx:endIdx], ""))
	}

	if len(data) > maxReadBytes {
		res := success("read_file", string(data[:maxReadBytes]))
		res.Truncated = true
		return res
	}
	return success("read_file", string(data))
}

func (e *Executor) writeFile(call Call) Result {
	path := call.str("path")
	if path == "" {
		return failure("write_file", "No path")
	}
	content, ok := call["content"].(string)
	if !ok {
		return failure("write_file", "No content")
	}
	p := e.resolvePath(path)

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return failure("write_file", "Write failed: "+err.Error())
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		if os.IsPermission(err) {
			return failure("write_file", "Permission denied: "+p)
		}
		return failure("write_file", "Write failed: "+err.Error())
	}
	return success("write_file", fmt.Sprintf("Written: %s (%d bytes)", p, len(content)))
}

func (e *Executor) editFile(call Call) Result {
	path := call.str("path")
	if path == "" {
		return failure("edit_file", "No path")
	}
	p := e.resolvePath(path)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return failure("edit_file", "Not found: "+p)
	}
	edits := call.list("edits")
	if len(edits) == 0 {
		return failure("edit_file", "No edits")
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return failure("edit_file", "Permission denied: "+p)
	}
	content := string(data)

	changes := 0
	for _, raw := range edits {
		edit, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		find, _ := edit["find"].(string)
		if find == "" || !strings.Contains(content, find) {
			continue
		}
		replace, _ := edit["replace"].(string)
		content = strings.Replace(content, find, replace, 1)
		changes++
	}
	if changes == 0 {
		return failure("edit_file", "No matches found")
	}

	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return failure("edit_file", "Permission denied: "+p)
	}
	return success("edit_file", fmt.Sprintf("Edited: %s (%d changes)", p, changes))
}

func (e *Executor) patchFile(call Call) Result {
	path := call.str("path")
	if path == "" {
		return failure("patch_file", "No path")
	}
	p := e.resolvePath(path)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return failure("patch_file", "Not found: "+p)
	}
	patches := call.list("patches")
	if len(patches) == 0 {
		return failure("patch_file", "No patches")
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return failure("patch_file", "Permission denied: "+p)
	}
	lines := splitKeepNewlines(string(data))
	if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
		lines[n-1] += "\n"
	}

	type patch struct {
		line    int
		action  string
		content string
	}
	var ordered []patch
	for _, raw := range patches {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		pt := patch{action: "replace"}
		if f, ok := m["line"].(float64); ok {
			pt.line = int(f)
		}
		if a, ok := m["action"].(string); ok && a != "" {
			pt.action = a
		}
		if c, ok := m["content"].(string); ok {
			pt.content = c
		}
		if pt.content != "" && !strings.HasSuffix(pt.content, "\n") {
			pt.content += "\n"
		}
		ordered = append(ordered, pt)
	}
	// Descending line order so earlier patches cannot shift the
	// indices consumed by later ones.
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].line > ordered[j].line })

	changes := 0
	for _, pt := range ordered {
		idx := pt.line - 1
		switch {
		case pt.action == "delete":
			if idx >= 0 && idx < len(lines) {
				lines = append(lines[:idx], lines[idx+1:]...)
				changes++
			}
		case idx >= 0 && idx < len(lines):
			switch pt.action {
			case "replace":
				lines[idx] = pt.content
				changes++
			case "insert_after":
				lines = append(lines[:idx+1], append([]string{pt.content}, lines[idx+1:]...)...)
				changes++
			case "insert_before":
				lines = append(lines[:idx], append([]string{pt.content}, lines[idx:]...)...)
				changes++
			}
		case idx == len(lines) && (pt.action == "insert_after" || pt.action == "insert_before"):
			lines = append(lines, pt.content)
			changes++
		}
	}

	if err := os.WriteFile(p, []byte(strings.Join(lines, "")), 0o644); err != nil {
		return failure("patch_file", "Permission denied: "+p)
	}
	return success("patch_file", fmt.Sprintf("Patched: %s (%d changes)", p, changes))
}

func (e *Executor) runCommand(call Call) Result {
	command := call.str("command")
	if command == "" {
		return failure("run_command", "No command")
	}
	timeout, ok := call.intField("timeout")
	if !ok || timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	if timeout > maxCommandTimeout {
		timeout = maxCommandTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = e.homeDir
	out, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return failure("run_command", fmt.Sprintf("Timeout (%ds)", timeout))
	}

	output := strings.TrimSpace(string(out))
	if len(output) > maxCommandOutput {
		output = output[:maxCommandOutput] + "\n... (truncated)"
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := fmt.Sprintf("Exit code %d", exitErr.ExitCode())
			if output != "" {
				msg += ":\n" + output
			}
			return failure("run_command", msg)
		}
		return failure("run_command", "Command failed: "+err.Error())
	}

	if output == "" {
		output = "(no output)"
	}
	return success("run_command", output)
}

func (e *Executor) listDir(call Call) Result {
	path := call.str("path")
	if path == "" {
		path = "."
	}
	p := e.resolvePath(path)

	info, err := os.Stat(p)
	if err != nil {
		return failure("list_dir", "Not found: "+p)
	}
	if !info.IsDir() {
		return failure("list_dir", "Not a directory: "+p)
	}

	depth, ok := call.intField("depth")
	if !ok || depth < 1 {
		depth = 1
	}
	if depth > maxListDepth {
		depth = maxListDepth
	}

	var items []string
	var walk func(dir string, level int, prefix string)
	walk = func(dir string, level int, prefix string) {
		if level > depth || len(items) >= maxListEntries {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			items = append(items, prefix+"(permission denied)")
			return
		}
		// Directories first, then case-insensitive name order.
		sort.SliceStable(entries, func(i, j int) bool {
			di, dj := entries[i].IsDir(), entries[j].IsDir()
			if di != dj {
				return di
			}
			return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
		})
		if len(entries) > maxEntriesPerDir {
			entries = entries[:maxEntriesPerDir]
		}
		for _, entry := range entries {
			if len(items) >= maxListEntries {
				return
			}
			if entry.IsDir() {
				items = append(items, prefix+"[DIR]  "+entry.Name()+"/")
				if level < depth {
					walk(filepath.Join(dir, entry.Name()), level+1, prefix+"  ")
				}
			} else {
				items = append(items, prefix+"[FILE] "+entry.Name())
			}
		}
	}
	walk(p, 1, "")

	if len(items) == 0 {
		return success("list_dir", "(empty)")
	}
	return success("list_dir", strings.Join(items, "\n"))
}

func (e *Executor) searchFile(call Call) Result {
	path := call.str("path")
	if path == "" {
		return failure("search_file", "No path")
	}
	p := e.resolvePath(path)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return failure("search_file", "Not found: "+p)
	}
	pattern := call.str("pattern")
	if pattern == "" {
		return failure("search_file", "No pattern")
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return failure("search_file", "Permission denied: "+p)
	}

	patternLower := strings.ToLower(pattern)
	var matches []string
	for i, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(strings.ToLower(line), patternLower) {
			continue
		}
		matches = append(matches, fmt.Sprintf("%d: %s", i+1, truncateRunes(line, maxSearchLineLen)))
		if len(matches) == maxSearchMatches {
			break
		}
	}
	if len(matches) == 0 {
		return success("search_file", "No matches")
	}
	return success("search_file", strings.Join(matches, "\n"))
}

func (e *Executor) deleteFile(call Call) Result {
	path := call.str("path")
	if path == "" {
		return failure("delete_file", "No path")
	}
	p := e.resolvePath(path)

	info, err := os.Stat(p)
	if err != nil {
		return failure("delete_file", "Not found: "+p)
	}
	if info.IsDir() {
		return failure("delete_file", "Cannot delete directory")
	}
	if err := os.Remove(p); err != nil {
		return failure("delete_file", "Permission denied: "+p)
	}
	return success("delete_file", "Deleted: "+p)
}

// splitKeepNewlines splits content into lines that retain their
// trailing newline, like Python's splitlines(keepends=True).
func splitKeepNewlines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
