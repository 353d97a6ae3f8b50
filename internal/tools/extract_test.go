package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFencedBlocks(t *testing.T) {
	text := "I'll read the file first.\n" +
		"```json\n{\"tool\": \"read_file\", \"path\": \"/tmp/a.txt\"}\n```\n" +
		"Then list the directory:\n" +
		"```\n{\"tool\": \"list_dir\", \"path\": \"/tmp\"}\n```\n"

	calls := Extract(text)
	require.Len(t, calls, 2)
	assert.Equal(t, "read_file", calls[0].Name())
	assert.Equal(t, "list_dir", calls[1].Name())
}

func TestExtractFencedBlockAnyLanguageTag(t *testing.T) {
	text := "```python\n{\"tool\": \"run_command\", \"command\": \"ls\"}\n```"
	calls := Extract(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "run_command", calls[0].Name())
}

func TestExtractToolTags(t *testing.T) {
	text := "Running it now: <tool>{\"tool\": \"run_command\", \"command\": \"uptime\"}</tool> done."
	calls := Extract(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "uptime", calls[0].str("command"))
}

func TestExtractDeduplicatesExactPayloads(t *testing.T) {
	block := "```json\n{\"tool\": \"read_file\", \"path\": \"/tmp/a\"}\n```\n"
	calls := Extract(block + "again:\n" + block)
	assert.Len(t, calls, 1)
}

func TestExtractDeduplicatesAcrossEncodings(t *testing.T) {
	// Same payload with different key order still collapses: the dedup
	// key is the key-sorted serialization.
	text := "```json\n{\"tool\": \"read_file\", \"path\": \"/tmp/a\"}\n```\n" +
		"<tool>{\"path\": \"/tmp/a\", \"tool\": \"read_file\"}</tool>"
	calls := Extract(text)
	assert.Len(t, calls, 1)
}

func TestExtractOrderMatchesFirstOccurrence(t *testing.T) {
	text := "```json\n{\"tool\": \"a_tool\"}\n```\n" +
		"```json\n{\"tool\": \"b_tool\"}\n```\n" +
		"```json\n{\"tool\": \"a_tool\"}\n```\n"
	calls := Extract(text)
	require.Len(t, calls, 2)
	assert.Equal(t, "a_tool", calls[0].Name())
	assert.Equal(t, "b_tool", calls[1].Name())
}

func TestExtractBareJSONOnlyWhenNothingElseFound(t *testing.T) {
	bare := `{"tool": "delete_file", "path": "/tmp/x"}`

	calls := Extract("Please run " + bare + " now.")
	require.Len(t, calls, 1)
	assert.Equal(t, "delete_file", calls[0].Name())

	// A fenced block suppresses the bare scan entirely.
	withFence := "```json\n{\"tool\": \"read_file\", \"path\": \"/tmp/a\"}\n```\n" + bare
	calls = Extract(withFence)
	require.Len(t, calls, 1)
	assert.Equal(t, "read_file", calls[0].Name())
}

func TestExtractBareJSONBraceBalancing(t *testing.T) {
	text := `Sure: {"tool": "edit_file", "path": "/tmp/a", "edits": [{"find": "x", "replace": "y"}]} and then some trailing prose.`
	calls := Extract(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "edit_file", calls[0].Name())
	require.Len(t, calls[0].list("edits"), 1)
}

func TestExtractBareJSONSkipsInlineCode(t *testing.T) {
	text := "Use `" + `{"tool": "read_file", "path": "/x"}` + "` as the format."
	assert.Empty(t, Extract(text))
}

func TestExtractDropsMalformedCandidates(t *testing.T) {
	text := "```json\n{\"tool\": \"read_file\", \"path\": }\n```\n" + // invalid JSON
		"```json\n[1, 2, 3]\n```\n" + // not an object
		"```json\n{\"path\": \"/tmp/a\"}\n```\n" + // no tool field
		"```json\n{\"tool\": \"list_dir\"}\n```\n" // valid
	calls := Extract(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "list_dir", calls[0].Name())
}

func TestExtractEmptyAndPlainText(t *testing.T) {
	assert.Empty(t, Extract(""))
	assert.Empty(t, Extract("Just a normal answer with {braces} but no tools."))
}
