package core

import "strings"

// TextBlock is one ordered content element of a ToolResult. Every block is a
// text payload; non-text peer content is serialized before it gets here.
type TextBlock struct {
	Text string
}

// ToolResult is the uniform result-or-error envelope produced by the gateway.
// Transport and peer faults surface as IsError plus a diagnostic block, never
// as a returned error. Treat values as immutable once constructed.
type ToolResult struct {
	Content []TextBlock
	IsError bool
}

// Text flattens all content blocks into a single newline-joined string.
func (r ToolResult) Text() string {
	parts := make([]string, len(r.Content))
	for i, b := range r.Content {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n")
}

// ErrorResult builds a ToolResult carrying a single diagnostic block.
func ErrorResult(diagnostic string) ToolResult {
	return ToolResult{Content: []TextBlock{{Text: diagnostic}}, IsError: true}
}

// TextResult builds a successful ToolResult from text blocks.
func TextResult(texts ...string) ToolResult {
	blocks := make([]TextBlock, len(texts))
	for i, t := range texts {
		blocks[i] = TextBlock{Text: t}
	}
	return ToolResult{Content: blocks}
}
