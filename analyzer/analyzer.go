// Package analyzer holds the pure functions computed over a turn's message
// history: text extraction, exchange gating, summary synthesis and key-fact
// extraction. No I/O happens here and every function is order-stable: the
// same input always yields byte-identical output, since results feed directly
// into persisted records.
package analyzer

import (
	"regexp"
	"strings"

	"github.com/hupe1980/athenabridge/core"
)

const (
	// summaryWidth is the slice taken from the first and last user message
	// when synthesizing a summary.
	summaryWidth = 80
	// maxKeyFacts caps the extracted fact set.
	maxKeyFacts = 5
	// summaryJoin separates topic from outcome, indicating progression.
	summaryJoin = " -> "
	// fallbackSummary is returned when the history has no user message.
	fallbackSummary = "General conversation"
)

// DefaultMinExchanges is the baseline user-message count below which a turn
// is considered noise not worth capturing.
const DefaultMinExchanges = 2

// Digest is the distilled record of a turn: a short summary plus up to five
// deduplicated key facts. Computed fresh per turn, never stored locally.
type Digest struct {
	Summary  string
	KeyFacts []string
}

// Analyze computes the full digest for a message history.
func Analyze(messages []core.Message) Digest {
	return Digest{
		Summary:  GenerateSummary(messages),
		KeyFacts: ExtractKeyFacts(messages),
	}
}

// ExtractTexts flattens all textual content across messages into one ordered
// sequence. Plain-text content contributes a single entry; block-structured
// content contributes one entry per text block, skipping non-text blocks.
func ExtractTexts(messages []core.Message) []string {
	var texts []string
	for _, m := range messages {
		texts = append(texts, messageTexts(m)...)
	}
	return texts
}

func messageTexts(m core.Message) []string {
	switch c := m.Content.(type) {
	case core.TextContent:
		return []string{c.Text}
	case core.BlockContent:
		var texts []string
		for _, p := range c.Blocks {
			if tp, ok := p.(core.TextPart); ok {
				texts = append(texts, tp.Text)
			}
		}
		return texts
	default:
		return nil
	}
}

// messageText joins a message's textual content into one string.
func messageText(m core.Message) string {
	return strings.Join(messageTexts(m), "\n")
}

// HasEnoughExchanges reports whether the history contains at least threshold
// user-authored messages. Single-shot turns fall below the default threshold
// and are not persisted.
func HasEnoughExchanges(messages []core.Message, threshold int) bool {
	count := 0
	for _, m := range messages {
		if m.Role == core.RoleUser {
			count++
			if count >= threshold {
				return true
			}
		}
	}
	return false
}

// GenerateSummary synthesizes a one-line summary: the leading slice of the
// first user message (the topic) joined to the leading slice of the last user
// message (the outcome). A single user message yields the topic alone; no
// user message yields a fixed fallback.
func GenerateSummary(messages []core.Message) string {
	first, last := "", ""
	seen := 0
	for _, m := range messages {
		if m.Role != core.RoleUser {
			continue
		}
		text := messageText(m)
		if seen == 0 {
			first = text
		}
		last = text
		seen++
	}
	if seen == 0 {
		return fallbackSummary
	}
	topic := truncate(first, summaryWidth)
	outcome := truncate(last, summaryWidth)
	if topic == outcome {
		return topic
	}
	return topic + summaryJoin + outcome
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width])
}

// factPattern pairs a category with its expression. Order matters: earlier
// categories win slots in the capped fact set first.
type factPattern struct {
	category string
	re       *regexp.Regexp
}

var factPatterns = []factPattern{
	{"phone", regexp.MustCompile(`\+\d{10,}`)},
	{"email", regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
	{"identity", regexp.MustCompile(`(?i)\b(?:my name is|i am|i'm)\s+[^.!?,\n]+`)},
	{"preference", regexp.MustCompile(`(?i)\bi (?:prefer|like|love|hate|dislike|always use)\s+[^.!?\n]+`)},
	{"reminder", regexp.MustCompile(`(?i)\b(?:remember to|remember that|remind me to|don't forget to)\s+[^.!?\n]+`)},
	{"decision", regexp.MustCompile(`(?i)\b(?:i(?:'ve| have)? decided|we decided|decided to|let's go with|i'll use|we'll use)\s+[^.!?\n]+`)},
}

// ExtractKeyFacts scans user-authored text against the ordered pattern
// categories. The first match per message per category contributes one
// candidate; candidates are deduplicated with set semantics over the raw
// matched substrings, preserving first-seen order, and capped at five.
func ExtractKeyFacts(messages []core.Message) []string {
	var facts []string
	seen := make(map[string]struct{})
	for _, p := range factPatterns {
		for _, m := range messages {
			if m.Role != core.RoleUser {
				continue
			}
			match := p.re.FindString(messageText(m))
			if match == "" {
				continue
			}
			match = strings.TrimSpace(match)
			if _, dup := seen[match]; dup {
				continue
			}
			seen[match] = struct{}{}
			facts = append(facts, match)
			if len(facts) == maxKeyFacts {
				return facts
			}
		}
	}
	return facts
}
