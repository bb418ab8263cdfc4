package testutil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/athenabridge/core"
)

// Conversation builds a message history from alternating user/assistant
// texts, starting with the user. Handy for exchange-gating tests.
func Conversation(texts ...string) []core.Message {
	msgs := make([]core.Message, 0, len(texts))
	for i, t := range texts {
		if i%2 == 0 {
			msgs = append(msgs, core.UserText(t))
		} else {
			msgs = append(msgs, core.AssistantText(t))
		}
	}
	return msgs
}

// BlockMessage builds a message with block-structured content.
func BlockMessage(role string, parts ...core.Part) core.Message {
	return core.Message{Role: role, Content: core.BlockContent{Blocks: parts}}
}

// SearchPayload renders a smart_search reply payload with one scored result
// per entry, shaped like the real peer's nested results envelope.
func SearchPayload(results ...core.SearchResult) string {
	items := make([]string, len(results))
	for i, r := range results {
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("mem-%d", i)
		}
		content, _ := json.Marshal(r.Content)
		items[i] = fmt.Sprintf(`{"id":%q,"content":%s,"rrf_score":%g}`, id, content, r.Score)
	}
	return fmt.Sprintf(`{"results":{"results":[%s]}}`, strings.Join(items, ","))
}

// ToolReply renders the peer's call-result envelope around a single text
// block.
func ToolReply(text string, isError bool) json.RawMessage {
	block, _ := json.Marshal(text)
	return json.RawMessage(fmt.Sprintf(`{"content":[{"type":"text","text":%s}],"isError":%t}`, block, isError))
}
