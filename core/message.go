package core

import "encoding/json"

// Conversation roles used by the host. The bridge only ever branches on
// RoleUser; other roles pass through untouched.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Part represents a polymorphic segment of block-structured message content.
// Concrete part types implement the unexported isPart marker enabling a
// closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// DataPart is a structured, non-text content segment (tool output, images
// references, etc.). The bridge never interprets it; the gateway serializes
// it when it has to cross a text-only boundary.
type DataPart struct {
	Data map[string]any
}

// isPart implements the Part interface for DataPart.
func (DataPart) isPart() {}

// MessageContent is the tagged union over the two content shapes the host
// produces: a bare string or an ordered list of blocks. Consumers must switch
// over both variants rather than probe for fields.
type MessageContent interface{ isMessageContent() }

// TextContent holds plain string content.
type TextContent struct {
	Text string
}

// isMessageContent implements the MessageContent interface for TextContent.
func (TextContent) isMessageContent() {}

// BlockContent holds ordered block-structured content.
type BlockContent struct {
	Blocks []Part
}

// isMessageContent implements the MessageContent interface for BlockContent.
func (BlockContent) isMessageContent() {}

// Message is one entry of a turn's conversation history. The host owns the
// history; the bridge reads it during lifecycle callbacks and never retains
// it afterwards.
type Message struct {
	Role    string
	Content MessageContent
}

// wireMessage mirrors the host's JSON shape where content is either a string
// or an array of typed blocks.
type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type wireBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UnmarshalJSON accepts both host content shapes. A string becomes
// TextContent; an array becomes BlockContent with text blocks mapped to
// TextPart and everything else preserved as DataPart.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wm wireMessage
	if err := json.Unmarshal(data, &wm); err != nil {
		return err
	}
	m.Role = wm.Role
	m.Content = nil
	if len(wm.Content) == 0 {
		return nil
	}

	var text string
	if err := json.Unmarshal(wm.Content, &text); err == nil {
		m.Content = TextContent{Text: text}
		return nil
	}

	var rawBlocks []json.RawMessage
	if err := json.Unmarshal(wm.Content, &rawBlocks); err != nil {
		return err
	}
	blocks := make([]Part, 0, len(rawBlocks))
	for _, raw := range rawBlocks {
		var wb wireBlock
		if err := json.Unmarshal(raw, &wb); err == nil && wb.Type == "text" {
			blocks = append(blocks, TextPart{Text: wb.Text})
			continue
		}
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			return err
		}
		blocks = append(blocks, DataPart{Data: data})
	}
	m.Content = BlockContent{Blocks: blocks}
	return nil
}

// MarshalJSON renders the message back into the host's wire shape.
func (m Message) MarshalJSON() ([]byte, error) {
	switch c := m.Content.(type) {
	case TextContent:
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{Role: m.Role, Content: c.Text})
	case BlockContent:
		blocks := make([]any, 0, len(c.Blocks))
		for _, p := range c.Blocks {
			switch b := p.(type) {
			case TextPart:
				blocks = append(blocks, wireBlock{Type: "text", Text: b.Text})
			case DataPart:
				blocks = append(blocks, b.Data)
			}
		}
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content []any  `json:"content"`
		}{Role: m.Role, Content: blocks})
	default:
		return json.Marshal(wireMessage{Role: m.Role})
	}
}

// UserText is a shorthand constructor for a plain text user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: TextContent{Text: text}}
}

// AssistantText is a shorthand constructor for a plain text assistant message.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: TextContent{Text: text}}
}
