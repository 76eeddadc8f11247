package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// ImageURL holds an image reference, either a remote URL or an inlined
// data:<mime>;base64,... payload.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is a single typed segment of a multi-part message content.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

func NewTextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

func NewImagePart(dataURL string) ContentPart {
	return ContentPart{Type: PartTypeImageURL, ImageURL: &ImageURL{URL: dataURL}}
}

// Content is either an opaque text value or an ordered sequence of typed parts.
// On the wire and on disk it serializes as a plain JSON string in the first case
// and as an array of parts in the second, matching the chat-completions format.
type Content struct {
	Text  string
	Parts []ContentPart
}

func NewTextContent(text string) Content {
	return Content{Text: text}
}

func NewMultiPartContent(parts []ContentPart) Content {
	return Content{Parts: parts}
}

func (c Content) IsMultiPart() bool {
	return c.Parts != nil
}

// String returns the textual rendering of the content, concatenating the text
// segments of a multi-part value.
func (c Content) String() string {
	if !c.IsMultiPart() {
		return c.Text
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		if p.Type == PartTypeText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsMultiPart() {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Parts = nil
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content is neither a string nor a part list: %w", err)
	}
	c.Text = ""
	c.Parts = parts
	return nil
}

// Message is a single entry of a conversation's history. Metadata holds local
// bookkeeping (timestamp, target_model, model, model_used) and never crosses
// the provider boundary.
type Message struct {
	Role     Role                   `json:"role"`
	Content  Content                `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type MessageOption func(*Message)

// WithMetadata merges the given keys over the message's metadata.
func WithMetadata(metadata map[string]interface{}) MessageOption {
	return func(m *Message) {
		for k, v := range metadata {
			m.Metadata[k] = v
		}
	}
}

func WithTimestamp(t time.Time) MessageOption {
	return func(m *Message) {
		m.Metadata["timestamp"] = t.UTC().Format(time.RFC3339Nano)
	}
}

// NewMessage creates a message tagged with a storage timestamp.
func NewMessage(role Role, content Content, options ...MessageOption) *Message {
	ret := &Message{
		Role:    role,
		Content: content,
		Metadata: map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func NewChatMessage(role Role, text string, options ...MessageOption) *Message {
	return NewMessage(role, NewTextContent(text), options...)
}
