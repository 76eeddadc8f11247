package conversation

import (
	"time"
)

// ModelMetadataModelsUsed is the model_metadata key holding the ordered list of
// model identifiers that produced responses in a conversation.
const ModelMetadataModelsUsed = "models_used"

// Conversation is the durable record of a multi-turn exchange. ID and Created
// are set once at creation; Title is preserved verbatim across appends;
// Messages is strictly append-only.
type Conversation struct {
	ID            string                 `json:"id"`
	Created       time.Time              `json:"created"`
	Updated       time.Time              `json:"updated"`
	Title         string                 `json:"title,omitempty"`
	ModelMetadata map[string]interface{} `json:"model_metadata,omitempty"`
	Messages      []*Message             `json:"messages"`
}

// LastModelUsed returns the full identifier of the model behind the most recent
// assistant response, preferring model_metadata over a backwards scan of the
// message metadata. Empty when the conversation has no assistant turn yet.
func (c *Conversation) LastModelUsed() string {
	if c == nil {
		return ""
	}
	if c.ModelMetadata != nil {
		if m := lastModelFromMetadata(c.ModelMetadata); m != "" {
			return m
		}
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		msg := c.Messages[i]
		if msg.Role != RoleAssistant || msg.Metadata == nil {
			continue
		}
		if m, ok := msg.Metadata["model"].(string); ok && m != "" {
			return m
		}
	}
	return ""
}

func lastModelFromMetadata(md map[string]interface{}) string {
	used, ok := md[ModelMetadataModelsUsed]
	if !ok {
		return ""
	}
	// The field round-trips through JSON as []interface{}.
	switch v := used.(type) {
	case []string:
		if len(v) > 0 {
			return v[len(v)-1]
		}
	case []interface{}:
		for i := len(v) - 1; i >= 0; i-- {
			if s, ok := v[i].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
