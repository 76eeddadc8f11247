package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentRoundTripPlainText(t *testing.T) {
	c := NewTextContent("hello world")

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `"hello world"`, string(data))

	decoded := Content{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded.IsMultiPart())
	assert.Equal(t, "hello world", decoded.Text)
}

func TestContentRoundTripMultiPart(t *testing.T) {
	c := NewMultiPartContent([]ContentPart{
		NewTextPart("describe this"),
		NewImagePart("data:image/png;base64,aGVsbG8="),
	})

	data, err := json.Marshal(c)
	require.NoError(t, err)

	decoded := Content{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, decoded.IsMultiPart())
	require.Len(t, decoded.Parts, 2)
	assert.Equal(t, PartTypeText, decoded.Parts[0].Type)
	assert.Equal(t, "describe this", decoded.Parts[0].Text)
	assert.Equal(t, PartTypeImageURL, decoded.Parts[1].Type)
	require.NotNil(t, decoded.Parts[1].ImageURL)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", decoded.Parts[1].ImageURL.URL)
}

func TestNewMessageTagsTimestamp(t *testing.T) {
	msg := NewChatMessage(RoleUser, "hi", WithMetadata(map[string]interface{}{
		"target_model": "openai/gpt-5",
	}))

	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "openai/gpt-5", msg.Metadata["target_model"])
	assert.NotEmpty(t, msg.Metadata["timestamp"])
}

func TestForAPIStripsAllMetadata(t *testing.T) {
	messages := []*Message{
		NewChatMessage(RoleUser, "question", WithMetadata(map[string]interface{}{
			"target_model": "openai/gpt-5",
		})),
		NewChatMessage(RoleAssistant, "answer", WithMetadata(map[string]interface{}{
			"model":      "openai/gpt-5",
			"model_used": "openai/gpt-5",
		})),
	}

	apiMessages := ForAPI(messages)
	require.Len(t, apiMessages, 2)

	for i, apiMsg := range apiMessages {
		data, err := json.Marshal(apiMsg)
		require.NoError(t, err)

		keys := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(data, &keys))
		assert.Len(t, keys, 2, "message %d should only carry role and content", i)
		assert.Contains(t, keys, "role")
		assert.Contains(t, keys, "content")
	}
}

func TestLastModelUsedPrefersModelMetadata(t *testing.T) {
	conv := &Conversation{
		ModelMetadata: map[string]interface{}{
			ModelMetadataModelsUsed: []string{"openai/gpt-5", "anthropic/claude-sonnet-4"},
		},
		Messages: []*Message{
			NewChatMessage(RoleAssistant, "hi", WithMetadata(map[string]interface{}{
				"model": "openai/gpt-4o",
			})),
		},
	}

	assert.Equal(t, "anthropic/claude-sonnet-4", conv.LastModelUsed())
}

func TestLastModelUsedFallsBackToAssistantMessage(t *testing.T) {
	conv := &Conversation{
		Messages: []*Message{
			NewChatMessage(RoleUser, "question"),
			NewChatMessage(RoleAssistant, "answer", WithMetadata(map[string]interface{}{
				"model": "openai/gpt-4o",
			})),
		},
	}

	assert.Equal(t, "openai/gpt-4o", conv.LastModelUsed())
}

func TestLastModelUsedSurvivesJSONRoundTrip(t *testing.T) {
	conv := &Conversation{
		ID: "test",
		ModelMetadata: map[string]interface{}{
			ModelMetadataModelsUsed: []string{"openai/gpt-5"},
		},
	}

	data, err := json.Marshal(conv)
	require.NoError(t, err)

	decoded := &Conversation{}
	require.NoError(t, json.Unmarshal(data, decoded))
	// models_used decodes as []interface{} after the round trip.
	assert.Equal(t, "openai/gpt-5", decoded.LastModelUsed())
}
