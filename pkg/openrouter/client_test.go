package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/parley/pkg/conversation"
)

func testMessages() []conversation.APIMessage {
	return []conversation.APIMessage{
		{Role: conversation.RoleSystem, Content: conversation.NewTextContent("system prompt")},
		{Role: conversation.RoleUser, Content: conversation.NewTextContent("hello")},
	}
}

func TestInvokeSuccess(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "Hi there"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	text, err := c.Invoke(context.Background(), testMessages(), "openai/gpt-5", EffortMedium)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", text)

	assert.Equal(t, "openai/gpt-5", gotBody["model"])
	reasoning, ok := gotBody["reasoning"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "medium", reasoning["effort"])

	messages, ok := gotBody["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	first, ok := messages[0].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, first, 2)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "system prompt", first["content"])
}

func TestInvokeOmitsReasoningWhenUnset(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Invoke(context.Background(), testMessages(), "openai/gpt-5", "")
	require.NoError(t, err)
	assert.NotContains(t, gotBody, "reasoning")
}

func TestInvokeNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Invoke(context.Background(), testMessages(), "openai/gpt-5", "")
	require.Error(t, err)

	apiErr := &APIError{}
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "rate limited")
}

func TestInvokeEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Invoke(context.Background(), testMessages(), "openai/gpt-5", "")
	require.Error(t, err)
}

func TestInvokeHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Invoke(ctx, testMessages(), "openai/gpt-5", "")
	require.Error(t, err)
}
