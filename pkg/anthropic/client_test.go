package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageBody(text string) map[string]any {
	return map[string]any{
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       "claude-sonnet-4-5-20250929",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":  12,
			"output_tokens": 7,
		},
	}
}

func TestCreateMessage(t *testing.T) {
	var captured map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageBody("Hallazgo: no conformidad menor")) //nolint:errcheck
	}))
	defer ts.Close()

	client := NewClient("test-key", option.WithBaseURL(ts.URL))
	temp := 0.2
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   512,
		System:      []SystemBlock{{Text: "Eres auditor ISO 9001.", Cached: true}},
		Messages:    []Message{{Role: "user", Content: "Analiza el caso"}},
		Temperature: &temp,
	})
	require.NoError(t, err)

	assert.Equal(t, "msg_test_001", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, "Hallazgo: no conformidad menor", resp.Text())
	assert.Equal(t, int64(12), resp.Usage.InputTokens)
	assert.Equal(t, int64(7), resp.Usage.OutputTokens)

	assert.Equal(t, float64(512), captured["max_tokens"])
	assert.Equal(t, 0.2, captured["temperature"])
	system, ok := captured["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	block := system[0].(map[string]any)
	assert.Equal(t, "Eres auditor ISO 9001.", block["text"])
	assert.NotNil(t, block["cache_control"])
}

func TestCreateMessage_APIError(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	client := NewClient("test-key", option.WithBaseURL(ts.URL))
	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 16,
		Messages:  []Message{{Role: "user", Content: "x"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
	assert.Equal(t, 1, calls)
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: " primera "},
		{Type: "tool_use"},
		{Type: "text", Text: "segunda"},
	}}
	assert.Equal(t, "primera \nsegunda", resp.Text())
	assert.Empty(t, (&MessageResponse{}).Text())
}

func TestFromSDKMessage(t *testing.T) {
	resp := fromSDKMessage(&sdk.Message{
		ID:         "msg_1",
		Model:      "claude-haiku-4-5-20251001",
		StopReason: "max_tokens",
		Content:    []sdk.ContentBlockUnion{{Type: "text", Text: "hola"}},
		Usage:      sdk.Usage{InputTokens: 3, OutputTokens: 4, CacheReadInputTokens: 5},
	})
	assert.Equal(t, "claude-haiku-4-5-20251001", resp.Model)
	assert.Equal(t, "max_tokens", resp.StopReason)
	assert.Equal(t, TokenUsage{InputTokens: 3, OutputTokens: 4, CacheReadInputTokens: 5}, resp.Usage)
	assert.Equal(t, []ContentBlock{{Type: "text", Text: "hola"}}, resp.Content)
}

func TestToSDKMessages(t *testing.T) {
	out := toSDKMessages([]Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, sdk.MessageParamRoleUser, out[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, out[1].Role)
}
