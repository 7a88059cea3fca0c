package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	resp *ChatResponse
	err  error
}

func (s *stubLLM) Complete(ctx context.Context, messages []ChatMessage) (*ChatResponse, error) {
	return s.resp, s.err
}

func (s *stubLLM) CompleteWithRetry(ctx context.Context, messages []ChatMessage, maxRetries int) (*ChatResponse, error) {
	return s.resp, s.err
}

func (s *stubLLM) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.resp.Choices[0].Message.Content, nil
}

func (s *stubLLM) ParseJSONResponse(content string, target interface{}) error {
	return nil
}

type memorySink struct {
	mu      sync.Mutex
	records []CallRecord
}

func (m *memorySink) RecordCall(ctx context.Context, rec CallRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

func stubResponse(content string, tokens int) *ChatResponse {
	resp := &ChatResponse{Model: "claude-sonnet-4"}
	resp.Usage.TotalTokens = tokens
	resp.Choices = make([]struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	}, 1)
	resp.Choices[0].Message.Content = content
	return resp
}

func TestRecordingClientRecordsSuccess(t *testing.T) {
	sink := &memorySink{}
	client := NewRecordingClient(&stubLLM{resp: stubResponse(`{"recommendation":"BUY"}`, 321)}, sink)

	out, err := client.CompleteWithSystem(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"recommendation":"BUY"}`, out)

	require.Len(t, sink.records, 1)
	rec := sink.records[0]
	assert.Equal(t, "user prompt", rec.Prompt)
	assert.Equal(t, `{"recommendation":"BUY"}`, rec.Response)
	assert.Equal(t, "claude-sonnet-4", rec.Model)
	assert.Equal(t, 321, rec.TokensUsed)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestRecordingClientSkipsFailures(t *testing.T) {
	sink := &memorySink{}
	client := NewRecordingClient(&stubLLM{err: errors.New("gateway down")}, sink)

	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "x"}})
	require.Error(t, err)
	assert.Empty(t, sink.records)
}

func TestNewRecordingClientNilSink(t *testing.T) {
	inner := &stubLLM{resp: stubResponse("ok", 1)}
	client := NewRecordingClient(inner, nil)

	// With no sink there is nothing to decorate.
	assert.True(t, client == LLMClient(inner))
}
