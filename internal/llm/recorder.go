package llm

import (
	"context"
	"time"
)

// CallSink receives a CallRecord for every successful completion made
// through a RecordingClient. Implementations must not block: persistence
// failures are the sink's problem, never the caller's.
type CallSink interface {
	RecordCall(ctx context.Context, rec CallRecord)
}

// RecordingClient decorates an LLMClient so every completion is handed to a
// CallSink (the database decision log). The wrapped client does all the real
// work; this layer only observes.
type RecordingClient struct {
	inner LLMClient
	sink  CallSink
}

// NewRecordingClient wraps inner. A nil sink returns inner unchanged.
func NewRecordingClient(inner LLMClient, sink CallSink) LLMClient {
	if sink == nil {
		return inner
	}
	return &RecordingClient{inner: inner, sink: sink}
}

func (r *RecordingClient) Complete(ctx context.Context, messages []ChatMessage) (*ChatResponse, error) {
	start := time.Now()
	resp, err := r.inner.Complete(ctx, messages)
	if err == nil {
		r.record(ctx, messages, resp, start)
	}
	return resp, err
}

func (r *RecordingClient) CompleteWithRetry(ctx context.Context, messages []ChatMessage, maxRetries int) (*ChatResponse, error) {
	start := time.Now()
	resp, err := r.inner.CompleteWithRetry(ctx, messages, maxRetries)
	if err == nil {
		r.record(ctx, messages, resp, start)
	}
	return resp, err
}

func (r *RecordingClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := r.Complete(ctx, []ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &LLMError{Message: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (r *RecordingClient) ParseJSONResponse(content string, target interface{}) error {
	return r.inner.ParseJSONResponse(content, target)
}

func (r *RecordingClient) record(ctx context.Context, messages []ChatMessage, resp *ChatResponse, start time.Time) {
	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	prompt := ""
	for _, m := range messages {
		if m.Role == "user" {
			prompt = m.Content
		}
	}
	r.sink.RecordCall(ctx, CallRecord{
		Prompt:     prompt,
		Response:   content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
		LatencyMs:  int(time.Since(start).Milliseconds()),
		Timestamp:  time.Now(),
	})
}

var _ LLMClient = (*RecordingClient)(nil)
