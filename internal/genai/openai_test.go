package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	calls    int
	failN    int
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
	reply    string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.calls <= f.failN {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not used")
}

func newTestOpenAI(m llms.Model) *OpenAIClient {
	cfg := Config{RateLimit: 1000, Burst: 100, MaxRetries: 2}
	return newOpenAIClient(m, cfg, applyOptions(cfg, []Option{WithBaseBackoff(time.Millisecond)}))
}

func TestOpenAIClient_ConvertsConversation(t *testing.T) {
	m := &fakeModel{reply: "hello back"}
	c := newTestOpenAI(m)

	resp, err := c.Generate(context.Background(), Request{
		Model:             "gpt-4o-mini",
		SystemInstruction: "persona",
		Contents: []Content{
			{Role: RoleUser, Parts: []Part{TextPart("hi")}},
			{Role: RoleModel, Parts: []Part{TextPart("hello")}},
			{Role: RoleUser, Parts: []Part{BlobPart("image/jpeg", []byte("img")), TextPart("what is this")}},
		},
		Temperature:  Float(0.3),
		GoogleSearch: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello back", resp.Text)
	assert.Empty(t, resp.GroundingChunks)

	require.Len(t, m.messages, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, m.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, m.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, m.messages[2].Role)
	assert.Equal(t, llms.TextContent{Text: "hello"}, m.messages[2].Parts[0])

	require.Len(t, m.messages[3].Parts, 2)
	img, ok := m.messages[3].Parts[0].(llms.ImageURLContent)
	require.True(t, ok)
	assert.Equal(t, "data:image/jpeg;base64,aW1n", img.URL)

	assert.Equal(t, "gpt-4o-mini", m.opts.Model)
	assert.InDelta(t, 0.3, m.opts.Temperature, 1e-9)
}

func TestOpenAIClient_Retries(t *testing.T) {
	m := &fakeModel{failN: 2, err: errors.New("status 503"), reply: "ok"}
	c := newTestOpenAI(m)

	resp, err := c.Generate(context.Background(), Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 3, m.calls)
}

func TestOpenAIClient_CancelledIsNotRetried(t *testing.T) {
	m := &fakeModel{failN: 5, err: context.Canceled}
	c := newTestOpenAI(m)

	_, err := c.Generate(context.Background(), Request{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, m.calls)
}
