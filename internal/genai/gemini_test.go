package genai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGemini(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewGeminiClient(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		RateLimit:  1000,
		Burst:      100,
		MaxRetries: 2,
	}, WithBaseBackoff(time.Millisecond))
	require.NoError(t, err)
	return c
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGeminiClient_RequestWireFormat(t *testing.T) {
	var got map[string]any
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"VERDICT: TRUE"}]}}]}`))
	})

	resp, err := c.Generate(context.Background(), Request{
		Model:             "gemini-2.5-flash",
		SystemInstruction: "be brief",
		Contents: []Content{{Role: RoleUser, Parts: []Part{
			BlobPart("image/png", []byte{0x89, 0x50}),
			TextPart("check this"),
		}}},
		Temperature:    Float(0.3),
		ThinkingBudget: Int(4096),
		GoogleSearch:   true,
		GoogleMaps:     true,
		LatLng:         &LatLng{Latitude: 55.75, Longitude: 37.62},
	})
	require.NoError(t, err)
	assert.Equal(t, "VERDICT: TRUE", resp.Text)

	assert.Equal(t, map[string]any{"parts": []any{map[string]any{"text": "be brief"}}}, got["systemInstruction"])

	contents := got["contents"].([]any)
	require.Len(t, contents, 1)
	first := contents[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	parts := first["parts"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, map[string]any{"mimeType": "image/png", "data": "iVA="}, parts[0].(map[string]any)["inlineData"])
	assert.Equal(t, "check this", parts[1].(map[string]any)["text"])

	assert.Equal(t, []any{
		map[string]any{"googleSearch": map[string]any{}},
		map[string]any{"googleMaps": map[string]any{}},
	}, got["tools"])
	assert.Equal(t, map[string]any{"retrievalConfig": map[string]any{
		"latLng": map[string]any{"latitude": 55.75, "longitude": 37.62},
	}}, got["toolConfig"])
	assert.Equal(t, map[string]any{
		"temperature":    0.3,
		"thinkingConfig": map[string]any{"thinkingBudget": float64(4096)},
	}, got["generationConfig"])
}

func TestGeminiClient_OmitsUnsetOptions(t *testing.T) {
	var got map[string]any
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	resp, err := c.Generate(context.Background(), Request{
		Model:    "gemini-flash-lite-latest",
		Contents: []Content{{Role: RoleUser, Parts: []Part{TextPart("hi")}}},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Text)

	for _, key := range []string{"systemInstruction", "tools", "toolConfig", "generationConfig"} {
		assert.NotContains(t, got, key)
	}
}

func TestGeminiClient_ParsesGroundingAndSkipsThoughts(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
		  "candidates": [{
		    "content": {"parts": [
		      {"text": "thinking...", "thought": true},
		      {"text": "SCORE: 10\n"},
		      {"text": "VERDICT: FAKE"}
		    ]},
		    "groundingMetadata": {"groundingChunks": [
		      {"web": {"uri": "https://a.example", "title": "A"}},
		      {"maps": {"uri": "https://maps.example/p", "title": ""}},
		      {"web": {"uri": "https://b.example"}, "maps": {"uri": "https://maps.example/q"}},
		      {}
		    ]}
		  }]
		}`))
	})

	resp, err := c.Generate(context.Background(), Request{Model: "m"})
	require.NoError(t, err)

	assert.Equal(t, "SCORE: 10\nVERDICT: FAKE", resp.Text)
	require.Len(t, resp.GroundingChunks, 4)
	assert.Equal(t, &WebRef{URI: "https://a.example", Title: "A"}, resp.GroundingChunks[0].Web)
	assert.Nil(t, resp.GroundingChunks[0].Maps)
	assert.Equal(t, &MapsRef{URI: "https://maps.example/p"}, resp.GroundingChunks[1].Maps)
	assert.NotNil(t, resp.GroundingChunks[2].Web)
	assert.NotNil(t, resp.GroundingChunks[2].Maps)
	assert.Equal(t, GroundingChunk{}, resp.GroundingChunks[3])
}

func TestGeminiClient_RetriesTransientFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) < 3 {
					w.WriteHeader(tt.status)
					return
				}
				_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
			})

			resp, err := c.Generate(context.Background(), Request{Model: "m"})
			require.NoError(t, err)
			assert.Equal(t, "ok", resp.Text)
			assert.Equal(t, int32(3), calls.Load())
		})
	}
}

func TestGeminiClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend down","status":"INTERNAL"}}`))
	})

	_, err := c.Generate(context.Background(), Request{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Contains(t, err.Error(), "backend down")
	assert.Equal(t, int32(3), calls.Load())
}

func TestGeminiClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	})

	_, err := c.Generate(context.Background(), Request{Model: "m"})
	require.Error(t, err)
	assert.Equal(t, "API error (400): API key not valid", err.Error())
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeminiClient_ContextCancelled(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, Request{Model: "m"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestGeminiClient_MalformedJSON(t *testing.T) {
	c := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err := c.Generate(context.Background(), Request{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestRequest_Text(t *testing.T) {
	r := Request{Contents: []Content{
		{Role: RoleUser, Parts: []Part{TextPart("a"), BlobPart("image/png", []byte{1})}},
		{Role: RoleModel, Parts: []Part{TextPart("b")}},
	}}
	assert.Equal(t, "ab", r.Text())
}

func TestNew_SelectsProvider(t *testing.T) {
	g, err := New(Config{Provider: ProviderGemini, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, g)

	g, err = New(Config{Provider: ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, g)

	_, err = New(Config{Provider: "bard", APIKey: "k"})
	assert.Error(t, err)

	_, err = New(Config{Provider: ProviderOpenAI})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
