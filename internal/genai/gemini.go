package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyrsmithlabs/veritas/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const instrumentationName = "github.com/fyrsmithlabs/veritas/internal/genai"

// Default configuration values.
const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout       = 90 * time.Second
	defaultMaxRetries    = 3
	defaultRateLimit     = 1.0
	defaultBurst         = 5

	maxResponseBytes = 8 << 20
)

// GeminiClient implements Generator against the Gemini REST API.
type GeminiClient struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	logger      *logging.Logger
	tracer      trace.Tracer
	metrics     *clientMetrics
}

// Option configures a client.
type Option func(*options)

type options struct {
	httpClient  *http.Client
	logger      *logging.Logger
	baseBackoff time.Duration
}

// WithHTTPClient replaces the HTTP client. Its Timeout is left as given.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBaseBackoff sets the first retry delay.
func WithBaseBackoff(d time.Duration) Option {
	return func(o *options) { o.baseBackoff = d }
}

func applyOptions(cfg Config, opts []Option) options {
	o := options{baseBackoff: defaultBaseBackoff}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Nop()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return o
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(cfg Config, opts ...Option) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg = cfg.withDefaults(DefaultGeminiBaseURL)
	o := applyOptions(cfg, opts)

	return &GeminiClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  o.httpClient,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		maxRetries:  cfg.MaxRetries,
		baseBackoff: o.baseBackoff,
		logger:      o.logger.Named("gemini"),
		tracer:      otel.Tracer(instrumentationName),
		metrics:     newClientMetrics(o.logger),
	}, nil
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	Tools             []geminiTool            `json:"tools,omitempty"`
	ToolConfig        *geminiToolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
	Thought    bool        `json:"thought,omitempty"`
}

type geminiBlob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"` // base64 on the wire
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
	GoogleMaps   *struct{} `json:"googleMaps,omitempty"`
}

type geminiToolConfig struct {
	RetrievalConfig struct {
		LatLng geminiLatLng `json:"latLng"`
	} `json:"retrievalConfig"`
}

type geminiLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geminiGenerationConfig struct {
	Temperature    *float64              `json:"temperature,omitempty"`
	ThinkingConfig *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiResponse struct {
	Candidates []struct {
		Content           geminiContent `json:"content"`
		FinishReason      string        `json:"finishReason"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web  *geminiRef `json:"web"`
				Maps *geminiRef `json:"maps"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiRef struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends req to models/{model}:generateContent.
func (g *GeminiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, span := g.tracer.Start(ctx, "genai.generate", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("genai.provider", "gemini"),
		attribute.String("genai.model", req.Model),
		attribute.Bool("genai.search", req.GoogleSearch),
		attribute.Bool("genai.maps", req.GoogleMaps),
	)

	start := time.Now()
	resp, err := g.generate(ctx, req)
	g.metrics.record(ctx, "gemini", req.Model, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Warn(ctx, "generate failed", zap.String("model", req.Model), zap.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("genai.grounding_chunks", len(resp.GroundingChunks)))
	return resp, nil
}

func (g *GeminiClient) generate(ctx context.Context, req Request) (*Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	body, err := json.Marshal(toGeminiRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	g.logger.Trace(ctx, "generate request",
		zap.String("model", req.Model),
		logging.Truncated("prompt", req.Text(), 2048),
	)

	return withRetries(ctx, g.maxRetries, g.baseBackoff, func(ctx context.Context) (*Response, error) {
		return g.doRequest(ctx, req.Model, body)
	})
}

func (g *GeminiClient) doRequest(ctx context.Context, model string, body []byte) (*Response, error) {
	endpoint := g.baseURL + "/v1beta/models/" + url.PathEscape(model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("API request failed: %w", err)
		}
		return nil, &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		g.logger.Debug(ctx, "rate limited by endpoint, retrying", zap.String("model", model))
		return nil, &retryableError{err: fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode >= 500 {
		return nil, &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, apiMessage(data))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiMessage(data))
	}

	var gr geminiResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := fromGeminiResponse(gr)
	if len(gr.Candidates) == 0 && gr.PromptFeedback != nil {
		g.logger.Warn(ctx, "prompt blocked by endpoint", zap.String("reason", gr.PromptFeedback.BlockReason))
	}
	g.logger.Trace(ctx, "generate response", logging.Truncated("text", out.Text, 4096))
	return out, nil
}

func apiMessage(body []byte) string {
	var e geminiError
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return string(body)
}

func toGeminiRequest(req Request) geminiRequest {
	out := geminiRequest{Contents: make([]geminiContent, 0, len(req.Contents))}

	if req.SystemInstruction != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemInstruction}}}
	}

	for _, c := range req.Contents {
		gc := geminiContent{Role: string(c.Role), Parts: make([]geminiPart, 0, len(c.Parts))}
		for _, p := range c.Parts {
			if p.InlineData != nil {
				gc.Parts = append(gc.Parts, geminiPart{InlineData: &geminiBlob{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}})
				continue
			}
			gc.Parts = append(gc.Parts, geminiPart{Text: p.Text})
		}
		out.Contents = append(out.Contents, gc)
	}

	if req.GoogleSearch {
		out.Tools = append(out.Tools, geminiTool{GoogleSearch: &struct{}{}})
	}
	if req.GoogleMaps {
		out.Tools = append(out.Tools, geminiTool{GoogleMaps: &struct{}{}})
	}
	if req.LatLng != nil {
		tc := &geminiToolConfig{}
		tc.RetrievalConfig.LatLng = geminiLatLng{Latitude: req.LatLng.Latitude, Longitude: req.LatLng.Longitude}
		out.ToolConfig = tc
	}

	if req.Temperature != nil || req.ThinkingBudget != nil {
		gen := &geminiGenerationConfig{Temperature: req.Temperature}
		if req.ThinkingBudget != nil {
			gen.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: *req.ThinkingBudget}
		}
		out.GenerationConfig = gen
	}

	return out
}

// fromGeminiResponse joins the non-thought text parts of the first
// candidate and copies its citation records.
func fromGeminiResponse(gr geminiResponse) *Response {
	out := &Response{}
	if len(gr.Candidates) == 0 {
		return out
	}
	cand := gr.Candidates[0]

	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	out.Text = b.String()

	if cand.GroundingMetadata != nil {
		for _, ch := range cand.GroundingMetadata.GroundingChunks {
			var chunk GroundingChunk
			if ch.Web != nil {
				chunk.Web = &WebRef{URI: ch.Web.URI, Title: ch.Web.Title}
			}
			if ch.Maps != nil {
				chunk.Maps = &MapsRef{URI: ch.Maps.URI, Title: ch.Maps.Title}
			}
			out.GroundingChunks = append(out.GroundingChunks, chunk)
		}
	}
	return out
}

type clientMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newClientMetrics(logger *logging.Logger) *clientMetrics {
	meter := otel.Meter(instrumentationName)
	m := &clientMetrics{}
	var err error

	m.requests, err = meter.Int64Counter(
		"veritas.genai.requests_total",
		metric.WithDescription("Total number of generate calls to the remote endpoint"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create request counter", zap.Error(err))
	}

	m.duration, err = meter.Float64Histogram(
		"veritas.genai.request_duration",
		metric.WithDescription("Duration of generate calls including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn(context.Background(), "failed to create duration histogram", zap.Error(err))
	}
	return m
}

func (m *clientMetrics) record(ctx context.Context, provider, model string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	)
	if m.requests != nil {
		m.requests.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
}
