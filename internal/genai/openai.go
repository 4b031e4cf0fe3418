package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/veritas/internal/logging"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// OpenAIClient implements Generator for OpenAI-compatible endpoints through
// langchaingo. Grounding tools and thinking budgets have no equivalent there
// and are ignored, so responses never carry citations.
type OpenAIClient struct {
	llm         llms.Model
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	logger      *logging.Logger
	tracer      trace.Tracer
	metrics     *clientMetrics
}

// NewOpenAIClient creates an OpenAI-compatible client.
func NewOpenAIClient(cfg Config, opts ...Option) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg = cfg.withDefaults("")
	o := applyOptions(cfg, opts)

	llmOpts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithHTTPClient(o.httpClient),
	}
	if cfg.BaseURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return newOpenAIClient(llm, cfg, o), nil
}

func newOpenAIClient(llm llms.Model, cfg Config, o options) *OpenAIClient {
	return &OpenAIClient{
		llm:         llm,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		maxRetries:  cfg.MaxRetries,
		baseBackoff: o.baseBackoff,
		logger:      o.logger.Named("openai"),
		tracer:      otel.Tracer(instrumentationName),
		metrics:     newClientMetrics(o.logger),
	}
}

// Generate sends req as a chat completion.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "genai.generate", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("genai.provider", "openai"),
		attribute.String("genai.model", req.Model),
	)

	start := time.Now()
	resp, err := c.generate(ctx, req)
	c.metrics.record(ctx, "openai", req.Model, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn(ctx, "generate failed", zap.String("model", req.Model), zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (c *OpenAIClient) generate(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	messages := toMessages(req)
	callOpts := []llms.CallOption{llms.WithModel(req.Model)}
	if req.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(*req.Temperature))
	}

	c.logger.Trace(ctx, "generate request",
		zap.String("model", req.Model),
		logging.Truncated("prompt", req.Text(), 2048),
	)

	return withRetries(ctx, c.maxRetries, c.baseBackoff, func(ctx context.Context) (*Response, error) {
		resp, err := c.llm.GenerateContent(ctx, messages, callOpts...)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("API request failed: %w", err)
			}
			return nil, &retryableError{err: fmt.Errorf("API request failed: %w", err)}
		}
		out := &Response{}
		if len(resp.Choices) > 0 {
			out.Text = resp.Choices[0].Content
		}
		return out, nil
	})
}

func toMessages(req Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Contents)+1)
	if req.SystemInstruction != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemInstruction))
	}
	for _, content := range req.Contents {
		role := llms.ChatMessageTypeHuman
		if content.Role == RoleModel {
			role = llms.ChatMessageTypeAI
		}
		msg := llms.MessageContent{Role: role}
		for _, p := range content.Parts {
			if p.InlineData != nil {
				dataURL := "data:" + p.InlineData.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.InlineData.Data)
				msg.Parts = append(msg.Parts, llms.ImageURLPart(dataURL))
				continue
			}
			msg.Parts = append(msg.Parts, llms.TextPart(p.Text))
		}
		messages = append(messages, msg)
	}
	return messages
}
