package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/veritas/internal/genai"
	"github.com/fyrsmithlabs/veritas/internal/geo"
	"github.com/fyrsmithlabs/veritas/internal/grounding"
	"github.com/fyrsmithlabs/veritas/internal/lang"
	"github.com/fyrsmithlabs/veritas/internal/logging"
	"github.com/fyrsmithlabs/veritas/internal/prompt"
	"github.com/fyrsmithlabs/veritas/internal/schema"
)

const instrumentationName = "github.com/fyrsmithlabs/veritas/internal/analysis"

// Reach reported when a virality forecast could not be made.
const unavailableReach = "N/A"

// Service runs analyses. It is safe for concurrent use.
type Service struct {
	gen        genai.Generator
	builder    *prompt.Builder
	locator    geo.Locator
	geoTimeout time.Duration
	logger     *logging.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLocator sets the fallback locator used when a fact-check request
// carries no location.
func WithLocator(l geo.Locator) Option {
	return func(s *Service) { s.locator = l }
}

// WithGeoTimeout bounds location acquisition.
func WithGeoTimeout(d time.Duration) Option {
	return func(s *Service) { s.geoTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the Prometheus metrics. Without it nothing is recorded.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer sets the tracer. The global tracer provider is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// NewService creates a Service that sends requests built by builder to gen.
func NewService(gen genai.Generator, builder *prompt.Builder, opts ...Option) *Service {
	s := &Service{
		gen:        gen,
		builder:    builder,
		geoTimeout: geo.DefaultTimeout,
		logger:     logging.Nop(),
		tracer:     otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify fact-checks text. When loc is nil the configured locator is asked,
// and the check proceeds without a location if none arrives in time.
func (s *Service) Verify(ctx context.Context, text string, l lang.Language, loc *geo.Location) (AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return AnalysisResult{}, ErrEmptyInput
	}
	return s.verify(ctx, text, l, s.resolveLocation(ctx, loc))
}

func (s *Service) resolveLocation(ctx context.Context, loc *geo.Location) *geo.Location {
	if loc != nil {
		if err := loc.Validate(); err == nil {
			return loc
		}
		s.logger.Debug(ctx, "ignoring invalid client location")
	}
	return geo.Acquire(ctx, s.locator, s.geoTimeout)
}

func (s *Service) verify(ctx context.Context, text string, l lang.Language, loc *geo.Location) (AnalysisResult, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.verify",
		trace.WithAttributes(attribute.String("veritas.language", l.String()), attribute.Bool("veritas.location", loc != nil)))
	defer span.End()
	start := time.Now()

	req := s.builder.Build(prompt.Input{Kind: prompt.KindFactCheck, Text: text, Language: l, Location: loc})
	resp, err := s.gen.Generate(ctx, req)
	if err != nil {
		s.fail(ctx, span, prompt.KindFactCheck, start, err)
		return AnalysisResult{}, fmt.Errorf("%w: fact check: %w", ErrOperationFailed, err)
	}

	values := schema.FactCheck(l).Extract(resp.Text)
	sources := grounding.Collect(resp.GroundingChunks, l)
	result := AssembleFactCheck(values, sources)

	s.succeed(ctx, prompt.KindFactCheck, start, values)
	if s.metrics != nil {
		s.metrics.RecordSources(len(sources))
	}
	s.logger.Info(ctx, "fact check complete",
		zap.String("verdict", string(result.Verdict)),
		zap.Int("score", result.Score),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.Int("sources", len(sources)))
	return result, nil
}

// Deepfake scans an image. note is optional context from the user.
func (s *Service) Deepfake(ctx context.Context, img prompt.Image, note string, l lang.Language) (DeepfakeResult, error) {
	if len(img.Data) == 0 {
		return DeepfakeResult{}, ErrEmptyInput
	}

	ctx, span := s.tracer.Start(ctx, "analysis.deepfake",
		trace.WithAttributes(attribute.String("veritas.mime_type", img.MIMEType), attribute.Int("veritas.image_bytes", len(img.Data))))
	defer span.End()
	start := time.Now()

	req := s.builder.Build(prompt.Input{Kind: prompt.KindDeepfake, Text: note, Image: &img, Language: l})
	resp, err := s.gen.Generate(ctx, req)
	if err != nil {
		s.fail(ctx, span, prompt.KindDeepfake, start, err)
		return DeepfakeResult{}, fmt.Errorf("%w: deepfake scan: %w", ErrOperationFailed, err)
	}

	values := schema.Deepfake().Extract(resp.Text)
	result := AssembleDeepfake(values)

	s.succeed(ctx, prompt.KindDeepfake, start, values)
	s.logger.Info(ctx, "deepfake scan complete",
		zap.Bool("is_deepfake", result.IsDeepfake),
		zap.Int("confidence", result.Confidence),
		zap.Int("indicators", len(result.Indicators)))
	return result, nil
}

// Virality forecasts how far text will spread. It never fails: an endpoint
// error yields a zero prediction with a localized explanation.
func (s *Service) Virality(ctx context.Context, text string, l lang.Language) ViralityPrediction {
	ctx, span := s.tracer.Start(ctx, "analysis.virality")
	defer span.End()
	start := time.Now()

	req := s.builder.Build(prompt.Input{Kind: prompt.KindVirality, Text: text, Language: l})
	resp, err := s.gen.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.record(prompt.KindVirality, "absorbed", start)
		s.logger.Warn(ctx, "virality forecast failed", zap.Error(err))
		return ViralityPrediction{
			ViralityScore:  0,
			EstimatedReach: unavailableReach,
			Velocity:       VelocitySlow,
			Reasoning:      l.Text(lang.ViralityFailed),
		}
	}

	values := schema.Virality().Extract(resp.Text)
	result := AssembleVirality(values)

	s.succeed(ctx, prompt.KindVirality, start, values)
	s.logger.Debug(ctx, "virality forecast complete",
		zap.Int("score", result.ViralityScore),
		zap.String("velocity", string(result.Velocity)))
	return result
}

// Check fact-checks text and forecasts its virality concurrently. It returns
// once both are done and yields either both results or an error.
func (s *Service) Check(ctx context.Context, text string, l lang.Language, loc *geo.Location) (ClaimReport, error) {
	if strings.TrimSpace(text) == "" {
		return ClaimReport{}, ErrEmptyInput
	}
	loc = s.resolveLocation(ctx, loc)

	var report ClaimReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.verify(gctx, text, l, loc)
		if err != nil {
			return err
		}
		report.Analysis = res
		return nil
	})
	g.Go(func() error {
		report.Virality = s.Virality(gctx, text, l)
		return nil
	})
	if err := g.Wait(); err != nil {
		return ClaimReport{}, err
	}
	return report, nil
}

func (s *Service) succeed(ctx context.Context, kind prompt.Kind, start time.Time, values schema.Values) {
	s.record(kind, "ok", start)
	if fallbacks := values.Defaulted(); len(fallbacks) > 0 {
		if s.metrics != nil {
			s.metrics.RecordFallbacks(string(kind), fallbacks)
		}
		s.logger.Debug(ctx, "reply fields defaulted",
			zap.String("kind", string(kind)),
			zap.Strings("fields", fallbacks),
			logging.Truncated("reply", values.Raw, 512))
	}
}

func (s *Service) fail(ctx context.Context, span trace.Span, kind prompt.Kind, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.record(kind, "error", start)
	s.logger.Error(ctx, "analysis request failed", zap.String("kind", string(kind)), zap.Error(err))
}

func (s *Service) record(kind prompt.Kind, outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRequest(string(kind), outcome, time.Since(start).Seconds())
	}
}
