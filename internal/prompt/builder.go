// Package prompt turns an analysis request into a genai.Request.
//
// Build is pure: it never fails and never touches the network. Each request
// kind carries its own tagged configuration, and the reply format block is
// rendered from the same schema the extractor reads back.
package prompt

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/veritas/internal/config"
	"github.com/fyrsmithlabs/veritas/internal/genai"
	"github.com/fyrsmithlabs/veritas/internal/geo"
	"github.com/fyrsmithlabs/veritas/internal/lang"
	"github.com/fyrsmithlabs/veritas/internal/schema"
)

// Kind identifies the request kind.
type Kind string

const (
	KindFactCheck Kind = "fact_check"
	KindDeepfake  Kind = "deepfake"
	KindVirality  Kind = "virality"
	KindChat      Kind = "chat"
)

// Kinds lists every request kind.
func Kinds() []Kind {
	return []Kind{KindFactCheck, KindDeepfake, KindVirality, KindChat}
}

// Image is an uploaded image.
type Image struct {
	Data     []byte
	MIMEType string
}

// Input is everything Build needs for one request.
type Input struct {
	Kind     Kind
	Text     string
	Image    *Image
	Language lang.Language
	// Location is only used for fact-check requests.
	Location *geo.Location
	// History holds prior chat turns, oldest first.
	History []genai.Content
}

// FactCheckConfig configures fact-check requests.
type FactCheckConfig struct {
	Model       string
	Temperature float64
	Search      bool
	Maps        bool
}

// DeepfakeConfig configures deepfake-scan requests.
type DeepfakeConfig struct {
	Model          string
	ThinkingBudget int
}

// ViralityConfig configures virality-forecast requests.
type ViralityConfig struct {
	Model       string
	Temperature *float64
}

// ChatConfig configures chat turns.
type ChatConfig struct {
	Model       string
	Temperature *float64
}

// Config holds the per-kind settings.
type Config struct {
	FactCheck FactCheckConfig
	Deepfake  DeepfakeConfig
	Virality  ViralityConfig
	Chat      ChatConfig
}

// DefaultConfig returns the stock models and generation settings.
func DefaultConfig() Config {
	return Config{
		FactCheck: FactCheckConfig{Model: "gemini-2.5-flash", Temperature: 0.3, Search: true, Maps: true},
		Deepfake:  DeepfakeConfig{Model: "gemini-3-pro-preview", ThinkingBudget: 4096},
		Virality:  ViralityConfig{Model: "gemini-flash-lite-latest"},
		Chat:      ChatConfig{Model: "gemini-3-pro-preview"},
	}
}

// ConfigFrom converts the application's models section.
func ConfigFrom(m config.ModelsConfig) Config {
	return Config{
		FactCheck: FactCheckConfig{
			Model:       m.FactCheck,
			Temperature: m.FactCheckTemperature,
			Search:      m.FactCheckSearch,
			Maps:        m.FactCheckMaps,
		},
		Deepfake: DeepfakeConfig{Model: m.Deepfake, ThinkingBudget: m.DeepfakeThinkingBudget},
		Virality: ViralityConfig{Model: m.Virality},
		Chat:     ChatConfig{Model: m.Chat},
	}
}

// Builder builds requests.
type Builder struct {
	cfg     Config
	catalog *Catalog
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCatalog makes the builder consult c for instruction overrides.
func WithCatalog(c *Catalog) BuilderOption {
	return func(b *Builder) { b.catalog = c }
}

// NewBuilder creates a Builder.
func NewBuilder(cfg Config, opts ...BuilderOption) *Builder {
	b := &Builder{cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Config returns the builder's per-kind settings.
func (b *Builder) Config() Config {
	return b.cfg
}

// Build returns the endpoint request for in. An unsupported language is
// treated as the default language; an unknown kind builds a chat turn.
func (b *Builder) Build(in Input) genai.Request {
	l := in.Language
	if !l.Valid() {
		l = lang.Default
	}

	switch in.Kind {
	case KindFactCheck:
		return b.factCheck(in, l)
	case KindDeepfake:
		return b.deepfake(in, l)
	case KindVirality:
		return b.virality(in, l)
	default:
		return b.chat(in, l)
	}
}

func (b *Builder) instruction(kind Kind, l lang.Language, fallback string) string {
	if b.catalog != nil {
		if s, ok := b.catalog.Instruction(kind, l); ok {
			return s
		}
	}
	return fallback
}

func (b *Builder) factCheck(in Input, l lang.Language) genai.Request {
	cfg := b.cfg.FactCheck
	s := schema.FactCheck(l)

	var p strings.Builder
	p.WriteString(b.instruction(KindFactCheck, l, factCheckInstruction(cfg)))
	p.WriteString("\n\n")
	fmt.Fprintf(&p, "Text to analyze: %q\n\n", in.Text)
	p.WriteString(languageDirective(l, s))
	p.WriteString("\n")
	p.WriteString(s.Render())

	req := genai.Request{
		Model:        cfg.Model,
		Contents:     []genai.Content{userTurn(genai.TextPart(p.String()))},
		Temperature:  genai.Float(cfg.Temperature),
		GoogleSearch: cfg.Search,
		GoogleMaps:   cfg.Maps,
	}
	if cfg.Maps || cfg.Search {
		req.LatLng = in.Location.LatLng()
	}
	return req
}

func factCheckInstruction(cfg FactCheckConfig) string {
	const base = "Analyze the following claim or news text for truthfulness."
	switch {
	case cfg.Search && cfg.Maps:
		return base + "\nUse Google Search and Google Maps to verify facts and locations."
	case cfg.Search:
		return base + "\nUse Google Search to verify facts."
	case cfg.Maps:
		return base + "\nUse Google Maps to verify locations."
	default:
		return base
	}
}

const deepfakeInstruction = "Analyze this image for signs of being a Deepfake or AI-generated manipulation.\n" +
	"Look for: inconsistent lighting, warped backgrounds, strange hands/fingers, skin texture issues, asymmetrical eyes."

func (b *Builder) deepfake(in Input, l lang.Language) genai.Request {
	cfg := b.cfg.Deepfake
	s := schema.Deepfake()

	var p strings.Builder
	p.WriteString(b.instruction(KindDeepfake, l, deepfakeInstruction))
	p.WriteString("\n\n")
	if note := strings.TrimSpace(in.Text); note != "" {
		fmt.Fprintf(&p, "Context from the user: %q\n\n", note)
	}
	p.WriteString(languageDirective(l, s))
	p.WriteString("\nFormat:\n")
	p.WriteString(s.Render())

	parts := make([]genai.Part, 0, 2)
	if in.Image != nil {
		parts = append(parts, genai.BlobPart(in.Image.MIMEType, in.Image.Data))
	}
	parts = append(parts, genai.TextPart(p.String()))

	req := genai.Request{
		Model:    cfg.Model,
		Contents: []genai.Content{userTurn(parts...)},
	}
	if cfg.ThinkingBudget > 0 {
		req.ThinkingBudget = genai.Int(cfg.ThinkingBudget)
	}
	return req
}

const viralityInstruction = "Predict the viral potential of this headline/text based on emotional triggers and sensationalism."

func (b *Builder) virality(in Input, l lang.Language) genai.Request {
	cfg := b.cfg.Virality
	s := schema.Virality()

	var p strings.Builder
	p.WriteString(b.instruction(KindVirality, l, viralityInstruction))
	p.WriteString("\n\n")
	fmt.Fprintf(&p, "Text: %q\n\n", in.Text)
	p.WriteString(languageDirective(l, s))
	p.WriteString("\n")
	p.WriteString(s.Render())

	return genai.Request{
		Model:       cfg.Model,
		Contents:    []genai.Content{userTurn(genai.TextPart(p.String()))},
		Temperature: cfg.Temperature,
	}
}

func (b *Builder) chat(in Input, l lang.Language) genai.Request {
	cfg := b.cfg.Chat

	contents := make([]genai.Content, 0, len(in.History)+1)
	contents = append(contents, in.History...)
	contents = append(contents, userTurn(genai.TextPart(in.Text)))

	return genai.Request{
		Model:             cfg.Model,
		SystemInstruction: b.instruction(KindChat, l, l.Text(lang.ChatSystemPersona)),
		Contents:          contents,
		Temperature:       cfg.Temperature,
	}
}

// languageDirective asks for body content in l while labels stay in English.
func languageDirective(l lang.Language, s *schema.Schema) string {
	labels := strings.Join(s.Labels(), ", ")
	if l == lang.English {
		return fmt.Sprintf("Return a structured response in English, keeping the keys %s exactly as written:", labels)
	}
	return fmt.Sprintf("Return a structured response in %s, but keep the keys %s in English exactly as written:", l.Name(), labels)
}

func userTurn(parts ...genai.Part) genai.Content {
	return genai.Content{Role: genai.RoleUser, Parts: parts}
}
