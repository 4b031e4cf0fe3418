// Package genai is the contract with the remote generative-AI endpoint.
//
// Callers build a Request (see internal/prompt), hand it to a Generator and
// get back the reply text plus any citation records. GeminiClient talks to the
// Gemini REST API directly; OpenAIClient serves OpenAI-compatible endpoints
// through langchaingo and never returns citations.
package genai

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when a client is constructed without a key.
var ErrMissingAPIKey = errors.New("genai: API key is required")

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Blob is inline binary data such as an uploaded image.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Part is one piece of a turn. Exactly one of Text or InlineData is set.
type Part struct {
	Text       string
	InlineData *Blob
}

// TextPart returns a text part.
func TextPart(s string) Part {
	return Part{Text: s}
}

// BlobPart returns an inline data part.
func BlobPart(mimeType string, data []byte) Part {
	return Part{InlineData: &Blob{MIMEType: mimeType, Data: data}}
}

// Content is one conversation turn.
type Content struct {
	Role  Role
	Parts []Part
}

// LatLng is a coordinate pair passed to retrieval tools.
type LatLng struct {
	Latitude  float64
	Longitude float64
}

// Request is a fully built call to the endpoint.
type Request struct {
	Model             string
	SystemInstruction string
	Contents          []Content

	// Temperature and ThinkingBudget are omitted from the call when nil.
	Temperature    *float64
	ThinkingBudget *int

	GoogleSearch bool
	GoogleMaps   bool
	// LatLng is retrieval context for the grounding tools, passed through as is.
	LatLng *LatLng
}

// Text returns the concatenated text parts of every content, for logging.
func (r Request) Text() string {
	var n int
	for _, c := range r.Contents {
		for _, p := range c.Parts {
			n += len(p.Text)
		}
	}
	buf := make([]byte, 0, n)
	for _, c := range r.Contents {
		for _, p := range c.Parts {
			buf = append(buf, p.Text...)
		}
	}
	return string(buf)
}

// WebRef is a web citation.
type WebRef struct {
	URI   string
	Title string
}

// MapsRef is a map-place citation.
type MapsRef struct {
	URI   string
	Title string
}

// GroundingChunk is one citation record. Either, both or neither of Web and
// Maps may be set.
type GroundingChunk struct {
	Web  *WebRef
	Maps *MapsRef
}

// Response is the endpoint's reply.
type Response struct {
	Text            string
	GroundingChunks []GroundingChunk
}

// Generator sends a request to the endpoint.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Float returns a pointer to f, for Request.Temperature.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to n, for Request.ThinkingBudget.
func Int(n int) *int { return &n }
