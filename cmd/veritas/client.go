package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/veritas/internal/analysis"
	"github.com/fyrsmithlabs/veritas/internal/geo"
	httpapi "github.com/fyrsmithlabs/veritas/internal/http"
)

// apiClient talks to a veritasd server.
type apiClient struct {
	baseURL  string
	language string
	http     *http.Client
}

func newAPIClient(baseURL, language string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		http:     &http.Client{Timeout: timeout},
	}
}

// apiError is a non-2xx response. Message is the server's error text.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", c.baseURL+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readAPIError extracts echo's {"message": ...} body, falling back to the raw text.
func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apiError{Status: resp.StatusCode, Message: err.Error()}
	}
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return &apiError{Status: resp.StatusCode, Message: e.Message}
	}
	return &apiError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

func (c *apiClient) claim(text string, loc *geo.Location) httpapi.ClaimRequest {
	return httpapi.ClaimRequest{Text: text, Language: c.language, Location: loc}
}

func (c *apiClient) Check(ctx context.Context, text string, loc *geo.Location) (analysis.ClaimReport, error) {
	var out analysis.ClaimReport
	err := c.do(ctx, http.MethodPost, "/api/v1/factcheck", c.claim(text, loc), &out)
	return out, err
}

func (c *apiClient) Verify(ctx context.Context, text string, loc *geo.Location) (analysis.AnalysisResult, error) {
	var out analysis.AnalysisResult
	err := c.do(ctx, http.MethodPost, "/api/v1/verify", c.claim(text, loc), &out)
	return out, err
}

func (c *apiClient) Virality(ctx context.Context, text string) (analysis.ViralityPrediction, error) {
	var out analysis.ViralityPrediction
	err := c.do(ctx, http.MethodPost, "/api/v1/virality", c.claim(text, nil), &out)
	return out, err
}

func (c *apiClient) Scan(ctx context.Context, image []byte, mimeType, note string) (analysis.DeepfakeResult, error) {
	var out analysis.DeepfakeResult
	req := httpapi.DeepfakeRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		MIMEType: mimeType,
		Note:     note,
		Language: c.language,
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/deepfake", req, &out)
	return out, err
}

func (c *apiClient) Health(ctx context.Context) (httpapi.HealthResponse, error) {
	var out httpapi.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *apiClient) CreateSession(ctx context.Context) (httpapi.SessionResponse, error) {
	var out httpapi.SessionResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/chat/sessions", httpapi.LanguageRequest{Language: c.language}, &out)
	return out, err
}

func (c *apiClient) GetSession(ctx context.Context, sessionID string) (httpapi.SessionResponse, error) {
	var out httpapi.SessionResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/chat/sessions/"+sessionID, nil, &out)
	return out, err
}

func (c *apiClient) Send(ctx context.Context, sessionID, text string) (httpapi.SendResponse, error) {
	var out httpapi.SendResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/chat/sessions/"+sessionID+"/messages", httpapi.SendRequest{Text: text}, &out)
	return out, err
}

func (c *apiClient) SetLanguage(ctx context.Context, sessionID, language string) (httpapi.SessionResponse, error) {
	var out httpapi.SessionResponse
	err := c.do(ctx, http.MethodPut, "/api/v1/chat/sessions/"+sessionID+"/language", httpapi.LanguageRequest{Language: language}, &out)
	return out, err
}

func (c *apiClient) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/chat/sessions/"+sessionID, nil, nil)
}
