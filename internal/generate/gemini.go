// Package generate produces travel plan text with the Gemini API.
package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ErrNoResponse is returned when the model produced no usable text.
var ErrNoResponse = errors.New("No response generated, please try again")

// Options configures a GeminiClient. Zero values take the defaults below.
type Options struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     float32
	TopK            float32
	TopP            float32
	MaxOutputTokens int32
	Timeout         time.Duration
}

const (
	DefaultModel           = "gemini-1.5-flash"
	DefaultTemperature     = 0.7
	DefaultTopK            = 40
	DefaultTopP            = 0.95
	DefaultMaxOutputTokens = 8192
)

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Temperature <= 0 {
		o.Temperature = DefaultTemperature
	}
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.TopP <= 0 {
		o.TopP = DefaultTopP
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = 120 * time.Second
	}
	return o
}

// GeminiClient calls the Gemini generateContent API for plan text.
type GeminiClient struct {
	client     *genai.Client
	httpClient *http.Client
	model      string
	config     *genai.GenerateContentConfig

	// Stats records call latency and failures. May be nil.
	Stats *LLMStats
}

func NewGeminiClient(ctx context.Context, opts Options) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	opts = opts.withDefaults()

	httpClient := &http.Client{Timeout: opts.Timeout}
	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		httpClient: httpClient,
		model:      opts.Model,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(opts.Temperature),
			TopK:            genai.Ptr(opts.TopK),
			TopP:            genai.Ptr(opts.TopP),
			MaxOutputTokens: opts.MaxOutputTokens,
		},
	}, nil
}

// Model returns the model name requests are sent to.
func (c *GeminiClient) Model() string {
	return c.model
}

// Generate sends prompt to the model and returns the text of the first candidate.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		c.recordFailure()
		return "", classify(err)
	}

	text := firstCandidateText(resp)
	if strings.TrimSpace(text) == "" {
		c.recordFailure()
		return "", ErrNoResponse
	}
	if c.Stats != nil {
		c.Stats.Record(time.Since(start).Milliseconds())
	}
	return text, nil
}

func (c *GeminiClient) recordFailure() {
	if c.Stats != nil {
		c.Stats.RecordFailure()
	}
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// classify maps API failures onto RetryableError or a plain API error.
// Errors that are not API errors, such as transport failures, are wrapped as-is.
func classify(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("gemini api: %w", err)
	}
	if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
		return &RetryableError{StatusCode: apiErr.Code, Message: apiErr.Message}
	}
	msg := apiErr.Message
	if msg == "" {
		msg = apiErr.Status
	}
	return fmt.Errorf("API error: %s", msg)
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases idle connections.
func (c *GeminiClient) Close() {
	c.httpClient.CloseIdleConnections()
}
