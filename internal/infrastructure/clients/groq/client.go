package groq

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mediaudit/backend/internal/domain/providers"
	"github.com/mediaudit/backend/pkg/config"
	"github.com/mediaudit/backend/pkg/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Client implements the vision extraction provider against the Groq API.
type Client struct {
	apiKey      string
	visionModel string
	baseURL     string
	httpClient  *http.Client
	limiter     *tokenBucket
	retryCfg    retry.Config
}

// NewClient creates a new Groq client.
func NewClient(cfg *config.GroqConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("groq api key is required")
	}

	model := cfg.VisionModel
	if model == "" {
		model = "meta-llama/llama-4-scout-17b-16e-instruct"
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	return &Client{
		apiKey:      cfg.APIKey,
		visionModel: model,
		baseURL:     defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:  newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
		retryCfg: retry.DefaultConfig(),
	}, nil
}

type chatChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type chatEnvelope struct {
	Choices []chatChoice `json:"choices"`
}

// ExtractBill sends one bill image to the vision model and returns its raw
// structured JSON guess. The result satisfies the minimal bill schema but is
// otherwise untrusted.
func (c *Client) ExtractBill(ctx context.Context, document []byte, mediaType string) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"model":           c.visionModel,
		"temperature":     0.1,
		"max_tokens":      2048,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type":      "image_url",
						"image_url": map[string]string{"url": dataURI(document, mediaType)},
					},
					{
						"type": "text",
						"text": billExtractionSystemPrompt,
					},
				},
			},
		},
	}

	text, err := c.complete(ctx, payload)
	if err != nil {
		return nil, err
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("vision response is not valid JSON: %w", err)
	}
	if err := billSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("vision response does not look like a bill: %w", err)
	}

	return json.RawMessage(text), nil
}

// ExtractDocumentText transcribes a policy document image to plain text.
func (c *Client) ExtractDocumentText(ctx context.Context, document []byte, mediaType string) (string, error) {
	payload := map[string]interface{}{
		"model":       c.visionModel,
		"temperature": 0.1,
		"max_tokens":  2048,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type":      "image_url",
						"image_url": map[string]string{"url": dataURI(document, mediaType)},
					},
					{
						"type": "text",
						"text": policyTextPrompt,
					},
				},
			},
		},
	}

	return c.complete(ctx, payload)
}

// complete runs one chat-completions call: rate limit, request, retry on
// transient failures, fence cleanup.
func (c *Client) complete(ctx context.Context, payload map[string]interface{}) (string, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordGroqMetric(ctx, c.visionModel, 0, 0, err)
			return "", err
		}
		recordGroqRateLimitWait(ctx, c.visionModel, time.Since(waitStart))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	var text string
	err = retry.Do(ctx, c.retryCfg, func() error {
		var callErr error
		text, callErr = c.doRequest(ctx, body)
		return callErr
	})
	if err != nil {
		return "", err
	}

	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}

	return strings.TrimSpace(cleaned), nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordGroqMetric(ctx, c.visionModel, 0, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordGroqMetric(ctx, c.visionModel, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w: groq request failed with status %d", providers.ErrExtractionUnauthorized, resp.StatusCode)
		}
		return "", fmt.Errorf("groq request failed with status %d", resp.StatusCode)
	}

	var envelope chatEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordGroqMetric(ctx, c.visionModel, resp.StatusCode, time.Since(start), err)
		return "", err
	}

	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		recordGroqMetric(ctx, c.visionModel, resp.StatusCode, time.Since(start), errors.New("missing content"))
		return "", errors.New("groq response missing message content")
	}

	recordGroqMetric(ctx, c.visionModel, resp.StatusCode, time.Since(start), nil)
	return envelope.Choices[0].Message.Content, nil
}

func dataURI(document []byte, mediaType string) string {
	if mediaType == "" {
		mediaType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(document))
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 30
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return newTokenBucketWithRate(rpm, burst)
}

type tokenBucket struct {
	tokens chan struct{}
}

func newTokenBucketWithRate(rpm int, burst int) *tokenBucket {
	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
	}

	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}

type groqMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var groqMetricsOnce sync.Once
var groqMetricsReady bool
var groqClientMetrics groqMetrics

func ensureGroqMetrics() bool {
	groqMetricsOnce.Do(func() {
		meter := otel.Meter("github.com/mediaudit/backend/groq")

		requestCount, err := meter.Int64Counter(
			"ai.groq.request.count",
			metric.WithDescription("Number of Groq requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.groq.request.duration",
			metric.WithDescription("Groq request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.groq.request.errors",
			metric.WithDescription("Number of Groq request errors"),
		)
		if err != nil {
			return
		}
		rateLimitWait, err := meter.Float64Histogram(
			"ai.groq.rate_limit.wait",
			metric.WithDescription("Time spent waiting for the Groq rate limiter in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}

		groqClientMetrics = groqMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			rateLimitWait:   rateLimitWait,
		}
		groqMetricsReady = true
	})
	return groqMetricsReady
}

func recordGroqMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	if !ensureGroqMetrics() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "groq"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	groqClientMetrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	groqClientMetrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		groqClientMetrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordGroqRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	if !ensureGroqMetrics() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "groq"),
		attribute.String("ai.model", model),
	}
	groqClientMetrics.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
