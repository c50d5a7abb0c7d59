package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mediaudit/backend/internal/domain/providers"
	"github.com/mediaudit/backend/pkg/config"
	"github.com/mediaudit/backend/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.GroqConfig{
		APIKey:         "test-key",
		TimeoutSeconds: 5,
		RateLimitRPM:   6000,
		RateLimitBurst: 100,
	})
	require.NoError(t, err)
	client.baseURL = server.URL
	client.retryCfg = retry.Config{
		MaxAttempts:     1,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		BackoffFactor:   1,
		MaxTotalTimeout: time.Second,
	}
	return client
}

func chatResponse(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}
}

func TestExtractBillReturnsValidatedJSON(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		chatResponse(`{"patient_name": "A. Sharma", "line_items": [{"description": "MRI", "total_cost": 9500}]}`)(w, r)
	})

	raw, err := client.ExtractBill(context.Background(), []byte("image"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "A. Sharma", doc["patient_name"])
}

func TestExtractBillStripsMarkdownFences(t *testing.T) {
	client := newTestClient(t, chatResponse("```json\n{\"line_items\": []}\n```"))

	raw, err := client.ExtractBill(context.Background(), []byte("image"), "image/jpeg")
	require.NoError(t, err)
	assert.JSONEq(t, `{"line_items": []}`, string(raw))
}

func TestExtractBillRejectsNonJSON(t *testing.T) {
	client := newTestClient(t, chatResponse("I could not read the image, sorry."))

	_, err := client.ExtractBill(context.Background(), []byte("image"), "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestExtractBillRejectsWrongShape(t *testing.T) {
	client := newTestClient(t, chatResponse(`{"line_items": "none"}`))

	_, err := client.ExtractBill(context.Background(), []byte("image"), "image/jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not look like a bill")
}

func TestExtractBillUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ExtractBill(context.Background(), []byte("image"), "image/jpeg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, providers.ErrExtractionUnauthorized))
}

func TestExtractDocumentTextPassesThrough(t *testing.T) {
	client := newTestClient(t, chatResponse("Room Rent: 100% up to 5000"))

	text, err := client.ExtractDocumentText(context.Background(), []byte("scan"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Room Rent: 100% up to 5000", text)
}

func TestDataURIEncoding(t *testing.T) {
	uri := dataURI([]byte{0x01, 0x02}, "image/png")
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	// Unknown media types default to jpeg.
	assert.True(t, strings.HasPrefix(dataURI([]byte{0x01}, ""), "data:image/jpeg;base64,"))
}

func TestMetricsInitIsConcurrencySafe(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recordGroqMetric(context.Background(), "test-model", 200, time.Millisecond, nil)
			recordGroqRateLimitWait(context.Background(), "test-model", time.Millisecond)
		}()
	}
	wg.Wait()

	assert.True(t, ensureGroqMetrics())
}

func TestTokenBucketWaitHonorsContext(t *testing.T) {
	bucket := newTokenBucketWithRate(1, 1)
	require.NoError(t, bucket.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := bucket.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
