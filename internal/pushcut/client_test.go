package pushcut

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-approval-go/internal/models"
)

// setupTestClient creates a Client pointed at a local test server.
func setupTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	c := &Client{
		client:  resty.New(),
		url:     server.URL,
		baseURL: "https://approval.example.com",
		timeout: 5 * time.Minute,
		logger:  zap.NewNop(), // Use a no-op logger for tests
		limiter: rate.NewLimiter(rate.Inf, 1),
	}

	return c, server
}

func testRequest() models.TradeRequest {
	return models.TradeRequest{
		Instrument: "MGC",
		Timeframe:  "5min",
		Bars: []models.Bar{
			{Time: "2026-08-28T14:00:00Z", Open: 2400, High: 2405, Low: 2398, Close: 2403, Volume: 1200},
		},
		Signal: models.Signal{
			Direction:    "LONG",
			EntryPrice:   2408,
			RiskAmount:   50,
			TargetAmount: 150,
			PatternType:  "breakout",
			Confidence:   0.85,
		},
	}
}

func TestNotify(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Arrange: capture the delivered payload.
		var payload notification
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.NoError(t, json.Unmarshal(body, &payload))
			w.WriteHeader(http.StatusOK)
		})
		c, server := setupTestClient(handler)
		defer server.Close()

		// Act
		err := c.Notify(context.Background(), "trade-1", testRequest(), "https://approval.example.com/chart/trade-1")

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, "MGC LONG", payload.Title)
		assert.Contains(t, payload.Text, "Entry: $2408.00")
		assert.Contains(t, payload.Text, "Risk: $50 | Target: $150")
		assert.Contains(t, payload.Text, "Pattern: breakout | Confidence: 85%")
		assert.Contains(t, payload.Text, "5min timeout")
		assert.Equal(t, "https://approval.example.com/chart/trade-1", payload.Image)
		assert.True(t, payload.IsTimeSensitive)

		// The decision buttons must call back into this service.
		if assert.Len(t, payload.Actions, 2) {
			assert.Equal(t, "APPROVE", payload.Actions[0].Name)
			assert.Equal(t, "https://approval.example.com/trade/approve/trade-1", payload.Actions[0].URL)
			assert.Equal(t, "POST", payload.Actions[0].URLBackgroundOptions["httpMethod"])
			assert.Equal(t, "REJECT", payload.Actions[1].Name)
			assert.Equal(t, "https://approval.example.com/trade/reject/trade-1", payload.Actions[1].URL)
			assert.Equal(t, "POST", payload.Actions[1].URLBackgroundOptions["httpMethod"])
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		// Arrange: delivery fails and must not be retried.
		attempts := 0
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusBadGateway)
		})
		c, server := setupTestClient(handler)
		defer server.Close()

		// Act
		err := c.Notify(context.Background(), "trade-1", testRequest(), "https://approval.example.com/chart/trade-1")

		// Assert
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "notification request failed")
		assert.Equal(t, 1, attempts)
	})

	t.Run("TimeoutLineUsesConfiguredWindow", func(t *testing.T) {
		var payload notification
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(body, &payload))
			w.WriteHeader(http.StatusOK)
		})
		c, server := setupTestClient(handler)
		defer server.Close()
		c.timeout = 90 * time.Second

		err := c.Notify(context.Background(), "trade-1", testRequest(), "https://approval.example.com/chart/trade-1")

		assert.NoError(t, err)
		assert.Contains(t, payload.Text, "1m30s timeout")
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		c, server := setupTestClient(handler)
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := c.Notify(ctx, "trade-1", testRequest(), "https://approval.example.com/chart/trade-1")

		assert.Error(t, err)
	})
}
