package pushcut

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-approval-go/internal/config"
	"trade-approval-go/internal/models"
)

// Notifier delivers the interactive approval notification for a trade. The
// notification must carry the approve/reject callback URLs so the decision
// makes it back to this service.
type Notifier interface {
	Notify(ctx context.Context, tradeID string, req models.TradeRequest, chartURL string) error
}

// Client is a Pushcut notification client. Delivery is a single attempt;
// failed notifications are not retried.
type Client struct {
	client  *resty.Client
	url     string
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
	limiter *rate.Limiter
}

var _ Notifier = (*Client)(nil)

// NewClient creates a Pushcut client. baseURL is this service's public address,
// used to build the callback and chart links embedded in the notification.
// timeout is the approval window shown to the approver.
func NewClient(cfg *config.Pushcut, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New()
	if cfg.APIKey != "" {
		client.SetHeader("API-Key", cfg.APIKey)
	}

	return &Client{
		client:  client,
		url:     cfg.URL,
		baseURL: baseURL,
		timeout: timeout,
		logger:  logger.Named("pushcut"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// timeoutLabel renders the approval window the way the notification shows it,
// e.g. "5min" for whole minutes.
func timeoutLabel(d time.Duration) string {
	if d > 0 && d%time.Minute == 0 {
		return fmt.Sprintf("%dmin", int(d/time.Minute))
	}
	return d.String()
}

// action is one tappable button on the notification.
type action struct {
	Name                 string            `json:"name"`
	URL                  string            `json:"url"`
	URLBackgroundOptions map[string]string `json:"urlBackgroundOptions"`
}

// notification is the Pushcut payload.
type notification struct {
	Title           string   `json:"title"`
	Text            string   `json:"text"`
	Image           string   `json:"image"`
	IsTimeSensitive bool     `json:"isTimeSensitive"`
	Actions         []action `json:"actions"`
}

// Notify sends the approval notification for a trade.
func (c *Client) Notify(ctx context.Context, tradeID string, req models.TradeRequest, chartURL string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	sig := req.Signal
	payload := notification{
		Title: fmt.Sprintf("%s %s", req.Instrument, sig.Direction),
		Text: fmt.Sprintf("Entry: $%.2f\nRisk: $%.0f | Target: $%.0f\nPattern: %s | Confidence: %.0f%%\n%s timeout",
			sig.EntryPrice, sig.RiskAmount, sig.TargetAmount, sig.PatternType, sig.Confidence*100, timeoutLabel(c.timeout)),
		Image:           chartURL,
		IsTimeSensitive: true,
		Actions: []action{
			{
				Name:                 "APPROVE",
				URL:                  fmt.Sprintf("%s/trade/approve/%s", c.baseURL, tradeID),
				URLBackgroundOptions: map[string]string{"httpMethod": "POST"},
			},
			{
				Name:                 "REJECT",
				URL:                  fmt.Sprintf("%s/trade/reject/%s", c.baseURL, tradeID),
				URLBackgroundOptions: map[string]string{"httpMethod": "POST"},
			},
		},
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification request failed with status %s: %s", resp.Status(), resp.String())
	}

	c.logger.Info("Notification sent", zap.String("trade_id", tradeID), zap.String("instrument", req.Instrument))
	return nil
}
