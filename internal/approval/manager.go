package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trade-approval-go/internal/chart"
	"trade-approval-go/internal/models"
	"trade-approval-go/internal/pushcut"
	"trade-approval-go/internal/store"
)

var (
	// ErrNotFound is returned for an id that was never issued or whose record
	// has already been evicted.
	ErrNotFound = errors.New("trade not found")
	// ErrInvalidOutcome is returned when a decision is neither approve nor reject.
	ErrInvalidOutcome = errors.New("invalid decision outcome")
)

// Manager owns the trade state machine: creation, decision and timeout
// transitions, and the fan-out to the chart renderer and the notifier.
type Manager struct {
	store    *store.Store
	renderer chart.Renderer
	notifier pushcut.Notifier
	logger   *zap.Logger
	baseURL  string
	timeout  time.Duration
}

// NewManager creates a lifecycle manager. baseURL is the public address used
// to build the chart link handed to the platform and the notifier.
func NewManager(st *store.Store, renderer chart.Renderer, notifier pushcut.Notifier, baseURL string, timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		store:    st,
		renderer: renderer,
		notifier: notifier,
		logger:   logger.Named("approval"),
		baseURL:  baseURL,
		timeout:  timeout,
	}
}

// ChartURL returns the public address of a trade's chart artifact.
func (m *Manager) ChartURL(tradeID string) string {
	return fmt.Sprintf("%s/chart/%s", m.baseURL, tradeID)
}

// Create registers a new pending trade and kicks off chart rendering and
// notification dispatch in the background. It returns as soon as the record is
// stored; the caller never waits on the side effects.
func (m *Manager) Create(req models.TradeRequest) (models.Trade, error) {
	now := time.Now()
	trade := models.Trade{
		ID:        uuid.NewString(),
		Status:    models.StatusPending,
		Request:   req,
		CreatedAt: now,
		ExpiresAt: now.Add(m.timeout),
	}
	m.store.Insert(trade)
	IncRequests()
	SetPendingTrades(m.store.PendingCount())

	m.logger.Info("Trade approval requested",
		zap.String("trade_id", trade.ID),
		zap.String("instrument", req.Instrument),
		zap.String("direction", req.Signal.Direction),
		zap.Time("expires_at", trade.ExpiresAt),
	)

	go m.process(trade.ID, req)

	return trade, nil
}

// process runs the per-trade background work: render the chart, then send the
// notification. A render failure marks the trade as errored and suppresses the
// notification. A notification failure is only logged; the trade stays pending
// and times out naturally if no decision arrives another way.
func (m *Manager) process(tradeID string, req models.TradeRequest) {
	if err := m.renderer.Render(tradeID, req); err != nil {
		m.logger.Error("Chart rendering failed", zap.String("trade_id", tradeID), zap.Error(err))
		IncProcessingFailure("chart")
		m.store.Fail(tradeID, err.Error(), time.Now())
		SetPendingTrades(m.store.PendingCount())
		return
	}

	if err := m.notifier.Notify(context.Background(), tradeID, req, m.ChartURL(tradeID)); err != nil {
		m.logger.Error("Notification dispatch failed", zap.String("trade_id", tradeID), zap.Error(err))
		IncProcessingFailure("notify")
	}
}

// Status returns a snapshot of the trade. Reading the status of a pending
// trade past its deadline transitions it to timeout as part of the read; there
// is no per-trade timer.
func (m *Manager) Status(tradeID string) (models.Trade, error) {
	trade, ok := m.store.Snapshot(tradeID)
	if !ok {
		return models.Trade{}, ErrNotFound
	}

	if trade.Status == models.StatusPending && time.Now().After(trade.ExpiresAt) {
		var swapped bool
		trade, swapped, ok = m.store.Transition(tradeID, models.StatusPending, models.StatusTimeout, time.Now())
		if !ok {
			// Evicted between the snapshot and the transition.
			return models.Trade{}, ErrNotFound
		}
		if swapped {
			m.logger.Info("Trade timed out", zap.String("trade_id", tradeID))
			IncDecision(models.StatusTimeout)
			SetPendingTrades(m.store.PendingCount())
		}
	}

	return trade, nil
}

// Decide applies a human decision. The first decision on a pending trade wins;
// a duplicate or late decision is a no-op that still reports the current
// status, so callbacks can be replayed safely.
func (m *Manager) Decide(tradeID string, outcome models.Status) (models.Trade, error) {
	if outcome != models.StatusApproved && outcome != models.StatusRejected {
		return models.Trade{}, ErrInvalidOutcome
	}

	trade, swapped, ok := m.store.Transition(tradeID, models.StatusPending, outcome, time.Now())
	if !ok {
		return models.Trade{}, ErrNotFound
	}
	if swapped {
		m.logger.Info("Trade decided",
			zap.String("trade_id", tradeID),
			zap.String("outcome", string(outcome)),
		)
		IncDecision(outcome)
		SetPendingTrades(m.store.PendingCount())
	} else {
		m.logger.Debug("Ignoring decision for already settled trade",
			zap.String("trade_id", tradeID),
			zap.String("outcome", string(outcome)),
			zap.String("status", string(trade.Status)),
		)
	}

	return trade, nil
}

// PendingCount reports how many trades are still awaiting a decision.
func (m *Manager) PendingCount() int {
	return m.store.PendingCount()
}
