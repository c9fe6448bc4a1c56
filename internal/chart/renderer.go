package chart

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"

	"trade-approval-go/internal/models"
)

// Renderer produces and manages the chart artifact for a trade. The lifecycle
// manager only depends on this interface; rendering failures surface as errors
// from Render and are handled by the caller.
type Renderer interface {
	// Render builds the chart image for the trade and stores it addressable
	// by the trade id.
	Render(tradeID string, req models.TradeRequest) error
	// Path returns the location of the rendered artifact, or false if it has
	// not been rendered (or was already deleted).
	Path(tradeID string) (string, bool)
	// Delete removes the artifact. A missing artifact is not an error.
	Delete(tradeID string) error
}

// FileRenderer renders trade charts to PNG files in a flat directory,
// one file per trade id.
type FileRenderer struct {
	dir    string
	logger *zap.Logger
}

var _ Renderer = (*FileRenderer)(nil)

// NewFileRenderer creates the chart directory if needed.
func NewFileRenderer(dir string, logger *zap.Logger) (*FileRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chart directory: %w", err)
	}
	return &FileRenderer{dir: dir, logger: logger.Named("chart")}, nil
}

func (r *FileRenderer) file(tradeID string) string {
	return filepath.Join(r.dir, tradeID+".png")
}

// Render draws the price series with the entry, target and stop levels and
// writes the result as a PNG sized for mobile viewing.
func (r *FileRenderer) Render(tradeID string, req models.TradeRequest) error {
	if len(req.Bars) == 0 {
		return errors.New("no bars to chart")
	}

	times := make([]time.Time, 0, len(req.Bars))
	closes := make([]float64, 0, len(req.Bars))
	highs := make([]float64, 0, len(req.Bars))
	lows := make([]float64, 0, len(req.Bars))
	for _, bar := range req.Bars {
		t, err := time.Parse(time.RFC3339, bar.Time)
		if err != nil {
			return fmt.Errorf("invalid bar time %q: %w", bar.Time, err)
		}
		times = append(times, t)
		closes = append(closes, bar.Close)
		highs = append(highs, bar.High)
		lows = append(lows, bar.Low)
	}

	entry := req.Signal.EntryPrice
	target, stop := levels(req.Signal)

	background := drawing.ColorFromHex("2f3640")
	graph := chart.Chart{
		Title:      fmt.Sprintf("%s - %s Signal (%.0f%% %s)", req.Instrument, req.Signal.Direction, req.Signal.Confidence*100, req.Signal.PatternType),
		Width:      1200,
		Height:     800,
		Background: chart.Style{FillColor: background},
		Canvas:     chart.Style{FillColor: background},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("15:04"),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "High",
				XValues: times,
				YValues: highs,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("00ff88").WithAlpha(80), StrokeWidth: 1.0},
			},
			chart.TimeSeries{
				Name:    "Low",
				XValues: times,
				YValues: lows,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("00ff88").WithAlpha(80), StrokeWidth: 1.0},
			},
			chart.TimeSeries{
				Name:    "Price",
				XValues: times,
				YValues: closes,
				Style:   chart.Style{StrokeColor: drawing.ColorFromHex("00ff88"), StrokeWidth: 2.0},
			},
			level("Entry", entry, times, chart.Style{StrokeColor: drawing.ColorFromHex("ff6b6b"), StrokeWidth: 3.0}),
			level("Target", target, times, chart.Style{StrokeColor: drawing.ColorFromHex("4ecdc4"), StrokeWidth: 1.5, StrokeDashArray: []float64{5.0, 5.0}}),
			level("Stop", stop, times, chart.Style{StrokeColor: drawing.ColorFromHex("ff9f43"), StrokeWidth: 1.5, StrokeDashArray: []float64{5.0, 5.0}}),
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	// Render into memory first so a failure never publishes a partial
	// artifact: Path must only report complete charts.
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	if err := os.WriteFile(r.file(tradeID), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write chart file: %w", err)
	}
	r.logger.Debug("Rendered chart", zap.String("trade_id", tradeID), zap.Int("bars", len(req.Bars)))
	return nil
}

// levels derives the target and stop prices from the signal. The dollar
// amounts are scaled against 1% of the entry price per $50 of risk, matching
// how the notification presents them.
func levels(sig models.Signal) (target, stop float64) {
	entry := sig.EntryPrice
	targetOffset := (sig.TargetAmount / 50) * (entry * 0.01)
	riskOffset := (sig.RiskAmount / 50) * (entry * 0.01)
	if sig.Direction == "LONG" {
		return entry + targetOffset, entry - riskOffset
	}
	return entry - targetOffset, entry + riskOffset
}

// level builds a horizontal line spanning the chart's time range.
func level(name string, price float64, times []time.Time, style chart.Style) chart.TimeSeries {
	return chart.TimeSeries{
		Name:    fmt.Sprintf("%s: $%.2f", name, price),
		XValues: []time.Time{times[0], times[len(times)-1]},
		YValues: []float64{price, price},
		Style:   style,
	}
}

// Path reports where the artifact lives, if it exists.
func (r *FileRenderer) Path(tradeID string) (string, bool) {
	path := r.file(tradeID)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Delete removes the artifact for an evicted trade.
func (r *FileRenderer) Delete(tradeID string) error {
	err := os.Remove(r.file(tradeID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete chart artifact: %w", err)
	}
	return nil
}
