package models

// Bar is a single OHLCV candle from the platform's chart series.
type Bar struct {
	Time   string  `json:"time" validate:"required"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Signal describes the candidate entry the human is asked to approve.
type Signal struct {
	Direction    string  `json:"direction" validate:"required,oneof=LONG SHORT"`
	EntryPrice   float64 `json:"entry_price" validate:"required,gt=0"`
	RiskAmount   float64 `json:"risk_amount" validate:"gte=0"`
	TargetAmount float64 `json:"target_amount" validate:"gte=0"`
	PatternType  string  `json:"pattern_type"`
	Confidence   float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// TradeRequest is the payload submitted by the trading platform. The lifecycle
// manager treats it as opaque; only the chart renderer and the notifier read it.
type TradeRequest struct {
	Instrument string             `json:"instrument" validate:"required"`
	Timeframe  string             `json:"timeframe"`
	Bars       []Bar              `json:"bars" validate:"required,min=1,dive"`
	Signal     Signal             `json:"signal" validate:"required"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

// ApplyDefaults fills the optional fields the platform may omit.
func (r *TradeRequest) ApplyDefaults() {
	if r.Timeframe == "" {
		r.Timeframe = "5min"
	}
	if r.Signal.RiskAmount == 0 {
		r.Signal.RiskAmount = 50
	}
	if r.Signal.TargetAmount == 0 {
		r.Signal.TargetAmount = 150
	}
	if r.Signal.PatternType == "" {
		r.Signal.PatternType = "signal"
	}
	if r.Signal.Confidence == 0 {
		r.Signal.Confidence = 0.85
	}
}
