package types

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Trade is one buy or sell action submitted by the caller.
// Dates stay as "YYYY-MM-DD" strings; they are parsed where a window is needed
// so a bad date degrades one price context instead of rejecting the request.
type Trade struct {
	StockName string          `json:"stockName" validate:"required"`
	StockCode string          `json:"stockCode"`
	TradeType string          `json:"tradeType" validate:"required,oneof=buy sell"`
	Date      string          `json:"date" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"gt=0"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
}

// IsBuy reports whether the trade is a purchase.
func (t Trade) IsBuy() bool { return t.TradeType == TradeBuy }

const (
	TradeBuy  = "buy"
	TradeSell = "sell"
)

type StockPriceSample struct {
	Date       string          `json:"date" validate:"required"`
	ClosePrice decimal.Decimal `json:"closePrice" validate:"gt=0"`
}

// StockGroup holds every trade of one stock in submission order.
type StockGroup struct {
	StockName string
	StockCode string
	Trades    []Trade
}

// StrategyExternal selects the transcript-backed pipeline.
const StrategyExternal = "external"

// AnalysisRequest is the only shape accepted at the API boundary.
type AnalysisRequest struct {
	Trades      []Trade            `json:"trades" validate:"required,dive"`
	StockPrices []StockPriceSample `json:"stockPrices" validate:"required,dive"`
	Strategy    string             `json:"strategy"`
	ExternalURL string             `json:"externalUrl,omitempty"`
}

// Normalize applies request defaults.
func (r *AnalysisRequest) Normalize() {
	if r.Strategy == "" {
		r.Strategy = StrategyExternal
	}
}

// AnalysisReport is either the model's advice or an error-shaped body.
// A successful report carries the model's JSON object verbatim in Body;
// TotalScore is read from it for logging and metrics only.
type AnalysisReport struct {
	Body       json.RawMessage `json:"-"`
	TotalScore *int            `json:"-"`
	Error      string          `json:"error,omitempty"`
	RawText    string          `json:"raw_text,omitempty"`
	Advice     string          `json:"advice,omitempty"`
}

type reportError AnalysisReport

func (r AnalysisReport) MarshalJSON() ([]byte, error) {
	if r.Error == "" && len(r.Body) > 0 {
		return r.Body, nil
	}
	return json.Marshal(reportError(r))
}

func (r *AnalysisReport) UnmarshalJSON(b []byte) error {
	var e reportError
	if err := json.Unmarshal(b, &e); err != nil {
		return err
	}
	*r = AnalysisReport(e)
	if r.Error == "" {
		r.Body = append(json.RawMessage(nil), b...)
		r.TotalScore = ScoreOf(r.Body)
	}
	return nil
}

// ScoreOf returns total_score from a report object when it holds a whole number.
func ScoreOf(body json.RawMessage) *int {
	var v struct {
		TotalScore json.Number `json:"total_score"`
	}
	if err := json.Unmarshal(body, &v); err != nil || v.TotalScore == "" {
		return nil
	}
	d, err := decimal.NewFromString(v.TotalScore.String())
	if err != nil || !d.IsInteger() {
		return nil
	}
	score := int(d.IntPart())
	return &score
}

// Failed reports whether the report carries an error instead of advice.
func (r AnalysisReport) Failed() bool { return r.Error != "" }

// Passage is one retrieved transcript chunk.
type Passage struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}
