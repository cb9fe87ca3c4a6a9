package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"trade-mentor/internal/analysis"
	"trade-mentor/internal/auditlog"
	"trade-mentor/internal/logger"
	"trade-mentor/internal/prices"
	"trade-mentor/internal/types"
)

const (
	dateLayout        = "2006-01-02"
	defaultPriceRange = 60 * 24 * time.Hour
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "Running",
		"message": "투자 전략 AI 멘토 API 서버가 정상 작동 중입니다.",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// POST /api/test-video?url=
func (s *Server) handleTestVideo(w http.ResponseWriter, r *http.Request) {
	check, err := s.pipeline.CheckVideo(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// POST /api/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req types.AnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "잘못된 요청 본문입니다: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	entry := auditlog.Entry{
		RequestID: middleware.GetReqID(ctx),
		Trades:    len(req.Trades),
		Stocks:    len(analysis.GroupTrades(req.Trades)),
	}

	res, err := s.pipeline.Analyze(ctx, &req)
	entry.Strategy = req.Strategy
	entry.VideoID = res.VideoID
	if err != nil {
		entry.Status = writeError(w, err)
		entry.Error = err.Error()
	} else {
		writeJSON(w, http.StatusOK, res.Report)
		entry.Status = http.StatusOK
		entry.TotalScore = res.Report.TotalScore
		entry.Error = res.Report.Error
	}

	entry.DurationMs = time.Since(start).Milliseconds()
	if err := s.audit.Append(entry); err != nil {
		logger.ErrorWithErr(ctx, "Failed to append audit entry", err)
	}
}

type stockPricesResponse struct {
	Code   string                   `json:"code"`
	Symbol string                   `json:"symbol"`
	Source string                   `json:"source"`
	Prices []types.StockPriceSample `json:"prices"`
}

// GET /api/stock-prices?code=|name=&from=&to=
// Without dates the last 60 days up to today are returned.
func (s *Server) handleStockPrices(w http.ResponseWriter, r *http.Request) {
	if s.prices == nil {
		writeDetail(w, http.StatusServiceUnavailable, "price source is not configured")
		return
	}
	q := r.URL.Query()

	code := strings.TrimSpace(q.Get("code"))
	if code == "" && q.Get("name") != "" {
		var ok bool
		if code, ok = prices.StockCode(q.Get("name")); !ok {
			writeDetail(w, http.StatusNotFound, "알 수 없는 종목명입니다: "+q.Get("name"))
			return
		}
	}
	if code == "" {
		writeDetail(w, http.StatusBadRequest, "code 또는 name이 필요합니다.")
		return
	}

	to := time.Now()
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid to date %q", v))
			return
		}
		to = t
	}
	from := to.Add(-defaultPriceRange)
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid from date %q", v))
			return
		}
		from = t
	}
	if from.After(to) {
		writeDetail(w, http.StatusBadRequest, "from must not be after to")
		return
	}

	samples, err := s.prices.History(r.Context(), code, from, to)
	if err != nil {
		logger.ErrorWithErr(r.Context(), "Price history lookup failed", err, "code", code, "source", s.prices.Name())
		writeDetail(w, http.StatusBadGateway, err.Error())
		return
	}
	if len(samples) == 0 {
		writeDetail(w, http.StatusNotFound, "해당 종목의 주가 데이터가 없습니다: "+code)
		return
	}

	symbol := code
	if sym, ok := s.prices.(interface{ Symbol(string) string }); ok {
		symbol = sym.Symbol(code)
	}
	writeJSON(w, http.StatusOK, stockPricesResponse{
		Code:   code,
		Symbol: symbol,
		Source: s.prices.Name(),
		Prices: samples,
	})
}

// GET /api/stock-code?name=
func (s *Server) handleStockCode(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeDetail(w, http.StatusBadRequest, "name이 필요합니다.")
		return
	}
	code, _ := prices.StockCode(name)
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "code": code})
}
