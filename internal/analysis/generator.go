package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"trade-mentor/internal/interfaces"
	"trade-mentor/internal/llm"
	"trade-mentor/internal/logger"
	"trade-mentor/internal/trace"
	"trade-mentor/internal/types"
)

const (
	errNoResponse  = "No response"
	errParseFailed = "JSON 파싱 실패"
	parseApology   = "AI가 답변을 생성했으나 형식이 올바르지 않습니다. 다시 시도해주세요."
)

var errNotObject = errors.New("reply holds no JSON object")

var (
	openFence  = regexp.MustCompile("```json\\s*")
	closeFence = regexp.MustCompile("```\\s*$")
)

// CleanJSONText strips markdown fences and surrounding prose, keeping the span
// from the first "{" to the last "}". Text without such a span is returned trimmed.
func CleanJSONText(text string) string {
	text = openFence.ReplaceAllString(text, "")
	text = closeFence.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}

// Generator turns an analysis request into a report with one model call.
type Generator struct {
	llm interfaces.Completer
}

func NewGenerator(llm interfaces.Completer) *Generator {
	return &Generator{llm: llm}
}

// Generate never fails: model and parse errors come back as an error-shaped report.
func (g *Generator) Generate(ctx context.Context, videoContext string, req *types.AnalysisRequest) types.AnalysisReport {
	ctx, span := trace.StartSpan(ctx, "analysis.Generate")
	defer span.End()

	prompt := BuildPrompt(videoContext, req.Trades, req.StockPrices)
	logger.Debug(ctx, "Prompt assembled", "prompt_chars", len([]rune(prompt)), "trades", len(req.Trades))

	raw, err := g.llm.Complete(ctx, prompt)
	if errors.Is(err, llm.ErrNoChoices) {
		return types.AnalysisReport{Error: errNoResponse}
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Model call failed", err)
		return types.AnalysisReport{Error: err.Error()}
	}

	return ParseReport(ctx, raw)
}

// ParseReport decodes a model reply. Any JSON object is passed through as is;
// on failure the trimmed reply is kept as raw_text.
func ParseReport(ctx context.Context, raw string) types.AnalysisReport {
	raw = strings.TrimSpace(raw)

	cleaned := CleanJSONText(raw)
	var body map[string]json.RawMessage
	err := errNotObject
	if strings.HasPrefix(cleaned, "{") {
		err = json.Unmarshal([]byte(cleaned), &body)
	}
	if err != nil {
		logger.Warn(ctx, "Model reply is not valid JSON", "error", err, "reply_chars", len(raw))
		return types.AnalysisReport{
			Error:   errParseFailed,
			RawText: raw,
			Advice:  parseApology,
		}
	}

	report := types.AnalysisReport{Body: json.RawMessage(cleaned)}
	report.TotalScore = types.ScoreOf(report.Body)
	if report.TotalScore == nil {
		logger.Warn(ctx, "Model reply has no whole-number total_score", "reply_chars", len(raw))
	}
	return report
}
