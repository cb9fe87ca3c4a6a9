package analysis

import (
	"fmt"
	"strings"

	"trade-mentor/internal/types"
)

// GenericContext stands in for the video context when no external strategy is used.
const GenericContext = "일반적인 기술적 분석 관점에서 조언합니다."

// GroupTrades buckets trades by stock name. Groups keep first-seen order and
// trades keep submission order; the group code is the last code seen.
func GroupTrades(trades []types.Trade) []types.StockGroup {
	index := make(map[string]int)
	var groups []types.StockGroup
	for _, t := range trades {
		i, ok := index[t.StockName]
		if !ok {
			i = len(groups)
			index[t.StockName] = i
			groups = append(groups, types.StockGroup{StockName: t.StockName})
		}
		groups[i].StockCode = t.StockCode
		groups[i].Trades = append(groups[i].Trades, t)
	}
	return groups
}

func tradeLabel(t types.Trade) string {
	if t.IsBuy() {
		return "매수"
	}
	return "매도"
}

// renderStocks builds the per-stock section of the prompt.
func renderStocks(groups []types.StockGroup, prices []types.StockPriceSample) string {
	heavy := strings.Repeat("=", 50)
	light := strings.Repeat("-", 50)

	var b strings.Builder
	for gi, g := range groups {
		fmt.Fprintf(&b, "\n%s\n", heavy)
		fmt.Fprintf(&b, "[종목 %d] %s (코드: %s)\n", gi+1, g.StockName, g.StockCode)
		fmt.Fprintf(&b, "%s\n\n", heavy)

		b.WriteString("📊 매매 내역:\n")
		for ti, t := range g.Trades {
			fmt.Fprintf(&b, "\n  [%d] %s - %s\n", ti+1, t.Date, tradeLabel(t))
			fmt.Fprintf(&b, "      - 거래가격: %s원\n", formatWon(t.Price))
			fmt.Fprintf(&b, "      - 거래수량: %d주\n", t.Quantity)
			b.WriteString("      \n")
			b.WriteString("  📈 당시 주가 흐름:\n")
			b.WriteString(PriceContext(t.Date, prices))
			b.WriteString("\n\n")
		}

		fmt.Fprintf(&b, "\n%s\n", light)
	}
	return b.String()
}

// BuildPrompt assembles the full instruction prompt. Same inputs, same output.
func BuildPrompt(videoContext string, trades []types.Trade, prices []types.StockPriceSample) string {
	stocks := renderStocks(GroupTrades(trades), prices)
	r := strings.NewReplacer("{context}", videoContext, "{stocks_context}", stocks)
	return r.Replace(promptTemplate)
}

const promptTemplate = `
당신은 주식 초보자를 위한 **친절하고 예리한 투자 멘토 AI**입니다.

**[역할]**
사용자가 거래한 **각 종목별로** 모든 매매 내역을 분석하고, 실질적인 조언을 제공하세요.
유튜브 영상의 투자 전략(Context)을 바탕으로 구체적이고 실천 가능한 개선점을 제시합니다.

**[영상 전략 내용 (Context)]**
{context}

**[사용자의 종목별 매매 기록]**
{stocks_context}

**[total_score 산정 기준]**
1. **점수 범위 및 의미**:
   - 90-100점: 완벽한 전략 실행 (영상 내용 완벽 적용)
   - 75-89점: 대체로 우수 (약간의 아쉬움)
   - 60-74점: 핵심은 이해했으나 개선 필요 (타점 오류 등)
   - 40-59점: 전략과 괴리 (영상 내용 미반영)
   - 0-39점: 무계획적 뇌동 매매
2. **평가 요소**:
   - 매수 타점의 적절성 (눌림목, 지지선 확인 여부)
   - 기술적 지표 활용 (이동평균선 등 영상 언급 지표)
   - 추세 파악 능력 (상승/하락 추세 구분)
   - 리스크 관리 및 영상 전략 준수도

**[필수 요청 사항]**
1. **반드시 JSON 형식만 출력하세요.**
2. **마크다운(` + "```json" + `)이나 다른 설명 텍스트를 절대 포함하지 마세요.**
3. 아래 포맷을 정확히 따르세요.

**[출력 JSON 포맷]**
{
    "analysis": [
        {
            "trade_id": 1,
            "stock_name": "종목명",
            "type": "매수 2회, 매도 1회 등 요약",
            "advice": "영상 내용에 기반한 구체적인 조언 (2-4문장)"
        }
    ],
    "total_score": 75
}

**advice 작성 팁:**
- "이동평균선", "눌림목", "거래량" 등 영상의 핵심 키워드를 포함하세요.
- 데이터가 부족하면 "데이터 부족으로 정확한 분석은 어렵지만~" 형태로 일반적인 조언을 주세요.
`
