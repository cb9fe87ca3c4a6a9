package analysis

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-mentor/internal/types"
)

func trade(name, code, kind, date string, price int64, qty int) types.Trade {
	return types.Trade{
		StockName: name,
		StockCode: code,
		TradeType: kind,
		Date:      date,
		Price:     decimal.NewFromInt(price),
		Quantity:  qty,
	}
}

func TestGroupTradesOrder(t *testing.T) {
	trades := []types.Trade{
		trade("A", "001", "buy", "2024-01-01", 100, 1),
		trade("B", "002", "sell", "2024-01-02", 200, 2),
		trade("A", "001", "sell", "2024-01-03", 300, 3),
	}

	groups := GroupTrades(trades)
	require.Len(t, groups, 2)

	assert.Equal(t, "A", groups[0].StockName)
	require.Len(t, groups[0].Trades, 2)
	assert.Equal(t, "buy", groups[0].Trades[0].TradeType)
	assert.Equal(t, "sell", groups[0].Trades[1].TradeType)

	assert.Equal(t, "B", groups[1].StockName)
	require.Len(t, groups[1].Trades, 1)
	assert.Equal(t, "sell", groups[1].Trades[0].TradeType)
}

func TestGroupTradesLastCodeWins(t *testing.T) {
	groups := GroupTrades([]types.Trade{
		trade("A", "", "buy", "2024-01-01", 1, 1),
		trade("A", "005930", "buy", "2024-01-02", 1, 1),
	})
	require.Len(t, groups, 1)
	assert.Equal(t, "005930", groups[0].StockCode)
}

func TestGroupTradesEmpty(t *testing.T) {
	assert.Empty(t, GroupTrades(nil))
}

func TestBuildPrompt(t *testing.T) {
	trades := []types.Trade{
		trade("삼성전자", "005930", "buy", "2024-03-15", 70500, 10),
		trade("카카오", "035720", "sell", "2024-03-16", 52000, 3),
		trade("삼성전자", "005930", "sell", "2024-03-18", 73000, 10),
	}
	prices := []types.StockPriceSample{sample("2024-03-14", "70000")}

	prompt := BuildPrompt("눌림목에서 매수하라", trades, prices)

	assert.Contains(t, prompt, "**[영상 전략 내용 (Context)]**\n눌림목에서 매수하라\n")
	assert.Contains(t, prompt, "[종목 1] 삼성전자 (코드: 005930)")
	assert.Contains(t, prompt, "[종목 2] 카카오 (코드: 035720)")
	assert.Less(t, strings.Index(prompt, "[종목 1]"), strings.Index(prompt, "[종목 2]"))

	assert.Contains(t, prompt, "  [1] 2024-03-15 - 매수\n      - 거래가격: 70,500원\n      - 거래수량: 10주\n")
	assert.Contains(t, prompt, "  [2] 2024-03-18 - 매도\n")
	assert.Contains(t, prompt, "  📈 당시 주가 흐름:\n  2024-03-14: 70,000원\n")
	assert.Contains(t, prompt, strings.Repeat("=", 50))
	assert.Contains(t, prompt, strings.Repeat("-", 50))

	for _, band := range []string{"90-100점", "75-89점", "60-74점", "40-59점", "0-39점"} {
		assert.Contains(t, prompt, band)
	}
	assert.Contains(t, prompt, `"total_score": 75`)
	assert.NotContains(t, prompt, "{context}")
	assert.NotContains(t, prompt, "{stocks_context}")
}

func TestBuildPromptDeterministic(t *testing.T) {
	trades := []types.Trade{trade("A", "1", "buy", "2024-01-01", 1, 1)}
	assert.Equal(t, BuildPrompt("ctx", trades, nil), BuildPrompt("ctx", trades, nil))
}

func TestBuildPromptContextIsNotReinterpolated(t *testing.T) {
	prompt := BuildPrompt("literal {stocks_context}", nil, nil)
	assert.Contains(t, prompt, "literal {stocks_context}")
}
