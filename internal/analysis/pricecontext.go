package analysis

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"trade-mentor/internal/types"
)

const dateLayout = "2006-01-02"

// Price window around a trade date, both ends inclusive.
const (
	daysBefore = 10
	daysAfter  = 5
)

const (
	NoPriceData    = "  (해당 날짜 주변의 주가 데이터가 없습니다)"
	PriceDateError = "  (날짜 형식 오류로 데이터 추출 실패)"
)

// PriceContext renders the closing prices within [tradeDate-10d, tradeDate+5d]
// one per line, in the order the samples were given. A date that fails to
// parse, on the trade or on any sample, yields PriceDateError.
func PriceContext(tradeDate string, prices []types.StockPriceSample) string {
	target, err := time.Parse(dateLayout, tradeDate)
	if err != nil {
		return PriceDateError
	}
	from := target.AddDate(0, 0, -daysBefore)
	to := target.AddDate(0, 0, daysAfter)

	var lines []string
	for _, p := range prices {
		d, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			return PriceDateError
		}
		if d.Before(from) || d.After(to) {
			continue
		}
		lines = append(lines, "  "+p.Date+": "+formatWon(p.ClosePrice)+"원")
	}

	if len(lines) == 0 {
		return NoPriceData
	}
	return strings.Join(lines, "\n")
}

// formatWon prints an amount with thousands separators and no decimals,
// rounding half to even.
func formatWon(v decimal.Decimal) string {
	return humanize.Comma(v.RoundBank(0).IntPart())
}
