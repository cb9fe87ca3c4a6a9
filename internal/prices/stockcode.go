package prices

const dateLayout = "2006-01-02"

// UnknownCode is returned for names missing from the table.
const UnknownCode = "UNKNOWN"

// KOSPI large caps.
var stockCodes = map[string]string{
	"삼성전자":     "005930",
	"SK하이닉스":   "000660",
	"LG에너지솔루션": "373220",
	"삼성바이오로직스": "207940",
	"현대차":      "005380",
	"기아":       "000270",
	"POSCO홀딩스": "005490",
	"네이버":      "035420",
	"카카오":      "035720",
	"셀트리온":     "068270",
}

// StockCode looks up the KRX code of a stock name.
func StockCode(name string) (string, bool) {
	code, ok := stockCodes[name]
	if !ok {
		return UnknownCode, false
	}
	return code, true
}
