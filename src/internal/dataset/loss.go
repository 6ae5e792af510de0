package dataset

import (
	"strconv"
	"strings"

	"github.com/admi-n/sc-security-research/src/internal"
)

// ParseLossMillions 解析 "$3.38M"、"$1M+"、"$60M (at the time)"、"$280M frozen" 这类金额，单位百万美元。
// 不含 "M" 的金额不参与统计，返回 ok=false。
func ParseLossMillions(s string) (float64, bool) {
	if !strings.Contains(s, "M") {
		return 0, false
	}
	fields := strings.Fields(strings.ReplaceAll(s, "$", ""))
	if len(fields) == 0 {
		return 0, false
	}
	num := strings.TrimRight(fields[0], "M+")
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// TotalLossMillions 汇总可解析的损失金额
func TotalLossMillions(contracts []internal.Contract) float64 {
	total := 0.0
	for _, c := range contracts {
		if v, ok := ParseLossMillions(c.EstimatedLoss); ok {
			total += v
		}
	}
	return total
}
