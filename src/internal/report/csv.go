package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/admi-n/sc-security-research/src/internal/analysis"
)

// WriteRowsCSV 输出 category,count,percentage,matched_ids 扁平表，matched_ids 以 ; 连接
func WriteRowsCSV(w io.Writer, rows []analysis.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"category", "count", "percentage", "matched_ids"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Category,
			strconv.Itoa(r.Count),
			strconv.FormatFloat(r.Percentage, 'f', 1, 64),
			strings.Join(r.MatchedIDs, ";"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
