package analysis

import (
	"sort"
)

// Row 报告中的一行：类别、计数、百分比
type Row struct {
	Category   string   `json:"category"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
	MatchedIDs []string `json:"matched_ids,omitempty"`
}

// Percentage 计算 100*count/total，total 为 0 时返回 0
func Percentage(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(count) / float64(total)
}

// Rank 将匹配结果转为按计数降序排列的行；计数相同时按类别名升序。
func Rank(result MatchResult, totalRecords int) []Row {
	rows := make([]Row, 0, len(result))
	for category, m := range result {
		rows = append(rows, Row{
			Category:   category,
			Count:      m.Count,
			Percentage: Percentage(m.Count, totalRecords),
			MatchedIDs: m.MatchedIDs,
		})
	}
	SortRows(rows)
	return rows
}

// SortRows 原地排序：计数降序，类别名升序
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Category < rows[j].Category
	})
}

// Top 返回前 n 行，n <= 0 表示全部
func Top(rows []Row, n int) []Row {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// NonZero 过滤掉计数为 0 的行
func NonZero(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Count > 0 {
			out = append(out, r)
		}
	}
	return out
}

// RankCounts 对普通的 类别->计数 映射排序，用于合并数据集的分布统计
func RankCounts(counts map[string]int, total int) []Row {
	rows := make([]Row, 0, len(counts))
	for category, c := range counts {
		rows = append(rows, Row{Category: category, Count: c, Percentage: Percentage(c, total)})
	}
	SortRows(rows)
	return rows
}
