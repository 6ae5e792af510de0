package analysis

import (
	"strings"
)

// Record 待匹配的一条文本记录（论文摘要、合约描述等）
type Record struct {
	ID     string
	Fields []string
}

// NewRecord 创建记录，fields 中的空字符串会被保留（不影响匹配）
func NewRecord(id string, fields ...string) Record {
	return Record{ID: id, Fields: fields}
}

// Text 返回用于匹配的小写文本（各字段以空格拼接）
func (r Record) Text() string {
	return strings.ToLower(strings.Join(r.Fields, " "))
}

// CategoryTable 类别 -> 触发短语列表
type CategoryTable map[string][]string

// CategoryMatch 单个类别的匹配结果
type CategoryMatch struct {
	Count      int      `json:"count"`
	MatchedIDs []string `json:"matched_ids"`
}

// MatchResult 一次分类运行的结果，每个输入类别恰好一项
type MatchResult map[string]CategoryMatch

// Categorize 对 records 按 table 进行分类统计。
// 同一记录 ID 在同一类别下最多计数一次（重复 ID 视为同一条记录）；不同类别之间互不影响。
func Categorize(records []Record, table CategoryTable) MatchResult {
	// 触发短语统一转小写，只做一次
	lowered := make(map[string][]string, len(table))
	for category, triggers := range table {
		phrases := make([]string, 0, len(triggers))
		for _, t := range triggers {
			if t == "" {
				continue
			}
			phrases = append(phrases, strings.ToLower(t))
		}
		lowered[category] = phrases
	}

	result := make(MatchResult, len(table))
	seen := make(map[string]map[string]struct{}, len(table))
	for category := range table {
		result[category] = CategoryMatch{MatchedIDs: []string{}}
		seen[category] = map[string]struct{}{}
	}

	for _, rec := range records {
		text := rec.Text()
		for category, phrases := range lowered {
			if _, dup := seen[category][rec.ID]; dup {
				continue
			}
			if !containsAny(text, phrases) {
				continue
			}
			seen[category][rec.ID] = struct{}{}
			m := result[category]
			m.Count++
			m.MatchedIDs = append(m.MatchedIDs, rec.ID)
			result[category] = m
		}
	}

	return result
}

// containsAny 第一个命中即返回
func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Total 返回所有类别计数之和（一条记录可在多个类别中出现）
func (m MatchResult) Total() int {
	total := 0
	for _, cm := range m {
		total += cm.Count
	}
	return total
}

// Counts 仅返回类别 -> 计数
func (m MatchResult) Counts() map[string]int {
	out := make(map[string]int, len(m))
	for category, cm := range m {
		out[category] = cm.Count
	}
	return out
}
