package analysis

import (
	"sort"
)

// Gap 学术关注与真实合约问题的对照
type Gap struct {
	WellCovered  []string `json:"well_covered"`
	OnlyAcademic []string `json:"only_academic"`
	OnlyPractice []string `json:"only_practice"`
}

// Compare 取学术排名前 topN 的类别，与实际合约中计数大于 0 的类别做集合比较。
// 结果中的每个列表均按名称升序。
func Compare(academic, practice []Row, topN int) Gap {
	academicTop := make(map[string]struct{})
	for _, r := range Top(academic, topN) {
		academicTop[r.Category] = struct{}{}
	}
	found := make(map[string]struct{})
	for _, r := range practice {
		if r.Count > 0 {
			found[r.Category] = struct{}{}
		}
	}

	gap := Gap{WellCovered: []string{}, OnlyAcademic: []string{}, OnlyPractice: []string{}}
	for c := range academicTop {
		if _, ok := found[c]; ok {
			gap.WellCovered = append(gap.WellCovered, c)
		} else {
			gap.OnlyAcademic = append(gap.OnlyAcademic, c)
		}
	}
	for c := range found {
		if _, ok := academicTop[c]; !ok {
			gap.OnlyPractice = append(gap.OnlyPractice, c)
		}
	}

	sort.Strings(gap.WellCovered)
	sort.Strings(gap.OnlyAcademic)
	sort.Strings(gap.OnlyPractice)
	return gap
}

// CountOf 在行列表中查找类别计数，不存在返回 0
func CountOf(rows []Row, category string) int {
	for _, r := range rows {
		if r.Category == category {
			return r.Count
		}
	}
	return 0
}
