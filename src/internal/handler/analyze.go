package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/internal/analysis"
	"github.com/admi-n/sc-security-research/src/internal/arxiv"
	"github.com/admi-n/sc-security-research/src/internal/dataset"
	"github.com/admi-n/sc-security-research/src/internal/report"
	"github.com/admi-n/sc-security-research/src/strategy/keywords"
)

// 输出文件名
const (
	ContractResultsStem  = "vulnerability_analysis_results"
	ContractReportName   = "vulnerability_report"
	AcademicReportName   = "enhanced_academic_report"
	AcademicResultsFile  = "enhanced_academic_results.json"
	AcademicCategoryFile = "enhanced_academic_categories.csv"
	academicTopN         = 5
	reportSectionLimit   = 8
)

// ContractFinding 单个合约命中的漏洞模式
type ContractFinding struct {
	Address         string   `json:"address"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Vulnerabilities []string `json:"vulnerabilities"`
}

// ContractAnalysis 合约模式分析结果
type ContractAnalysis struct {
	ContractsAnalyzed int               `json:"contracts_analyzed"`
	Patterns          []analysis.Row    `json:"patterns"`
	Contracts         []ContractFinding `json:"contracts"`
}

// AnalyzeContracts 用模式词表对合约分类，并给出每个合约命中的类别（按名称升序）
func AnalyzeContracts(contracts []internal.Contract, table analysis.CategoryTable) *ContractAnalysis {
	records := internal.ContractRecords(contracts)
	rows := analysis.Rank(analysis.Categorize(records, table), len(records))

	findings := make([]ContractFinding, len(contracts))
	for i, c := range contracts {
		single := analysis.Categorize(records[i:i+1], table)
		hits := []string{}
		for category, m := range single {
			if m.Count > 0 {
				hits = append(hits, category)
			}
		}
		sort.Strings(hits)
		findings[i] = ContractFinding{
			Address:         c.Address,
			Name:            c.Name,
			Category:        c.Category,
			Vulnerabilities: hits,
		}
	}

	return &ContractAnalysis{
		ContractsAnalyzed: len(contracts),
		Patterns:          rows,
		Contracts:         findings,
	}
}

// ContractAnalysisOptions 合约分析参数
type ContractAnalysisOptions struct {
	Input    string // 默认 <processed>/final_dataset.json
	Keywords string // 自定义 contract_patterns 词表文件
}

// RunContractAnalysis 对合并后的数据集做漏洞模式分析，
// 写出 vulnerability_analysis_results.json / .csv 与 vulnerability_report.txt。
func RunContractAnalysis(ctx context.Context, env *Env, opts ContractAnalysisOptions) (*ContractAnalysis, error) {
	out := env.out()
	input := opts.Input
	if input == "" {
		input = filepath.Join(env.ProcessedDir, dataset.FinalFile)
	}

	table, err := loadTable(keywords.ContractPatterns, opts.Keywords)
	if err != nil {
		return nil, err
	}
	contracts, _ := loadContracts(input)

	result := AnalyzeContracts(contracts, table.CategoryTable())
	env.console().Table(out, "🔍 VULNERABILITY PATTERN ANALYSIS", "Vulnerability Pattern", "contracts", 25, analysis.NonZero(result.Patterns))

	storage := report.NewFileStorage(env.ReportsDir)

	data, err := report.NewJSONGenerator().Generate(&report.Report{Data: result})
	if err != nil {
		return result, err
	}
	jsonPath, err := storage.Save(ContractResultsStem+".json", data)
	if err != nil {
		return result, err
	}
	csvPath := filepath.Join(env.ReportsDir, ContractResultsStem+".csv")
	if err := writeFile(csvPath, func(w io.Writer) error { return writeFindingsCSV(w, result.Contracts) }); err != nil {
		return result, err
	}

	rep := report.NewReport(ContractReportName, "Smart Contract Vulnerability Analysis", "contracts", len(contracts))
	rep.AddOverview("Input", filepath.Base(input))
	rep.AddOverview("Pattern Table", table.Name)
	rep.AddSection(report.Section{
		Title: "Vulnerability Patterns",
		Icon:  "🔴",
		Label: "Vulnerability Pattern",
		Rows:  result.Patterns,
	})
	for _, f := range practiceFindings(result.Patterns) {
		rep.AddFinding(f)
	}
	paths, err := report.SaveAll(rep, storage, append([]string{report.FormatText}, env.Formats...)...)
	if err != nil {
		return result, err
	}

	env.saveRun(ctx, table.Name, input, len(contracts), result.Patterns)

	fmt.Fprintf(out, "\n💾 Results saved:\n   📄 %s\n   📄 %s\n", jsonPath, csvPath)
	for _, p := range paths {
		fmt.Fprintf(out, "   📄 %s\n", p)
	}
	return result, nil
}

// writeFindingsCSV address,name,category,vulnerabilities（; 连接）
func writeFindingsCSV(w io.Writer, findings []ContractFinding) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"address", "name", "category", "vulnerabilities"}); err != nil {
		return err
	}
	for _, f := range findings {
		if err := cw.Write([]string{f.Address, f.Name, f.Category, strings.Join(f.Vulnerabilities, ";")}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PaperAnalysis 学术论文分析结果
type PaperAnalysis struct {
	Papers        int
	DateRange     string
	Vulnerability []analysis.Row
	Defense       []analysis.Row
	Themes        []analysis.Row
	Practice      []analysis.Row // 仅在对比真实合约时填充
	Gap           *analysis.Gap
}

// academicResults enhanced_academic_results.json 的结构
type academicResults struct {
	PapersAnalyzed     int            `json:"papers_analyzed"`
	VulnerabilityFocus map[string]int `json:"vulnerability_focus"`
	DefenseMechanisms  map[string]int `json:"defense_mechanisms"`
	ResearchThemes     map[string]int `json:"research_themes"`
	DateRange          string         `json:"date_range"`
	Gap                *analysis.Gap  `json:"gap,omitempty"`
}

// PaperAnalysisOptions 论文分析参数
type PaperAnalysisOptions struct {
	Input          string // 默认 <raw>/academic_papers.json
	Compare        bool   // 与真实合约的模式分析对照
	ContractsInput string // 默认 <processed>/final_dataset.json

	// Keywords 按表名覆盖内置词表：vulnerability / defense / themes -> YAML 文件
	Keywords map[string]string
}

// paperTables 论文分析使用的三张词表
var paperTables = []string{keywords.Vulnerability, keywords.Defense, keywords.Themes}

// RunPaperAnalysis 对论文做漏洞 / 防御 / 主题三张词表的分类，
// 可选地与合约分析结果对照，写出 enhanced_academic_report.txt 与 enhanced_academic_results.json。
func RunPaperAnalysis(ctx context.Context, env *Env, opts PaperAnalysisOptions) (*PaperAnalysis, error) {
	out := env.out()
	input := opts.Input
	if input == "" {
		input = filepath.Join(env.RawDir, arxiv.PapersFile)
	}

	for name := range opts.Keywords {
		if !slices.Contains(paperTables, name) {
			return nil, fmt.Errorf("%w: %s (papers accept: %s)", keywords.ErrUnknownTable, name, strings.Join(paperTables, ", "))
		}
	}
	tables := make(map[string]*keywords.Table, len(paperTables))
	for _, name := range paperTables {
		t, err := loadTable(name, opts.Keywords[name])
		if err != nil {
			return nil, err
		}
		tables[name] = t
	}

	papers, _ := loadPapers(input)
	records := internal.PaperRecords(papers)

	res := &PaperAnalysis{
		Papers:        len(papers),
		DateRange:     yearRange(papers),
		Vulnerability: rank(records, tables[keywords.Vulnerability]),
		Defense:       rank(records, tables[keywords.Defense]),
		Themes:        rank(records, tables[keywords.Themes]),
	}

	con := env.console()
	con.Table(out, "🔍 SEMANTIC VULNERABILITY ANALYSIS", "Vulnerability Category", "papers", 25, analysis.NonZero(res.Vulnerability))
	con.Table(out, "🛡️ DEFENSE MECHANISMS ANALYSIS", "Defense Mechanism", "papers", 25, analysis.NonZero(res.Defense))
	con.Table(out, "📊 GENERAL RESEARCH THEMES", "Research Theme", "papers", 30, analysis.NonZero(res.Themes))

	if opts.Compare {
		res.compare(out, env, opts.ContractsInput, len(papers))
	}

	rep := res.report()
	storage := report.NewFileStorage(env.ReportsDir)
	paths, err := report.SaveAll(rep, storage, append([]string{report.FormatText}, env.Formats...)...)
	if err != nil {
		return res, err
	}

	rep.Data = academicResults{
		PapersAnalyzed:     res.Papers,
		VulnerabilityFocus: countsOf(res.Vulnerability),
		DefenseMechanisms:  countsOf(res.Defense),
		ResearchThemes:     countsOf(res.Themes),
		DateRange:          res.DateRange,
		Gap:                res.Gap,
	}
	data, err := report.NewJSONGenerator().Generate(rep)
	if err != nil {
		return res, err
	}
	jsonPath, err := storage.Save(AcademicResultsFile, data)
	if err != nil {
		return res, err
	}

	csvPath := filepath.Join(env.ReportsDir, AcademicCategoryFile)
	err = writeFile(csvPath, func(w io.Writer) error {
		all := append(append(append([]analysis.Row{}, res.Vulnerability...), res.Defense...), res.Themes...)
		return report.WriteRowsCSV(w, all)
	})
	if err != nil {
		return res, err
	}

	for _, name := range []string{keywords.Vulnerability, keywords.Defense, keywords.Themes} {
		env.saveRun(ctx, name, input, len(papers), res.rowsFor(name))
	}

	fmt.Fprintln(out, "\n💾 Enhanced reports saved:")
	for _, p := range append(paths, jsonPath, csvPath) {
		fmt.Fprintf(out, "   📄 %s\n", p)
	}
	return res, nil
}

// compare 对真实合约运行模式分析并计算差距
func (res *PaperAnalysis) compare(out io.Writer, env *Env, contractsInput string, totalPapers int) {
	if contractsInput == "" {
		contractsInput = filepath.Join(env.ProcessedDir, dataset.FinalFile)
	}
	env.console().Banner(out, "⚖️ ACADEMIC THEORY vs REAL CONTRACTS")

	contracts, err := loadContracts(contractsInput)
	if err != nil {
		fmt.Fprintf(out, "⚠️ %s not found\n", filepath.Base(contractsInput))
		return
	}
	table, err := keywords.Load(keywords.ContractPatterns)
	if err != nil {
		fmt.Fprintf(out, "⚠️ %v\n", err)
		return
	}

	res.Practice = AnalyzeContracts(contracts, table.CategoryTable()).Patterns
	gap := analysis.Compare(analysis.NonZero(res.Vulnerability), res.Practice, academicTopN)
	res.Gap = &gap

	fmt.Fprintf(out, "\n📚 ACADEMIC FOCUS (Top %d):\n", academicTopN)
	for _, r := range analysis.Top(analysis.NonZero(res.Vulnerability), academicTopN) {
		fmt.Fprintf(out, "   %-20s : %2d papers (%.1f%%)\n", r.Category, r.Count, analysis.Percentage(r.Count, totalPapers))
	}
	fmt.Fprintln(out, "\n💻 REAL CONTRACT ISSUES (Our Analysis):")
	for _, r := range analysis.NonZero(res.Practice) {
		fmt.Fprintf(out, "   %-20s : %2d contracts (%.1f%%)\n", r.Category, r.Count, r.Percentage)
	}
}

// report 构造文本报告
func (res *PaperAnalysis) report() *report.Report {
	rep := report.NewReport(AcademicReportName, "Enhanced Academic Analysis Report", "papers", res.Papers)
	if res.DateRange != "" {
		rep.AddOverview("Publication Range", res.DateRange)
	}
	rep.AddOverview("Focus", "Smart Contract Security & Vulnerabilities")

	rep.AddSection(report.Section{
		Title: "Vulnerability Focus in Research",
		Icon:  "🔴",
		Label: "Vulnerability Category",
		Rows:  analysis.NonZero(res.Vulnerability),
		Limit: reportSectionLimit,
	})
	rep.AddSection(report.Section{
		Title: "Recommended Defense Mechanisms",
		Icon:  "🛡️",
		Label: "Defense Mechanism",
		Rows:  analysis.NonZero(res.Defense),
		Limit: reportSectionLimit,
	})
	rep.AddSection(report.Section{
		Title: "Research Approach Trends",
		Icon:  "📚",
		Label: "Research Theme",
		Rows:  analysis.NonZero(res.Themes),
		Width: 30,
	})
	rep.Gap = res.Gap

	if top := analysis.NonZero(res.Vulnerability); len(top) > 0 {
		rep.AddFinding(fmt.Sprintf("Most Studied Vulnerability: %s (%d papers)", top[0].Category, top[0].Count))
	}
	if top := analysis.NonZero(res.Defense); len(top) > 0 {
		rep.AddFinding(fmt.Sprintf("Most Recommended Defense: %s (%d papers)", top[0].Category, top[0].Count))
	}
	for _, f := range practiceFindings(res.Practice) {
		rep.AddFinding(f)
	}
	return rep
}

func (res *PaperAnalysis) rowsFor(table string) []analysis.Row {
	switch table {
	case keywords.Vulnerability:
		return res.Vulnerability
	case keywords.Defense:
		return res.Defense
	default:
		return res.Themes
	}
}

// yearRange 论文发布年份范围，例如 2018-2025
func yearRange(papers []internal.Paper) string {
	from, to := arxiv.DateRange(papers)
	if len(from) < 4 || len(to) < 4 {
		return ""
	}
	if from[:4] == to[:4] {
		return from[:4]
	}
	return from[:4] + "-" + to[:4]
}

func countsOf(rows []analysis.Row) map[string]int {
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Category] = r.Count
	}
	return out
}
