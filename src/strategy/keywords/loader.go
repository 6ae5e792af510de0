package keywords

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/admi-n/sc-security-research/src/internal/analysis"
)

//go:embed tables/*.yaml
var builtin embed.FS

// 内置词表名称
const (
	Vulnerability    = "vulnerability"
	Defense          = "defense"
	Themes           = "themes"
	Security         = "security"
	ContractPatterns = "contract_patterns"
	ScamKeywords     = "scam_keywords"
)

// ErrUnknownTable 请求了不存在的内置词表
var ErrUnknownTable = errors.New("unknown keyword table")

// Category 词表中的一个类别，保留 YAML 中的顺序
type Category struct {
	Name         string   `json:"-"`
	Keywords     []string `json:"keywords"`
	CodePatterns []string `json:"code_patterns,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// Triggers 返回该类别全部触发短语（keywords + code_patterns）
func (c Category) Triggers() []string {
	out := make([]string, 0, len(c.Keywords)+len(c.CodePatterns))
	out = append(out, c.Keywords...)
	out = append(out, c.CodePatterns...)
	return out
}

// Table 一张完整的词表
type Table struct {
	Name       string
	Categories []Category
}

// CategoryTable 转换为分类器使用的映射
func (t *Table) CategoryTable() analysis.CategoryTable {
	out := make(analysis.CategoryTable, len(t.Categories))
	for _, c := range t.Categories {
		out[c.Name] = c.Triggers()
	}
	return out
}

// Names 按 YAML 顺序返回类别名
func (t *Table) Names() []string {
	names := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		names[i] = c.Name
	}
	return names
}

// Get 按名称查找类别
func (t *Table) Get(name string) (Category, bool) {
	for _, c := range t.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Load 加载内置词表
func Load(name string) (*Table, error) {
	data, err := builtin.ReadFile("tables/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return Parse(name, data)
}

// MustLoad 加载内置词表，失败时 panic（仅用于内置表）
func MustLoad(name string) *Table {
	t, err := Load(name)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadFile 从磁盘加载自定义词表，表名取文件名（去掉扩展名）
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword table %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, data)
}

// List 列出所有内置词表名称
func List() ([]string, error) {
	entries, err := builtin.ReadDir("tables")
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword tables: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Parse 解析 YAML 词表。
// 每个类别的值可以是短语列表，也可以是包含 keywords / code_patterns / description 的映射。
func Parse(name string, data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse keyword table %s: %w", name, err)
	}

	table := &Table{Name: name}
	if len(doc.Content) == 0 {
		return table, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("keyword table %s: top level must be a mapping", name)
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if seen[key.Value] {
			return nil, fmt.Errorf("keyword table %s: duplicate category %q", name, key.Value)
		}
		seen[key.Value] = true

		cat := Category{Name: key.Value}
		switch value.Kind {
		case yaml.SequenceNode:
			if err := value.Decode(&cat.Keywords); err != nil {
				return nil, fmt.Errorf("keyword table %s, category %s: %w", name, key.Value, err)
			}
		case yaml.MappingNode:
			var body struct {
				Keywords     []string `yaml:"keywords"`
				CodePatterns []string `yaml:"code_patterns"`
				Description  string   `yaml:"description"`
			}
			if err := value.Decode(&body); err != nil {
				return nil, fmt.Errorf("keyword table %s, category %s: %w", name, key.Value, err)
			}
			cat.Keywords = body.Keywords
			cat.CodePatterns = body.CodePatterns
			cat.Description = body.Description
		case yaml.ScalarNode:
			// 空值视为没有触发短语
			if value.Tag != "!!null" && value.Value != "" {
				cat.Keywords = []string{value.Value}
			}
		default:
			return nil, fmt.Errorf("keyword table %s, category %s: unsupported value", name, key.Value)
		}
		table.Categories = append(table.Categories, cat)
	}

	return table, nil
}
