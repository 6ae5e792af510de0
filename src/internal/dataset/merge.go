package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/admi-n/sc-security-research/src/internal"
)

// MergeSources 合并顺序：Etherscan 采集结果、手工 scam、手工 vulnerable
var MergeSources = []string{EtherscanFile, ScamFile, VulnerableFile}

// LoadContracts 读取合约 JSON 数组
func LoadContracts(path string) ([]internal.Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", path, err)
	}
	var out []internal.Contract
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return out, nil
}

// Merge 依次读取 dir 下的各来源文件并拼接；缺失的文件仅打印警告。
// 地址（忽略大小写）重复时保留后出现的来源（手工数据更完整），位置沿用先出现的那条。
func Merge(dir string) ([]internal.Contract, error) {
	all := []internal.Contract{}
	index := map[string]int{}
	for _, name := range MergeSources {
		contracts, err := LoadContracts(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("⚠️  %s 不存在，跳过\n", name)
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Printf("✅ %s: %d 个合约\n", name, len(contracts))
		for _, c := range contracts {
			key := strings.ToLower(strings.TrimSpace(c.Address))
			if key == "" {
				all = append(all, c)
				continue
			}
			if i, ok := index[key]; ok {
				log.Printf("⚠️  重复地址 %s (%s)，以 %s 中的记录为准\n", c.Address, all[i].Name, name)
				all[i] = c
				continue
			}
			index[key] = len(all)
			all = append(all, c)
		}
	}
	return all, nil
}

// WriteDataset 写出 <stem>.json 与 <stem>.csv，返回两个路径
func WriteDataset(dir, stem string, contracts []internal.Contract) (jsonPath, csvPath string, err error) {
	if contracts == nil {
		contracts = []internal.Contract{}
	}
	jsonPath, err = writeJSON(dir, stem+".json", contracts)
	if err != nil {
		return "", "", err
	}
	csvPath = filepath.Join(dir, stem+".csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return "", "", fmt.Errorf("创建 %s 失败: %w", csvPath, err)
	}
	defer f.Close()

	if err := WriteCSV(f, contracts); err != nil {
		return "", "", err
	}
	return jsonPath, csvPath, f.Close()
}

// WriteCSV 以全部记录出现过的 JSON 字段并集（排序后）为列写出 CSV；数组用 ";" 连接
func WriteCSV(w io.Writer, contracts []internal.Contract) error {
	rows := make([]map[string]any, 0, len(contracts))
	keys := map[string]struct{}{}
	for _, c := range contracts {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("序列化合约 %s 失败: %w", c.Address, err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		for k := range m {
			keys[k] = struct{}{}
		}
		rows = append(rows, m)
	}

	header := make([]string, 0, len(keys))
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)

	cw := csv.NewWriter(w)
	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	for _, m := range rows {
		record := make([]string, len(header))
		for i, k := range header {
			record[i] = csvValue(m[k])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = csvValue(p)
		}
		return strings.Join(parts, ";")
	default:
		return fmt.Sprint(x)
	}
}
