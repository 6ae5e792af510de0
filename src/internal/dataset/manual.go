// Package dataset 维护手工整理的 scam / vulnerable 合约数据，并将各来源合并为最终数据集。
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/strategy/keywords"
)

// 数据文件名
const (
	EtherscanFile    = "smart_contracts_dataset.json"
	ScamFile         = "scam_contracts.json"
	VulnerableFile   = "vulnerable_contracts.json"
	PatternsFile     = "vulnerability_patterns.json"
	ScamKeywordsFile = "scam_keywords.json"
	FinalFile        = "final_dataset.json"
)

// ScamContracts 已知诈骗合约（多数未验证源码）
func ScamContracts() []internal.Contract {
	return []internal.Contract{
		{
			Address:              "0x87230146E138d3F296a9a77e497A2A83012e9Bc5",
			Name:                 "SQUID Token",
			Category:             internal.CategoryScam,
			ScamType:             "honeypot",
			Description:          "Squid Game token - users could buy but not sell (honeypot mechanism)",
			KnownVulnerabilities: []string{"honeypot", "sell_restriction", "hidden_mint"},
			DateIdentified:       "2021-11",
			EstimatedLoss:        "$3.38M",
			Verified:             internal.BoolPtr(false),
			SourceNotes:          "Rug pull scam - developers removed liquidity",
		},
		{
			Address:              "0x5a3e6A77ba2f983eC0d371ea3B475F8Bc0811AD5",
			Name:                 "AnubisDAO",
			Category:             internal.CategoryScam,
			ScamType:             "rug_pull",
			Description:          "DeFi project that disappeared with investor funds within 24 hours",
			KnownVulnerabilities: []string{"rug_pull", "liquidity_drain"},
			DateIdentified:       "2021-10",
			EstimatedLoss:        "$58M",
			Verified:             internal.BoolPtr(false),
			SourceNotes:          "Developer wallet drained all funds",
		},
		{
			Address:              "0xB8c77482e45F1F44dE1745F52C74426C631bDD52",
			Name:                 "SaveTheKids Token",
			Category:             internal.CategoryScam,
			ScamType:             "pump_and_dump",
			Description:          "Celebrity-endorsed pump and dump scheme",
			KnownVulnerabilities: []string{"pump_and_dump", "insider_selling"},
			DateIdentified:       "2021-06",
			EstimatedLoss:        "$1M+",
			Verified:             internal.BoolPtr(false),
			SourceNotes:          "Influencers promoted then sold immediately",
		},
	}
}

// VulnerableContracts 被攻击过的合法合约
func VulnerableContracts() []internal.Contract {
	return []internal.Contract{
		{
			Address:              "0xbb9bc244d798123fde783fcc1c72d3bb8c189413",
			Name:                 "TheDAO",
			Category:             internal.CategoryVulnerable,
			VulnerabilityType:    "reentrancy",
			Description:          "First major reentrancy attack on Ethereum",
			KnownVulnerabilities: []string{"reentrancy", "recursive_call"},
			DateIdentified:       "2016-06",
			EstimatedLoss:        "$60M (at the time)",
			Verified:             internal.BoolPtr(true),
			SourceNotes:          "Led to Ethereum hard fork (ETH/ETC split)",
			VulnerabilityPattern: "call.value()() before state update",
		},
		{
			Address:              "0x863df6bfa4469f3ead0be8f9f2aae51c91a907b4",
			Name:                 "Parity MultiSig Wallet",
			Category:             internal.CategoryVulnerable,
			VulnerabilityType:    "delegatecall",
			Description:          "Library self-destruct vulnerability",
			KnownVulnerabilities: []string{"delegatecall", "selfdestruct", "unprotected_function"},
			DateIdentified:       "2017-11",
			EstimatedLoss:        "$280M frozen",
			Verified:             internal.BoolPtr(true),
			SourceNotes:          "User accidentally killed library contract",
			VulnerabilityPattern: "public delegatecall to library",
		},
		{
			Address:              "0xd9Db270c1B5E3Bd161E8c8503c55cEABeE709552",
			Name:                 "BNB Bridge Exploit",
			Category:             internal.CategoryVulnerable,
			VulnerabilityType:    "verification_bypass",
			Description:          "Cross-chain bridge verification exploit",
			KnownVulnerabilities: []string{"signature_verification", "bridge_exploit"},
			DateIdentified:       "2022-10",
			EstimatedLoss:        "$570M",
			Verified:             internal.BoolPtr(true),
			SourceNotes:          "Forged proof to mint BNB tokens",
			VulnerabilityPattern: "weak signature verification",
		},
	}
}

// ManualSummary SaveManual 的写入结果
type ManualSummary struct {
	Files          []string
	Scam           int
	Vulnerable     int
	Patterns       int
	ScamLoss       float64 // 百万美元
	VulnerableLoss float64
}

// SaveManual 写出 4 个手工数据文件
func SaveManual(dir string) (*ManualSummary, error) {
	patterns, err := keywords.Load(keywords.ContractPatterns)
	if err != nil {
		return nil, err
	}
	scamKw, err := keywords.Load(keywords.ScamKeywords)
	if err != nil {
		return nil, err
	}

	scam := ScamContracts()
	vulnerable := VulnerableContracts()

	patternDoc := make(map[string]keywords.Category, len(patterns.Categories))
	for _, c := range patterns.Categories {
		patternDoc[c.Name] = c
	}

	files := []struct {
		name string
		v    any
	}{
		{ScamFile, scam},
		{VulnerableFile, vulnerable},
		{PatternsFile, patternDoc},
		{ScamKeywordsFile, scamKw.CategoryTable()},
	}

	summary := &ManualSummary{
		Scam:           len(scam),
		Vulnerable:     len(vulnerable),
		Patterns:       len(patterns.Categories),
		ScamLoss:       TotalLossMillions(scam),
		VulnerableLoss: TotalLossMillions(vulnerable),
	}
	for _, f := range files {
		path, err := writeJSON(dir, f.name, f.v)
		if err != nil {
			return nil, err
		}
		summary.Files = append(summary.Files, path)
	}
	return summary, nil
}

func writeJSON(dir, name string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化 %s 失败: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return path, nil
}
