package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/admi-n/sc-security-research/src/internal"
)

// normalizeAddress 地址统一小写存储
func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// SaveContract 保存合约信息到数据库，地址冲突时更新
func (s *Store) SaveContract(ctx context.Context, c internal.Contract) error {
	addr := normalizeAddress(c.Address)
	if addr == "" {
		return fmt.Errorf("SaveContract: empty address")
	}

	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("SaveContract: marshal %s: %w", addr, err)
	}

	var verified any
	if c.Verified != nil {
		verified = boolToInt(*c.Verified)
	}
	category := c.Category
	if category == "" {
		category = internal.CategoryUnknown
	}

	query := `INSERT INTO contracts (address, name, category, verified, has_source, document, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?) ` + s.upsertClause("address",
		"name", "category", "verified", "has_source", "document", "updated_at")

	_, err = s.db.ExecContext(ctx, s.rebind(query),
		addr,
		c.Name,
		category,
		verified,
		boolToInt(c.HasSource()),
		string(doc),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("SaveContract %s: %w", addr, err)
	}
	return nil
}

// SaveContracts 批量保存，遇到第一个错误即返回
func (s *Store) SaveContracts(ctx context.Context, contracts []internal.Contract) error {
	for _, c := range contracts {
		if err := s.SaveContract(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// ContractExists 检查合约是否已存在
func (s *Store) ContractExists(ctx context.Context, address string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM contracts WHERE address = ?"),
		normalizeAddress(address)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetContract 按地址读取，不存在返回 ErrNotFound
func (s *Store) GetContract(ctx context.Context, address string) (*internal.Contract, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT document FROM contracts WHERE address = ?"),
		normalizeAddress(address)).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contract %s: %w", address, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var c internal.Contract
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("GetContract: decode %s: %w", address, err)
	}
	return &c, nil
}

// ListContracts 按地址排序列出合约；category 为空表示全部，limit<=0 表示不限制
func (s *Store) ListContracts(ctx context.Context, category string, limit int) ([]internal.Contract, error) {
	query := "SELECT document FROM contracts"
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, category)
	}
	query += " ORDER BY address"
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []internal.Contract{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var c internal.Contract
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			return nil, fmt.Errorf("ListContracts: decode: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByCategory 各类别合约数
func (s *Store) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM contracts GROUP BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		out[category] = n
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
