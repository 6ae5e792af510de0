package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/admi-n/sc-security-research/src/internal/analysis"
)

// runTimeLayout 定长时间格式，保证按字符串排序即按时间排序
const runTimeLayout = "2006-01-02T15:04:05.000000000Z"

// AnalysisRun 一次分类运行的结果
type AnalysisRun struct {
	ID           string
	Table        string // 使用的词表名
	Source       string // 输入文件
	TotalRecords int
	CreatedAt    time.Time
	Rows         []analysis.Row
}

// SaveRun 在一个事务中写入运行记录及其各类别结果；ID 为空时生成 UUID
func (s *Store) SaveRun(ctx context.Context, run *AnalysisRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveRun: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(
		"INSERT INTO analysis_runs (id, table_name, source, total_records, created_at) VALUES (?, ?, ?, ?, ?)"),
		run.ID, run.Table, run.Source, run.TotalRecords, run.CreatedAt.UTC().Format(runTimeLayout))
	if err != nil {
		return fmt.Errorf("SaveRun: insert run: %w", err)
	}

	rowQuery := s.rebind("INSERT INTO analysis_run_rows (run_id, category, match_count, percentage, matched_ids) VALUES (?, ?, ?, ?, ?)")
	for _, r := range run.Rows {
		if _, err := tx.ExecContext(ctx, rowQuery,
			run.ID, r.Category, r.Count, r.Percentage, strings.Join(r.MatchedIDs, ",")); err != nil {
			return fmt.Errorf("SaveRun: insert row %s: %w", r.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SaveRun: commit: %w", err)
	}
	return nil
}

// GetRun 读取运行记录，行按计数降序、类别名升序
func (s *Store) GetRun(ctx context.Context, id string) (*AnalysisRun, error) {
	run := &AnalysisRun{ID: id}
	var created string
	err := s.db.QueryRowContext(ctx, s.rebind(
		"SELECT table_name, source, total_records, created_at FROM analysis_runs WHERE id = ?"), id).
		Scan(&run.Table, &run.Source, &run.TotalRecords, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	run.CreatedAt, _ = time.Parse(runTimeLayout, created)

	rows, err := s.db.QueryContext(ctx, s.rebind(
		"SELECT category, match_count, percentage, matched_ids FROM analysis_run_rows WHERE run_id = ?"), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r analysis.Row
		var ids string
		if err := rows.Scan(&r.Category, &r.Count, &r.Percentage, &ids); err != nil {
			return nil, err
		}
		if ids != "" {
			r.MatchedIDs = strings.Split(ids, ",")
		}
		run.Rows = append(run.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	analysis.SortRows(run.Rows)
	return run, nil
}

// ListRuns 最近的运行记录（不含行），按创建时间倒序
func (s *Store) ListRuns(ctx context.Context, limit int) ([]AnalysisRun, error) {
	query := "SELECT id, table_name, source, total_records, created_at FROM analysis_runs ORDER BY created_at DESC, id"
	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnalysisRun
	for rows.Next() {
		var r AnalysisRun
		var created string
		if err := rows.Scan(&r.ID, &r.Table, &r.Source, &r.TotalRecords, &created); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(runTimeLayout, created)
		out = append(out, r)
	}
	return out, rows.Err()
}
