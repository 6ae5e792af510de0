package report

import (
	"fmt"
)

// Reporter 报告器，整合生成器和存储功能
type Reporter struct {
	generator Generator
	storage   Storage
}

// NewReporter 创建报告器
func NewReporter(generator Generator, storage Storage) *Reporter {
	return &Reporter{
		generator: generator,
		storage:   storage,
	}
}

// GenerateAndSave 生成并保存报告，文件名为 report.Name + 生成器扩展名
func (r *Reporter) GenerateAndSave(report *Report) (string, error) {
	content, err := r.generator.Generate(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	path, err := r.storage.Save(report.Name+r.generator.Ext(), content)
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return path, nil
}

// SaveAll 依次用多个格式保存同一份报告
func SaveAll(report *Report, storage Storage, formats ...string) ([]string, error) {
	var paths []string
	for _, f := range formats {
		g, err := NewGenerator(f)
		if err != nil {
			return paths, err
		}
		path, err := NewReporter(g, storage).GenerateAndSave(report)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
