package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage 报告存储接口
type Storage interface {
	Save(filename string, content string) (string, error)
}

// FileStorage 文件存储实现
type FileStorage struct {
	OutputDir string
}

// NewFileStorage 创建文件存储
func NewFileStorage(outputDir string) *FileStorage {
	return &FileStorage{
		OutputDir: outputDir,
	}
}

// Save 保存报告到文件，返回完整路径
func (s *FileStorage) Save(filename string, content string) (string, error) {
	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(s.OutputDir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}
