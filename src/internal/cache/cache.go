// Package cache 为 Etherscan / arXiv 的原始响应提供可选缓存，
// 重复运行采集脚本时避免重复消耗 API 配额。
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// Cache 响应缓存接口，未命中返回 ok=false
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key 由若干片段生成稳定的缓存键（片段可能包含 API Key，故只保存摘要）
func Key(namespace string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "scresearch:" + namespace + ":" + hex.EncodeToString(sum[:16])
}

// Noop 不缓存任何内容
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

// OrNoop 将 nil 替换为 Noop
func OrNoop(c Cache) Cache {
	if c == nil {
		return Noop{}
	}
	return c
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory 进程内缓存，过期项在读取时清理
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory 创建内存缓存
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get 读取缓存
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set 写入缓存，ttl<=0 表示永不过期
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Len 当前条目数（含尚未清理的过期项）
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
