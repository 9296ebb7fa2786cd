package logger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ImportLog 单次导入的纯文本日志
// 生命周期: OpenImportLog -> Logf... -> Close
type ImportLog struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	w      *bufio.Writer
	lines  []string
	zl     *zap.Logger
	now    func() time.Time
	closed bool
}

// OpenImportLog 在 dir 下创建 import-log-<毫秒时间戳>.txt
// dir 为空时只保留在内存中
func OpenImportLog(dir string, zl *zap.Logger) (*ImportLog, error) {
	if zl == nil {
		zl = zap.NewNop()
	}
	l := &ImportLog{zl: zl, now: time.Now}

	if dir == "" {
		return l, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("import-log-%d.txt", l.now().UnixMilli())
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create import log: %w", err)
	}

	l.path = path
	l.file = f
	l.w = bufio.NewWriter(f)
	return l, nil
}

// Logf 追加一行 "<时间> - <消息>"
func (l *ImportLog) Logf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s - %s\n", l.now().Format(time.RFC3339), msg)
	l.lines = append(l.lines, line)
	if l.w != nil && !l.closed {
		_, _ = l.w.WriteString(line)
	}
	l.zl.Info(msg)
}

// Lines 返回已记录的行（含换行符）
func (l *ImportLog) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Path 日志文件路径（内存模式为空）
func (l *ImportLog) Path() string {
	return l.path
}

// Close 刷新并关闭文件，可重复调用
func (l *ImportLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.file == nil {
		return nil
	}
	if err := l.w.Flush(); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("failed to flush import log: %w", err)
	}
	return l.file.Close()
}
