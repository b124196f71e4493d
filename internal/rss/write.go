package rss

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Filename 把 format 里的 {name} 换成站点名
func Filename(format, name string) string {
	return strings.ReplaceAll(format, "{name}", name)
}

// WriteFile 先写同目录下的临时文件再 rename，读者不会看到写了一半的 feed。
// 返回最终路径
func WriteFile(dir, format, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	final := filepath.Join(dir, Filename(format, name))

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(final)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename to %s: %w", final, err)
	}
	return final, nil
}
