package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TaskIDGenerator hands out unique task IDs.
type TaskIDGenerator interface {
	GenerateTaskID() (string, error)
}

const (
	counterFile     = ".task_counter"
	counterLockFile = ".task_counter.lock"
)

type counterIDGenerator struct {
	basePath string
	prefix   string
	padWidth int
}

// NewTaskIDGenerator returns a generator that keeps a monotonically
// increasing counter in basePath/.task_counter. IDs look like GTD-00042;
// a padWidth of 0 disables zero padding.
func NewTaskIDGenerator(basePath, prefix string, padWidth int) TaskIDGenerator {
	return &counterIDGenerator{basePath: basePath, prefix: prefix, padWidth: padWidth}
}

// GenerateTaskID increments the counter under a file lock so that the CLI,
// the HTTP server and the MCP server never hand out the same number.
func (g *counterIDGenerator) GenerateTaskID() (string, error) {
	if err := os.MkdirAll(g.basePath, 0o750); err != nil {
		return "", fmt.Errorf("creating base path for task counter: %w", err)
	}

	var next int
	err := withFileLock(filepath.Join(g.basePath, counterLockFile), func() error {
		current, err := readCounter(filepath.Join(g.basePath, counterFile))
		if err != nil {
			return err
		}
		next = current + 1
		if err := os.WriteFile(filepath.Join(g.basePath, counterFile), []byte(strconv.Itoa(next)), 0o600); err != nil {
			return fmt.Errorf("writing task counter: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return FormatTaskID(g.prefix, g.padWidth, next), nil
}

// FormatTaskID renders n with the configured prefix and padding.
func FormatTaskID(prefix string, padWidth, n int) string {
	if padWidth > 0 {
		return fmt.Sprintf("%s-%0*d", prefix, padWidth, n)
	}
	return fmt.Sprintf("%s-%d", prefix, n)
}

func readCounter(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading task counter: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parsing task counter %q: %w", trimmed, err)
	}
	return n, nil
}
