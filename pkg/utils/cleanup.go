package utils

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pavelc4/aether-ddl-bot/pkg/logger"
)

// TaskDirPrefix prefixes the scratch directory of every upload task.
const TaskDirPrefix = "aether-"

// TaskDir is the scratch directory for the task with the given id.
func TaskDir(root, id string) string {
	return filepath.Join(root, TaskDirPrefix+id)
}

// CleanupTaskDirs removes scratch directories left under root by tasks that
// did not finish, and returns how many were removed.
func CleanupTaskDirs(ctx context.Context, root string) int {
	matches, err := filepath.Glob(filepath.Join(root, TaskDirPrefix+"*"))
	if err != nil {
		logger.Warn("Failed to list task directories", "root", root, "error", err)
		return 0
	}

	removed := 0
	for _, path := range matches {
		if ctx.Err() != nil {
			break
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("Failed to remove task directory", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("Removed stale task directories", "count", removed)
	}
	return removed
}

// RemoveTaskDir deletes dir, logging instead of failing.
func RemoveTaskDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("Failed to remove task directory", "path", dir, "error", err)
	}
}
