package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const logFileDateLayout = "2006-01-02"

// logFileDay returns the day encoded in a daily log file name, falling back
// to the modification time for files that were renamed by hand.
func logFileDay(entry os.DirEntry) (time.Time, bool) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), "clmeval-"), ".log")
	if day, err := time.ParseInLocation(logFileDateLayout, stamp, time.Local); err == nil {
		return day, true
	}
	info, err := entry.Info()
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// PruneDailyLogs deletes clmeval log files in dir whose day is more than
// retentionDays before now. Zero or negative retention keeps everything and
// the file for now's day is never removed. It returns the number removed.
func PruneDailyLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	current := filepath.Base(LogFilePath(dir, now))
	y, m, d := now.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.Local).AddDate(0, 0, -retentionDays)

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == current {
			continue
		}
		if ok, _ := filepath.Match(LogFilePattern, name); !ok {
			continue
		}
		day, ok := logFileDay(entry)
		if !ok || !day.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of paths.log_dir"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
