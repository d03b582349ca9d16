// Package logging provides structured JSON logging for blameprompt's hook
// and command invocations using slog.
//
//	if err := logging.Init(repoRoot, sessionID); err != nil {
//	    // handle error
//	}
//	defer logging.Close()
//
//	ctx = logging.WithComponent(ctx, "hooks")
//	logging.Info(ctx, "attaching staged receipts", slog.Int("count", n))
package logging

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevelEnvVar controls the minimum log level when set.
const LogLevelEnvVar = "BLAMEPROMPT_LOG_LEVEL"

// LogsDir is the directory log files are stored under, relative to the
// repository's hidden directory.
const LogsDir = "logs"

var (
	logger           *slog.Logger
	logFile          *os.File
	logBufWriter     *bufio.Writer
	currentSessionID string
	mu               sync.RWMutex
)

// Init opens (creating if necessary) a JSON log file at
// <repoRoot>/.blameprompt/logs/<sessionID>.log, falling back to stderr if
// the file cannot be created. Level is controlled by BLAMEPROMPT_LOG_LEVEL.
func Init(repoRoot, sessionID string) error {
	mu.Lock()
	defer mu.Unlock()

	flushAndCloseLocked()

	level := parseLogLevel(os.Getenv(LogLevelEnvVar))

	logsPath := filepath.Join(repoRoot, ".blameprompt", LogsDir)
	if err := os.MkdirAll(logsPath, 0o750); err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	name := sanitizeSessionID(sessionID)
	f, err := os.OpenFile(filepath.Join(logsPath, name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFile = f
	logBufWriter = bufio.NewWriterSize(f, 8192)
	logger = createLogger(logBufWriter, level)
	currentSessionID = sessionID
	return nil
}

// Close flushes and closes the current log file, if any. Safe to call
// multiple times.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	flushAndCloseLocked()
	currentSessionID = ""
}

func flushAndCloseLocked() {
	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// sanitizeSessionID strips path separators so a malformed session ID can
// never escape LogsDir.
func sanitizeSessionID(id string) string {
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, "\\", "_")
	if id == "" {
		id = "session"
	}
	return id
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func getSessionID() string {
	mu.RLock()
	defer mu.RUnlock()
	return currentSessionID
}

func createLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at DEBUG level with context values extracted automatically.
func Debug(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelDebug, msg, attrs...) }

// Info logs at INFO level with context values extracted automatically.
func Info(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelInfo, msg, attrs...) }

// Warn logs at WARN level with context values extracted automatically.
func Warn(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelWarn, msg, attrs...) }

// Error logs at ERROR level with context values extracted automatically.
func Error(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelError, msg, attrs...) }

// LogDuration logs msg with a duration_ms attribute computed from start.
// Meant for use with defer:
//
//	defer logging.LogDuration(ctx, slog.LevelDebug, "hook executed", time.Now())
func LogDuration(ctx context.Context, level slog.Level, msg string, start time.Time, attrs ...any) {
	allAttrs := make([]any, 0, len(attrs)+1)
	allAttrs = append(allAttrs, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	allAttrs = append(allAttrs, attrs...)
	log(ctx, level, msg, allAttrs...)
}

func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	l := getLogger()

	var allAttrs []any
	if sid := getSessionID(); sid != "" {
		allAttrs = append(allAttrs, slog.String("session_id", sid))
	} else if sid := SessionIDFromContext(ctx); sid != "" {
		allAttrs = append(allAttrs, slog.String("session_id", sid))
	}
	if c := ComponentFromContext(ctx); c != "" {
		allAttrs = append(allAttrs, slog.String("component", c))
	}
	if a := AgentFromContext(ctx); a != "" {
		allAttrs = append(allAttrs, slog.String("agent", a))
	}
	allAttrs = append(allAttrs, attrs...)

	l.Log(context.Background(), level, msg, allAttrs...)
}
