package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"log/slog"
)

var (
	levelVar   slog.LevelVar
	loggerMu   sync.RWMutex
	baseLogger *slog.Logger
)

func init() {
	levelVar.Set(slog.LevelInfo)
	baseLogger = newLogger(os.Stdout)
}

func newLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})
	return slog.New(handler)
}

// SetOutput 替换日志输出；main 中用 io.MultiWriter 同时写 stdout 与文件。
func SetOutput(w io.Writer) {
	loggerMu.Lock()
	baseLogger = newLogger(w)
	loggerMu.Unlock()
}

// SetLevel accepts debug/info/warn/error; anything else means info.
func SetLevel(level string) {
	levelVar.Set(parseLevel(level))
}

// Level returns the active level name in lower case.
func Level() string {
	return strings.ToLower(levelVar.Level().String())
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func activeLogger() *slog.Logger {
	loggerMu.RLock()
	l := baseLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if baseLogger == nil {
		baseLogger = newLogger(os.Stdout)
	}
	return baseLogger
}

func Debugf(format string, v ...any) {
	activeLogger().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	activeLogger().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	activeLogger().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	activeLogger().Error(fmt.Sprintf(format, v...))
}

// Prefixed logs every line as "[prefix] ...".
type Prefixed string

func (p Prefixed) Debugf(format string, v ...any) { Debugf("[%s] "+format, p.args(v)...) }
func (p Prefixed) Infof(format string, v ...any)  { Infof("[%s] "+format, p.args(v)...) }
func (p Prefixed) Warnf(format string, v ...any)  { Warnf("[%s] "+format, p.args(v)...) }
func (p Prefixed) Errorf(format string, v ...any) { Errorf("[%s] "+format, p.args(v)...) }

func (p Prefixed) args(v []any) []any {
	out := make([]any, 0, len(v)+1)
	out = append(out, string(p))
	return append(out, v...)
}
