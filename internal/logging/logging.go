// internal/logging/logging.go
// Package logging wraps a process logger for adjudicator. Events go to stdout
// in console form and, when a log file is configured, to that file as JSON.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.Mutex
	base    = zap.NewNop()
	sugar   = base.Sugar()
	logFile *os.File
)

// Init replaces the process logger. An empty logPath logs to stdout only.
// Debug enables debug-level output on the console; the file always receives
// debug-level entries so request payloads are kept for later inspection.
func Init(logPath string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	consoleLevel := zapcore.InfoLevel
	if debug {
		consoleLevel = zapcore.DebugLevel
	}
	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), consoleLevel),
	}

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(file), zapcore.DebugLevel))
	}

	base = zap.New(zapcore.NewTee(cores...))
	sugar = base.Sugar()
	return nil
}

// Close flushes buffered entries and releases the log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}

func closeLocked() error {
	_ = base.Sync()
	base = zap.NewNop()
	sugar = base.Sugar()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// Logger returns the current structured logger.
func Logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return base
}

func current() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return sugar
}

func LogEvent(format string, args ...any) {
	current().Infof(format, args...)
}

func LogDebug(format string, args ...any) {
	current().Debugf(format, args...)
}

func LogError(format string, args ...any) {
	current().Errorf(format, args...)
}

// LogRequest records one leg of provider traffic, e.g. ADJ->LLM or LLM->ADJ.
func LogRequest(direction, provider, model, prompt string, payload any) {
	current().Debug(buildRequestMessage(direction, provider, model, prompt, payload))
}

func buildRequestMessage(direction, provider, model, prompt string, payload any) string {
	dir := strings.TrimSpace(direction)
	if dir != "" {
		dir = strings.ToUpper(dir)
	}
	providerValue := strings.TrimSpace(provider)
	if providerValue == "" {
		providerValue = "unknown"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}
	parts := []string{fmt.Sprintf("[%s]", dir)}
	parts = append(parts, fmt.Sprintf("provider=%s", providerValue))
	parts = append(parts, fmt.Sprintf("model=%s", modelValue))
	if prompt = strings.TrimSpace(prompt); prompt != "" {
		parts = append(parts, fmt.Sprintf("prompt=%s", prompt))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
