// internal/logger/pretty.go
package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	config := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   customCallerEncoder,
	}
	return zapcore.NewConsoleEncoder(config)
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[FATAL]%s", ColorRed+ColorBold, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

// customTimeEncoder formats time in a readable way
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

func customCallerEncoder(zapcore.EntryCaller, zapcore.PrimitiveArrayEncoder) {}

// summary rewrites a known log message into a one-line console summary.
type summary struct {
	message string
	color   string
	render  func(fields []zap.Field) string
}

// summaries are matched in order; the first message contained in the entry wins.
var summaries = []summary{
	{"Poller started", ColorGreen, func(f []zap.Field) string {
		return "🚀 Leaderboard refresh every " + extractField(f, "interval")
	}},
	{"Aggregation run complete", ColorGreen, func(f []zap.Field) string {
		return fmt.Sprintf("✅ Leaderboard updated: %s of %s tokens", extractField(f, "loaded"), extractField(f, "requested"))
	}},
	{"Aggregation attempt failed", ColorYellow, func([]zap.Field) string {
		return "🔁 Aggregation failed, retrying"
	}},
	{"Aggregation failed", ColorRed + ColorBold, func([]zap.Field) string {
		return "✗ Leaderboard refresh failed"
	}},
	{"Token list refreshed", ColorBlue, func(f []zap.Field) string {
		return fmt.Sprintf("📋 Loaded %s tokens from Bags", extractField(f, "tokens"))
	}},
	{"SOL price updated", ColorCyan, func(f []zap.Field) string {
		return "◎ SOL = $" + extractField(f, "usd")
	}},
	{"HTTP server listening", ColorPurple, func(f []zap.Field) string {
		return "🌐 API listening on " + extractField(f, "addr")
	}},
	{"No market data", "", func(f []zap.Field) string {
		return "No market data for " + ShortenAddress(extractField(f, "mint"))
	}},
}

// FormatMessage returns the console summary of msg, or msg itself when none applies.
func FormatMessage(msg string, fields ...zap.Field) string {
	for _, s := range summaries {
		if !strings.Contains(msg, s.message) {
			continue
		}
		text := s.render(fields)
		if s.color == "" {
			return text
		}
		return s.color + text + ColorReset
	}
	return msg
}

// extractField renders the value of key, or "" when absent.
func extractField(fields []zap.Field, key string) string {
	for _, field := range fields {
		if field.Key == key {
			enc := zapcore.NewMapObjectEncoder()
			field.AddTo(enc)
			return fmt.Sprintf("%v", enc.Fields[key])
		}
	}
	return ""
}

// ShortenAddress renders a mint as abcd...wxyz.
func ShortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

// FieldFilterCore wraps a zapcore.Core to filter out unwanted fields
type FieldFilterCore struct {
	core zapcore.Core
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &FieldFilterCore{core: c.core.With(fields)}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

// Write prints the summarized message. Structured fields go to the file log,
// except the error of warnings and errors.
func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	clean := entry
	clean.Message = FormatMessage(entry.Message, fields...)

	var keep []zapcore.Field
	if entry.Level >= zapcore.WarnLevel {
		for _, f := range fields {
			if f.Key == "error" {
				keep = append(keep, f)
			}
		}
	}
	return c.core.Write(clean, keep)
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}

// CreateTUILoggerWithBuffer returns a logger that writes JSON lines into buffer only.
func CreateTUILoggerWithBuffer(debug bool, buffer *LogBuffer) (*zap.Logger, error) {
	if buffer == nil {
		return nil, fmt.Errorf("buffer is required for TUI logger")
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	// Только буфер: любой вывод в консоль ломает альтернативный экран.
	return zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(buffer),
		level,
	)), nil
}
