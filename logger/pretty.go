package logger

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// prettyEncoder renders a one-line colored header followed by the entry's fields as
// indented JSON.
type prettyEncoder struct {
	zapcore.Encoder
	pool buffer.Pool
}

func newPrettyLogger(cfg *zap.Config) *zap.Logger {
	enc := &prettyEncoder{Encoder: zapcore.NewJSONEncoder(cfg.EncoderConfig), pool: buffer.NewPool()}
	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), cfg.Level)
	return zap.New(core, zap.ErrorOutput(zapcore.AddSync(os.Stderr)))
}

func (e *prettyEncoder) Clone() zapcore.Encoder {
	return &prettyEncoder{Encoder: e.Encoder.Clone(), pool: e.pool}
}

func (e *prettyEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	raw, err := e.Encoder.EncodeEntry(entry, fields)
	if err != nil {
		return nil, err
	}
	defer raw.Free()

	out := e.pool.Get()
	out.AppendString(header(entry))

	var payload map[string]any
	if err := json.Unmarshal(raw.Bytes(), &payload); err != nil {
		out.AppendString(" ")
		out.AppendString(strings.TrimRight(raw.String(), "\n"))
		out.AppendString("\n")
		return out, nil
	}

	for _, k := range []string{messageKey, levelKey, timeKey} {
		delete(payload, k)
	}

	if len(payload) > 0 {
		pretty, err := json.MarshalIndent(payload, "", "  ")
		if err == nil {
			out.AppendString("\n")
			out.AppendString(color.New(color.Faint).Sprint(string(pretty)))
		}
	}
	out.AppendString("\n")
	return out, nil
}

func header(entry zapcore.Entry) string {
	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(color.New(color.Faint).Sprint("[" + ts.Format(time.DateTime) + "]"))
	b.WriteByte(' ')
	b.WriteString(levelColor(entry.Level).Sprint(entry.Level.CapitalString()))
	if entry.LoggerName != "" {
		b.WriteByte(' ')
		b.WriteString(color.New(color.FgHiBlack).Sprint(entry.LoggerName))
	}
	if entry.Message != "" {
		b.WriteByte(' ')
		b.WriteString(entry.Message)
	}
	return b.String()
}

func levelColor(level zapcore.Level) *color.Color {
	switch level {
	case zapcore.DebugLevel:
		return color.New(color.FgCyan)
	case zapcore.InfoLevel:
		return color.New(color.FgGreen)
	case zapcore.WarnLevel:
		return color.New(color.FgYellow)
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return color.New(color.FgRed, color.Bold)
	case zapcore.InvalidLevel:
		return color.New(color.FgMagenta)
	default:
		return color.New(color.Reset)
	}
}
