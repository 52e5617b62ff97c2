package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// testSink is shared by a TestLogger and every logger derived via With.
type testSink struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

// TestLogger captures records as JSON lines in memory so that tests can
// assert on what the pipeline and filters logged.
//
//	logger, buf := log.NewTestLogger(log.LevelDebug)
//	p := pipeline.New(cfg, pipeline.WithLogger(logger))
//	...
//	logger.ContainsField(log.StepKey, "normalize")
type TestLogger struct {
	sink   *testSink
	level  Level
	fields []any
}

// NewTestLogger returns a logger that records entries at or above level,
// together with the buffer receiving them.
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	sink := &testSink{buf: &bytes.Buffer{}}
	return &TestLogger{sink: sink, level: level}, sink.buf
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.write(LevelDebug, "DEBUG", msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.write(LevelInfo, "INFO", msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.write(LevelWarn, "WARN", msg, fields) }

// Error records a leading error value under ErrAttrKey, like the slog logger.
func (t *TestLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttrKey, err}, fields[1:]...)
		}
	}
	t.write(LevelError, "ERROR", msg, fields)
}

// With returns a logger sharing the same buffer with fields attached.
func (t *TestLogger) With(fields ...any) Logger {
	merged := make([]any, 0, len(t.fields)+len(fields))
	merged = append(merged, t.fields...)
	merged = append(merged, fields...)
	return &TestLogger{sink: t.sink, level: t.level, fields: merged}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return t.level <= level
}

func (t *TestLogger) write(level Level, name, msg string, fields []any) {
	if level < t.level {
		return
	}
	entry := map[string]any{"level": name, "message": msg}
	addFields(entry, t.fields)
	addFields(entry, fields)

	line, err := json.Marshal(entry)
	if err != nil {
		line = []byte(fmt.Sprintf(`{"level":%q,"message":%q,"marshal_error":%q}`, name, msg, err.Error()))
	}
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.buf.Write(line)
	t.sink.buf.WriteByte('\n')
}

// addFields は key/value の並びを entry に書き込む。error は文字列にする。
func addFields(entry map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			entry[key] = err.Error()
			continue
		}
		entry[key] = fields[i+1]
	}
}

// GetBuffer returns the buffer receiving captured records.
func (t *TestLogger) GetBuffer() *bytes.Buffer { return t.sink.buf }

// String returns everything captured so far.
func (t *TestLogger) String() string {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	return t.sink.buf.String()
}

// Clear drops all captured records.
func (t *TestLogger) Clear() {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	t.sink.buf.Reset()
}

// GetLogEntries parses the captured records. JSON numbers decode as float64.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(t.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any record contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.String(), message)
}

// ContainsField reports whether some record has key set to value.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Values returns the value of key from every record that has it, in order.
func (t *TestLogger) Values(key string) []interface{} {
	entries, err := t.GetLogEntries()
	if err != nil {
		return nil
	}
	var out []interface{}
	for _, entry := range entries {
		if v, ok := entry[key]; ok {
			out = append(out, v)
		}
	}
	return out
}
