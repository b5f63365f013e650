package testdoubles

import (
	"context"
	"sync"
)

// LogRecord is one captured log call.
type LogRecord struct {
	Level   string
	Message string
	Args    []any
	Context context.Context
}

// Attr returns the value logged under key.
func (r LogRecord) Attr(key string) (any, bool) {
	for i := 0; i+1 < len(r.Args); i += 2 {
		if name, ok := r.Args[i].(string); ok && name == key {
			return r.Args[i+1], true
		}
	}

	return nil, false
}

// LoggerSpy captures calls to both statetable.Logger and statetable.ContextualLogger.
type LoggerSpy struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewLoggerSpy creates an empty LoggerSpy.
func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{}
}

func (s *LoggerSpy) record(ctx context.Context, level, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, LogRecord{Level: level, Message: msg, Args: args, Context: ctx})
}

// Debug implements statetable.Logger.
func (s *LoggerSpy) Debug(msg string, args ...any) { s.record(nil, "debug", msg, args) }

// Info implements statetable.Logger.
func (s *LoggerSpy) Info(msg string, args ...any) { s.record(nil, "info", msg, args) }

// Warn implements statetable.Logger.
func (s *LoggerSpy) Warn(msg string, args ...any) { s.record(nil, "warn", msg, args) }

// Error implements statetable.Logger.
func (s *LoggerSpy) Error(msg string, args ...any) { s.record(nil, "error", msg, args) }

// DebugContext implements statetable.ContextualLogger.
func (s *LoggerSpy) DebugContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "debug", msg, args)
}

// InfoContext implements statetable.ContextualLogger.
func (s *LoggerSpy) InfoContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "info", msg, args)
}

// WarnContext implements statetable.ContextualLogger.
func (s *LoggerSpy) WarnContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "warn", msg, args)
}

// ErrorContext implements statetable.ContextualLogger.
func (s *LoggerSpy) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "error", msg, args)
}

// Records returns a copy of the captured records.
func (s *LoggerSpy) Records() []LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]LogRecord(nil), s.records...)
}

// Find returns the first record with the given level and message.
func (s *LoggerSpy) Find(level, message string) (LogRecord, bool) {
	for _, record := range s.Records() {
		if record.Level == level && record.Message == message {
			return record, true
		}
	}

	return LogRecord{}, false
}

// Has reports whether a record with the given level and message was captured.
func (s *LoggerSpy) Has(level, message string) bool {
	_, found := s.Find(level, message)
	return found
}

// HasContextual reports whether a matching record was captured through the contextual methods.
func (s *LoggerSpy) HasContextual(level, message string) bool {
	for _, record := range s.Records() {
		if record.Level == level && record.Message == message && record.Context != nil {
			return true
		}
	}

	return false
}

// Reset clears all captured records.
func (s *LoggerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
}
