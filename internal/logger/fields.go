package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Structured field keys shared across packages.
const (
	FieldProvider  = "llm_provider"
	FieldModel     = "llm_model"
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
)

// StringField is a key/value pair for StringFields
type StringField struct {
	Key   string
	Value string
}

// StringFields converts pairs into zap fields, dropping any with a blank key or value.
func StringFields(fields ...StringField) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		key := strings.TrimSpace(f.Key)
		value := strings.TrimSpace(f.Value)
		if key == "" || value == "" {
			continue
		}
		out = append(out, zap.String(key, value))
	}
	return out
}

// WithFields attaches fields to l. A nil logger becomes a no-op logger.
func WithFields(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// ForProvider tags l with the LLM provider and model in use.
func ForProvider(l *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(l, StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)...)
}
