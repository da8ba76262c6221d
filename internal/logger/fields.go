package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-evaluator/internal/utils"
)

const (
	// FieldOperation is the structured log field key for the session operation name.
	FieldOperation = "operation"
	// FieldEmail is the structured log field key for the account email.
	FieldEmail = "email"
	// FieldUserID is the structured log field key for the application user id.
	FieldUserID = "user_id"
	// FieldRequestID is the structured log field key for the backend request id.
	FieldRequestID = "request_id"

	tokenPreviewLength = 8
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// WithOperation attaches the operation name and, when known, the account email.
func WithOperation(logger *zap.Logger, operation, email string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldOperation, Value: operation},
		StringField{Key: FieldEmail, Value: email},
	)...)
}

// Token logs a short preview of a bearer credential. Full tokens never reach the log.
func Token(key, token string) zap.Field {
	token = strings.TrimSpace(token)
	if token == "" {
		return zap.String(key, "")
	}
	return zap.String(key, utils.TruncateForLog(token, tokenPreviewLength))
}
