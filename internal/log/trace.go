package log

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

type traceKey struct{}

// NewTraceID returns a short random id such as "sweep_1f2e3d4c5b6a7980".
func NewTraceID(prefix string) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return prefix + "_" + hex.EncodeToString(b)
}

// WithTraceID stores id in ctx and attaches it to the context logger, so
// every log line of one pass can be correlated.
func WithTraceID(ctx context.Context, id string, fallback *Logger) context.Context {
	ctx = context.WithValue(ctx, traceKey{}, id)
	return NewContext(ctx, FromContext(ctx, fallback).With(FieldTraceID, id))
}

// TraceID extracts the trace id from ctx.
func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceKey{}).(string); ok {
		return id
	}
	return ""
}
