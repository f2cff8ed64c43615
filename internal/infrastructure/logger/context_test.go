package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	return zap.New(core), &buf
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	base := zap.NewNop()
	ctx := WithContext(context.Background(), base)
	assert.Same(t, base, FromContext(ctx))
}

func TestContextValues(t *testing.T) {
	base := zap.NewNop()
	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, base, "req-1")
	ctx, _ = WithUserID(ctx, base, "user-1")
	ctx, _ = WithVendorID(ctx, base, "vendor-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.Equal(t, "vendor-1", GetVendorID(ctx))
	assert.Empty(t, GetTraceID(ctx))
}

func TestContextLogger_EnrichesEntries(t *testing.T) {
	base, buf := bufferLogger()
	ctx := context.Background()
	ctx = context.WithValue(ctx, RequestIDKey, "req-123")
	ctx = context.WithValue(ctx, UserIDKey, "user-789")
	ctx = context.WithValue(ctx, VendorIDKey, "vendor-456")

	traceID, _ := trace.TraceIDFromHex("0123456789abcdef0123456789abcdef")
	spanID, _ := trace.SpanIDFromHex("0123456789abcdef")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	WithLogger(ctx, base).With(zap.String("order_id", "o-1")).Info("order paid")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"user_id":"user-789"`)
	assert.Contains(t, out, `"vendor_id":"vendor-456"`)
	assert.Contains(t, out, `"order_id":"o-1"`)
	assert.Contains(t, out, `"trace_id":"0123456789abcdef0123456789abcdef"`)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", GetTraceID(ctx))
}

func TestContextLogger_SkipsEmptyFields(t *testing.T) {
	base, buf := bufferLogger()
	WithLogger(context.Background(), base).Info("test")

	out := buf.String()
	assert.Contains(t, out, `"msg":"test"`)
	assert.NotContains(t, out, `"request_id"`)
	assert.NotContains(t, out, `"trace_id"`)
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	assert.NotPanics(t, func() { cl.Warn("test") })
}
