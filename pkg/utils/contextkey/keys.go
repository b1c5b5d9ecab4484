// Package contextkey defines the context keys shared by logging, the HTTP
// layer and the executor.
package contextkey

import "context"

type key string

const (
	TraceID   key = "trace_id"
	RequestID key = "request_id"
	RunID     key = "run_id" // one code execution
)

// With stores value under k.
func With(ctx context.Context, k key, value string) context.Context {
	return context.WithValue(ctx, k, value)
}

// String returns the value stored under k, or "".
func String(ctx context.Context, k key) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(k).(string)
	return v
}
