// Package middleware はHTTPミドルウェアと監査ログを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"
)

// 監査ログの結果。
const (
	ResultSuccess = "SUCCESS"
	ResultFailed  = "FAILED"
)

// AuditLog は監査ログの構造体。
type AuditLog struct {
	Operation string `json:"operation"`
	DemoID    string `json:"demo_id,omitempty"`
	Step      *int   `json:"step,omitempty"`
	Result    string `json:"result"`
	Timestamp string `json:"timestamp"`
}

// NewAuditLog は現在時刻の監査ログを生成する。stepが負の場合は省略する。
func NewAuditLog(operation, demoID string, step int, result string) AuditLog {
	a := AuditLog{
		Operation: operation,
		DemoID:    demoID,
		Result:    result,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if step >= 0 {
		a.Step = &step
	}
	return a
}

// Attrs はslogに渡す属性を返す。
func (a AuditLog) Attrs() []any {
	attrs := []any{"operation", a.Operation}
	if a.DemoID != "" {
		attrs = append(attrs, "demo_id", a.DemoID)
	}
	if a.Step != nil {
		attrs = append(attrs, "step", *a.Step)
	}
	return append(attrs, "result", a.Result, "timestamp", a.Timestamp)
}

// WriteAuditLog は監査ログを出力する。ステージを伴わない操作はstepに-1を渡す。
func WriteAuditLog(ctx context.Context, operation, demoID string, step int, result string) {
	a := NewAuditLog(operation, demoID, step, result)
	if result == ResultFailed {
		slog.WarnContext(ctx, "demo operation completed", a.Attrs()...)
		return
	}
	slog.InfoContext(ctx, "demo operation completed", a.Attrs()...)
}
