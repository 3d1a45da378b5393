// Package audit records every committed mutation as a system log entry.
package audit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"pcbaerp/internal/ids"
	"pcbaerp/internal/models"
	"pcbaerp/internal/store"
)

// Action constants as written to the log.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionClear  = "CLEAR"
	ActionExport = "EXPORT"
)

// OperatorHeader names the request header carrying the acting user.
const OperatorHeader = "X-Operator"

type operatorKey struct{}

// WithOperator returns ctx carrying the acting user's name.
func WithOperator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operatorKey{}, name)
}

// Operator returns the acting user, or "system" when none is set.
func Operator(ctx context.Context) string {
	if name, ok := ctx.Value(operatorKey{}).(string); ok && name != "" {
		return name
	}
	return "system"
}

// OperatorFromRequest reads the operator header, trimmed and bounded.
func OperatorFromRequest(r *http.Request) string {
	name := strings.TrimSpace(r.Header.Get(OperatorHeader))
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}

// Logger appends system log entries to logs.
type Logger struct {
	logs store.Repository[models.SystemLog]
	log  *zap.Logger
	now  func() time.Time
	// Modules maps collection names to module labels.
	Modules map[string]string
}

// NewLogger returns a Logger writing to logs.
func NewLogger(logs store.Repository[models.SystemLog], log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{logs: logs, log: log, now: time.Now, Modules: map[string]string{}}
}

// Record appends one entry.
func (l *Logger) Record(ctx context.Context, action, module, summary, severity string) {
	entry := models.SystemLog{
		ID:        ids.UUID(),
		User:      Operator(ctx),
		Action:    strings.TrimSpace(action + " " + summary),
		Module:    module,
		Timestamp: l.now().Format("2006-01-02 15:04"),
		Severity:  severity,
	}
	if err := l.logs.Insert(ctx, entry); err != nil {
		l.log.Error("audit log error", zap.Error(err), zap.String("module", module))
	}
}

// ObserveChange is a store.Observer that logs c. Changes to the log
// collection itself are ignored.
func (l *Logger) ObserveChange(ctx context.Context, c store.Change) {
	if c.Collection == logsCollection(l.logs) {
		return
	}
	module := l.Modules[c.Collection]
	if module == "" {
		module = c.Collection
	}
	severity := "info"
	var action, summary string
	switch c.Action {
	case store.ActionCreate:
		action, summary = ActionCreate, c.ID
	case store.ActionUpdate:
		action, summary = ActionUpdate, c.ID
		if c.PrevID != "" {
			summary = fmt.Sprintf("%s (was %s)", c.ID, c.PrevID)
		}
	case store.ActionDelete:
		action, summary, severity = ActionDelete, c.ID, "warning"
	case store.ActionClear:
		action, summary, severity = ActionClear, "all records", "warning"
	default:
		action, summary = strings.ToUpper(string(c.Action)), c.ID
	}
	l.Record(ctx, action, module, summary, severity)
}

// LogExport records a data export.
func (l *Logger) LogExport(ctx context.Context, module, format string, count int) {
	l.Record(ctx, ActionExport, module, fmt.Sprintf("%d records as %s", count, format), "info")
}

func logsCollection(repo store.Repository[models.SystemLog]) string {
	if n, ok := repo.(interface{ Name() string }); ok {
		return n.Name()
	}
	return ""
}

// GetClientIP extracts the real client IP from the request (handles proxies).
func GetClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
