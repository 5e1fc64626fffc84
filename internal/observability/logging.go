package observability

import (
	"context"
	"log/slog"
)

// RepoLogger writes audit lines for repository mutations on one table.
type RepoLogger struct {
	tableName string
}

func NewRepoLogger(tableName string) *RepoLogger {
	return &RepoLogger{tableName: tableName}
}

func (l *RepoLogger) log(ctx context.Context, operation string, attrs []any) {
	attrs = append([]any{
		slog.String("table", l.tableName),
		slog.String("operation", operation),
	}, attrs...)
	slog.InfoContext(ctx, "repository "+operation, attrs...)
}

func (l *RepoLogger) LogCreate(ctx context.Context, attrs ...any) {
	l.log(ctx, "create", attrs)
}

func (l *RepoLogger) LogUpdate(ctx context.Context, attrs ...any) {
	l.log(ctx, "update", attrs)
}

func (l *RepoLogger) LogDelete(ctx context.Context, attrs ...any) {
	l.log(ctx, "delete", attrs)
}

// LogError records a failed repository operation.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	slog.ErrorContext(ctx, "repository error",
		slog.String("table", l.tableName),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
