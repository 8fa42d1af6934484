package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// AuditRepository persists audit events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuditSink accepts events for asynchronous recording. Record must not block.
type AuditSink interface {
	Record(event domain.AuthEvent)
}
