package db

import (
	"context"
	"sync"

	"github.com/getsentry/sentry-go"
	"go.mongodb.org/mongo-driver/event"
)

// commandTracer emits a span per database command when the surrounding
// request already carries a transaction. Spans are correlated through the
// driver's request id because command callbacks do not share a context
// value chain with each other.
type commandTracer struct {
	mu    sync.Mutex
	spans map[int64]*sentry.Span
}

func newCommandTracer() *commandTracer {
	return &commandTracer{spans: map[int64]*sentry.Span{}}
}

func (t *commandTracer) monitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started:   t.started,
		Succeeded: t.succeeded,
		Failed:    t.failed,
	}
}

func (t *commandTracer) started(ctx context.Context, evt *event.CommandStartedEvent) {
	if sentry.SpanFromContext(ctx) == nil {
		return
	}

	span := sentry.StartSpan(
		ctx,
		"db.command",
		sentry.WithDescription(evt.CommandName),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	span.SetData("db.system", "mongodb")
	span.SetData("db.operation", evt.CommandName)
	span.SetData("db.name", evt.DatabaseName)

	t.mu.Lock()
	t.spans[evt.RequestID] = span
	t.mu.Unlock()
}

func (t *commandTracer) succeeded(_ context.Context, evt *event.CommandSucceededEvent) {
	t.finish(evt.RequestID, sentry.SpanStatusOK, "")
}

func (t *commandTracer) failed(_ context.Context, evt *event.CommandFailedEvent) {
	t.finish(evt.RequestID, sentry.SpanStatusInternalError, evt.Failure)
}

func (t *commandTracer) finish(requestID int64, status sentry.SpanStatus, failure string) {
	t.mu.Lock()
	span := t.spans[requestID]
	delete(t.spans, requestID)
	t.mu.Unlock()

	if span == nil {
		return
	}
	span.Status = status
	if failure != "" {
		span.SetData("db.error", failure)
	}
	span.Finish()
}
