package recorder

import (
	"context"

	"github.com/moznion/go-optional"
)

// NoopRecorder is a no-op implementation used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordReportRun(context.Context, *ReportRun) error { return nil }
func (n *NoopRecorder) RecordTradeNotification(context.Context, *TradeNotification) error {
	return nil
}
func (n *NoopRecorder) LastReportRun(context.Context, string) (optional.Option[ReportRun], error) {
	return optional.None[ReportRun](), nil
}
func (n *NoopRecorder) Close() error { return nil }
