package recorder

import "context"

// NoopRecorder is used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordScan(context.Context, []ScanRecord) error { return nil }
func (n *NoopRecorder) RecordRisk(context.Context, []RiskRecord) error { return nil }
func (n *NoopRecorder) Close() error                                   { return nil }
