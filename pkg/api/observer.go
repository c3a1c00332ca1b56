package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the workflow engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay workflow execution.
type Observer interface {
	// OnInstanceStart is called once when a workflow instance is created,
	// before its start activities run.
	OnInstanceStart(ctx context.Context, inst *WorkflowInstance)

	// OnInstanceEnd is called when an instance reaches StatusCompleted or
	// StatusFailed at the end of an engine operation.
	OnInstanceEnd(ctx context.Context, inst *WorkflowInstance)

	// OnActivityStart is called when an activity instance is created.
	OnActivityStart(ctx context.Context, inst *WorkflowInstance, ai *ActivityInstance)

	// OnActivityEnd is called when an activity instance reaches a terminal
	// state (ended or failed) or suspends. err is non-nil only on failure.
	OnActivityEnd(ctx context.Context, inst *WorkflowInstance, ai *ActivityInstance, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnInstanceStart(ctx context.Context, inst *WorkflowInstance) {}
func (NoopObserver) OnInstanceEnd(ctx context.Context, inst *WorkflowInstance)   {}
func (NoopObserver) OnActivityStart(ctx context.Context, inst *WorkflowInstance, ai *ActivityInstance) {
}
func (NoopObserver) OnActivityEnd(ctx context.Context, inst *WorkflowInstance, ai *ActivityInstance, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnInstanceStart(ctx context.Context, inst *WorkflowInstance) {
	for _, o := range c.observers {
		o.OnInstanceStart(ctx, inst)
	}
}

func (c *CompositeObserver) OnInstanceEnd(ctx context.Context, inst *WorkflowInstance) {
	for _, o := range c.observers {
		o.OnInstanceEnd(ctx, inst)
	}
}

func (c *CompositeObserver) OnActivityStart(ctx context.Context, inst *WorkflowInstance, ai *ActivityInstance) {
	for _, o := range c.observers {
		o.OnActivityStart(ctx, inst, ai)
	}
}

func (c *CompositeObserver) OnActivityEnd(ctx context.Context, inst *WorkflowInstance, ai *ActivityInstance, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnActivityEnd(ctx, inst, ai, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs workflow / activity
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnInstanceStart(ctx context.Context, inst *WorkflowInstance) {
	o.Logger.InfoContext(ctx, "instance_start",
		slog.String("workflow_id", inst.WorkflowID),
		slog.Int("workflow_version", inst.WorkflowVersion),
		slog.String("instance_id", inst.ID),
	)
}

func (o *LoggingObserver) OnInstanceEnd(ctx context.Context, inst *WorkflowInstance) {
	level := slog.LevelInfo
	if inst.Status == StatusFailed {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "instance_end",
		slog.String("workflow_id", inst.WorkflowID),
		slog.String("instance_id", inst.ID),
		slog.String("status", string(inst.Status)),
	)
}

func (o *LoggingObserver) OnActivityStart(ctx context.Context, inst *WorkflowInstance, ai *ActivityInstance) {
	o.Logger.DebugContext(ctx, "activity_start",
		slog.String("workflow_id", inst.WorkflowID),
		slog.String("instance_id", inst.ID),
		slog.String("activity", ai.ActivityID),
		slog.String("activity_instance_id", ai.ID),
	)
}

func (o *LoggingObserver) OnActivityEnd(ctx context.Context, inst *WorkflowInstance, ai *ActivityInstance, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "activity_end",
		slog.String("workflow_id", inst.WorkflowID),
		slog.String("instance_id", inst.ID),
		slog.String("activity", ai.ActivityID),
		slog.String("activity_instance_id", ai.ID),
		slog.String("state", string(ai.State)),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate activity durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	instancesStarted   atomic.Int64
	instancesCompleted atomic.Int64
	instancesFailed    atomic.Int64
	activitiesEnded    atomic.Int64
	totalActivityTime  atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	InstancesStarted   int64
	InstancesCompleted int64
	InstancesFailed    int64
	OpenInstances      int64

	ActivitiesEnded     int64
	AvgActivityDuration time.Duration
}

func (m *BasicMetrics) OnInstanceStart(ctx context.Context, inst *WorkflowInstance) {
	m.instancesStarted.Add(1)
}

func (m *BasicMetrics) OnInstanceEnd(ctx context.Context, inst *WorkflowInstance) {
	if inst.Status == StatusFailed {
		m.instancesFailed.Add(1)
		return
	}
	m.instancesCompleted.Add(1)
}

func (m *BasicMetrics) OnActivityEnd(ctx context.Context, inst *WorkflowInstance, ai *ActivityInstance, err error, d time.Duration) {
	// Only count cleanly ended activities for average duration.
	if err == nil && ai.State == StateEnded {
		m.activitiesEnded.Add(1)
		m.totalActivityTime.Add(d.Nanoseconds())
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.instancesStarted.Load()
	completed := m.instancesCompleted.Load()
	failed := m.instancesFailed.Load()
	ended := m.activitiesEnded.Load()
	totalNs := m.totalActivityTime.Load()

	var avg time.Duration
	if ended > 0 {
		avg = time.Duration(totalNs / ended)
	}

	return BasicMetricsSnapshot{
		InstancesStarted:    started,
		InstancesCompleted:  completed,
		InstancesFailed:     failed,
		OpenInstances:       started - completed - failed,
		ActivitiesEnded:     ended,
		AvgActivityDuration: avg,
	}
}
