package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Metrics 执行器的 prometheus 指标
type Metrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
	slowQueries       *prometheus.CounterVec
}

// NewMetrics 创建并注册指标，同名指标已注册时复用已有的收集器
func NewMetrics(name string, registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		operationCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_operations_total",
				Help: "Total number of sql operations",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_operation_duration_seconds",
				Help:    "Duration of sql operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
		activeOperations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_operations",
				Help: "Number of active sql operations",
			},
			[]string{"operation"},
		),
		slowQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_slow_queries_total",
				Help: "Number of sql operations slower than the log threshold",
			},
			[]string{"operation"},
		),
	}

	metrics.operationCounter = register(registerer, metrics.operationCounter)
	metrics.operationDuration = register(registerer, metrics.operationDuration)
	metrics.activeOperations = register(registerer, metrics.activeOperations)
	metrics.slowQueries = register(registerer, metrics.slowQueries)

	return metrics
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if err := registerer.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return collector
}

// Timing 一次执行的分段耗时
type Timing struct {
	Acquire time.Duration
	Query   time.Duration
	Cleanup time.Duration
	Total   time.Duration
}

// observe 统一的观测逻辑：tracing、metrics、日志与慢查询告警
func (e *Executor) observe(ctx context.Context, operation string, sqlText string, fn func(context.Context, *Timing) error) error {
	start := time.Now()

	var span trace.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, fmt.Sprintf("rdb.%s", operation),
			trace.WithAttributes(
				attribute.String("component", e.name),
				attribute.String("operation", operation),
				attribute.String("db.system", e.driver),
				attribute.String("db.statement", sqlText),
			),
		)
		defer span.End()
	}

	if e.metrics != nil {
		e.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer e.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	timing := &Timing{}
	err := fn(ctx, timing)
	timing.Total = time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", timing.Total.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	slow := false
	if threshold := e.LogThreshold(); threshold > 0 && timing.Total > threshold {
		slow = true
		e.logger.WarnContext(ctx, "query time threshold exceeded",
			"component", e.name,
			"operation", operation,
			"threshold_ms", threshold.Milliseconds(),
			"connection_ms", timing.Acquire.Milliseconds(),
			"query_ms", timing.Query.Milliseconds(),
			"cleanup_ms", timing.Cleanup.Milliseconds(),
			"full_ms", timing.Total.Milliseconds(),
			"sql", sqlText,
		)
	}

	if e.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		e.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		e.metrics.operationDuration.WithLabelValues(operation).Observe(timing.Total.Seconds())
		if slow {
			e.metrics.slowQueries.WithLabelValues(operation).Inc()
		}
	}

	if err != nil {
		e.logger.ErrorContext(ctx, "sql operation failed",
			"component", e.name,
			"operation", operation,
			"duration_ms", timing.Total.Milliseconds(),
			"error", err.Error(),
		)
	} else {
		e.logger.DebugContext(ctx, "sql operation completed",
			"component", e.name,
			"operation", operation,
			"duration_ms", timing.Total.Milliseconds(),
		)
	}

	return err
}
