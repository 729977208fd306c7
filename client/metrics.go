package client

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName       = "taskdeck/client"
	requestSpanName  = "taskdeck.client.request"
	requestEventName = "client.request.metrics"
)

type requestMetrics struct {
	logger        *log.Logger
	span          trace.Span
	start         time.Time
	method        string
	route         string
	requestID     string
	requestBytes  int
	responseBytes int
	errorStage    string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, method, route, requestID string) (*requestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.String("taskdeck.request_id", requestID),
		),
	)
	return &requestMetrics{
		logger:    logger,
		span:      span,
		start:     time.Now(),
		method:    method,
		route:     route,
		requestID: requestID,
	}, ctx
}

func (m *requestMetrics) ObserveRequestBytes(n int) {
	if n > 0 {
		m.requestBytes = n
	}
}

func (m *requestMetrics) ObserveResponseBytes(n int) {
	if n > 0 {
		m.responseBytes = n
	}
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log ends the span and emits one structured entry for the request.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	total := durationToMillis(time.Since(m.start))

	if m.span != nil {
		attrs := []attribute.KeyValue{
			attribute.Int("http.status_code", status),
			attribute.Float64("taskdeck.total_ms", total),
		}
		if m.errorStage != "" {
			attrs = append(attrs, attribute.String("taskdeck.error_stage", m.errorStage))
		}
		m.span.SetAttributes(attrs...)
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"method":     m.method,
		"route":      m.route,
		"status":     status,
		"total_ms":   total,
		"request_id": m.requestID,
	}
	if m.requestBytes > 0 {
		fields["request_bytes"] = m.requestBytes
	}
	if m.responseBytes > 0 {
		fields["response_bytes"] = m.responseBytes
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}
	m.logger.WithFields(fields).Log(levelForStatus(status, err), requestEventName)
}

// levelForStatus logs successful requests at debug level.
func levelForStatus(status int, err error) log.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return log.ErrorLevel
	case status == 0 && err != nil:
		return log.ErrorLevel
	case status >= http.StatusBadRequest:
		return log.WarnLevel
	case err != nil:
		return log.WarnLevel
	}
	return log.DebugLevel
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
