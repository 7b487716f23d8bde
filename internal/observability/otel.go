package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pmtailor/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityConfig holds the settings the manager needs up front.
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	ConsoleOutput  bool
	PrettyPrint    bool
	SampleRate     float64
	Prometheus     PrometheusConfig
}

// Metrics holds the custom pmtailor instruments.
type Metrics struct {
	EngineProcessingTime metric.Float64Histogram
	EngineRequestCount   metric.Int64Counter
	EngineErrorCount     metric.Int64Counter
	KeywordMatches       metric.Int64Histogram

	ResumesTailored metric.Int64Counter
	JobsAnalyzed    metric.Int64Counter

	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	RateLimitHits metric.Int64Counter
}

// ObservabilityManager owns the OpenTelemetry tracer and meter providers.
type ObservabilityManager struct {
	config         ObservabilityConfig
	fullConfig     *config.Config
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewFromAppConfig derives the manager from the application config,
// falling back to the app version when no service version is set.
func NewFromAppConfig(cfg *config.Config, version string) (*ObservabilityManager, error) {
	obs := cfg.Observability
	serviceVersion := obs.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	return NewObservabilityManager(ObservabilityConfig{
		ServiceName:    obs.ServiceName,
		ServiceVersion: serviceVersion,
		Enabled:        obs.Enabled,
		ConsoleOutput:  obs.ConsoleOutput,
		PrettyPrint:    obs.Console.PrettyPrint,
		SampleRate:     obs.SampleRate,
		Prometheus: PrometheusConfig{
			Enabled:  obs.Prometheus.Enabled,
			Endpoint: obs.Prometheus.Endpoint,
			Port:     obs.Prometheus.Port,
		},
	}, cfg)
}

// NewObservabilityManager sets up tracing and metrics. A disabled config
// yields an inert manager whose middleware and tracer are no-ops.
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config) (*ObservabilityManager, error) {
	om := &ObservabilityManager{config: obsConfig, fullConfig: fullConfig}
	if !obsConfig.Enabled {
		return om, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(obsConfig.ServiceName),
			semconv.ServiceVersion(obsConfig.ServiceVersion),
			attribute.String("service.instance.id", om.serviceInstanceID()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := om.initTracing(res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := om.initMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return om, nil
}

func (om *ObservabilityManager) initTracing(res *resource.Resource) error {
	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(om.config.SampleRate)),
	}

	// Console output is for development; OTLP is the production path.
	// With neither, spans are sampled but never exported.
	switch {
	case om.config.ConsoleOutput:
		var exporterOpts []stdouttrace.Option
		if om.config.PrettyPrint {
			exporterOpts = append(exporterOpts, stdouttrace.WithPrettyPrint())
		}
		exporter, err := stdouttrace.New(exporterOpts...)
		if err != nil {
			return fmt.Errorf("create console trace exporter: %w", err)
		}
		opts = append(opts, trace.WithBatcher(exporter))
	case om.otlpEnabled():
		exporter, err := otlptracehttp.New(context.Background(), om.otlpTraceOptions()...)
		if err != nil {
			return fmt.Errorf("create OTLP trace exporter: %w", err)
		}
		opts = append(opts, trace.WithBatcher(exporter))
	}

	tp := trace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

func (om *ObservabilityManager) initMetrics(res *resource.Resource) error {
	var readers []sdkmetric.Reader

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("create console metric exporter: %w", err)
		}
		readers = append(readers,
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.collectionInterval())))
	}

	if om.otlpEnabled() {
		exporter, err := otlpmetrichttp.New(context.Background(), om.otlpMetricOptions()...)
		if err != nil {
			return fmt.Errorf("create OTLP metric exporter: %w", err)
		}
		readers = append(readers,
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.collectionInterval())))
	}

	if om.config.Prometheus.Enabled {
		reader, err := newPrometheusReader(om.config.Prometheus)
		if err != nil {
			return fmt.Errorf("create Prometheus exporter: %w", err)
		}
		readers = append(readers, reader)
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		mpOpts = append(mpOpts, sdkmetric.WithReader(reader))
	}
	mp := sdkmetric.NewMeterProvider(mpOpts...)
	otel.SetMeterProvider(mp)

	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	return om.initInstruments()
}

// initInstruments registers the custom pmtailor instruments.
func (om *ObservabilityManager) initInstruments() error {
	meter := om.meterProvider.Meter(om.config.ServiceName)
	m := &Metrics{}

	var errs []error
	collect := func(err error) {
		errs = append(errs, err)
	}

	var err error
	m.EngineProcessingTime, err = meter.Float64Histogram(
		"pmtailor_engine_processing_duration_seconds",
		metric.WithDescription("Time spent processing engine requests"),
		metric.WithUnit("s"))
	collect(err)

	m.EngineRequestCount, err = meter.Int64Counter(
		"pmtailor_engine_requests_total",
		metric.WithDescription("Total number of engine requests"))
	collect(err)

	m.EngineErrorCount, err = meter.Int64Counter(
		"pmtailor_engine_errors_total",
		metric.WithDescription("Total number of engine request errors"))
	collect(err)

	m.KeywordMatches, err = meter.Int64Histogram(
		"pmtailor_keyword_matches",
		metric.WithDescription("Number of vocabulary keywords matched per engine run"),
		metric.WithUnit("{keyword}"))
	collect(err)

	m.ResumesTailored, err = meter.Int64Counter(
		"pmtailor_resumes_tailored_total",
		metric.WithDescription("Total number of resumes tailored"))
	collect(err)

	m.JobsAnalyzed, err = meter.Int64Counter(
		"pmtailor_jobs_analyzed_total",
		metric.WithDescription("Total number of job descriptions analyzed"))
	collect(err)

	m.CertReloadCount, err = meter.Int64Counter(
		"pmtailor_cert_reloads_total",
		metric.WithDescription("Total number of certificate reloads"))
	collect(err)

	m.CertExpiryTime, err = meter.Float64Gauge(
		"pmtailor_cert_expiry_seconds",
		metric.WithDescription("Seconds until certificate expiry"),
		metric.WithUnit("s"))
	collect(err)

	m.RateLimitHits, err = meter.Int64Counter(
		"pmtailor_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"))
	collect(err)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("create instruments: %w", err)
	}

	om.metrics = m
	return nil
}

// GetMetrics never returns nil; a disabled manager yields inert
// instruments the callers nil-check individually.
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware returns otelhttp instrumentation, or a pass-through when
// observability is disabled.
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer returns a tracer for the named component.
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if !om.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown flushes and stops the providers.
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (om *ObservabilityManager) otlpEnabled() bool {
	return om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled
}

func (om *ObservabilityManager) otlpTraceOptions() []otlptracehttp.Option {
	otlp := om.fullConfig.Observability.OTLP
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(otlp.Endpoint)}
	if otlp.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlp.Headers))
	}
	return opts
}

func (om *ObservabilityManager) otlpMetricOptions() []otlpmetrichttp.Option {
	otlp := om.fullConfig.Observability.OTLP
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(otlp.Endpoint)}
	if otlp.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlp.Headers))
	}
	return opts
}

func (om *ObservabilityManager) serviceInstanceID() string {
	if om.fullConfig != nil && om.fullConfig.Observability.ServiceInstance != "" {
		return om.fullConfig.Observability.ServiceInstance
	}
	return "pmtailor-1"
}

func (om *ObservabilityManager) collectionInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}

// EngineOperationResult carries what an instrumented engine run produced.
type EngineOperationResult struct {
	Error          error
	KeywordMatches int64
}

// TrackEngineOperation wraps an engine run in a span and records the
// duration, request, error and match-count instruments.
func (m *Metrics) TrackEngineOperation(ctx context.Context, operation string, fn func(context.Context) *EngineOperationResult, om *ObservabilityManager) error {
	if m.EngineProcessingTime == nil {
		// Instruments absent (observability disabled); just run it.
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	tracer := otel.Tracer("pmtailor.engine")
	ctx, span := tracer.Start(ctx, "engine."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	engineCfg := engineMetricsConfig(om)
	if engineCfg.Enabled {
		attrs := []attribute.KeyValue{
			attribute.String("operation", operation),
			attribute.Bool("success", err == nil),
		}
		if engineCfg.TrackDuration {
			m.EngineProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
		}
		m.EngineRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		if err != nil {
			m.EngineErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		if result != nil && engineCfg.TrackMatches && m.KeywordMatches != nil {
			m.KeywordMatches.Record(ctx, result.KeywordMatches, metric.WithAttributes(attrs...))
		}
		span.SetAttributes(attrs...)
	}

	if result != nil {
		// Traces always carry the match count for debugging.
		span.SetAttributes(attribute.Int64("engine.keyword_matches", result.KeywordMatches))
	}
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

// engineMetricsConfig falls back to everything-on when no full config is
// available (the test path).
func engineMetricsConfig(om *ObservabilityManager) config.EngineOperationsMetricsConfig {
	if om == nil || om.fullConfig == nil {
		return config.EngineOperationsMetricsConfig{Enabled: true, TrackDuration: true, TrackMatches: true}
	}
	return om.fullConfig.Observability.CustomMetrics.EngineOperations
}

// RecordBusinessMetric bumps the counter matching metricType.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, om *ObservabilityManager, attributes ...attribute.KeyValue) {
	if om != nil && om.fullConfig != nil && !om.fullConfig.Observability.CustomMetrics.BusinessMetrics.Enabled {
		return
	}

	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	opts := metric.WithAttributes(attrs...)

	switch metricType {
	case "resume_tailored":
		if m.ResumesTailored != nil {
			m.ResumesTailored.Add(ctx, 1, opts)
		}
	case "job_analyzed":
		if m.JobsAnalyzed != nil {
			m.JobsAnalyzed.Add(ctx, 1, opts)
		}
	case "rate_limit_hit":
		if om != nil && om.fullConfig != nil && !om.fullConfig.Observability.CustomMetrics.Infrastructure.TrackRateLimits {
			return
		}
		if m.RateLimitHits != nil {
			m.RateLimitHits.Add(ctx, 1, opts)
		}
	}
}
