package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mort/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the agent
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	messagesHandledCounter  metric.Int64Counter
	gamesSubmittedCounter   metric.Int64Counter
	eventsReconciledCounter metric.Int64Counter
	eventsSkippedCounter    metric.Int64Counter
	transfersCounter        metric.Int64Counter
	chainReconnectsCounter  metric.Int64Counter
	databaseQueriesCounter  metric.Int64Counter
	databaseQueryDuration   metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{config: cfg}
}

// Initialize sets up the OpenTelemetry metrics provider. With OTel disabled
// the provider stays inert and every record call is a no-op.
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	if mp.config.OTelEndpoint != "" {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelEndpoint).Info("Using OTLP metric exporter")
	} else {
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("mort")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.messagesHandledCounter, err = mp.meter.Int64Counter(
		MessagesHandledTotal,
		metric.WithDescription("Total number of inbound chat messages handled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create messages handled counter: %w", err)
	}

	mp.gamesSubmittedCounter, err = mp.meter.Int64Counter(
		GamesSubmittedTotal,
		metric.WithDescription("Total number of wagers submitted on-chain"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create games submitted counter: %w", err)
	}

	mp.eventsReconciledCounter, err = mp.meter.Int64Counter(
		EventsReconciledTotal,
		metric.WithDescription("Total number of chain events applied to game records"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create events reconciled counter: %w", err)
	}

	mp.eventsSkippedCounter, err = mp.meter.Int64Counter(
		EventsSkippedTotal,
		metric.WithDescription("Total number of chain events skipped as duplicate or unmatched"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create events skipped counter: %w", err)
	}

	mp.transfersCounter, err = mp.meter.Int64Counter(
		TransfersTotal,
		metric.WithDescription("Total number of wallet transfers submitted"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transfers counter: %w", err)
	}

	mp.chainReconnectsCounter, err = mp.meter.Int64Counter(
		ChainReconnectsTotal,
		metric.WithDescription("Total number of chain subscription reconnect attempts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create chain reconnects counter: %w", err)
	}

	mp.databaseQueriesCounter, err = mp.meter.Int64Counter(
		DatabaseQueriesTotal,
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create database queries counter: %w", err)
	}

	mp.databaseQueryDuration, err = mp.meter.Float64Histogram(
		DatabaseQueryDuration,
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create database query duration histogram: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordMessageHandled records an inbound chat message reaching the router
func (mp *MetricsProvider) RecordMessageHandled() {
	if !mp.isEnabled() {
		return
	}
	mp.messagesHandledCounter.Add(context.Background(), 1)
}

// RecordGameSubmitted records a wager accepted on-chain
func (mp *MetricsProvider) RecordGameSubmitted(game string) {
	if !mp.isEnabled() {
		return
	}
	mp.gamesSubmittedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelGame, game)),
	)
}

// RecordEventReconciled records a chain event applied to a game record
func (mp *MetricsProvider) RecordEventReconciled(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.eventsReconciledCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// RecordEventSkipped records a chain event dropped by the idempotency guard
func (mp *MetricsProvider) RecordEventSkipped(eventType, reason string) {
	if !mp.isEnabled() {
		return
	}
	mp.eventsSkippedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
			attribute.String(LabelReason, reason),
		),
	)
}

// RecordTransfer records a wallet transfer submission
func (mp *MetricsProvider) RecordTransfer() {
	if !mp.isEnabled() {
		return
	}
	mp.transfersCounter.Add(context.Background(), 1)
}

// RecordChainReconnect records a chain subscription reconnect attempt
func (mp *MetricsProvider) RecordChainReconnect() {
	if !mp.isEnabled() {
		return
	}
	mp.chainReconnectsCounter.Add(context.Background(), 1)
}

// RecordDatabaseQuery records a database query with duration
func (mp *MetricsProvider) RecordDatabaseQuery(repository, method string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(LabelRepository, repository),
		attribute.String(LabelMethod, method),
	)
	mp.databaseQueriesCounter.Add(context.Background(), 1, attrs)
	mp.databaseQueryDuration.Record(context.Background(), duration.Seconds(), attrs)
}

// MeasureDatabaseQuery returns a function to measure database query duration
// Usage:
//
//	defer metrics.MeasureDatabaseQuery("user", "GetByChatID")()
func (mp *MetricsProvider) MeasureDatabaseQuery(repository, method string) func() {
	start := time.Now()
	return func() {
		mp.RecordDatabaseQuery(repository, method, time.Since(start))
	}
}

func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider. Safe to call on a nil
// result: record methods treat a nil provider as disabled.
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
