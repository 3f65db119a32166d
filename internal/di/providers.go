package di

import (
	"context"
	"fmt"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/handler/api"
	mid "MarketPulse/internal/middleware"
	internalrepo "MarketPulse/internal/repository"
	"MarketPulse/internal/services/feeds"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/metrics"
	"MarketPulse/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideSymbolRegistry creates the HTTP symbol registry client.
func ProvideSymbolRegistry(cfg *config.Config) drepo.SymbolRegistry {
	return feeds.NewHTTPSymbolRegistry(
		cfg.Feeds.RegistryURL,
		xhttp.NewClient(xhttp.WithTimeout(cfg.Feeds.RegistryTimeout)),
	)
}

// ProvideEngine builds the aggregation engine with its runtime configuration.
func ProvideEngine(cfg *config.Config, registry drepo.SymbolRegistry, m drepo.Metrics, l *logger.Logger) *usecase.Engine {
	aggCfg := models.AggregatorConfig{
		UpdateInterval:          cfg.Aggregator.UpdateInterval,
		ConfidenceThreshold:     cfg.Aggregator.ConfidenceThreshold,
		MaxDataAge:              cfg.Aggregator.MaxDataAge,
		EnableTechnicalAnalysis: cfg.Aggregator.EnableTechnicalAnalysis,
		Sources:                 make(map[string]models.SourceSetting, len(cfg.Aggregator.Sources)),
	}
	for name, s := range cfg.Aggregator.Sources {
		aggCfg.Sources[name] = models.SourceSetting{Enabled: s.Enabled, Weight: s.Weight}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Feeds.RegistryTimeout)
	defer cancel()
	return usecase.NewEngine(ctx, aggCfg, registry, m, l)
}

// ProvideFeeds creates the configured upstream feed adapters. The symbol set
// the feeds subscribe to comes from the registry-primed engine.
func ProvideFeeds(cfg *config.Config, engine *usecase.Engine) []drepo.FeedStream {
	symbols := engine.TrackedSymbols()
	var out []drepo.FeedStream
	if cfg.Feeds.Oracle.Enabled {
		out = append(out, feeds.NewOracleFeed(
			cfg.Feeds.Oracle.BaseURL,
			symbols,
			cfg.Feeds.Oracle.PollInterval,
			cfg.Feeds.Oracle.Timeout,
		))
	}
	if cfg.Feeds.Stream.Enabled {
		out = append(out, feeds.NewStreamFeed(
			cfg.Feeds.Stream.WebSocketURL,
			symbols,
			cfg.Feeds.Stream.ReconnectDelay,
			cfg.Feeds.Stream.PingInterval,
		))
	}
	return out
}

// ProvideFeedCollector wires feeds through the ingestion pipeline into the engine.
func ProvideFeedCollector(streams []drepo.FeedStream, engine *usecase.Engine, m drepo.Metrics) *usecase.FeedCollector {
	pipe := mid.NewIngestPipeline(engine, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewFeedCollector(streams, engine, m, pipe)
}

// ProvideEventPublisher creates the Kafka event publisher, or nil when disabled.
func ProvideEventPublisher(cfg *config.Config) (drepo.EventPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideSnapshotStore creates the Redis snapshot store, or nil when disabled.
func ProvideSnapshotStore(cfg *config.Config) drepo.SnapshotStore {
	if !cfg.Redis.Enabled {
		return nil
	}
	return internalrepo.NewRedisSnapshotStore(internalrepo.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	})
}

// ProvideHTTPHandler creates the market API handler.
func ProvideHTTPHandler(l *logger.Logger, engine *usecase.Engine) xhttp.Handler {
	return api.NewMarketEchoHandler(l, engine)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	engine *usecase.Engine,
	collector *usecase.FeedCollector,
	handler xhttp.Handler,
	publisher drepo.EventPublisher,
	snapshots drepo.SnapshotStore,
) *server.App {
	return server.New(cfg, l, engine, collector, handler, publisher, snapshots)
}
