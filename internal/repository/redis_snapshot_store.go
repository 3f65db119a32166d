package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
)

const (
	recordKeyPrefix  = "marketpulse:record:"
	summaryKeyLatest = "marketpulse:summary:latest"
)

// RedisSnapshotStore caches the latest aggregated records and market summary in
// Redis for external readers. Entries expire after the configured TTL; this is
// a read-side cache, not persistence.
type RedisSnapshotStore struct {
	cli *redis.Client
	ttl time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisSnapshotStore creates a Redis-backed snapshot store.
func NewRedisSnapshotStore(cfg RedisConfig) repository.SnapshotStore {
	cli := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &RedisSnapshotStore{cli: cli, ttl: cfg.TTL}
}

func (s *RedisSnapshotStore) SaveRecord(ctx context.Context, rec *models.AggregatedRecord) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.cli.Set(ctx, recordKeyPrefix+rec.Symbol, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("set record: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) SaveSummary(ctx context.Context, sum *models.MarketSummary) error {
	if sum == nil {
		return fmt.Errorf("summary is nil")
	}
	b, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := s.cli.Set(ctx, summaryKeyLatest, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) Close() error {
	return s.cli.Close()
}
