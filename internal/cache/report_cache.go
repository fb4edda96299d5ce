package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/restocklab/replaysim/internal/config"
	"github.com/restocklab/replaysim/internal/domain"
)

const reportKeyPrefix = "replaysim:report"

// ReportCache fronts the run repository for completed reports.
type ReportCache interface {
	Get(ctx context.Context, runID string) (*domain.SimulationReport, bool, error)
	Set(ctx context.Context, report *domain.SimulationReport) error
	Invalidate(ctx context.Context, runID string) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{client: client, ttl: ttl}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) Get(ctx context.Context, runID string) (*domain.SimulationReport, bool, error) {
	payload, err := c.client.Get(ctx, reportKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.SimulationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode cached report: %w", err)
	}

	return &report, true, nil
}

func (c *redisReportCache) Set(ctx context.Context, report *domain.SimulationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report for cache: %w", err)
	}

	if err := c.client.Set(ctx, reportKey(report.RunID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) Invalidate(ctx context.Context, runID string) error {
	return c.client.Del(ctx, reportKey(runID)).Err()
}

func (n *noopReportCache) Get(ctx context.Context, runID string) (*domain.SimulationReport, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) Set(ctx context.Context, report *domain.SimulationReport) error {
	return nil
}

func (n *noopReportCache) Invalidate(ctx context.Context, runID string) error {
	return nil
}

func reportKey(runID string) string {
	return fmt.Sprintf("%s:%s", reportKeyPrefix, runID)
}
