package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/giantswarm/rating-eval/internal/runner"
)

// DefaultRedisTTL bounds how long a run stays in Redis.
const DefaultRedisTTL = 30 * 24 * time.Hour

const keyPrefix = "rating-eval"

// storedRun is the Redis value: the report plus everything tagged json:"-".
type storedRun struct {
	Report  *runner.Report          `json:"report"`
	Results []runner.StrategyResult `json:"results"`
}

// RedisStore keeps one JSON document per run and a sorted-set index ordered
// by run timestamp.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect creates a Redis client from a redis:// URL or a host:port address
// and checks that the server answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisStore wraps client. A non-positive ttl keeps runs forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func runKey(runID string) string {
	return fmt.Sprintf("%s:run:%s", keyPrefix, runID)
}

func indexKey() string {
	return keyPrefix + ":runs"
}

// Save stores the report and indexes it by timestamp.
func (s *RedisStore) Save(ctx context.Context, report *runner.Report) error {
	if err := ValidateRunID(report.ID); err != nil {
		return err
	}

	data, err := json.Marshal(storedRun{Report: report, Results: report.Results})
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, runKey(report.ID), data, ttl)
	pipe.ZAdd(ctx, indexKey(), redis.Z{
		Score:  float64(report.Timestamp.Unix()),
		Member: report.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store run %s: %w", report.ID, err)
	}
	return nil
}

// Get loads one run with its predictions.
func (s *RedisStore) Get(ctx context.Context, runID string) (*runner.Report, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, runKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return decodeRun(data, true)
}

// List returns indexed runs, newest first. Index entries whose document has
// expired are pruned.
func (s *RedisStore) List(ctx context.Context) ([]*runner.Report, error) {
	ids, err := s.client.ZRevRange(ctx, indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = runKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}

	var reports []*runner.Report
	var expired []any
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		report, err := decodeRun([]byte(str), false)
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}

	if len(expired) > 0 {
		if err := s.client.ZRem(ctx, indexKey(), expired...).Err(); err != nil {
			return reports, fmt.Errorf("failed to prune run index: %w", err)
		}
	}
	return reports, nil
}

func decodeRun(data []byte, withResults bool) (*runner.Report, error) {
	var stored storedRun
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	if stored.Report == nil {
		return nil, fmt.Errorf("failed to decode run: missing report")
	}
	if withResults {
		stored.Report.Results = stored.Results
	}
	return stored.Report, nil
}
