package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/extra/redisprometheus/v9"
	"github.com/redis/go-redis/v9"

	"certgen/internal/models"
	"certgen/internal/providers"
	"certgen/internal/structures"
)

// RedisClient is the subset of *redis.Client the remote store needs.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisStore keeps each certificate under its own key for uniqueness and
// lookups, and every entry in a list that preserves append order.
type RedisStore struct {
	client  RedisClient
	prefix  string
	metrics providers.MetricsProviderInterface
	logger  providers.Logger
}

func NewRedisStore(conf *structures.Config, metrics providers.MetricsProviderInterface, logger providers.Logger) *RedisStore {
	timeout := conf.Remote.DialTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Remote.Address,
		Username:     conf.Remote.Username,
		Password:     conf.Remote.Password,
		DB:           conf.Remote.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolTimeout:  timeout,
		MaxRetries:   -1,
	})
	metrics.RegisterCollector(redisprometheus.NewCollector("certgen", "remote", client))
	logger.Debugf(providers.TypeRemote, "Remote store configured at %s", conf.Remote.Address)
	return newRedisStoreWithClient(client, conf.Remote.KeyPrefix, metrics, logger)
}

func newRedisStoreWithClient(client RedisClient, prefix string, metrics providers.MetricsProviderInterface, logger providers.Logger) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		metrics: metrics,
		logger:  logger,
	}
}

func (r *RedisStore) recordKey(certificateID string) string {
	return fmt.Sprintf("%srecord:%s", r.prefix, certificateID)
}

func (r *RedisStore) listKey() string {
	return r.prefix + "records"
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrRemoteUnavailable, op, err)
}

func (r *RedisStore) Append(ctx context.Context, rec *models.Record) error {
	start := time.Now()
	defer func() { r.metrics.ObserveStoreDuration("remote_append", time.Since(start)) }()

	if err := validateEntry(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	var claimed string
	if rec.IsCertificate() {
		claimed = r.recordKey(rec.Certificate.CertificateID)
		ok, err := r.client.SetNX(ctx, claimed, data, 0).Result()
		if err != nil {
			return unavailable("setnx", err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, rec.Certificate.CertificateID)
		}
	}

	if err := r.client.RPush(ctx, r.listKey(), data).Err(); err != nil {
		if claimed != "" {
			if delErr := r.client.Del(ctx, claimed).Err(); delErr != nil {
				r.logger.Warnf(providers.TypeRemote, "Failed to release key %s after a failed push: %v", claimed, delErr)
			}
		}
		return unavailable("rpush", err)
	}
	return nil
}

func (r *RedisStore) FindByID(ctx context.Context, certificateID string) (*models.CertificateRecord, error) {
	start := time.Now()
	defer func() { r.metrics.ObserveStoreDuration("remote_find", time.Since(start)) }()

	data, err := r.client.Get(ctx, r.recordKey(certificateID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, unavailable("get", err)
	}

	var rec models.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decode remote record %s: %w", certificateID, err)
	}
	if !rec.IsCertificate() {
		return nil, fmt.Errorf("remote key for %s holds a %q entry", certificateID, rec.Type)
	}
	return rec.Certificate, nil
}

func (r *RedisStore) ListAll(ctx context.Context) ([]*models.Record, error) {
	start := time.Now()
	defer func() { r.metrics.ObserveStoreDuration("remote_list", time.Since(start)) }()

	items, err := r.client.LRange(ctx, r.listKey(), 0, -1).Result()
	if err != nil {
		return nil, unavailable("lrange", err)
	}

	records := make([]*models.Record, 0, len(items))
	for i, item := range items {
		var rec models.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode remote entry %d: %w", i, err)
		}
		records = append(records, &rec)
	}
	return records, nil
}

func (r *RedisStore) Close() {
	if err := r.client.Close(); err != nil {
		r.logger.Warnf(providers.TypeRemote, "Failed to close remote store: %v", err)
	}
}
