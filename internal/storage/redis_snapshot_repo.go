package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/pilotsim/internal/logging"
	"github.com/annel0/pilotsim/internal/snapshot"
)

// RedisConfig настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс ключей
	TTL       time.Duration // Время жизни снимка, 0: без ограничения
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "pilotsim:snap:",
		TTL:       time.Hour,
	}
}

// RedisSnapshotRepo хранит снимки в Redis: тело по ключу кадра,
// номера кадров в отсортированном множестве для List и Prune.
type RedisSnapshotRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	codec     *Codec
}

// NewRedisSnapshotRepo подключается к Redis
func NewRedisSnapshotRepo(config *RedisConfig) (*RedisSnapshotRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	logging.GetComponentLogger("storage").Info("🔴 Подключено к Redis %s", config.Addr)
	return NewRedisSnapshotRepoWithClient(client, config.KeyPrefix, config.TTL), nil
}

// NewRedisSnapshotRepoWithClient создаёт хранилище поверх готового клиента
func NewRedisSnapshotRepoWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisSnapshotRepo {
	if prefix == "" {
		prefix = "pilotsim:snap:"
	}
	return &RedisSnapshotRepo{client: client, keyPrefix: prefix, ttl: ttl, codec: &defaultCodec}
}

func (r *RedisSnapshotRepo) frameKey(frame uint64) string {
	return r.keyPrefix + strconv.FormatUint(frame, 10)
}

func (r *RedisSnapshotRepo) indexKey() string {
	return r.keyPrefix + "index"
}

func (r *RedisSnapshotRepo) Save(ctx context.Context, f *snapshot.Frame) error {
	data, err := r.codec.Encode(f)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.frameKey(f.Frame), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), &redis.Z{Score: float64(f.Frame), Member: strconv.FormatUint(f.Frame, 10)})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка сохранения снимка %d в Redis: %w", f.Frame, err)
	}
	return nil
}

func (r *RedisSnapshotRepo) Get(ctx context.Context, frame uint64) (*snapshot.Frame, error) {
	data, err := r.client.Get(ctx, r.frameKey(frame)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения снимка %d из Redis: %w", frame, err)
	}
	return r.codec.Decode(data)
}

func (r *RedisSnapshotRepo) Latest(ctx context.Context) (*snapshot.Frame, error) {
	// Снимки с истёкшим TTL остаются в индексе, поэтому берём первый существующий
	ids, err := r.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		f, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return f, err
	}
	return nil, ErrNotFound
}

func (r *RedisSnapshotRepo) List(ctx context.Context, limit int) ([]uint64, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	members, err := r.client.ZRevRange(ctx, r.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения индекса снимков: %w", err)
	}
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *RedisSnapshotRepo) Prune(ctx context.Context, keep int) (int, error) {
	ids, err := r.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(ids) <= keep {
		return 0, nil
	}

	old := ids[keep:]
	keys := make([]string, 0, len(old))
	members := make([]interface{}, 0, len(old))
	for _, id := range old {
		keys = append(keys, r.frameKey(id))
		members = append(members, strconv.FormatUint(id, 10))
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, r.indexKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ошибка удаления старых снимков: %w", err)
	}
	return len(old), nil
}

func (r *RedisSnapshotRepo) Close() error {
	return r.client.Close()
}
