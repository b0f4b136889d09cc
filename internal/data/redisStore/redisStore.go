package redisStore

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/akolanti/DocVault/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var (
	instances = make(map[string]*Store)
	mu        sync.Mutex
	logger    = logger_i.NewLogger("redis_store")
)

type Store struct {
	client *redis.Client
	Type   int
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

// GetRedisStore returns the shared store for opts, connecting on first use.
// Stores are closed when ctx is done.
func GetRedisStore(ctx context.Context, opts Options) (*Store, error) {
	key := opts.Addr + "/" + strconv.Itoa(opts.DB)

	mu.Lock()
	defer mu.Unlock()

	if instance, exists := instances[key]; exists {
		return instance, nil
	}
	store, err := createNewStore(ctx, opts)
	if err != nil {
		return nil, err
	}
	instances[key] = store
	go closeOnDone(ctx, key, store)
	return store, nil
}

func closeOnDone(ctx context.Context, key string, store *Store) {
	<-ctx.Done()
	mu.Lock()
	delete(instances, key)
	mu.Unlock()

	if err := store.client.Close(); err != nil {
		logger.Error("Error closing redis client", "db", store.Type, "error", err)
		return
	}
	logger.Info("Redis store closed", "db", store.Type)
}

func createNewStore(ctx context.Context, opts Options) (*Store, error) {
	newClient := redis.NewClient(&redis.Options{
		Addr:                  opts.Addr,
		Password:              opts.Password,
		DB:                    opts.DB,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		_ = newClient.Close()
		logger.Error("Redis is offline", "addr", opts.Addr, "error", err)
		return nil, fmt.Errorf("redis %s db %d: %w", opts.Addr, opts.DB, err)
	}

	logger.Info("Redis store connected", "addr", opts.Addr, "db", opts.DB)
	return &Store{client: newClient, Type: opts.DB}, nil
}

// NewTestStore wraps an existing client, typically one pointed at miniredis.
func NewTestStore(client *redis.Client) *Store {
	return &Store{client: client}
}
