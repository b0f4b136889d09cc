package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/akolanti/DocVault/internal/config"
	"github.com/akolanti/DocVault/internal/data/redisStore"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/pkg/logger_i"
)

// RedisMetadataStore keeps sidecars as JSON strings under "docmeta:<name>".
type RedisMetadataStore struct {
	store             *redisStore.Store
	defaultDepartment string
	logger            *logger_i.Logger
}

func NewRedisMetadataStore(store *redisStore.Store, defaultDepartment string) *RedisMetadataStore {
	return &RedisMetadataStore{
		store:             store,
		defaultDepartment: defaultDepartment,
		logger:            logger_i.NewLogger("redis_metadata_store"),
	}
}

func (s *RedisMetadataStore) Get(ctx context.Context, name string) (commonModels.MetadataSidecar, error) {
	val, err := s.store.Get(ctx, config.RedisMetadataKey+name)
	if s.store.IsNil(err) {
		return commonModels.DefaultSidecar(s.defaultDepartment), nil
	}
	if err != nil {
		return commonModels.MetadataSidecar{}, err
	}

	var meta commonModels.MetadataSidecar
	if err = json.Unmarshal([]byte(val), &meta); err != nil {
		s.logger.Warn("Unreadable metadata record, using default", "name", name, "error", err)
		return commonModels.DefaultSidecar(s.defaultDepartment), nil
	}
	return meta.WithDefaults(s.defaultDepartment), nil
}

func (s *RedisMetadataStore) Put(ctx context.Context, name string, meta commonModels.MetadataSidecar) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, config.RedisMetadataKey+name, data, 0)
}

func (s *RedisMetadataStore) Delete(ctx context.Context, name string) (bool, error) {
	n, err := s.store.DelCount(ctx, config.RedisMetadataKey+name)
	return n > 0, err
}

func (s *RedisMetadataStore) List(ctx context.Context) ([]commonModels.MetadataEntry, error) {
	keys, err := s.store.Scan(ctx, config.RedisMetadataKey+"*")
	if err != nil {
		return nil, err
	}
	result := make([]commonModels.MetadataEntry, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimPrefix(key, config.RedisMetadataKey)
		meta, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		result = append(result, commonModels.MetadataEntry{Name: name, Meta: meta})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
