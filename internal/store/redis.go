package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/mkravets/inventory-tracker/internal/model"
)

// Redis key layout: one hash per item under "inventory:<Name>".
const (
	keyPrefix = "inventory:"

	fieldName     = "name"
	fieldQuantity = "quantity"
	fieldImageURL = "image_url"

	scanCount = 100
)

// incrementQuantityScript adds a delta to an existing record's quantity
// in one atomic step. A nil reply signals a missing record, so the
// counter is never created as a side effect of an increment.
var incrementQuantityScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return nil
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
`)

// setFieldScript overwrites a hash field only when the record exists.
var setFieldScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return nil
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// RedisStore implements Store on Redis hashes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new RedisStore instance.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping verifies connectivity to the Redis backend.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// List returns every stored item, scanning the inventory keyspace and
// fetching the hashes in one pipeline round trip.
func (s *RedisStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan inventory keys: %w", err)
	}

	if len(keys) == 0 {
		return []model.InventoryItem{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("fetch inventory hashes: %w", err)
	}

	items := make([]model.InventoryItem, 0, len(keys))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// Key expired or was deleted between SCAN and HGETALL.
			continue
		}
		item, err := itemFromFields(keys[i], fields)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

// Get retrieves an item by its normalized name.
func (s *RedisStore) Get(ctx context.Context, name string) (*model.InventoryItem, error) {
	if name == "" {
		return nil, ErrEmptyKey
	}

	fields, err := s.client.HGetAll(ctx, keyPrefix+name).Result()
	if err != nil {
		return nil, fmt.Errorf("get item %q: %w", name, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	item, err := itemFromFields(keyPrefix+name, fields)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// Put creates or fully replaces the item under its name.
func (s *RedisStore) Put(ctx context.Context, item *model.InventoryItem) error {
	if item == nil {
		return ErrNilItem
	}

	if item.Name == "" {
		return ErrEmptyKey
	}

	err := s.client.HSet(ctx, keyPrefix+item.Name,
		fieldName, item.Name,
		fieldQuantity, item.Quantity,
		fieldImageURL, item.ImageURL,
	).Err()
	if err != nil {
		return fmt.Errorf("put item %q: %w", item.Name, err)
	}

	return nil
}

// IncrementQuantity atomically adds delta to the stored quantity via a
// Lua script, so concurrent increments to one key never lose updates.
func (s *RedisStore) IncrementQuantity(ctx context.Context, name string, delta int64) (int64, error) {
	if name == "" {
		return 0, ErrEmptyKey
	}

	quantity, err := incrementQuantityScript.Run(
		ctx, s.client, []string{keyPrefix + name}, fieldQuantity, delta,
	).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment quantity of %q: %w", name, err)
	}

	return quantity, nil
}

// SetImageURL overwrites the stored image URL for an existing item.
func (s *RedisStore) SetImageURL(ctx context.Context, name, url string) error {
	if name == "" {
		return ErrEmptyKey
	}

	err := setFieldScript.Run(
		ctx, s.client, []string{keyPrefix + name}, fieldImageURL, url,
	).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("set image url of %q: %w", name, err)
	}

	return nil
}

// Delete removes the item under the given name.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyKey
	}

	deleted, err := s.client.Del(ctx, keyPrefix+name).Result()
	if err != nil {
		return fmt.Errorf("delete item %q: %w", name, err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	return nil
}

// Rename writes item under its new name and deletes the old record in
// one MULTI/EXEC transaction. The write is queued before the delete, so
// even a non-transactional replay over-retains rather than loses data.
func (s *RedisStore) Rename(ctx context.Context, oldName string, item *model.InventoryItem) error {
	if item == nil {
		return ErrNilItem
	}

	if oldName == "" || item.Name == "" {
		return ErrEmptyKey
	}

	if oldName == item.Name {
		return ErrRenameKey
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, keyPrefix+item.Name,
		fieldName, item.Name,
		fieldQuantity, item.Quantity,
		fieldImageURL, item.ImageURL,
	)
	pipe.Del(ctx, keyPrefix+oldName)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rename item %q to %q: %w", oldName, item.Name, err)
	}

	return nil
}

// itemFromFields decodes a Redis hash into an InventoryItem.
func itemFromFields(key string, fields map[string]string) (model.InventoryItem, error) {
	quantity, err := strconv.ParseInt(fields[fieldQuantity], 10, 64)
	if err != nil {
		return model.InventoryItem{}, fmt.Errorf("decode quantity of %q: %w", key, err)
	}

	return model.InventoryItem{
		Name:     fields[fieldName],
		Quantity: quantity,
		ImageURL: fields[fieldImageURL],
	}, nil
}
