package nodestate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func metaKey(nodeID string) string {
	return fmt.Sprintf("tradecore:node:%s:meta", nodeID)
}

func inboxKey(nodeID string) string {
	return fmt.Sprintf("tradecore:node:%s:inbox", nodeID)
}

const allNodesKey = "tradecore:nodes"

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) UpdateNodeMeta(ctx context.Context, meta *NodeMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, metaKey(meta.NodeID), data, 0)
	pipe.SAdd(ctx, allNodesKey, meta.NodeID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetNodeMeta(ctx context.Context, nodeID string) (*NodeMeta, error) {
	data, err := r.client.Get(ctx, metaKey(nodeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta NodeMeta
	return &meta, json.Unmarshal(data, &meta)
}

func (r *RedisStore) SetInbox(ctx context.Context, nodeID string, count int) error {
	return r.client.Set(ctx, inboxKey(nodeID), count, 0).Err()
}

func (r *RedisStore) GetInbox(ctx context.Context, nodeID string) (int, error) {
	val, err := r.client.Get(ctx, inboxKey(nodeID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return val, err
}

func (r *RedisStore) IncrementInbox(ctx context.Context, nodeID string) error {
	return r.client.Incr(ctx, inboxKey(nodeID)).Err()
}

func (r *RedisStore) DecrementInbox(ctx context.Context, nodeID string) error {
	return r.client.Decr(ctx, inboxKey(nodeID)).Err()
}

func (r *RedisStore) GetAllNodeIDs(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, allNodesKey).Result()
}

func (r *RedisStore) RemoveNode(ctx context.Context, nodeID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, metaKey(nodeID), inboxKey(nodeID))
	pipe.SRem(ctx, allNodesKey, nodeID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	ids, err := r.GetAllNodeIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.RemoveNode(ctx, id)
	}
	return r.client.Del(ctx, allNodesKey).Err()
}
