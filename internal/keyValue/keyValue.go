package keyValue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type localValue struct {
	value   string
	expires time.Time
}

// KV is a small expiring key/value store backed by redis, or by an
// in-process map when running self-contained.
type KV struct {
	sugar         *zap.SugaredLogger
	redisClient   *redis.Client
	selfContained bool

	mutex   sync.RWMutex
	hashmap map[string]localValue
}

func New(sugar *zap.SugaredLogger, redisClient *redis.Client, selfContained bool) *KV {
	kv := &KV{
		sugar:         sugar,
		redisClient:   redisClient,
		selfContained: selfContained,
		hashmap:       make(map[string]localValue),
	}

	if selfContained {
		go kv.checkForLocalExpiredKeys()
	}

	return kv
}

func (kv *KV) checkForLocalExpiredKeys() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		kv.mutex.Lock()
		for key, v := range kv.hashmap {
			if v.expires.Before(time.Now()) {
				delete(kv.hashmap, key)
			}
		}
		kv.mutex.Unlock()
	}
}

func (kv *KV) Get(ctx context.Context, key string) (string, error) {
	if kv.selfContained {
		kv.mutex.RLock()
		defer kv.mutex.RUnlock()

		v := kv.hashmap[key]
		if !v.expires.IsZero() && v.expires.Before(time.Now()) {
			return "", nil
		}

		return v.value, nil
	}

	value, err := kv.redisClient.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return value, nil
}

func (kv *KV) Set(ctx context.Context, key string, value string, expires time.Duration) error {
	if kv.selfContained {
		kv.mutex.Lock()
		defer kv.mutex.Unlock()

		kv.hashmap[key] = localValue{value, time.Now().Add(expires)}

		return nil
	}

	_, err := kv.redisClient.Set(ctx, key, value, expires).Result()
	return err
}

func (kv *KV) Delete(ctx context.Context, key string) error {
	if kv.selfContained {
		kv.mutex.Lock()
		defer kv.mutex.Unlock()

		delete(kv.hashmap, key)

		return nil
	}

	return kv.redisClient.Del(ctx, key).Err()
}
