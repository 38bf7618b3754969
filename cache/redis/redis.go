package redis

import (
	"errors"

	"journeys/cache"
	C "journeys/config"

	"github.com/gomodule/redigo/redis"
)

var ErrorNotEnabled = errors.New("redis cache not enabled")

func Set(key *cache.Key, value string, expiryInSecs float64) error {
	if key == nil {
		return cache.ErrorInvalidKey
	}

	if value == "" {
		return cache.ErrorInvalidValue
	}

	cKey, err := key.Key()
	if err != nil {
		return err
	}

	if !C.IsRedisEnabled() {
		return ErrorNotEnabled
	}

	redisConn := C.GetCacheRedisConnection()
	defer redisConn.Close()

	if expiryInSecs == 0 {
		_, err = redisConn.Do("SET", cKey, value)
	} else {
		_, err = redisConn.Do("SET", cKey, value, "EX", int64(expiryInSecs))
	}

	return err
}

// Get returns redis.ErrNil when the key does not exist.
func Get(key *cache.Key) (string, error) {
	if key == nil {
		return "", cache.ErrorInvalidKey
	}

	cKey, err := key.Key()
	if err != nil {
		return "", err
	}

	if !C.IsRedisEnabled() {
		return "", ErrorNotEnabled
	}

	redisConn := C.GetCacheRedisConnection()
	defer redisConn.Close()

	return redis.String(redisConn.Do("GET", cKey))
}

// GetIfExists returns found=false without error on a cache miss.
func GetIfExists(key *cache.Key) (string, bool, error) {
	value, err := Get(key)
	if err == redis.ErrNil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func Del(key *cache.Key) error {
	if key == nil {
		return cache.ErrorInvalidKey
	}

	cKey, err := key.Key()
	if err != nil {
		return err
	}

	if !C.IsRedisEnabled() {
		return ErrorNotEnabled
	}

	redisConn := C.GetCacheRedisConnection()
	defer redisConn.Close()

	_, err = redisConn.Do("DEL", cKey)
	return err
}
