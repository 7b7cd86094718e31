package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hookline/hookline/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

const displayNameTTL = 24 * time.Hour

// SetupCache initializes the connection to the cache server. The cache is an
// optimization in front of the profile lookup API; when it is unreachable the
// service keeps working without it.
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: could not connect to cache: %v", err)
	} else {
		log.Printf("Successfully connected to cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

func displayNameKey(userID string) string {
	return "profile:display_name:" + userID
}

// NameCache is a read-through cache for fetched display names. All methods
// degrade to a miss / no-op on cache errors.
type NameCache struct{}

func NewNameCache() *NameCache {
	return &NameCache{}
}

func (n *NameCache) Lookup(userID string) (string, bool) {
	val, err := GetClient().Get(ctx, displayNameKey(userID)).Result()
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

func (n *NameCache) Store(userID, name string) {
	if err := GetClient().Set(ctx, displayNameKey(userID), name, displayNameTTL).Err(); err != nil {
		log.Printf("cache: failed to store display name for %s: %v", userID, err)
	}
}
