package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"billing-service/internal/models"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyStore marks idempotency keys as seen. Reserve returns false when
// the key was already used.
type IdempotencyStore interface {
	Reserve(c *gin.Context, key string) (bool, error)
	Release(c *gin.Context, key string)
}

// RedisIdempotencyStore backs idempotency with Redis SetNX so duplicate
// suppression holds across process instances.
type RedisIdempotencyStore struct {
	client *redis.Client
}

// NewRedisIdempotencyStore creates a Redis-backed idempotency store
func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Reserve(c *gin.Context, key string) (bool, error) {
	return s.client.SetNX(c.Request.Context(), "billing:idem:"+key, 1, idempotencyTTL).Result()
}

func (s *RedisIdempotencyStore) Release(c *gin.Context, key string) {
	s.client.Del(c.Request.Context(), "billing:idem:"+key)
}

// MemoryIdempotencyStore is the single-process fallback used when Redis is
// not configured.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryIdempotencyStore creates an in-process idempotency store
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{seen: make(map[string]time.Time)}
}

func (s *MemoryIdempotencyStore) Reserve(_ *gin.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if at, ok := s.seen[key]; ok && now.Sub(at) < idempotencyTTL {
		return false, nil
	}
	s.seen[key] = now
	return true, nil
}

func (s *MemoryIdempotencyStore) Release(_ *gin.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
}

// IdempotencyMiddleware suppresses duplicate POSTs carrying the same
// Idempotency-Key header. The key is reserved up front and released if the
// request fails, so a retried failure goes through.
func IdempotencyMiddleware(store IdempotencyStore, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader("Idempotency-Key")
		if idempotencyKey == "" {
			c.Next()
			return
		}

		key := c.GetString("tenantId") + ":" + idempotencyKey
		reserved, err := store.Reserve(c, key)
		if err != nil {
			// Idempotency is protection, not a gate: let the request pass
			logger.WithError(err).Warn("Idempotency store unavailable")
			c.Next()
			return
		}
		if !reserved {
			c.AbortWithStatusJSON(http.StatusConflict, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "DUPLICATE_REQUEST",
					Message: "Request with this idempotency key has already been processed",
				},
			})
			return
		}

		c.Next()

		if c.Writer.Status() >= 400 {
			store.Release(c, key)
		}
	}
}
