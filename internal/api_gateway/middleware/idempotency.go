package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v1:"
	inProgressMarker     = "__in_progress__"
	cacheTimeout         = 2 * time.Second
	maxIdempotencyKeyLen = 255
)

type storedResponse struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type"`
}

// bodyRecorder keeps a copy of what the handler writes
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped to the authenticated account, so it must run after Auth.
// Requests without the header are served normally; 5xx responses and panics
// are not stored so the client may retry them.
func Idempotency(cache redis.Cmdable, ttl time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			abortWithError(c, http.StatusBadRequest, "BAD_REQUEST", "Idempotency-Key is too long")
			return
		}

		scope := "guest"
		if accountID, ok := GetAccountID(c); ok {
			scope = accountID.String()
		}
		cacheKey := idempotencyPrefix + scope + ":" + c.Request.Method + ":" + c.FullPath() + ":" + key
		log := logger.With("idempotency_key", key, "correlation_id", GetCorrelationID(c))

		ctx, cancel := context.WithTimeout(c.Request.Context(), cacheTimeout)
		defer cancel()

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err != nil {
			log.Error("Idempotency reservation failed", "error", err)
			abortWithError(c, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "Idempotency store failure")
			return
		}

		if !reserved {
			replay(c, cache, cacheKey, log)
			return
		}

		// a panicking handler must not leave the key reserved until the TTL
		defer func() {
			if p := recover(); p != nil {
				releaseCtx, releaseCancel := context.WithTimeout(context.Background(), cacheTimeout)
				defer releaseCancel()
				if err := cache.Del(releaseCtx, cacheKey).Err(); err != nil {
					log.Error("Failed to release idempotency key after panic", "error", err)
				}
				panic(p)
			}
		}()

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		persistCtx, persistCancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer persistCancel()

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			cache.Del(persistCtx, cacheKey)
			return
		}

		payload, err := json.Marshal(storedResponse{
			Status:      status,
			Body:        recorder.body.String(),
			ContentType: recorder.Header().Get("Content-Type"),
		})
		if err == nil {
			err = cache.Set(persistCtx, cacheKey, payload, ttl).Err()
		}
		if err != nil {
			log.Error("Failed to persist idempotent response", "error", err)
			cache.Del(persistCtx, cacheKey)
		}
	}
}

func replay(c *gin.Context, cache redis.Cmdable, cacheKey string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), cacheTimeout)
	defer cancel()

	cached, err := cache.Get(ctx, cacheKey).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		abortWithError(c, http.StatusConflict, "CONFLICT", "Duplicate request, retry")
		return
	}
	if err != nil {
		log.Error("Idempotency lookup failed", "error", err)
		abortWithError(c, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "Idempotency store failure")
		return
	}

	if cached == inProgressMarker {
		abortWithError(c, http.StatusConflict, "CONFLICT", "Duplicate request currently processing")
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		log.Warn("Failed to decode stored idempotent response", "error", err)
		abortWithError(c, http.StatusConflict, "CONFLICT", "Duplicate request")
		return
	}

	c.Header("Idempotent-Replayed", "true")
	c.Data(stored.Status, stored.ContentType, []byte(stored.Body))
	c.Abort()
}
