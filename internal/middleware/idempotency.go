package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client generated request key
const IdempotencyHeader = "X-Correlation-ID"

type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyMiddleware replays the stored response for a repeated mutating
// request with the same X-Correlation-ID. Keys are scoped per user.
func IdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Only apply to mutating methods
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		default:
			return c.Next()
		}

		correlationID := c.Get(IdempotencyHeader)
		if correlationID == "" || redisClient == nil {
			return c.Next()
		}

		key := fmt.Sprintf("idempotency:%s:%s:%s", GetUserID(c), c.Method(), correlationID)

		raw, err := redisClient.Get(c.UserContext(), key).Bytes()
		if err == nil && len(raw) > 0 {
			var cached cachedResponse
			if json.Unmarshal(raw, &cached) == nil {
				c.Set("X-Idempotent-Replay", "true")
				c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
				return c.Status(cached.Status).Send(cached.Body)
			}
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Cache successful responses (2xx status codes)
		statusCode := c.Response().StatusCode()
		if statusCode < 200 || statusCode >= 300 {
			return nil
		}

		// the response buffer is reused once the handler returns
		body := append([]byte(nil), c.Response().Body()...)
		payload, err := json.Marshal(cachedResponse{Status: statusCode, Body: body})
		if err != nil {
			return nil
		}

		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := redisClient.Set(bgCtx, key, payload, ttl).Err(); err != nil {
				log.Printf("[Idempotency] Failed to cache %s: %v", key, err)
			}
		}()

		return nil
	}
}
