package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"diasporan-backend/internal/application/health"
	"diasporan-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// HealthMarker records request stats in Redis (skip /, /health*, favicon). Responses
// with a 5xx status are also pushed onto the bounded error log.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if rdb == nil || path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		lastReq, _ := json.Marshal(map[string]interface{}{
			"time":   start.UTC(),
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		})
		ctx := context.Background()
		pipe := rdb.Pipeline()
		pipe.Set(ctx, health.KeyLastReq, lastReq, 0)
		pipe.Incr(ctx, health.KeyReqTotal)
		_, _ = pipe.Exec(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		pipe = rdb.Pipeline()
		pipe.Incr(ctx, health.KeyResCount)
		pipe.IncrByFloat(ctx, health.KeyResTime, float64(time.Since(start).Milliseconds()))
		if status >= fiber.StatusInternalServerError {
			pipe.Incr(ctx, health.KeyReqErrors)
			msg, _ := c.Locals(response.ErrorCauseLocal).(string)
			if msg == "" && err != nil {
				msg = err.Error()
			}
			entry, _ := json.Marshal(map[string]interface{}{
				"time":     time.Now().UTC(),
				"method":   c.Method(),
				"path":     path,
				"status":   status,
				"trace_id": GetTraceID(c),
				"message":  msg,
			})
			pipe.LPush(ctx, health.KeyErrorLog, entry)
			pipe.LTrim(ctx, health.KeyErrorLog, 0, health.ErrorLogSize-1)
		}
		_, _ = pipe.Exec(ctx)
		return err
	}
}
