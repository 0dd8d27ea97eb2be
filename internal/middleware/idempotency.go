package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	idempotencyPrefix = "idem:"
	inFlight          = "in_flight"
	inFlightTTL       = time.Minute
)

// encodeResponse is swapped in tests.
var encodeResponse = json.Marshal

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency replays the first successful response for a repeated
// (user, route, Idempotency-Key). A duplicate that arrives while the first is still
// running gets 409. Failed responses are not stored, so the client may retry. Without
// Redis, or without a key, requests pass through.
func Idempotency(rdb *redis.Client, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(IdempotencyHeader)
		userID, authed := UserID(c)
		if rdb == nil || key == "" || !authed {
			return c.Next()
		}
		if len(key) > 255 {
			return response.Fail(c, apperror.Validation(apperror.CodeValidation, "Idempotency-Key is too long"))
		}
		sum := sha256.Sum256([]byte(c.Method() + " " + c.Route().Path + " " + key))
		redisKey := idempotencyPrefix + userID.String() + ":" + hex.EncodeToString(sum[:])
		ctx := context.Background()

		acquired, err := rdb.SetNX(ctx, redisKey, inFlight, inFlightTTL).Result()
		if err != nil {
			log.Warn().Err(err).Msg("Idempotency store unavailable, passing through")
			return c.Next()
		}
		if !acquired {
			return replay(c, rdb, redisKey)
		}

		if err := c.Next(); err != nil {
			rdb.Del(ctx, redisKey)
			return err
		}
		status := c.Response().StatusCode()
		if status < 200 || status >= 300 {
			rdb.Del(ctx, redisKey)
			return nil
		}
		stored, err := encodeResponse(storedResponse{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to encode idempotent response")
			rdb.Del(ctx, redisKey)
			return nil
		}
		if err := rdb.Set(ctx, redisKey, stored, ttl).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to store idempotent response")
			rdb.Del(ctx, redisKey)
		}
		return nil
	}
}

func replay(c *fiber.Ctx, rdb *redis.Client, redisKey string) error {
	raw, err := rdb.Get(context.Background(), redisKey).Result()
	if errors.Is(err, redis.Nil) || raw == inFlight {
		return response.Fail(c, apperror.Conflict(apperror.CodeConflict, "A request with this Idempotency-Key is already in progress"))
	}
	if err != nil {
		return response.Fail(c, apperror.Transient(err))
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return response.Fail(c, apperror.Internal(err))
	}
	c.Set(ReplayedHeader, "true")
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	return c.Status(stored.Status).Send(stored.Body)
}
