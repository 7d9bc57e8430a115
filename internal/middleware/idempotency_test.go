package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyMiddleware_ReplaysResponse(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	app := fiber.New()
	app.Use(IdempotencyMiddleware(client, time.Minute))
	app.Post("/contact", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})

	send := func(id string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/contact", nil)
		if id != "" {
			req.Header.Set(IdempotencyHeader, id)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	first := send("req-1")
	assert.Equal(t, fiber.StatusCreated, first.StatusCode)
	firstBody, _ := io.ReadAll(first.Body)

	require.Eventually(t, func() bool {
		return len(mr.Keys()) == 1
	}, time.Second, 10*time.Millisecond)

	replay := send("req-1")
	assert.Equal(t, fiber.StatusCreated, replay.StatusCode)
	assert.Equal(t, "true", replay.Header.Get("X-Idempotent-Replay"))
	replayBody, _ := io.ReadAll(replay.Body)
	assert.Equal(t, string(firstBody), string(replayBody))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	send("")
	send("req-2")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_SkipsReadsAndFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	app := fiber.New()
	app.Use(IdempotencyMiddleware(client, time.Minute))
	app.Get("/courses", func(c *fiber.Ctx) error { return c.SendString("list") })
	app.Post("/fail", func(c *fiber.Ctx) error { return c.Status(fiber.StatusBadRequest).SendString("bad") })

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.Header.Set(IdempotencyHeader, "r")
	_, err := app.Test(req)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/fail", nil)
	req.Header.Set(IdempotencyHeader, "r")
	_, err = app.Test(req)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, mr.Keys())
}
