package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/stock_in.lua
var stockInScript string

//go:embed scripts/stock_out.lua
var stockOutScript string

//go:embed scripts/apply_if_latest.lua
var applyIfLatestScript string

var (
	// ErrInsufficientStock is returned by StockOut when the counter would go negative
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrCounterMissing is returned when a variant has no stock counter yet
	ErrCounterMissing = errors.New("stock counter not initialized")
)

type Client struct {
	rdb         *redis.Client
	inScript    *redis.Script
	outScript   *redis.Script
	applyScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:         rdb,
		inScript:    redis.NewScript(stockInScript),
		outScript:   redis.NewScript(stockOutScript),
		applyScript: redis.NewScript(applyIfLatestScript),
	}, nil
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func inventoryKey(variantID int64) string {
	return fmt.Sprintf("inventory:%d", variantID)
}

// StockIn atomically adds quantity to a variant's counter and returns the new count
func (c *Client) StockIn(ctx context.Context, variantID int64, quantity int) (int, error) {
	result, err := c.inScript.Run(ctx, c.rdb, []string{inventoryKey(variantID)}, quantity).Int()
	if err != nil {
		return 0, fmt.Errorf("stock in script failed: %w", err)
	}
	return result, nil
}

// StockOut atomically removes quantity from a variant's counter. It returns
// ErrInsufficientStock without touching the counter if there is not enough,
// and ErrCounterMissing if the counter was never seeded.
func (c *Client) StockOut(ctx context.Context, variantID int64, quantity int) (int, error) {
	result, err := c.outScript.Run(ctx, c.rdb, []string{inventoryKey(variantID)}, quantity).Int()
	if err != nil {
		return 0, fmt.Errorf("stock out script failed: %w", err)
	}
	switch result {
	case -1:
		return 0, ErrInsufficientStock
	case -2:
		return 0, ErrCounterMissing
	}
	return result, nil
}

// InitInventory sets a variant's available counter
func (c *Client) InitInventory(ctx context.Context, variantID int64, available int) error {
	return c.rdb.HSet(ctx, inventoryKey(variantID), "available", available).Err()
}

// GetAvailable retrieves a variant's available counter
func (c *Client) GetAvailable(ctx context.Context, variantID int64) (int, error) {
	val, err := c.rdb.HGet(ctx, inventoryKey(variantID), "available").Result()
	if err == redis.Nil {
		return 0, fmt.Errorf("variant %d: %w", variantID, ErrCounterMissing)
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

func draftKey(productID int64) string {
	return fmt.Sprintf("variant_draft:%d", productID)
}

// SaveDraft stores a serialized variant draft
func (c *Client) SaveDraft(ctx context.Context, productID int64, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, draftKey(productID), payload, ttl).Err()
}

// LoadDraft returns the serialized variant draft, or nil if there is none
func (c *Client) LoadDraft(ctx context.Context, productID int64) ([]byte, error) {
	payload, err := c.rdb.Get(ctx, draftKey(productID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// DeleteDraft discards a product's variant draft
func (c *Client) DeleteDraft(ctx context.Context, productID int64) error {
	return c.rdb.Del(ctx, draftKey(productID)).Err()
}

func checkoutKey(sessionID string) string {
	return fmt.Sprintf("checkout:%s", sessionID)
}

// IssueRequestID bumps and returns the latest request id for a checkout
// session field (e.g. "shipping" or "vouchers").
func (c *Client) IssueRequestID(ctx context.Context, sessionID, field string, ttl time.Duration) (int64, error) {
	key := checkoutKey(sessionID)

	pipe := c.rdb.TxPipeline()
	incr := pipe.HIncrBy(ctx, key, field+":seq", 1)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// ApplyIfLatest stores payload under field only if requestID is still the
// latest issued for it. It reports whether the payload was stored.
func (c *Client) ApplyIfLatest(ctx context.Context, sessionID, field string, requestID int64, payload []byte, ttl time.Duration) (bool, error) {
	result, err := c.applyScript.Run(ctx, c.rdb,
		[]string{checkoutKey(sessionID)},
		field, strconv.FormatInt(requestID, 10), payload, int(ttl.Seconds()),
	).Int()
	if err != nil {
		return false, fmt.Errorf("apply script failed: %w", err)
	}
	return result == 1, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
