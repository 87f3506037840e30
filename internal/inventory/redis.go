package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrMismatchedLines is returned when product ids and quantities differ in length.
var ErrMismatchedLines = errors.New("inventory: product ids and quantities differ in length")

// decrementScript checks every counter first and only then decrements, so a
// short product leaves all counters untouched.
var decrementScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
  local current = tonumber(redis.call("GET", key) or "-1")
  if current == nil or current < tonumber(ARGV[i]) then
    return 0
  end
end
for i, key in ipairs(KEYS) do
  redis.call("DECRBY", key, ARGV[i])
end
return 1
`)

// RedisStore keeps per-product stock counters in Redis.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

// CheckAvailability reports whether every product has at least the requested
// quantity in stock. Unknown products are unavailable. Lines with a
// non-positive quantity request nothing.
func (s RedisStore) CheckAvailability(ctx context.Context, productIDs []string, quantities []int64) (bool, error) {
	keys, wanted, err := s.lines(productIDs, quantities, true)
	if err != nil {
		return false, err
	}
	if len(keys) == 0 {
		return true, nil
	}
	values, err := s.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("inventory: read stock: %w", err)
	}
	for i, raw := range values {
		current, ok := parseCounter(raw)
		if !ok || current < wanted[i] {
			return false, nil
		}
	}
	return true, nil
}

// DecrementStock removes the quantities from stock atomically. It returns
// false, leaving stock unchanged, when any product is short.
func (s RedisStore) DecrementStock(ctx context.Context, productIDs []string, quantities []int64) (bool, error) {
	keys, wanted, err := s.lines(productIDs, quantities, false)
	if err != nil {
		return false, err
	}
	if len(keys) == 0 {
		return true, nil
	}
	args := make([]any, len(wanted))
	for i, q := range wanted {
		args[i] = q
	}
	res, err := decrementScript.Run(ctx, s.Client, keys, args...).Int()
	if err != nil {
		return false, fmt.Errorf("inventory: decrement stock: %w", err)
	}
	return res == 1, nil
}

// SetStock overwrites the stock counter of a product.
func (s RedisStore) SetStock(ctx context.Context, productID string, quantity int64) error {
	if strings.TrimSpace(productID) == "" {
		return errors.New("inventory: product id is required")
	}
	if quantity < 0 {
		return errors.New("inventory: stock cannot be negative")
	}
	return s.Client.Set(ctx, s.key(productID), quantity, 0).Err()
}

// Stock returns the current counter of a product and whether it exists.
func (s RedisStore) Stock(ctx context.Context, productID string) (int64, bool, error) {
	v, err := s.Client.Get(ctx, s.key(productID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (s RedisStore) key(productID string) string {
	return s.Prefix + "stock:" + productID
}

// lines merges repeated product ids, preserving first-seen order. With
// skipEmpty, non-positive quantities are dropped instead of rejected.
func (s RedisStore) lines(productIDs []string, quantities []int64, skipEmpty bool) ([]string, []int64, error) {
	if s.Client == nil {
		return nil, nil, errors.New("inventory: redis client not configured")
	}
	if len(productIDs) != len(quantities) {
		return nil, nil, ErrMismatchedLines
	}
	index := make(map[string]int, len(productIDs))
	keys := make([]string, 0, len(productIDs))
	wanted := make([]int64, 0, len(productIDs))
	for i, id := range productIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, nil, errors.New("inventory: product id is required")
		}
		if quantities[i] <= 0 {
			if skipEmpty {
				continue
			}
			return nil, nil, fmt.Errorf("inventory: quantity for %s must be positive", id)
		}
		if pos, ok := index[id]; ok {
			if wanted[pos] > math.MaxInt64-quantities[i] {
				wanted[pos] = math.MaxInt64
			} else {
				wanted[pos] += quantities[i]
			}
			continue
		}
		index[id] = len(keys)
		keys = append(keys, s.key(id))
		wanted = append(wanted, quantities[i])
	}
	return keys, wanted, nil
}

func parseCounter(raw any) (int64, bool) {
	str, ok := raw.(string)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
