package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/backend/model"
	"github.com/redis/go-redis/v9"
)

const (
	fieldHeader = "header"
	linePrefix  = "line:"
)

// cartHeader is everything of a cart except its lines.
type cartHeader struct {
	UserID     string    `json:"user_id"`
	NextLineID int64     `json:"next_line_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RedisCache stores each cart as a hash: one header field plus one field per
// line, so a line edit rewrites two fields instead of the cart. Carts expire
// after baseTTL plus up to maxJitter; an empty cart is kept only for emptyTTL,
// enough to absorb the fetches a storefront makes right after login or an
// order.
type RedisCache struct {
	client    *redis.Client
	baseTTL   time.Duration
	maxJitter time.Duration
	emptyTTL  time.Duration
}

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    client,
		baseTTL:   baseTTL,
		maxJitter: 5 * time.Minute,
		emptyTTL:  time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*model.Cart, error) {
	fields, err := r.client.HGetAll(ctx, cacheKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrCacheMiss
	}

	raw, ok := fields[fieldHeader]
	if !ok {
		return nil, fmt.Errorf("cached cart of %s has no header", userID)
	}
	var hdr cartHeader
	if err := json.Unmarshal([]byte(raw), &hdr); err != nil {
		return nil, fmt.Errorf("unmarshal cart header failed: %w", err)
	}

	cart := &model.Cart{
		UserID:     hdr.UserID,
		NextLineID: hdr.NextLineID,
		CreatedAt:  hdr.CreatedAt,
		UpdatedAt:  hdr.UpdatedAt,
		Items:      make([]model.CartLine, 0, len(fields)-1),
	}
	for name, v := range fields {
		if !strings.HasPrefix(name, linePrefix) {
			continue
		}
		var line model.CartLine
		if err := json.Unmarshal([]byte(v), &line); err != nil {
			return nil, fmt.Errorf("unmarshal cart line failed: %w", err)
		}
		cart.Items = append(cart.Items, line)
	}
	// Line ids only grow, so id order is insertion order.
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].LineID < cart.Items[j].LineID })

	return cart, nil
}

func (r *RedisCache) Set(ctx context.Context, userID string, cart *model.Cart) error {
	hdr, err := json.Marshal(cartHeader{
		UserID:     cart.UserID,
		NextLineID: cart.NextLineID,
		CreatedAt:  cart.CreatedAt,
		UpdatedAt:  cart.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal cart header failed: %w", err)
	}
	values := []interface{}{fieldHeader, hdr}
	for _, line := range cart.Items {
		b, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("marshal cart line failed: %w", err)
		}
		values = append(values, lineField(line.LineID), b)
	}

	key := cacheKey(userID)
	ttl := r.ttlFor(cart)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// UpdateLine sets the quantity of a cached line. It returns ErrCacheMiss when
// the line is not cached.
func (r *RedisCache) UpdateLine(ctx context.Context, userID string, lineID int64, quantity int) error {
	return r.editLine(ctx, userID, lineID, func(line *model.CartLine) bool {
		line.Quantity = quantity
		return true
	})
}

// RemoveLine drops a cached line. It returns ErrCacheMiss when the line is
// not cached.
func (r *RedisCache) RemoveLine(ctx context.Context, userID string, lineID int64) error {
	return r.editLine(ctx, userID, lineID, func(*model.CartLine) bool {
		return false
	})
}

func (r *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// editLine applies edit to one cached line under WATCH, so a concurrent Set or
// Delete of the cart aborts the write. edit returns false to drop the line.
// The key keeps its TTL.
func (r *RedisCache) editLine(ctx context.Context, userID string, lineID int64, edit func(line *model.CartLine) bool) error {
	key := cacheKey(userID)
	field := lineField(lineID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, key, fieldHeader, field).Result()
		if err != nil {
			return err
		}
		rawHdr, ok := vals[0].(string)
		if !ok {
			return ErrCacheMiss
		}
		rawLine, ok := vals[1].(string)
		if !ok {
			return ErrCacheMiss
		}

		var hdr cartHeader
		if err := json.Unmarshal([]byte(rawHdr), &hdr); err != nil {
			return fmt.Errorf("unmarshal cart header failed: %w", err)
		}
		var line model.CartLine
		if err := json.Unmarshal([]byte(rawLine), &line); err != nil {
			return fmt.Errorf("unmarshal cart line failed: %w", err)
		}

		keep := edit(&line)
		hdr.UpdatedAt = time.Now().UTC()
		hb, err := json.Marshal(hdr)
		if err != nil {
			return err
		}
		lb, err := json.Marshal(line)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fieldHeader, hb)
			if keep {
				pipe.HSet(ctx, key, field, lb)
			} else {
				pipe.HDel(ctx, key, field)
			}
			return nil
		})
		return err
	}, key)

	if err == nil || errors.Is(err, ErrCacheMiss) {
		return err
	}
	return fmt.Errorf("redis line write failed: %w", err)
}

func (r *RedisCache) ttlFor(cart *model.Cart) time.Duration {
	if len(cart.Items) == 0 {
		return r.emptyTTL
	}
	ttl := r.baseTTL
	if r.maxJitter > 0 {
		ttl += time.Duration(rand.Int63n(int64(r.maxJitter)))
	}
	return ttl
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func lineField(lineID int64) string {
	return linePrefix + strconv.FormatInt(lineID, 10)
}
