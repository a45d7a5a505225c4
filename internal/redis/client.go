package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"outfitter-service/internal/config"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis client with application-specific methods
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key prefixes
const (
	DraftKeyPrefix    = "contract:draft:"
	ReminderKeyPrefix = "contract:draft:reminder:"
	WebhookKeyPrefix  = "webhook:envelope:"
)

// CompletionDraft is a client's autosaved partial completion payload.
// Drafts live only in Redis; the authoritative completion data is written to
// the contract row on submit.
type CompletionDraft struct {
	ContractID    string                 `json:"contract_id"`
	OutfitterID   string                 `json:"outfitter_id"`
	ClientEmail   string                 `json:"client_email"`
	FormData      map[string]interface{} `json:"form_data"`
	LastSavedAt   time.Time              `json:"last_saved_at"`
	ReminderCount int                    `json:"reminder_count"`
}

// SaveDraft saves a completion draft with a TTL
func (c *Client) SaveDraft(ctx context.Context, contractID string, draft *CompletionDraft, ttl time.Duration) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	return c.rdb.Set(ctx, DraftKeyPrefix+contractID, data, ttl).Err()
}

// GetDraft retrieves a completion draft, or nil when none exists
func (c *Client) GetDraft(ctx context.Context, contractID string) (*CompletionDraft, error) {
	data, err := c.rdb.Get(ctx, DraftKeyPrefix+contractID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	var draft CompletionDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &draft, nil
}

// DeleteDraft removes a completion draft (after submit or expiry)
func (c *Client) DeleteDraft(ctx context.Context, contractID string) error {
	return c.rdb.Del(ctx, DraftKeyPrefix+contractID, ReminderKeyPrefix+contractID).Err()
}

// ListDraftContractIDs scans for contract ids with live drafts
func (c *Client) ListDraftContractIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := c.rdb.Scan(ctx, 0, DraftKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		// Skip reminder bookkeeping keys sharing the prefix
		if len(key) > len(ReminderKeyPrefix) && key[:len(ReminderKeyPrefix)] == ReminderKeyPrefix {
			continue
		}
		ids = append(ids, key[len(DraftKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan drafts: %w", err)
	}
	return ids, nil
}

// MarkReminderSent records that a draft reminder was sent, with the draft's TTL
func (c *Client) MarkReminderSent(ctx context.Context, contractID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, ReminderKeyPrefix+contractID, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// ReminderSentRecently reports whether a reminder went out inside the window
func (c *Client) ReminderSentRecently(ctx context.Context, contractID string, window time.Duration) (bool, error) {
	val, err := c.rdb.Get(ctx, ReminderKeyPrefix+contractID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	sentAt, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return false, nil
	}
	return time.Since(sentAt) < window, nil
}

// MarkWebhookSeen records a processed (envelope, status) pair so redelivered
// terminal events can be acknowledged without touching the database. This is
// a fast path only; webhook handling stays idempotent without it.
func (c *Client) MarkWebhookSeen(ctx context.Context, envelopeID, status string, ttl time.Duration) error {
	return c.rdb.Set(ctx, WebhookKeyPrefix+envelopeID+":"+status, "1", ttl).Err()
}

// WebhookSeen reports whether a (envelope, status) pair was already processed
func (c *Client) WebhookSeen(ctx context.Context, envelopeID, status string) (bool, error) {
	n, err := c.rdb.Exists(ctx, WebhookKeyPrefix+envelopeID+":"+status).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
