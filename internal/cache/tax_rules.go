// Package cache holds the optional Redis read-through cache for tax rules.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"procurement/internal/model"

	"github.com/redis/go-redis/v9"
)

const taxRuleKeyPrefix = "procurement:tax_rules:"

// TaxRules caches every version of an HSN code's rules. Misses and
// backend failures look the same to callers.
type TaxRules interface {
	Get(ctx context.Context, hsn string) ([]model.TaxRule, bool)
	Set(ctx context.Context, hsn string, rules []model.TaxRule)
	Invalidate(ctx context.Context, hsn string)
}

// NewRedisClient returns nil when addr is empty so callers can run without Redis
func NewRedisClient(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

// NewTaxRules wraps client; a nil client yields a cache that never hits.
func NewTaxRules(client *redis.Client, ttl time.Duration) TaxRules {
	if client == nil {
		return noop{}
	}
	return &redisTaxRules{client: client, ttl: ttl}
}

func TaxRuleKey(hsn string) string { return taxRuleKeyPrefix + hsn }

type redisTaxRules struct {
	client *redis.Client
	ttl    time.Duration
}

func (c *redisTaxRules) Get(ctx context.Context, hsn string) ([]model.TaxRule, bool) {
	raw, err := c.client.Get(ctx, TaxRuleKey(hsn)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("tax rule cache get %s: %v", hsn, err)
		}
		return nil, false
	}
	var rules []model.TaxRule
	if err := json.Unmarshal(raw, &rules); err != nil {
		log.Printf("tax rule cache decode %s: %v", hsn, err)
		return nil, false
	}
	return rules, true
}

func (c *redisTaxRules) Set(ctx context.Context, hsn string, rules []model.TaxRule) {
	raw, err := json.Marshal(rules)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, TaxRuleKey(hsn), raw, c.ttl).Err(); err != nil {
		log.Printf("tax rule cache set %s: %v", hsn, err)
	}
}

func (c *redisTaxRules) Invalidate(ctx context.Context, hsn string) {
	if err := c.client.Del(ctx, TaxRuleKey(hsn)).Err(); err != nil {
		log.Printf("tax rule cache invalidate %s: %v", hsn, err)
	}
}

type noop struct{}

func (noop) Get(context.Context, string) ([]model.TaxRule, bool) { return nil, false }
func (noop) Set(context.Context, string, []model.TaxRule)        {}
func (noop) Invalidate(context.Context, string)                  {}
