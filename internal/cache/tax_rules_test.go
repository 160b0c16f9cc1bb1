package cache

import (
	"context"
	"testing"
	"time"

	"procurement/internal/model"
)

func TestNilClientNeverHits(t *testing.T) {
	if NewRedisClient("", "") != nil {
		t.Fatal("empty address must not build a client")
	}
	c := NewTaxRules(nil, time.Minute)
	ctx := context.Background()
	c.Set(ctx, "8471", []model.TaxRule{{HSNCode: "8471"}})
	if _, ok := c.Get(ctx, "8471"); ok {
		t.Fatal("noop cache returned a hit")
	}
	c.Invalidate(ctx, "8471")
}

func TestTaxRuleKey(t *testing.T) {
	if got := TaxRuleKey("8471"); got != "procurement:tax_rules:8471" {
		t.Fatalf("TaxRuleKey = %q", got)
	}
}
