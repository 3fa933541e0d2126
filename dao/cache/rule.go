package cache

import (
	"context"
	"encoding/json"
	"time"

	"Anju/config"
	"Anju/models"

	"github.com/redis/go-redis/v9"
)

const (
	allocationRulesKey = "anju:rules:allocation:active"
	costRulesKey       = "anju:rules:cost:active"
)

// RuleCache 活跃规则的读穿缓存，数据库是唯一事实源
// client 为 nil 时所有方法直接穿透，测试环境不依赖 redis
type RuleCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRuleCache(client *redis.Client, conf *config.AllocationConfig) *RuleCache {
	ttl := 30 * time.Second
	if conf != nil && conf.RuleCacheTTL > 0 {
		ttl = time.Duration(conf.RuleCacheTTL) * time.Second
	}
	return &RuleCache{redis: client, ttl: ttl}
}

func (c *RuleCache) GetAllocationRules(ctx context.Context) ([]models.AllocationRule, bool) {
	if c.redis == nil {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, allocationRulesKey).Bytes()
	if err != nil {
		return nil, false
	}
	var rules []models.AllocationRule
	if json.Unmarshal(raw, &rules) != nil {
		return nil, false
	}
	return rules, true
}

func (c *RuleCache) SetAllocationRules(ctx context.Context, rules []models.AllocationRule) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		return
	}
	c.redis.Set(ctx, allocationRulesKey, raw, c.ttl)
}

func (c *RuleCache) GetCostRules(ctx context.Context) ([]models.PointsCostRule, bool) {
	if c.redis == nil {
		return nil, false
	}
	raw, err := c.redis.Get(ctx, costRulesKey).Bytes()
	if err != nil {
		return nil, false
	}
	var rules []models.PointsCostRule
	if json.Unmarshal(raw, &rules) != nil {
		return nil, false
	}
	return rules, true
}

func (c *RuleCache) SetCostRules(ctx context.Context, rules []models.PointsCostRule) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		return
	}
	c.redis.Set(ctx, costRulesKey, raw, c.ttl)
}

// Invalidate 管理端改动规则后调用
func (c *RuleCache) Invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	c.redis.Del(ctx, allocationRulesKey, costRulesKey)
}
