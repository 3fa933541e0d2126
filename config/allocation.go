package config

// AllocationConfig 分配引擎配置
type AllocationConfig struct {
	// 未配置策略的分组使用的兜底分配策略
	DefaultStrategy string `json:"default_strategy" yaml:"default_strategy"`
	// 手动指派时未命中费用规则的兜底扣分
	DefaultCost int `json:"default_cost" yaml:"default_cost"`
	// 活跃规则缓存秒数，0 表示不走缓存
	RuleCacheTTL int `json:"rule_cache_ttl" yaml:"rule_cache_ttl"`
}

func ProvideAllocationConfig(cfg *Config) *AllocationConfig {
	if cfg.Allocation == nil {
		return &AllocationConfig{DefaultStrategy: "round_robin", DefaultCost: 10}
	}
	return cfg.Allocation
}
