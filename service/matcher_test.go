package service

import (
	"encoding/json"
	"testing"
	"time"

	"Anju/models"

	"gorm.io/datatypes"
)

func mustJSON(t *testing.T, v any) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return datatypes.JSON(raw)
}

func allocRule(t *testing.T, id string, priority int, groupID int64, cond models.RuleConditions) models.AllocationRule {
	t.Helper()
	return models.AllocationRule{
		ID:         id,
		Name:       "rule-" + id,
		Priority:   priority,
		Active:     true,
		Conditions: mustJSON(t, cond),
		GroupID:    groupID,
	}
}

func costRule(t *testing.T, id string, priority int, base int, cond models.RuleConditions, adj models.CostAdjustments) models.PointsCostRule {
	t.Helper()
	return models.PointsCostRule{
		ID:          id,
		Name:        "cost-" + id,
		Priority:    priority,
		Active:      true,
		BaseCost:    base,
		Conditions:  mustJSON(t, cond),
		Adjustments: mustJSON(t, adj),
	}
}

// 周一 14:00
var testNow = time.Date(2025, 6, 2, 14, 0, 0, 0, time.Local)

func TestMatchAllocationRule_FirstMatchWins(t *testing.T) {
	// 入参已按 priority 降序排好，贪心取第一条命中的
	rules := []models.AllocationRule{
		allocRule(t, "a", 100, 1, models.RuleConditions{Sources: []string{"小红书"}}),
		allocRule(t, "b", 50, 2, models.RuleConditions{Sources: []string{"抖音"}}),
		allocRule(t, "c", 10, 3, models.RuleConditions{}),
	}

	res := MatchAllocationRule(rules, LeadAttrs{Source: "抖音", LeadType: "普通"}, testNow)
	if res.Rule == nil || res.Rule.ID != "b" {
		t.Fatalf("expected rule b, got %+v", res.Rule)
	}
	if res.TiedPriority {
		t.Fatal("no tie expected")
	}
	if len(res.Trace) != 2 {
		t.Fatalf("expected trace to stop at winner, got %d entries", len(res.Trace))
	}
	if res.Trace[0].Matched || res.Trace[0].FailedClause != "source" {
		t.Fatalf("unexpected trace[0]: %+v", res.Trace[0])
	}
}

func TestMatchAllocationRule_EmptyConditionsMatchAll(t *testing.T) {
	rules := []models.AllocationRule{
		allocRule(t, "catchall", 1, 9, models.RuleConditions{}),
	}
	res := MatchAllocationRule(rules, LeadAttrs{Source: "别处", LeadType: "x"}, testNow)
	if res.Rule == nil || res.Rule.GroupID != 9 {
		t.Fatalf("catch-all rule should match, got %+v", res.Rule)
	}
}

func TestMatchAllocationRule_AndAcrossClauses(t *testing.T) {
	rules := []models.AllocationRule{
		allocRule(t, "a", 10, 1, models.RuleConditions{
			Sources:   []string{"抖音", "小红书"},
			LeadTypes: []string{"高意向"},
		}),
	}

	// source 命中但 lead_type 不中 → 整条不中
	res := MatchAllocationRule(rules, LeadAttrs{Source: "抖音", LeadType: "普通"}, testNow)
	if res.Rule != nil {
		t.Fatalf("expected no match, got %s", res.Rule.ID)
	}
	if res.Trace[0].FailedClause != "lead_type" {
		t.Fatalf("expected failed clause lead_type, got %q", res.Trace[0].FailedClause)
	}

	// 两个子句都中（子句内 OR）
	res = MatchAllocationRule(rules, LeadAttrs{Source: "小红书", LeadType: "高意向"}, testNow)
	if res.Rule == nil {
		t.Fatal("expected match")
	}
}

func TestMatchAllocationRule_KeywordCaseSensitive(t *testing.T) {
	rules := []models.AllocationRule{
		allocRule(t, "kw", 10, 1, models.RuleConditions{Keywords: []string{"急售", "VIP"}}),
	}

	if res := MatchAllocationRule(rules, LeadAttrs{Remark: "客户急售两居室"}, testNow); res.Rule == nil {
		t.Fatal("substring keyword should match")
	}
	// 区分大小写
	if res := MatchAllocationRule(rules, LeadAttrs{Remark: "vip 客户"}, testNow); res.Rule != nil {
		t.Fatal("keyword match must be case sensitive")
	}
}

func TestMatchAllocationRule_TimeWindow(t *testing.T) {
	rules := []models.AllocationRule{
		allocRule(t, "tw", 10, 1, models.RuleConditions{
			TimeWindows: []models.TimeWindow{
				{Weekdays: []int{1, 2, 3, 4, 5}, StartHour: 9, EndHour: 18},
			},
		}),
	}

	monday14 := time.Date(2025, 6, 2, 14, 0, 0, 0, time.Local)
	if res := MatchAllocationRule(rules, LeadAttrs{}, monday14); res.Rule == nil {
		t.Fatal("monday 14:00 should be inside the window")
	}

	// EndHour 右开：18:00 不在 [9,18) 内
	monday18 := time.Date(2025, 6, 2, 18, 0, 0, 0, time.Local)
	if res := MatchAllocationRule(rules, LeadAttrs{}, monday18); res.Rule != nil {
		t.Fatal("18:00 should be outside the half-open window")
	}

	sunday := time.Date(2025, 6, 1, 14, 0, 0, 0, time.Local)
	if res := MatchAllocationRule(rules, LeadAttrs{}, sunday); res.Rule != nil {
		t.Fatal("sunday should be outside the window")
	}
}

func TestMatchAllocationRule_WeekdayOnlyWindow(t *testing.T) {
	// 只配 weekdays、不配小时的窗口按全天算
	rules := []models.AllocationRule{
		allocRule(t, "wd", 10, 1, models.RuleConditions{
			TimeWindows: []models.TimeWindow{{Weekdays: []int{1, 2, 3, 4, 5}}},
		}),
	}

	monday23 := time.Date(2025, 6, 2, 23, 0, 0, 0, time.Local)
	if res := MatchAllocationRule(rules, LeadAttrs{}, monday23); res.Rule == nil {
		t.Fatal("weekday-only window should match any hour of a listed weekday")
	}
	monday0 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	if res := MatchAllocationRule(rules, LeadAttrs{}, monday0); res.Rule == nil {
		t.Fatal("midnight on a listed weekday should match")
	}

	sunday := time.Date(2025, 6, 1, 14, 0, 0, 0, time.Local)
	if res := MatchAllocationRule(rules, LeadAttrs{}, sunday); res.Rule != nil {
		t.Fatal("weekday filter still applies")
	}
}

func TestMatchAllocationRule_TimeWindowUsesLeadCreatedAt(t *testing.T) {
	rules := []models.AllocationRule{
		allocRule(t, "tw", 10, 1, models.RuleConditions{
			TimeWindows: []models.TimeWindow{{StartHour: 9, EndHour: 12}},
		}),
	}

	// 线索自带创建时间时，以它为准而不是当前时刻
	lead := LeadAttrs{CreatedAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local)}
	now := time.Date(2025, 6, 2, 20, 0, 0, 0, time.Local)
	if res := MatchAllocationRule(rules, lead, now); res.Rule == nil {
		t.Fatal("lead created_at inside window should match")
	}
}

func TestMatchAllocationRule_PriorityTieDetected(t *testing.T) {
	rules := []models.AllocationRule{
		allocRule(t, "a", 10, 1, models.RuleConditions{}),
		allocRule(t, "b", 10, 2, models.RuleConditions{}),
	}
	res := MatchAllocationRule(rules, LeadAttrs{Source: "抖音"}, testNow)
	if res.Rule == nil || res.Rule.ID != "a" {
		t.Fatalf("id asc should win the tie, got %+v", res.Rule)
	}
	if !res.TiedPriority {
		t.Fatal("tie should be flagged")
	}
}

func TestMatchAllocationRule_BrokenConditionsSkipped(t *testing.T) {
	broken := models.AllocationRule{
		ID: "broken", Priority: 100, Active: true,
		Conditions: datatypes.JSON([]byte("{not json")),
	}
	rules := []models.AllocationRule{
		broken,
		allocRule(t, "ok", 1, 1, models.RuleConditions{}),
	}
	res := MatchAllocationRule(rules, LeadAttrs{Source: "抖音"}, testNow)
	if res.Rule == nil || res.Rule.ID != "ok" {
		t.Fatalf("broken rule should be skipped, got %+v", res.Rule)
	}
	if res.Trace[0].ParseError == "" {
		t.Fatal("parse error should be recorded in trace")
	}
}

func TestMatchCostRule_Pricing(t *testing.T) {
	rules := []models.PointsCostRule{
		costRule(t, "c1", 10, 10,
			models.RuleConditions{},
			models.CostAdjustments{
				SourceDelta: map[string]int{"抖音": 15},
				KeywordDelta: []models.KeywordDelta{
					{Keyword: "急售", Delta: 20},
					{Keyword: "高意向", Delta: 5},
				},
			}),
	}

	// base 10 + 抖音 15 + 首个命中关键词 急售 20 = 45（第二个关键词不叠加）
	res := MatchCostRule(rules, LeadAttrs{Source: "抖音", Remark: "急售，高意向客户"}, testNow)
	if res.Rule == nil {
		t.Fatal("expected cost rule match")
	}
	if res.Cost != 45 {
		t.Fatalf("expected cost 45, got %d", res.Cost)
	}
	if res.BaseCost != 10 || res.SourceDelta != 15 || res.KeywordDelta != 20 {
		t.Fatalf("unexpected breakdown: %+v", res)
	}

	// 无加价来源
	res = MatchCostRule(rules, LeadAttrs{Source: "安居客", Remark: "普通"}, testNow)
	if res.Cost != 10 {
		t.Fatalf("expected base cost 10, got %d", res.Cost)
	}
}

func TestMatchCostRule_NegativeFloorsAtZero(t *testing.T) {
	rules := []models.PointsCostRule{
		costRule(t, "c1", 10, 5,
			models.RuleConditions{},
			models.CostAdjustments{SourceDelta: map[string]int{"老客转介": -30}}),
	}
	res := MatchCostRule(rules, LeadAttrs{Source: "老客转介"}, testNow)
	if res.Cost != 0 {
		t.Fatalf("cost must not go negative, got %d", res.Cost)
	}
}

func TestMatchCostRule_NoMatch(t *testing.T) {
	rules := []models.PointsCostRule{
		costRule(t, "c1", 10, 10, models.RuleConditions{Sources: []string{"抖音"}}, models.CostAdjustments{}),
	}
	res := MatchCostRule(rules, LeadAttrs{Source: "小红书"}, testNow)
	if res.Rule != nil {
		t.Fatal("expected no cost rule match")
	}
}
