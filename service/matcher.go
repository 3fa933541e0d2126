package service

import (
	"strings"
	"time"

	"Anju/models"
)

// LeadAttrs 参与规则匹配的线索属性
type LeadAttrs struct {
	LeadID    string
	Source    string
	LeadType  string
	Community string
	Remark    string
	CreatedAt time.Time
}

// RuleEval 单条规则的评估结果，进 debug_info
type RuleEval struct {
	RuleID       string `json:"rule_id"`
	Name         string `json:"name"`
	Priority     int    `json:"priority"`
	Matched      bool   `json:"matched"`
	FailedClause string `json:"failed_clause,omitempty"`
	ParseError   string `json:"parse_error,omitempty"`
}

// MatchResult 规则匹配结果
// TiedPriority 表示命中规则与其他规则优先级撞车，按 id 升序决胜（配置问题，告警不报错）
type MatchResult struct {
	Rule         *models.AllocationRule
	Trace        []RuleEval
	TiedPriority bool
}

// CostResult 费用规则匹配与计价结果
type CostResult struct {
	Rule         *models.PointsCostRule
	Cost         int
	BaseCost     int
	SourceDelta  int
	KeywordDelta int
	Trace        []RuleEval
	TiedPriority bool
}

// MatchAllocationRule 贪心选择：入参 rules 已按 priority 降序、id 升序排好，
// 第一条全部子句通过的规则即命中，不做"最具体者胜"
func MatchAllocationRule(rules []models.AllocationRule, lead LeadAttrs, now time.Time) MatchResult {
	result := MatchResult{Trace: make([]RuleEval, 0, len(rules))}

	for i := range rules {
		rule := &rules[i]
		eval := RuleEval{RuleID: rule.ID, Name: rule.Name, Priority: rule.Priority}

		cond, err := rule.ParseConditions()
		if err != nil {
			eval.ParseError = err.Error()
			result.Trace = append(result.Trace, eval)
			continue
		}

		matched, failed := evalConditions(cond, lead, now)
		eval.Matched = matched
		eval.FailedClause = failed
		result.Trace = append(result.Trace, eval)

		if matched {
			result.Rule = rule
			result.TiedPriority = hasPriorityTie(rules, i, rule.Priority)
			return result
		}
	}
	return result
}

// MatchCostRule 与分配规则同一套匹配纪律，外加计价：
// cost = base + 来源加价 + 首个命中的关键词加价（只取第一个，避免重复计费）
func MatchCostRule(rules []models.PointsCostRule, lead LeadAttrs, now time.Time) CostResult {
	result := CostResult{Trace: make([]RuleEval, 0, len(rules))}

	for i := range rules {
		rule := &rules[i]
		eval := RuleEval{RuleID: rule.ID, Name: rule.Name, Priority: rule.Priority}

		cond, err := rule.ParseConditions()
		if err != nil {
			eval.ParseError = err.Error()
			result.Trace = append(result.Trace, eval)
			continue
		}

		matched, failed := evalConditions(cond, lead, now)
		eval.Matched = matched
		eval.FailedClause = failed
		result.Trace = append(result.Trace, eval)

		if matched {
			result.Rule = rule
			result.TiedPriority = hasCostPriorityTie(rules, i, rule.Priority)
			computeCost(&result, rule, lead)
			return result
		}
	}
	return result
}

func computeCost(result *CostResult, rule *models.PointsCostRule, lead LeadAttrs) {
	result.BaseCost = rule.BaseCost
	result.Cost = rule.BaseCost

	adj, err := rule.ParseAdjustments()
	if err != nil {
		return
	}

	if delta, ok := adj.SourceDelta[lead.Source]; ok {
		result.SourceDelta = delta
		result.Cost += delta
	}

	for _, kd := range adj.KeywordDelta {
		if kd.Keyword != "" && strings.Contains(lead.Remark, kd.Keyword) {
			result.KeywordDelta = kd.Delta
			result.Cost += kd.Delta
			break
		}
	}

	if result.Cost < 0 {
		result.Cost = 0
	}
}

// evalConditions 子句之间 AND，子句内部 OR；空子句不限
// 返回未通过的子句名，方便排查"为什么没命中"
func evalConditions(cond *models.RuleConditions, lead LeadAttrs, now time.Time) (bool, string) {
	if len(cond.Sources) > 0 && !containsString(cond.Sources, lead.Source) {
		return false, "source"
	}
	if len(cond.LeadTypes) > 0 && !containsString(cond.LeadTypes, lead.LeadType) {
		return false, "lead_type"
	}
	if len(cond.Communities) > 0 && !containsString(cond.Communities, lead.Community) {
		return false, "community"
	}
	if len(cond.Keywords) > 0 && !matchAnyKeyword(cond.Keywords, lead.Remark) {
		return false, "keyword"
	}
	if len(cond.TimeWindows) > 0 {
		ts := lead.CreatedAt
		if ts.IsZero() {
			ts = now
		}
		if !matchAnyWindow(cond.TimeWindows, ts) {
			return false, "time_window"
		}
	}
	return true, ""
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// 关键词对 remark 做区分大小写的子串匹配
func matchAnyKeyword(keywords []string, remark string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(remark, kw) {
			return true
		}
	}
	return false
}

func matchAnyWindow(windows []models.TimeWindow, ts time.Time) bool {
	for _, w := range windows {
		if matchWindow(w, ts) {
			return true
		}
	}
	return false
}

func matchWindow(w models.TimeWindow, ts time.Time) bool {
	if len(w.Weekdays) > 0 {
		found := false
		for _, d := range w.Weekdays {
			if int(ts.Weekday()) == d {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	// 只配 weekdays 不配小时视为全天窗口
	if w.StartHour == 0 && w.EndHour == 0 {
		return true
	}
	hour := ts.Hour()
	return hour >= w.StartHour && hour < w.EndHour
}

func hasPriorityTie(rules []models.AllocationRule, winner int, priority int) bool {
	for i := range rules {
		if i != winner && rules[i].Priority == priority {
			return true
		}
	}
	return false
}

func hasCostPriorityTie(rules []models.PointsCostRule, winner int, priority int) bool {
	for i := range rules {
		if i != winner && rules[i].Priority == priority {
			return true
		}
	}
	return false
}
