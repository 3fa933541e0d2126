package types

import "Anju/models"

type SaveAllocationRuleReq struct {
	Name       string                `json:"name" binding:"required"`
	Priority   int                   `json:"priority"`
	Active     *bool                 `json:"active"`
	Conditions models.RuleConditions `json:"conditions"`
	GroupID    int64                 `json:"group_id" binding:"required"`
}

type SaveCostRuleReq struct {
	Name        string                 `json:"name" binding:"required"`
	Priority    int                    `json:"priority"`
	Active      *bool                  `json:"active"`
	BaseCost    int                    `json:"base_cost" binding:"gte=0"`
	Conditions  models.RuleConditions  `json:"conditions"`
	Adjustments models.CostAdjustments `json:"adjustments"`
}

type AllocationRuleItem struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Priority   int                   `json:"priority"`
	Active     bool                  `json:"active"`
	Conditions models.RuleConditions `json:"conditions"`
	GroupID    int64                 `json:"group_id"`
	CreatedAt  string                `json:"created_at"`
}

type CostRuleItem struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Priority    int                    `json:"priority"`
	Active      bool                   `json:"active"`
	BaseCost    int                    `json:"base_cost"`
	Conditions  models.RuleConditions  `json:"conditions"`
	Adjustments models.CostAdjustments `json:"adjustments"`
	CreatedAt   string                 `json:"created_at"`
}

type SaveGroupReq struct {
	Name     string  `json:"name" binding:"required"`
	Strategy string  `json:"strategy" binding:"omitempty,oneof=round_robin random load_based"`
	Members  []int64 `json:"members" binding:"required,min=1"`
}

type GroupItem struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Strategy string  `json:"strategy"`
	Members  []int64 `json:"members"`
}
