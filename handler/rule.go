package handler

import (
	"errors"
	"net/http"
	"strconv"

	"Anju/config"
	"Anju/middleware"
	"Anju/pkg/context"
	"Anju/pkg/response"
	"Anju/service"
	"Anju/types"

	"github.com/gin-gonic/gin"
)

// Rule 规则与分组的管理端接口，全部要求管理员
type Rule struct {
	Config      *config.Config
	RuleService service.IRuleService
}

func (h *Rule) RegisterRouter(r gin.IRouter) {
	authorize := middleware.Auth([]byte(h.Config.Jwt.Secret))
	g := r.Group("/v1/admin", authorize, middleware.AdminOnly())

	g.POST("/rules", context.Wrap(h.CreateRule))
	g.PUT("/rules/:id", context.Wrap(h.UpdateRule))
	g.DELETE("/rules/:id", context.Wrap(h.DeleteRule))
	g.GET("/rules", context.Wrap(h.ListRules))

	g.POST("/cost-rules", context.Wrap(h.CreateCostRule))
	g.PUT("/cost-rules/:id", context.Wrap(h.UpdateCostRule))
	g.DELETE("/cost-rules/:id", context.Wrap(h.DeleteCostRule))
	g.GET("/cost-rules", context.Wrap(h.ListCostRules))

	g.POST("/groups", context.Wrap(h.CreateGroup))
	g.PUT("/groups/:id", context.Wrap(h.UpdateGroup))
	g.GET("/groups", context.Wrap(h.ListGroups))
}

func (h *Rule) CreateRule(c *gin.Context) error {
	var req types.SaveAllocationRuleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}
	item, err := h.RuleService.CreateAllocationRule(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimeWindow) {
			return response.NewError(http.StatusBadRequest, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, item)
	return nil
}

func (h *Rule) UpdateRule(c *gin.Context) error {
	var req types.SaveAllocationRuleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.RuleService.UpdateAllocationRule(c.Request.Context(), c.Param("id"), &req); err != nil {
		if errors.Is(err, service.ErrInvalidTimeWindow) {
			return response.NewError(http.StatusBadRequest, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, nil)
	return nil
}

func (h *Rule) DeleteRule(c *gin.Context) error {
	if err := h.RuleService.DeleteAllocationRule(c.Request.Context(), c.Param("id")); err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, nil)
	return nil
}

func (h *Rule) ListRules(c *gin.Context) error {
	items, err := h.RuleService.ListAllocationRules(c.Request.Context())
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, items)
	return nil
}

func (h *Rule) CreateCostRule(c *gin.Context) error {
	var req types.SaveCostRuleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}
	item, err := h.RuleService.CreateCostRule(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimeWindow) {
			return response.NewError(http.StatusBadRequest, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, item)
	return nil
}

func (h *Rule) UpdateCostRule(c *gin.Context) error {
	var req types.SaveCostRuleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.RuleService.UpdateCostRule(c.Request.Context(), c.Param("id"), &req); err != nil {
		if errors.Is(err, service.ErrInvalidTimeWindow) {
			return response.NewError(http.StatusBadRequest, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, nil)
	return nil
}

func (h *Rule) DeleteCostRule(c *gin.Context) error {
	if err := h.RuleService.DeleteCostRule(c.Request.Context(), c.Param("id")); err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, nil)
	return nil
}

func (h *Rule) ListCostRules(c *gin.Context) error {
	items, err := h.RuleService.ListCostRules(c.Request.Context())
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, items)
	return nil
}

func (h *Rule) CreateGroup(c *gin.Context) error {
	var req types.SaveGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}
	item, err := h.RuleService.CreateGroup(c.Request.Context(), &req)
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, item)
	return nil
}

func (h *Rule) UpdateGroup(c *gin.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.NewError(http.StatusBadRequest, "分组 ID 不合法")
	}
	var req types.SaveGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.RuleService.UpdateGroup(c.Request.Context(), id, &req); err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, nil)
	return nil
}

func (h *Rule) ListGroups(c *gin.Context) error {
	items, err := h.RuleService.ListGroups(c.Request.Context())
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, items)
	return nil
}
