package handler

import (
	"errors"
	"net/http"

	"Anju/config"
	"Anju/middleware"
	"Anju/pkg/context"
	"Anju/pkg/response"
	"Anju/service"
	"Anju/types"

	"github.com/gin-gonic/gin"
)

type Allocation struct {
	Config            *config.Config
	AllocationService service.IAllocationService
}

func (h *Allocation) RegisterRouter(r gin.IRouter) {
	authorize := middleware.Auth([]byte(h.Config.Jwt.Secret))
	g := r.Group("/v1/allocation", authorize)
	g.POST("/allocate", context.Wrap(h.Allocate))
	g.POST("/reallocate", middleware.AdminOnly(), context.Wrap(h.Reallocate))
	g.GET("/log/:lead_id", context.Wrap(h.GetLog))
	g.GET("/log/:lead_id/history", context.Wrap(h.GetLogHistory))
	g.GET("/logs", middleware.AdminOnly(), context.Wrap(h.ListLogs))
}

// Allocate 分配决策本身成功与否走 resp.Success，HTTP 层只报系统性错误
func (h *Allocation) Allocate(c *gin.Context) error {
	var req types.AllocateLeadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.AllocationService.Allocate(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateAllocation) {
			return response.NewError(http.StatusConflict, err.Error())
		}
		if errors.Is(err, service.ErrUserNotAllocatable) {
			return response.NewError(http.StatusBadRequest, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}

	middleware.CountAllocation(resp.AllocationMethod)
	response.Success(c, resp)
	return nil
}

func (h *Allocation) Reallocate(c *gin.Context) error {
	var req types.ReallocateLeadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.AllocationService.Reallocate(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrLeadNotFound) {
			return response.NewError(http.StatusNotFound, err.Error())
		}
		if errors.Is(err, service.ErrUserNotAllocatable) {
			return response.NewError(http.StatusBadRequest, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}

	middleware.CountAllocation(resp.AllocationMethod)
	response.Success(c, resp)
	return nil
}

func (h *Allocation) GetLog(c *gin.Context) error {
	leadID := c.Param("lead_id")
	if leadID == "" {
		return response.NewError(http.StatusBadRequest, "lead_id 不能为空")
	}

	item, err := h.AllocationService.GetLog(c.Request.Context(), leadID)
	if err != nil {
		if errors.Is(err, service.ErrLeadNotFound) {
			return response.NewError(http.StatusNotFound, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, item)
	return nil
}

// GetLogHistory 按 attempt 升序返回一条线索的全部分配尝试
func (h *Allocation) GetLogHistory(c *gin.Context) error {
	leadID := c.Param("lead_id")
	if leadID == "" {
		return response.NewError(http.StatusBadRequest, "lead_id 不能为空")
	}

	items, err := h.AllocationService.GetLogHistory(c.Request.Context(), leadID)
	if err != nil {
		if errors.Is(err, service.ErrLeadNotFound) {
			return response.NewError(http.StatusNotFound, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, items)
	return nil
}

func (h *Allocation) ListLogs(c *gin.Context) error {
	var req types.ListAllocationLogsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.AllocationService.ListLogs(c.Request.Context(), &req)
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, resp)
	return nil
}
