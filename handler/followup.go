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

type FollowUp struct {
	Config          *config.Config
	FollowUpService service.IFollowUpService
}

func (h *FollowUp) RegisterRouter(r gin.IRouter) {
	authorize := middleware.Auth([]byte(h.Config.Jwt.Secret))
	g := r.Group("/v1/followup", authorize)
	g.POST("/create", context.Wrap(h.Create))
	g.GET("/list", context.Wrap(h.List))
	g.POST("/done/:id", context.Wrap(h.Done))
}

func (h *FollowUp) Create(c *gin.Context) error {
	userID, err := context.GetUserID(c)
	if err != nil {
		return response.NewError(http.StatusUnauthorized, err.Error())
	}

	var req types.CreateFollowUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	item, err := h.FollowUpService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrLeadNotFound) {
			return response.NewError(http.StatusNotFound, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, item)
	return nil
}

func (h *FollowUp) List(c *gin.Context) error {
	leadID := c.Query("lead_id")
	if leadID == "" {
		return response.NewError(http.StatusBadRequest, "lead_id 不能为空")
	}

	items, err := h.FollowUpService.ListByLead(c.Request.Context(), leadID)
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, items)
	return nil
}

func (h *FollowUp) Done(c *gin.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.NewError(http.StatusBadRequest, "提醒 ID 不合法")
	}

	if err := h.FollowUpService.Done(c.Request.Context(), id); err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, nil)
	return nil
}
