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

type Point struct {
	Config       *config.Config
	PointService service.IPointService
}

func (h *Point) RegisterRouter(r gin.IRouter) {
	authorize := middleware.Auth([]byte(h.Config.Jwt.Secret))
	g := r.Group("/v1/points", authorize)
	g.GET("/balance", context.Wrap(h.Balance))
	g.GET("/records", context.Wrap(h.Records))
	g.POST("/adjust", middleware.AdminOnly(), context.Wrap(h.Adjust))
}

func (h *Point) Balance(c *gin.Context) error {
	userID, err := context.GetUserID(c)
	if err != nil {
		return response.NewError(http.StatusUnauthorized, err.Error())
	}

	account, err := h.PointService.GetAccount(c.Request.Context(), userID)
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, account)
	return nil
}

func (h *Point) Records(c *gin.Context) error {
	userID, err := context.GetUserID(c)
	if err != nil {
		return response.NewError(http.StatusUnauthorized, err.Error())
	}

	var req types.ListPointsTxnReq
	if err := c.ShouldBindQuery(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.PointService.ListTransactions(c.Request.Context(), userID, req.Action, req.Cursor, req.Limit)
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, resp)
	return nil
}

func (h *Point) Adjust(c *gin.Context) error {
	var req types.AdjustPointsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	account, err := h.PointService.ManualAdjust(c.Request.Context(), req.UserID, req.Amount, req.Remark)
	if err != nil {
		if errors.Is(err, service.ErrInsufficientPoints) {
			return response.NewError(http.StatusBadRequest, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, account)
	return nil
}
