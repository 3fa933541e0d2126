package handler

import (
	"net/http"

	"Anju/config"
	"Anju/middleware"
	"Anju/pkg/context"
	"Anju/pkg/response"
	"Anju/service"
	"Anju/types"

	"github.com/gin-gonic/gin"
)

type Auth struct {
	Config      *config.Config
	AuthService service.IAuthService
}

func (h *Auth) RegisterRouter(r gin.IRouter) {
	authorize := middleware.Auth([]byte(h.Config.Jwt.Secret))
	g := r.Group("/v1/auth")
	g.POST("/login", context.Wrap(h.Login))
	g.POST("/register", authorize, middleware.AdminOnly(), context.Wrap(h.Register))
}

func (h *Auth) Login(c *gin.Context) error {
	var req types.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.AuthService.Login(c.Request.Context(), &req)
	if err != nil {
		return response.NewError(http.StatusUnauthorized, err.Error())
	}
	response.Success(c, resp)
	return nil
}

type registerReq struct {
	Name     string `json:"name" binding:"required"`
	Mobile   string `json:"mobile" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=admin sales"`
}

func (h *Auth) Register(c *gin.Context) error {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.AuthService.Register(c.Request.Context(), &service.RegisterOpt{
		Name:     req.Name,
		Mobile:   req.Mobile,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, gin.H{"user_id": user.ID})
	return nil
}
