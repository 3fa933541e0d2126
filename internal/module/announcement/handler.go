package announcement

import (
	"net/http"
	"strconv"

	"Anju/config"
	"Anju/middleware"
	"Anju/pkg/context"
	"Anju/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler 公告模块的 HTTP 处理器
type Handler struct {
	cfg *config.Config
	svc Service
}

// NewHandler 构造函数
func NewHandler(cfg *config.Config, svc Service) *Handler {
	return &Handler{cfg: cfg, svc: svc}
}

// RegisterRouter 注册路由
func (h *Handler) RegisterRouter(r gin.IRouter) {
	authorize := middleware.Auth([]byte(h.cfg.Jwt.Secret))
	g := r.Group("/v1/announcements", authorize)
	g.GET("", context.Wrap(h.List))
	g.POST("", middleware.AdminOnly(), context.Wrap(h.Publish))
	g.DELETE("/:id", middleware.AdminOnly(), context.Wrap(h.Remove))
}

func (h *Handler) Publish(c *gin.Context) error {
	userID, err := context.GetUserID(c)
	if err != nil {
		return response.NewError(http.StatusUnauthorized, err.Error())
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	item, err := h.svc.Publish(c.Request.Context(), userID, &req)
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, item)
	return nil
}

func (h *Handler) List(c *gin.Context) error {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, items)
	return nil
}

func (h *Handler) Remove(c *gin.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.NewError(http.StatusBadRequest, "公告 ID 不合法")
	}
	if err := h.svc.Remove(c.Request.Context(), id); err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, nil)
	return nil
}
