package handler

import (
	"errors"
	"net/http"
	"strconv"

	"Anju/config"
	"Anju/middleware"
	"Anju/models"
	"Anju/pkg/context"
	"Anju/pkg/response"
	"Anju/service"
	"Anju/types"

	"github.com/gin-gonic/gin"
)

type Lead struct {
	Config            *config.Config
	LeadService       service.ILeadService
	AttachmentService service.IAttachmentService
}

func (h *Lead) RegisterRouter(r gin.IRouter) {
	authorize := middleware.Auth([]byte(h.Config.Jwt.Secret))
	g := r.Group("/v1/lead", authorize)
	g.POST("/create", context.Wrap(h.Create))
	g.GET("/list", context.Wrap(h.List))
	g.GET("/unassigned", middleware.AdminOnly(), context.Wrap(h.ListUnassigned))
	g.POST("/invalidate", middleware.AdminOnly(), context.Wrap(h.Invalidate))
	g.POST("/upload", context.Wrap(h.Upload))
	g.GET("/attachments", context.Wrap(h.Attachments))
	g.DELETE("/attachments/:id", context.Wrap(h.DeleteAttachment))
}

// Create 录入并同步分配，分配结果随响应返回
func (h *Lead) Create(c *gin.Context) error {
	var req types.CreateLeadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.LeadService.CreateAndAllocate(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateAllocation) {
			return response.NewError(http.StatusConflict, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}

	middleware.CountAllocation(resp.AllocationMethod)
	response.Success(c, resp)
	return nil
}

func (h *Lead) List(c *gin.Context) error {
	var req types.ListLeadsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	// 销售只能看自己名下的线索
	role, _ := c.Get(context.CtxRole)
	if role != models.RoleAdmin {
		userID, err := context.GetUserID(c)
		if err != nil {
			return response.NewError(http.StatusUnauthorized, err.Error())
		}
		req.UserID = userID
	}

	resp, err := h.LeadService.ListLeads(c.Request.Context(), &req)
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, resp)
	return nil
}

func (h *Lead) ListUnassigned(c *gin.Context) error {
	var req types.ListLeadsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.LeadService.ListUnassigned(c.Request.Context(), req.Cursor, req.Limit)
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, resp)
	return nil
}

func (h *Lead) Invalidate(c *gin.Context) error {
	var req types.InvalidateLeadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	if err := h.LeadService.Invalidate(c.Request.Context(), &req); err != nil {
		if errors.Is(err, service.ErrLeadNotFound) {
			return response.NewError(http.StatusNotFound, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, nil)
	return nil
}

func (h *Lead) Upload(c *gin.Context) error {
	leadID := c.PostForm("lead_id")
	if leadID == "" {
		return response.NewError(http.StatusBadRequest, "lead_id 不能为空")
	}

	header, err := c.FormFile("file")
	if err != nil {
		return response.NewError(http.StatusBadRequest, err.Error())
	}

	item, err := h.AttachmentService.UploadLeadFile(c.Request.Context(), leadID, header)
	if err != nil {
		if errors.Is(err, service.ErrLeadNotFound) {
			return response.NewError(http.StatusNotFound, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, item)
	return nil
}

func (h *Lead) DeleteAttachment(c *gin.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.NewError(http.StatusBadRequest, "附件 ID 不合法")
	}

	if err := h.AttachmentService.DeleteLeadFile(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrAttachmentNotFound) {
			return response.NewError(http.StatusNotFound, err.Error())
		}
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, nil)
	return nil
}

func (h *Lead) Attachments(c *gin.Context) error {
	leadID := c.Query("lead_id")
	if leadID == "" {
		return response.NewError(http.StatusBadRequest, "lead_id 不能为空")
	}

	items, err := h.AttachmentService.ListLeadFiles(c.Request.Context(), leadID)
	if err != nil {
		return response.NewError(http.StatusInternalServerError, err.Error())
	}
	response.Success(c, items)
	return nil
}
