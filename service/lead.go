package service

import (
	"context"
	"errors"

	"Anju/dao"
	"Anju/models"
	"Anju/pkg/snowflake"
	"Anju/types"

	"gorm.io/gorm"
)

type LeadService struct {
	DB         *gorm.DB
	LeadDAO    *dao.LeadDAO
	Allocation IAllocationService
	Points     *PointService
}

var _ ILeadService = (*LeadService)(nil)

type ILeadService interface {
	// CreateAndAllocate 录入线索并同步触发分配
	CreateAndAllocate(ctx context.Context, req *types.CreateLeadReq) (*types.AllocateLeadResp, error)
	ListLeads(ctx context.Context, req *types.ListLeadsReq) (*types.ListLeadsResp, error)
	ListUnassigned(ctx context.Context, cursor int64, limit int) (*types.ListLeadsResp, error)
	// Invalidate 线索作废，已扣积分原额退还
	Invalidate(ctx context.Context, req *types.InvalidateLeadReq) error
}

func NewLeadService(db *gorm.DB, leadDAO *dao.LeadDAO, allocation IAllocationService, points *PointService) *LeadService {
	return &LeadService{DB: db, LeadDAO: leadDAO, Allocation: allocation, Points: points}
}

func (s *LeadService) CreateAndAllocate(ctx context.Context, req *types.CreateLeadReq) (*types.AllocateLeadResp, error) {
	lead := &models.Lead{
		ID:        snowflake.GenID(),
		LeadID:    req.LeadID,
		Source:    req.Source,
		LeadType:  req.LeadType,
		Community: req.Community,
		Phone:     req.Phone,
		Remark:    req.Remark,
		Status:    models.LeadStatusUnassigned,
	}
	if err := s.LeadDAO.Create(ctx, lead); err != nil {
		if isDuplicateKey(err) {
			return nil, errors.New("线索已存在：" + req.LeadID)
		}
		return nil, err
	}

	return s.Allocation.Allocate(ctx, &types.AllocateLeadReq{
		LeadID:    req.LeadID,
		Source:    req.Source,
		LeadType:  req.LeadType,
		Community: req.Community,
		Remark:    req.Remark,
	})
}

func (s *LeadService) ListLeads(ctx context.Context, req *types.ListLeadsReq) (*types.ListLeadsResp, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	leads, err := s.LeadDAO.ListLeads(ctx, req.UserID, req.Status, req.Cursor, limit+1)
	if err != nil {
		return nil, err
	}
	return buildLeadList(leads, limit), nil
}

func (s *LeadService) ListUnassigned(ctx context.Context, cursor int64, limit int) (*types.ListLeadsResp, error) {
	if limit <= 0 {
		limit = 20
	}
	leads, err := s.LeadDAO.ListUnassigned(ctx, cursor, limit+1)
	if err != nil {
		return nil, err
	}
	return buildLeadList(leads, limit), nil
}

func (s *LeadService) Invalidate(ctx context.Context, req *types.InvalidateLeadReq) error {
	_, err := s.LeadDAO.FindByLeadID(ctx, req.LeadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLeadNotFound
		}
		return err
	}

	if err := s.LeadDAO.Unassign(ctx, req.LeadID, models.LeadStatusInvalid); err != nil {
		return err
	}

	remark := req.Remark
	if remark == "" {
		remark = "线索作废退还"
	}
	_, err = s.Points.RefundForLead(ctx, req.LeadID, remark)
	if errors.Is(err, ErrNoRefundableDebit) || errors.Is(err, ErrAlreadyRefunded) {
		// 从未扣过分或已退过，作废照常生效
		return nil
	}
	return err
}

func buildLeadList(leads []models.Lead, limit int) *types.ListLeadsResp {
	resp := &types.ListLeadsResp{Leads: make([]types.LeadItem, 0)}

	if len(leads) > limit {
		resp.HasMore = true
		leads = leads[:limit]
		resp.NextCursor = leads[len(leads)-1].ID
	}

	for _, l := range leads {
		resp.Leads = append(resp.Leads, types.LeadItem{
			ID:             l.ID,
			LeadID:         l.LeadID,
			Source:         l.Source,
			LeadType:       l.LeadType,
			Community:      l.Community,
			Phone:          l.Phone,
			Remark:         l.Remark,
			Status:         l.Status,
			AssignedUserID: l.AssignedUserID,
			CreatedAt:      l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return resp
}
