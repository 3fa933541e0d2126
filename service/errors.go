package service

import "errors"

// 业务结果型失败，分配流程里会被转成对应的 allocation_method 落日志，
// 只有透传给管理接口时才按错误返回
var (
	ErrInsufficientPoints  = errors.New("积分余额不足")
	ErrDuplicateAllocation = errors.New("该线索已有分配记录，请走重新分配")
	ErrLeadNotFound        = errors.New("线索不存在")
	ErrNoRefundableDebit   = errors.New("该线索没有可退的扣分流水")
	ErrAlreadyRefunded     = errors.New("该线索的扣分已退还，请勿重复操作")
	ErrUserNotAllocatable  = errors.New("目标用户不存在或已停用")
	ErrEmptyGroup          = errors.New("分组内没有可分配的成员")
	ErrInvalidTimeWindow   = errors.New("time_window 配置不合法")
	ErrAttachmentNotFound  = errors.New("附件不存在")
)
