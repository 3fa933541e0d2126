package service

import (
	"context"
	"encoding/json"

	"Anju/pkg/log"
	mq "Anju/pkg/rocketmq"

	"github.com/apache/rocketmq-client-go/v2"
	"go.uber.org/zap"
)

const notifyTopic = "anju_crm_notify"

// 通知类型
const (
	NotifyLeadAssigned = "lead_assigned"
	NotifyFollowUpDue  = "follow_up_due"
)

type NotifyEvent struct {
	Type    string `json:"type"`
	UserID  int64  `json:"user_id"`
	LeadID  string `json:"lead_id,omitempty"`
	Content string `json:"content"`
}

// INotifier 发后即忘，投递失败只记日志不影响主流程
type INotifier interface {
	Notify(ctx context.Context, event NotifyEvent)
}

type MQNotifier struct {
	Producer rocketmq.Producer
}

var _ INotifier = (*MQNotifier)(nil)

func NewNotifier(producer rocketmq.Producer) INotifier {
	return &MQNotifier{Producer: producer}
}

func (n *MQNotifier) Notify(ctx context.Context, event NotifyEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		log.L.Error("marshal notify event failed", zap.Error(err))
		return
	}

	if n.Producer == nil {
		log.L.Info("notify (producer disabled)", zap.ByteString("event", body))
		return
	}

	if err := mq.SendMsg(n.Producer, notifyTopic, body); err != nil {
		log.L.Error("send notify failed",
			zap.String("type", event.Type),
			zap.Int64("user_id", event.UserID),
			zap.Error(err))
	}
}

// NoopNotifier 测试用
type NoopNotifier struct{}

var _ INotifier = (*NoopNotifier)(nil)

func (NoopNotifier) Notify(ctx context.Context, event NotifyEvent) {}
