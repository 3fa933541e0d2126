package service

import (
	"Anju/config"
	"Anju/dao"
	"Anju/models"
	"Anju/pkg/snowflake"
	"Anju/types"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"gorm.io/gorm"
)

type AttachmentService struct {
	Client     *oss.Client
	BucketName string
	LeadDAO    *dao.LeadDAO
}

var _ IAttachmentService = (*AttachmentService)(nil)

type IAttachmentService interface {
	// UploadLeadFile 上传线索附件（表单上传）
	UploadLeadFile(ctx context.Context, leadID string, header *multipart.FileHeader) (*types.AttachmentItem, error)

	// ListLeadFiles 按线索列附件，带临时访问 URL
	ListLeadFiles(ctx context.Context, leadID string) ([]types.AttachmentItem, error)

	// DeleteLeadFile 删除附件：对象和记录一起删
	DeleteLeadFile(ctx context.Context, attachmentID int64) error

	// SignURL 生成临时访问 URL（秒）
	SignURL(ctx context.Context, objectKey string, expireSeconds int64) (string, error)
}

func NewAttachmentService(client *oss.Client, cfg *config.OssConfig, leadDAO *dao.LeadDAO) IAttachmentService {
	return &AttachmentService{
		Client:     client,
		BucketName: cfg.Bucket,
		LeadDAO:    leadDAO,
	}
}

func (s *AttachmentService) UploadLeadFile(ctx context.Context, leadID string, header *multipart.FileHeader) (*types.AttachmentItem, error) {

	const maxSize int64 = 20 << 20 // 20MB

	if header == nil {
		return nil, fmt.Errorf("missing file")
	}
	// header.Size 不可信，但可做第一道拦截
	if header.Size <= 0 || header.Size > maxSize {
		return nil, fmt.Errorf("file size invalid")
	}

	if _, err := s.LeadDAO.FindByLeadID(ctx, leadID); err != nil {
		return nil, ErrLeadNotFound
	}

	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	attID := snowflake.GenID()
	ext := filepath.Ext(header.Filename)
	objectKey := fmt.Sprintf("lead/%s/%d%s",
		time.Now().Format("2006/01/02"),
		attID,
		ext,
	)

	limited := io.LimitReader(f, maxSize+1)

	if _, err := s.Client.PutObject(ctx, &oss.PutObjectRequest{
		Bucket: oss.Ptr(s.BucketName),
		Key:    oss.Ptr(objectKey),
		Body:   limited,
	}); err != nil {
		return nil, err
	}

	att := models.LeadAttachment{
		ID:        attID,
		LeadID:    leadID,
		ObjectKey: objectKey,
		FileName:  header.Filename,
		Size:      header.Size,
		CreatedAt: time.Now(),
	}
	if err := s.LeadDAO.CreateAttachment(ctx, &att); err != nil {
		return nil, err
	}

	url, err := s.SignURL(ctx, objectKey, 3600)
	if err != nil {
		return nil, err
	}

	return &types.AttachmentItem{
		ID:        attID,
		LeadID:    leadID,
		FileName:  header.Filename,
		URL:       url,
		CreatedAt: att.CreatedAt.Format("2006-01-02 15:04:05"),
	}, nil
}

func (s *AttachmentService) ListLeadFiles(ctx context.Context, leadID string) ([]types.AttachmentItem, error) {
	atts, err := s.LeadDAO.ListAttachments(ctx, leadID)
	if err != nil {
		return nil, err
	}

	items := make([]types.AttachmentItem, 0, len(atts))
	for _, a := range atts {
		url, err := s.SignURL(ctx, a.ObjectKey, 3600)
		if err != nil {
			return nil, err
		}
		items = append(items, types.AttachmentItem{
			ID:        a.ID,
			LeadID:    a.LeadID,
			FileName:  a.FileName,
			URL:       url,
			CreatedAt: a.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return items, nil
}

// DeleteLeadFile 先删对象再删记录，对象删除失败时记录保留可重试
func (s *AttachmentService) DeleteLeadFile(ctx context.Context, attachmentID int64) error {
	att, err := s.LeadDAO.FindAttachment(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}

	if _, err := s.Client.DeleteObject(ctx, &oss.DeleteObjectRequest{
		Bucket: oss.Ptr(s.BucketName),
		Key:    oss.Ptr(att.ObjectKey),
	}); err != nil {
		return err
	}
	return s.LeadDAO.DeleteAttachment(ctx, attachmentID)
}

// SignURL 生成临时访问 URL
func (s *AttachmentService) SignURL(
	ctx context.Context,
	objectKey string,
	expireSeconds int64,
) (string, error) {

	result, err := s.Client.Presign(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(s.BucketName),
		Key:    oss.Ptr(objectKey),
	}, oss.PresignExpires(time.Duration(expireSeconds)*time.Second))
	if err != nil {
		return "", err
	}

	return result.URL, nil
}
