package announcement

import "context"

// Service 接口
type Service interface {
	Publish(ctx context.Context, authorID int64, req *CreateRequest) (*Item, error)
	List(ctx context.Context) ([]Item, error)
	Remove(ctx context.Context, id int64) error
}

type service struct {
	repo Repository
}

// NewService 构造函数
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Publish(ctx context.Context, authorID int64, req *CreateRequest) (*Item, error) {
	a := &Announcement{
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: authorID,
		Pinned:   req.Pinned,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return toItem(a), nil
}

func (s *service) List(ctx context.Context) ([]Item, error) {
	list, err := s.repo.List(ctx, 50)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(list))
	for i := range list {
		items = append(items, *toItem(&list[i]))
	}
	return items, nil
}

func (s *service) Remove(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func toItem(a *Announcement) *Item {
	return &Item{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		AuthorID:  a.AuthorID,
		Pinned:    a.Pinned,
		CreatedAt: a.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
