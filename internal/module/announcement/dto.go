package announcement

type CreateRequest struct {
	Title   string `json:"title" binding:"required,max=128"`
	Content string `json:"content" binding:"required"`
	Pinned  bool   `json:"pinned"`
}

type Item struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	AuthorID  int64  `json:"author_id"`
	Pinned    bool   `json:"pinned"`
	CreatedAt string `json:"created_at"`
}
