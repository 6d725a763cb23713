package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mercyogalo/bookStore/internal/models"
	"gorm.io/gorm"
)

// ReviewService 封装评论的读写，是 REST 与 WebSocket 两条路径共用的
// 唯一持久层入口，两边不允许各自维护评论缓存。
type ReviewService struct {
	db     *gorm.DB
	maxLen int
}

func NewReviewService(db *gorm.DB, maxLen int) *ReviewService {
	if maxLen <= 0 {
		maxLen = 500
	}
	return &ReviewService{db: db, maxLen: maxLen}
}

// ReviewInput 是创建评论的入参，Rating 为 0 表示未填，落库时取默认 5。
type ReviewInput struct {
	UserID   string
	UserName string
	Content  string
	Rating   int
	ParentID *string
}

// ReviewDTO 是对外输出的评论数据，Replies 由读取时组装。
type ReviewDTO struct {
	ID        string      `json:"id"`
	BookID    string      `json:"bookId"`
	UserID    string      `json:"userId"`
	UserName  string      `json:"userName"`
	Content   string      `json:"content"`
	Rating    int         `json:"rating"`
	ParentID  *string     `json:"parentId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	Replies   []ReviewDTO `json:"replies"`
}

// NewReviewDTO 把持久化记录转成对外输出结构，ws 广播与 REST 共用。
func NewReviewDTO(r models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        r.ID,
		BookID:    r.BookID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Content:   r.Content,
		Rating:    r.Rating,
		ParentID:  r.ParentID,
		CreatedAt: r.CreatedAt,
		Replies:   []ReviewDTO{},
	}
}

// Create 校验并落库一条评论。回复必须指向同一本书下已存在的评论，
// 跨书的 parentId 按校验失败处理而不是悄悄落库。
func (s *ReviewService) Create(bookID string, in ReviewInput) (*models.Review, error) {
	if bookID == "" {
		return nil, fmt.Errorf("%w: bookId required", ErrValidation)
	}
	if in.UserID == "" || in.UserName == "" {
		return nil, fmt.Errorf("%w: user required", ErrValidation)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: content required", ErrValidation)
	}
	if utf8.RuneCountInString(content) > s.maxLen {
		return nil, fmt.Errorf("%w: content over %d characters", ErrValidation, s.maxLen)
	}
	rating := in.Rating
	if rating == 0 {
		rating = 5
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	if in.ParentID != nil && *in.ParentID != "" {
		var parent models.Review
		if err := s.db.First(&parent, "id = ?", *in.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: parent review not found", ErrValidation)
			}
			return nil, err
		}
		if parent.BookID != bookID {
			return nil, fmt.Errorf("%w: parent review belongs to another book", ErrValidation)
		}
	} else {
		in.ParentID = nil
	}

	review := models.Review{
		BookID:   bookID,
		UserID:   in.UserID,
		UserName: in.UserName,
		Content:  content,
		Rating:   rating,
		ParentID: in.ParentID,
	}
	if err := s.db.Create(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// ListByBook 返回一本书的全部评论，按创建时间倒序组装成根评论+回复的结构。
func (s *ReviewService) ListByBook(bookID string) ([]ReviewDTO, error) {
	var reviews []models.Review
	if err := s.db.Where("book_id = ?", bookID).Order("created_at desc").Find(&reviews).Error; err != nil {
		return nil, err
	}
	return assembleThreads(reviews), nil
}

// assembleThreads 把扁平的评论列表组装成线程结构：回复挂到各自
// parentId 对应的条目下；parentId 解析不到的回复提升为根评论，
// 绝不丢数据。
func assembleThreads(reviews []models.Review) []ReviewDTO {
	byID := make(map[string]*ReviewDTO, len(reviews))
	for i := range reviews {
		dto := NewReviewDTO(reviews[i])
		byID[dto.ID] = &dto
	}

	roots := make([]*ReviewDTO, 0, len(reviews))
	for i := range reviews {
		dto := byID[reviews[i].ID]
		if dto.ParentID != nil {
			if parent, ok := byID[*dto.ParentID]; ok {
				parent.Replies = append(parent.Replies, *dto)
				continue
			}
		}
		roots = append(roots, dto)
	}

	out := make([]ReviewDTO, 0, len(roots))
	for _, r := range roots {
		out = append(out, *r)
	}
	return out
}

// FindByID 按 id 查询单条评论，供删除前的归属校验使用。
func (s *ReviewService) FindByID(reviewID string) (*models.Review, error) {
	var review models.Review
	if err := s.db.First(&review, "id = ?", reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

// Delete 删除评论，只有作者本人可以删。返回被删除的评论供广播使用。
func (s *ReviewService) Delete(reviewID, requesterID string) (*models.Review, error) {
	review, err := s.FindByID(reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != requesterID {
		return nil, ErrNotOwner
	}
	res := s.db.Delete(&models.Review{}, "id = ?", reviewID)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// 并发删除时另一条请求已经删掉了，按不存在处理。
		return nil, ErrNotFound
	}
	return review, nil
}
