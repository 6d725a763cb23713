package service

import (
	"errors"

	"github.com/mercyogalo/bookStore/internal/models"
	"gorm.io/gorm"
)

// LikeService 封装书籍点赞，(user, book) 上有唯一索引，点第二次视为取消。
type LikeService struct {
	db *gorm.DB
}

func NewLikeService(db *gorm.DB) *LikeService {
	return &LikeService{db: db}
}

// ToggleResult 切换点赞后的状态。
type ToggleResult struct {
	Liked bool `json:"liked"`
}

// Toggle 点赞/取消点赞一本书。
func (s *LikeService) Toggle(bookID, userID string) (*ToggleResult, error) {
	var count int64
	if err := s.db.Model(&models.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrBookNotFound
	}

	var like models.Like
	err := s.db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&like).Error
	switch {
	case err == nil:
		if err := s.db.Delete(&models.Like{}, "id = ?", like.ID).Error; err != nil {
			return nil, err
		}
		return &ToggleResult{Liked: false}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.Create(&models.Like{UserID: userID, BookID: bookID}).Error; err != nil {
			return nil, err
		}
		return &ToggleResult{Liked: true}, nil
	default:
		return nil, err
	}
}

// Counts 返回点赞总数以及当前用户是否点过赞。
type Counts struct {
	LikeCount int64 `json:"likeCount"`
	HasLiked  bool  `json:"hasLiked"`
}

func (s *LikeService) Counts(bookID, userID string) (*Counts, error) {
	var total int64
	if err := s.db.Model(&models.Like{}).Where("book_id = ?", bookID).Count(&total).Error; err != nil {
		return nil, err
	}
	var mine int64
	if err := s.db.Model(&models.Like{}).Where("book_id = ? AND user_id = ?", bookID, userID).Count(&mine).Error; err != nil {
		return nil, err
	}
	return &Counts{LikeCount: total, HasLiked: mine > 0}, nil
}
