package service

import (
	"errors"
	"strings"
	"time"

	"github.com/mercyogalo/bookStore/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// FavoriteService 封装收藏夹逻辑。
type FavoriteService struct {
	db *gorm.DB
}

func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{db: db}
}

// FavoriteDTO 收藏条目，带上书籍信息供收藏页直接渲染。
type FavoriteDTO struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Genre     string    `json:"genre"`
	CreatedAt time.Time `json:"createdAt"`
}

// Add 把一本书加入当前用户的收藏夹，重复收藏返回 ErrAlreadyFavorite。
func (s *FavoriteService) Add(bookID, userID string) error {
	var count int64
	if err := s.db.Model(&models.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrBookNotFound
	}
	fav := models.Favorite{UserID: userID, BookID: bookID}
	if err := s.db.Create(&fav).Error; err != nil {
		// 唯一索引冲突说明重复收藏。
		if strings.Contains(err.Error(), "duplicate") || errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyFavorite
		}
		return err
	}
	return nil
}

// List 返回当前用户的全部收藏。
func (s *FavoriteService) List(userID string) ([]FavoriteDTO, error) {
	var favs []models.Favorite
	if err := s.db.Preload("Book").Where("user_id = ?", userID).Order("created_at desc").Find(&favs).Error; err != nil {
		return nil, err
	}
	return lo.Map(favs, func(f models.Favorite, _ int) FavoriteDTO {
		return FavoriteDTO{
			ID:        f.ID,
			BookID:    f.BookID,
			Title:     f.Book.Title,
			Author:    f.Book.Author,
			Genre:     f.Book.Genre,
			CreatedAt: f.CreatedAt,
		}
	}), nil
}

// Remove 把一本书移出收藏夹，幂等。
func (s *FavoriteService) Remove(bookID, userID string) error {
	return s.db.Delete(&models.Favorite{}, "user_id = ? AND book_id = ?", userID, bookID).Error
}
