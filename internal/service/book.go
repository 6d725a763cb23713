package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mercyogalo/bookStore/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// OnlineCounter 报告一本书当前有多少在线查看者，由 ws 层实现。
type OnlineCounter interface {
	Online(bookID string) int
}

// BookService 封装书籍相关的业务逻辑，只有 author 角色的路由会调到写操作。
type BookService struct {
	db     *gorm.DB
	online OnlineCounter
}

func NewBookService(db *gorm.DB, online OnlineCounter) *BookService {
	return &BookService{db: db, online: online}
}

// BookInput 创建/更新书籍的入参。
type BookInput struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	YearPublished int    `json:"yearPublished"`
	Link          string `json:"link"`
	Description   string `json:"description"`
	CoverImage    string `json:"coverImage"`
	Genre         string `json:"genre"`
}

// BookDTO 是对外输出的书籍数据，Viewers 为实时在线查看人数。
type BookDTO struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	YearPublished int       `json:"yearPublished"`
	Link          string    `json:"link"`
	Description   string    `json:"description"`
	CoverImage    string    `json:"coverImage"`
	Genre         string    `json:"genre"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	Viewers       int       `json:"viewers"`
}

func (s *BookService) toDTO(b models.Book) BookDTO {
	viewers := 0
	if s.online != nil {
		viewers = s.online.Online(b.ID)
	}
	return BookDTO{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		YearPublished: b.YearPublished,
		Link:          b.Link,
		Description:   b.Description,
		CoverImage:    b.CoverImage,
		Genre:         b.Genre,
		CreatedBy:     b.CreatedBy,
		CreatedAt:     b.CreatedAt,
		Viewers:       viewers,
	}
}

func (in *BookInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	if in.Title == "" || in.Author == "" || in.Link == "" || in.Description == "" {
		return fmt.Errorf("%w: title, author, link and description are required", ErrValidation)
	}
	return nil
}

// Create 录入一本新书，createdBy 为当前登录的 author。
func (s *BookService) Create(in BookInput, createdBy string) (*BookDTO, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	book := models.Book{
		Title:         in.Title,
		Author:        in.Author,
		YearPublished: in.YearPublished,
		Link:          in.Link,
		Description:   in.Description,
		CoverImage:    in.CoverImage,
		Genre:         in.Genre,
		CreatedBy:     createdBy,
	}
	if err := s.db.Create(&book).Error; err != nil {
		return nil, err
	}
	dto := s.toDTO(book)
	return &dto, nil
}

// List 返回书籍列表，附带各书的在线查看人数。
func (s *BookService) List(limit int) ([]BookDTO, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var books []models.Book
	if err := s.db.Order("created_at desc").Limit(limit).Find(&books).Error; err != nil {
		return nil, err
	}
	return lo.Map(books, func(b models.Book, _ int) BookDTO { return s.toDTO(b) }), nil
}

// Get 返回单本书。
func (s *BookService) Get(bookID string) (*BookDTO, error) {
	var book models.Book
	if err := s.db.First(&book, "id = ?", bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	dto := s.toDTO(book)
	return &dto, nil
}

// Update 更新书籍，只有创建者本人可以改。
func (s *BookService) Update(bookID string, in BookInput, requesterID string) (*BookDTO, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var book models.Book
	if err := s.db.First(&book, "id = ?", bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	if book.CreatedBy != requesterID {
		return nil, ErrNotOwner
	}
	book.Title = in.Title
	book.Author = in.Author
	book.YearPublished = in.YearPublished
	book.Link = in.Link
	book.Description = in.Description
	book.CoverImage = in.CoverImage
	book.Genre = in.Genre
	if err := s.db.Save(&book).Error; err != nil {
		return nil, err
	}
	dto := s.toDTO(book)
	return &dto, nil
}

// Delete 删除书籍，只有创建者本人可以删。
func (s *BookService) Delete(bookID, requesterID string) error {
	var book models.Book
	if err := s.db.First(&book, "id = ?", bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return err
	}
	if book.CreatedBy != requesterID {
		return ErrNotOwner
	}
	return s.db.Delete(&models.Book{}, "id = ?", bookID).Error
}

// Exists 检查书籍是否存在。
func (s *BookService) Exists(bookID string) (*models.Book, error) {
	var book models.Book
	if err := s.db.First(&book, "id = ?", bookID).Error; err != nil {
		return nil, ErrBookNotFound
	}
	return &book, nil
}
