package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 用户角色：author 发布书籍，reviewer 点评书籍。
const (
	RoleAuthor   = "author"
	RoleReviewer = "reviewer"
)

type User struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Name         string `gorm:"size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:16;not null;default:reviewer"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Book struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	Title         string `gorm:"size:256;not null"`
	Author        string `gorm:"size:128;not null"`
	YearPublished int
	Link          string `gorm:"not null"`
	Description   string `gorm:"type:text;not null"`
	CoverImage    string `gorm:"size:256"`
	Genre         string `gorm:"size:64"`
	CreatedBy     string `gorm:"type:uuid;index;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Review 的 ParentID 指向同一本书下的另一条评论，最多一层嵌套。
// UserName 是写入时的冗余展示名，之后不随用户改名同步。
type Review struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	BookID    string  `gorm:"type:uuid;index:idx_review_book_id;not null"`
	UserID    string  `gorm:"type:uuid;index;not null"`
	UserName  string  `gorm:"size:64;not null"`
	Content   string  `gorm:"type:text;not null"`
	Rating    int     `gorm:"not null;default:5"`
	ParentID  *string `gorm:"type:uuid;index"`
	CreatedAt time.Time
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type Like struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:uuid;uniqueIndex:idx_like_user_book;not null"`
	BookID    string `gorm:"type:uuid;uniqueIndex:idx_like_user_book;not null"`
	CreatedAt time.Time
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

type Favorite struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:uuid;uniqueIndex:idx_fav_user_book;not null"`
	BookID    string `gorm:"type:uuid;uniqueIndex:idx_fav_user_book;not null"`
	Book      Book   `gorm:"foreignKey:BookID"`
	CreatedAt time.Time
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"type:uuid;index;not null"`
	Token     string    `gorm:"uniqueIndex;size:128;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
