package models

import "time"

// Timestamps are written by the repository, not by gorm.
type Timestamps struct {
	CreatedAt time.Time `gorm:"autoCreateTime:false;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"not null" json:"email"`
	IsStaff  bool   `gorm:"default:false" json:"-"`
	Timestamps
}

type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Slug        string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `gorm:"not null" json:"is_active"`
	Order       int    `gorm:"column:sort_order;not null;default:0" json:"order"`
	ParentID    *uint  `gorm:"index" json:"parent_id,omitempty"` // cycles are checked on update
	Timestamps
}

// DefaultTagColor is used when a tag is saved without a color.
const DefaultTagColor = "#6c757d"

type Tag struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Slug        string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Color       string `gorm:"size:7;not null;default:'#6c757d'" json:"color"`
	Timestamps
}

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
	StatusArchived  PostStatus = "archived"
)

type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"size:200;not null" json:"title"`
	Slug          string     `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	Excerpt       string     `gorm:"type:text" json:"excerpt"`
	AuthorID      *uint      `gorm:"index" json:"author_id,omitempty"`
	Author        *User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	CategoryID    *uint      `gorm:"index" json:"category_id,omitempty"`
	Category      *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Tags          []Tag      `gorm:"many2many:post_tags" json:"tags"`
	Status        PostStatus `gorm:"size:10;not null;default:'draft';index" json:"status"`
	PubDate       time.Time  `gorm:"not null;index" json:"pub_date"`
	IsFeatured    bool       `gorm:"not null;default:false" json:"is_featured"`
	AllowComments bool       `gorm:"not null" json:"allow_comments"`
	ViewsCount    int        `gorm:"not null;default:0" json:"views_count"`
	LikesCount    int        `gorm:"not null;default:0" json:"likes_count"`
	ReadingTime   int        `gorm:"not null;default:1" json:"reading_time"`
	Timestamps
}

type Comment struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	PostID        uint    `gorm:"not null;index" json:"post_id"`
	AuthorName    string  `gorm:"size:100;not null" json:"author_name"`
	AuthorEmail   string  `gorm:"not null" json:"-"` // never exposed publicly
	AuthorWebsite string  `json:"author_website,omitempty"`
	Content       string  `gorm:"type:text;not null" json:"content"`
	IPAddress     *string `json:"-"`
	UserAgent     string  `gorm:"type:text" json:"-"`
	Approved      bool    `gorm:"not null;default:false;index" json:"approved"`
	IsSpam        bool    `gorm:"not null;default:false" json:"is_spam"`
	ParentID      *uint   `gorm:"index" json:"parent_id,omitempty"`
	Depth         int     `gorm:"not null;default:0" json:"depth"`
	Timestamps
}

type Subscription struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Email             string     `gorm:"uniqueIndex;not null" json:"email"`
	IsActive          bool       `gorm:"not null" json:"is_active"`
	ConfirmationToken string     `gorm:"size:64;index" json:"-"`
	ConfirmedAt       *time.Time `json:"confirmed_at,omitempty"`
	IPAddress         *string    `json:"-"`
	Timestamps
}

type Like struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	PostID    uint    `gorm:"not null;uniqueIndex:idx_like_post_user" json:"post_id"`
	UserID    uint    `gorm:"not null;uniqueIndex:idx_like_post_user" json:"user_id"`
	IPAddress *string `json:"-"`
	Timestamps
}
