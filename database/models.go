package database

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Models carry their own timestamps instead of gorm.Model: deletes are hard
// deletes.

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null;default:user" json:"role"`
	Posts        []Post    `gorm:"foreignKey:AuthorID" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PostMeta struct {
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type Post struct {
	ID         uint                         `gorm:"primaryKey" json:"id"`
	Title      string                       `gorm:"not null" json:"title"`
	Slug       string                       `gorm:"uniqueIndex;not null" json:"slug"`
	Content    string                       `gorm:"type:text;not null" json:"content"`
	Format     string                       `gorm:"not null;default:html" json:"format"`
	Key        string                       `gorm:"size:255" json:"key"`
	Published  bool                         `gorm:"index" json:"published"`
	Meta       datatypes.JSONType[PostMeta] `json:"meta"`
	CategoryID uint                         `gorm:"index;not null" json:"categoryId"`
	Category   *Category                    `json:"category,omitempty"`
	AuthorID   uint                         `gorm:"index;not null" json:"authorId"`
	Author     *User                        `json:"-"`
	Tags       []Tag                        `gorm:"many2many:post_tags;" json:"tags"`
	CreatedAt  time.Time                    `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time                    `json:"updatedAt"`
}

func (p Post) IsOwnedBy(userID uint) bool {
	return userID != 0 && p.AuthorID == userID
}

func (p Post) AuthorName() string {
	if p.Author == nil {
		return ""
	}
	return p.Author.Name
}
