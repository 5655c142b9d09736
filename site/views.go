package site

import (
	"time"

	"inkwell/database"
)

type UserView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type AuthorView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type PostView struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	Content     string             `json:"content"`
	Format      string             `json:"format"`
	Key         string             `json:"key"`
	Published   bool               `json:"published"`
	Description string             `json:"description,omitempty"`
	Image       string             `json:"image,omitempty"`
	CategoryID  uint               `json:"categoryId"`
	Category    *database.Category `json:"category,omitempty"`
	Author      AuthorView         `json:"author"`
	Tags        []database.Tag     `json:"tags"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// PostSummary is the list form of a post; it never carries content or key.
type PostSummary struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	Published   bool               `json:"published"`
	Description string             `json:"description,omitempty"`
	Image       string             `json:"image,omitempty"`
	Category    *database.Category `json:"category,omitempty"`
	Author      AuthorView         `json:"author"`
	Tags        []database.Tag     `json:"tags"`
	CreatedAt   time.Time          `json:"createdAt"`
}

func toUserView(u *database.User) UserView {
	return UserView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func toPostView(p *database.Post) PostView {
	meta := p.Meta.Data()
	tags := p.Tags
	if tags == nil {
		tags = []database.Tag{}
	}
	return PostView{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Content:     p.Content,
		Format:      p.Format,
		Key:         p.Key,
		Published:   p.Published,
		Description: meta.Description,
		Image:       meta.Image,
		CategoryID:  p.CategoryID,
		Category:    p.Category,
		Author:      AuthorView{ID: p.AuthorID, Name: p.AuthorName()},
		Tags:        tags,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toPostSummary(p database.Post) PostSummary {
	meta := p.Meta.Data()
	tags := p.Tags
	if tags == nil {
		tags = []database.Tag{}
	}
	return PostSummary{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Published:   p.Published,
		Description: meta.Description,
		Image:       meta.Image,
		Category:    p.Category,
		Author:      AuthorView{ID: p.AuthorID, Name: p.AuthorName()},
		Tags:        tags,
		CreatedAt:   p.CreatedAt,
	}
}

func toPostSummaries(posts []database.Post) []PostSummary {
	out := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostSummary(p))
	}
	return out
}
