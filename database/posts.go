package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inkwell/constants"
)

// Store is the gorm-backed repository for posts, users and reference data.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// PostInput is what an author submits when creating or editing a post.
type PostInput struct {
	Title       string
	Content     string
	Format      string
	CategoryID  uint
	TagIDs      []uint
	Key         string
	Published   *bool
	Description string
	Image       string
	AuthorID    uint
}

// A post with a key defaults to a draft that is shared by key; one without
// defaults to published.
func (in PostInput) published() bool {
	if in.Published != nil {
		return *in.Published
	}
	return in.Key == ""
}

func (in PostInput) format() string {
	if in.Format == FormatMarkdown {
		return FormatMarkdown
	}
	return FormatHTML
}

type PostQuery struct {
	Page       int
	Limit      int
	Search     string
	CategoryID uint
	Tag        string
	AuthorID   uint
}

func (s *Store) withPostDetails(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Category").
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.name")
		})
}

func (s *Store) CreatePost(ctx context.Context, in PostInput) (*Post, error) {
	category, tags, err := s.resolveRefs(ctx, in.CategoryID, in.TagIDs)
	if err != nil {
		return nil, err
	}

	post := Post{
		Title:      in.Title,
		Content:    in.Content,
		Format:     in.format(),
		Key:        in.Key,
		Published:  in.published(),
		Meta:       datatypes.NewJSONType(PostMeta{Description: in.Description, Image: in.Image}),
		CategoryID: category.ID,
		AuthorID:   in.AuthorID,
		Tags:       tags,
	}

	err = s.saveWithUniqueSlug(ctx, BaseSlug(in.Title), &post, func(tx *gorm.DB) error {
		return tx.Omit("Tags.*").Create(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return s.FindPostByID(ctx, post.ID)
}

// UpdatePost replaces the editable fields and the whole tag set of a post
// owned by requesterID. The slug is recomputed when the title changes.
func (s *Store) UpdatePost(ctx context.Context, id, requesterID uint, in PostInput) (*Post, error) {
	post, err := s.loadOwnedPost(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	category, tags, err := s.resolveRefs(ctx, in.CategoryID, in.TagIDs)
	if err != nil {
		return nil, err
	}

	base := post.Slug
	if post.Title != in.Title {
		base = BaseSlug(in.Title)
	}

	post.Title = in.Title
	post.Content = in.Content
	post.Format = in.format()
	post.Key = in.Key
	post.Published = in.published()
	post.CategoryID = category.ID
	post.Meta = datatypes.NewJSONType(PostMeta{Description: in.Description, Image: in.Image})

	err = s.saveWithUniqueSlug(ctx, base, post, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(post).Error; err != nil {
			return err
		}
		if len(tags) == 0 {
			return tx.Model(post).Association("Tags").Clear()
		}
		return tx.Model(post).Association("Tags").Replace(tags)
	})
	if err != nil {
		return nil, err
	}
	return s.FindPostByID(ctx, post.ID)
}

// DeletePost removes a post owned by requesterID together with its tag links.
func (s *Store) DeletePost(ctx context.Context, id, requesterID uint) error {
	post, err := s.loadOwnedPost(ctx, id, requesterID)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (s *Store) FindPostByID(ctx context.Context, id uint) (*Post, error) {
	var post Post
	if err := s.withPostDetails(ctx).First(&post, id).Error; err != nil {
		return nil, notFound(err, "find post by id")
	}
	return &post, nil
}

func (s *Store) FindPostBySlug(ctx context.Context, slug string) (*Post, error) {
	var post Post
	if err := s.withPostDetails(ctx).Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, notFound(err, "find post by slug")
	}
	return &post, nil
}

// FindVisiblePostBySlug loads a post and applies the access policy for the
// viewer. On ErrInvalidKey the placeholder post is still returned.
func (s *Store) FindVisiblePostBySlug(ctx context.Context, slug string, viewer Viewer) (*Post, AccessState, error) {
	post, err := s.FindPostBySlug(ctx, slug)
	if err != nil {
		return nil, 0, err
	}
	visible, state, err := ApplyAccess(*post, viewer)
	return &visible, state, err
}

func (s *Store) FindVisiblePostByID(ctx context.Context, id uint, viewer Viewer) (*Post, AccessState, error) {
	post, err := s.FindPostByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	visible, state, err := ApplyAccess(*post, viewer)
	return &visible, state, err
}

func (s *Store) FindAllPublishedPosts(ctx context.Context) ([]Post, error) {
	posts := []Post{}
	err := s.withPostDetails(ctx).
		Where("published = ?", true).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	return posts, nil
}

func (s *Store) FindPostsByAuthor(ctx context.Context, authorID uint) ([]Post, error) {
	posts := []Post{}
	err := s.withPostDetails(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return posts, nil
}

// ListPublishedPosts returns one page of published posts, newest first.
func (s *Store) ListPublishedPosts(ctx context.Context, q PostQuery) (Page[Post], error) {
	page, limit := NormalizePage(q.Page, q.Limit)

	filtered := s.db.WithContext(ctx).Model(&Post{}).Where("posts.published = ?", true)
	if search := strings.TrimSpace(q.Search); search != "" {
		filtered = filtered.Where("LOWER(posts.title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if q.CategoryID != 0 {
		filtered = filtered.Where("posts.category_id = ?", q.CategoryID)
	}
	if q.AuthorID != 0 {
		filtered = filtered.Where("posts.author_id = ?", q.AuthorID)
	}
	if tag := strings.TrimSpace(q.Tag); tag != "" {
		filtered = filtered.Where(`EXISTS (
			SELECT 1 FROM post_tags
			JOIN tags ON tags.id = post_tags.tag_id
			WHERE post_tags.post_id = posts.id AND LOWER(tags.name) = ?
		)`, strings.ToLower(tag))
	}
	filtered = filtered.Session(&gorm.Session{})

	var total int64
	if err := filtered.Count(&total).Error; err != nil {
		return Page[Post]{}, fmt.Errorf("count posts: %w", err)
	}
	pagination := NewPagination(page, limit, total)

	posts := []Post{}
	err := filtered.
		Preload("Category").
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("tags.name")
		}).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset()).
		Find(&posts).Error
	if err != nil {
		return Page[Post]{}, fmt.Errorf("list posts: %w", err)
	}
	return Page[Post]{Data: posts, Pagination: pagination}, nil
}

func (s *Store) loadOwnedPost(ctx context.Context, id, requesterID uint) (*Post, error) {
	var post Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, notFound(err, "load post")
	}
	if !post.IsOwnedBy(requesterID) {
		return nil, ErrForbidden
	}
	return &post, nil
}

func (s *Store) resolveRefs(ctx context.Context, categoryID uint, tagIDs []uint) (Category, []Tag, error) {
	var category Category
	if err := s.db.WithContext(ctx).First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Category{}, nil, ErrInvalidCategory
		}
		return Category{}, nil, fmt.Errorf("load category: %w", err)
	}

	ids := uniqueIDs(tagIDs)
	tags := []Tag{}
	if len(ids) == 0 {
		return category, tags, nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return Category{}, nil, fmt.Errorf("load tags: %w", err)
	}
	if len(tags) != len(ids) {
		return Category{}, nil, ErrInvalidTags
	}
	return category, tags, nil
}

// saveWithUniqueSlug runs write with post.Slug set to base, retrying with a
// random suffix while the unique index rejects the slug. Reserved slugs are
// treated as taken. Each attempt is its own transaction so a failed insert
// does not poison the next one.
func (s *Store) saveWithUniqueSlug(ctx context.Context, base string, post *Post, write func(tx *gorm.DB) error) error {
	candidate := base
	if isReservedSlug(candidate) {
		candidate = disambiguate(base)
	}
	for attempt := 0; attempt < constants.MAX_SLUG_ATTEMPTS; attempt++ {
		post.Slug = candidate
		err := s.db.WithContext(ctx).Transaction(write)
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) {
			return fmt.Errorf("save post: %w", err)
		}
		candidate = disambiguate(base)
	}
	return ErrSlugExhausted
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func notFound(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
