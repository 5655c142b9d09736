package database

import (
	"context"
	"fmt"
)

func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	tags := []Tag{}
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	categories := []Category{}
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
