package database

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestIsDuplicateKey(t *testing.T) {
	f := newFixture(t)

	err := f.store.DB().Create(&Category{Name: f.category.Name}).Error
	if !isDuplicateKey(err) {
		t.Fatalf("expected a unique violation to be recognized, got %v", err)
	}

	cases := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("save post: %w", gorm.ErrDuplicatedKey), true},
		{errors.New("UNIQUE constraint failed: posts.slug"), false},
		{errors.New("duplicate key in some unrelated message"), false},
		{gorm.ErrRecordNotFound, false},
	}
	for _, c := range cases {
		if got := isDuplicateKey(c.err); got != c.want {
			t.Fatalf("isDuplicateKey(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
