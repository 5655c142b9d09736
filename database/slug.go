package database

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Path segments under /api/posts that would shadow a post with the same slug.
var reservedSlugs = map[string]bool{
	"all":      true,
	"my-posts": true,
	"create":   true,
	"edit":     true,
	"delete":   true,
	"id":       true,
}

func isReservedSlug(s string) bool {
	return reservedSlugs[s]
}

// BaseSlug derives the slug a post would get if no other post held it.
// Titles with any non-ASCII byte get a random UUID instead of a
// transliteration.
func BaseSlug(title string) string {
	for i := 0; i < len(title); i++ {
		if title[i] > 0x7f {
			return uuid.NewString()
		}
	}

	candidate := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "-")
	if slug.IsSlug(candidate) {
		return candidate
	}
	if made := slug.Make(title); made != "" {
		return made
	}
	return uuid.NewString()
}

// disambiguate appends a random suffix to a slug that is already taken.
func disambiguate(base string) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return base + "-" + uuid.NewString()
	}
	return base + "-" + hex.EncodeToString(buf)
}
