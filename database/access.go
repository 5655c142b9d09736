package database

import (
	"crypto/subtle"

	"inkwell/constants"
)

type AccessState int

const (
	AccessPublished AccessState = iota
	AccessOwner
	AccessDraftNoKey
	AccessDraftKeyMismatch
	AccessDraftKeyMatch
)

func (s AccessState) String() string {
	switch s {
	case AccessPublished:
		return "published"
	case AccessOwner:
		return "owner"
	case AccessDraftNoKey:
		return "draft_no_key"
	case AccessDraftKeyMismatch:
		return "draft_key_mismatch"
	case AccessDraftKeyMatch:
		return "draft_key_match"
	default:
		return "unknown"
	}
}

// Viewer is who is asking for a post and with which key. An empty key means
// none was supplied.
type Viewer struct {
	UserID uint
	Key    string
}

// ApplyAccess decides what a viewer gets to see of a post. A matching key
// reveals the content for this response only; Published is left as stored.
func ApplyAccess(post Post, viewer Viewer) (Post, AccessState, error) {
	if post.Published {
		return post, AccessPublished, nil
	}
	if post.IsOwnedBy(viewer.UserID) {
		return post, AccessOwner, nil
	}
	if viewer.Key == "" {
		return placeholder(post), AccessDraftNoKey, nil
	}
	if post.Key == "" || subtle.ConstantTimeCompare([]byte(viewer.Key), []byte(post.Key)) != 1 {
		return placeholder(post), AccessDraftKeyMismatch, ErrInvalidKey
	}
	return post, AccessDraftKeyMatch, nil
}

func placeholder(post Post) Post {
	post.Content = constants.UNPUBLISHED_PLACEHOLDER
	post.Key = ""
	return post
}
