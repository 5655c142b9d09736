package site

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"inkwell/database"
)

func TestPublicHomeListsPublishedPosts(t *testing.T) {
	env := newTestEnv(t)
	env.createPost(t, "Visible Post", "", true)
	env.createPost(t, "Invisible Draft", "k", false)

	rec := env.do(t, http.MethodGet, "/", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	page := rec.Body.String()
	if !strings.Contains(page, "Visible Post") || strings.Contains(page, "Invisible Draft") {
		t.Fatalf("home page lists the wrong posts:\n%s", page)
	}
}

func TestPublicViewPostRendersMarkdown(t *testing.T) {
	env := newTestEnv(t)
	published := true
	post, err := env.store.CreatePost(context.Background(), database.PostInput{
		Title:      "Markdown Post",
		Content:    "# Hello there\n\nSome *emphasis*.",
		Format:     database.FormatMarkdown,
		CategoryID: env.category.ID,
		Published:  &published,
		AuthorID:   env.author.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/posts/"+post.Slug, nil, nil)
	expectStatus(t, rec, http.StatusOK)
	page := rec.Body.String()
	if !strings.Contains(page, `<h1 id="hello-there">Hello there</h1>`) || !strings.Contains(page, "<em>emphasis</em>") {
		t.Fatalf("markdown was not rendered:\n%s", page)
	}
}

func TestPublicViewPostAppliesAccess(t *testing.T) {
	env := newTestEnv(t)
	draft := env.createPost(t, "Page Draft", "letmein", false)

	rec := env.do(t, http.MethodGet, "/posts/"+draft.Slug, nil, nil)
	expectStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), "secret body") {
		t.Fatalf("draft content leaked without a key")
	}

	rec = env.do(t, http.MethodGet, "/posts/"+draft.Slug+"?key=wrong", nil, nil)
	expectStatus(t, rec, http.StatusForbidden)

	rec = env.do(t, http.MethodGet, "/posts/"+draft.Slug+"?key=letmein", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "secret body") {
		t.Fatalf("matching key should reveal the draft")
	}

	expectStatus(t, env.do(t, http.MethodGet, "/posts/missing", nil, nil), http.StatusNotFound)
}

func TestPublicViewUser(t *testing.T) {
	env := newTestEnv(t)
	env.createPost(t, "Authored Post", "", true)
	env.createPost(t, "Authored Draft", "k", false)
	path := fmt.Sprintf("/u/%d", env.author.ID)

	rec := env.do(t, http.MethodGet, path, nil, nil)
	expectStatus(t, rec, http.StatusOK)
	page := rec.Body.String()
	if !strings.Contains(page, "Posts by Ada") || !strings.Contains(page, "Authored Post") || strings.Contains(page, "Authored Draft") {
		t.Fatalf("unexpected author page:\n%s", page)
	}

	rec = env.do(t, http.MethodGet, path, nil, &env.author)
	if !strings.Contains(rec.Body.String(), "Authored Draft") {
		t.Fatalf("authors should see their own drafts")
	}

	expectStatus(t, env.do(t, http.MethodGet, "/u/9999", nil, nil), http.StatusNotFound)
}
