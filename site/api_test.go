package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"inkwell/auth"
	"inkwell/config"
	"inkwell/constants"
	"inkwell/database"
	"inkwell/offload"
)

const pngPixel = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

type memStorage struct {
	mu   sync.Mutex
	keys []string
}

func (m *memStorage) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return "https://images.example/" + key, nil
}

type testEnv struct {
	handler  http.Handler
	store    *database.Store
	auth     *auth.Service
	storage  *memStorage
	author   database.User
	other    database.User
	category database.Category
	tags     []database.Tag
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:site_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close(db) })

	hash, err := auth.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	env := &testEnv{
		store:    database.NewStore(db),
		auth:     auth.NewService("test-secret", constants.AUTH_TOKEN_TTL),
		storage:  &memStorage{},
		author:   database.User{Name: "Ada", Email: "ada@example.com", PasswordHash: hash, Role: database.RoleAdmin},
		other:    database.User{Name: "Bob", Email: "bob@example.com", PasswordHash: hash, Role: database.RoleUser},
		category: database.Category{Name: "Engineering"},
		tags:     []database.Tag{{Name: "go"}, {Name: "web"}, {Name: "sql"}},
	}
	for _, v := range []interface{}{&env.author, &env.other, &env.category, &env.tags} {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	cfg := config.Config{
		Env:            "test",
		LoginRateLimit: 1000,
		UploadDir:      t.TempDir(),
		Storage:        config.StorageConfig{BucketName: "test-bucket"},
	}
	env.handler = NewServer(env.store, env.auth, offload.New(env.storage), cfg).Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, user *database.User) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		token, err := e.auth.Issue(user.ID, user.Email)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.AddCookie(&http.Cookie{Name: constants.AUTH_COOKIE_NAME, Value: token})
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createPost(t *testing.T, title, key string, published bool) *database.Post {
	t.Helper()
	post, err := e.store.CreatePost(context.Background(), database.PostInput{
		Title:      title,
		Content:    "<p>secret body of " + title + "</p>",
		CategoryID: e.category.ID,
		TagIDs:     []uint{e.tags[0].ID},
		Key:        key,
		Published:  &published,
		AuthorID:   e.author.ID,
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	expectStatus(t, rec, status)
	var body errorResponse
	decode(t, rec, &body)
	if body.Error != message {
		t.Fatalf("expected error %q, got %q", message, body.Error)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	expectStatus(t, env.do(t, http.MethodGet, "/health", nil, nil), http.StatusOK)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	t.Run("wrong method", func(t *testing.T) {
		expectError(t, env.do(t, http.MethodGet, "/api/auth/login", nil, nil), http.StatusMethodNotAllowed, "Method not allowed")
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ada@example.com"}, nil)
		expectError(t, rec, http.StatusBadRequest, "Email and password are required")
	})

	t.Run("bad password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ada@example.com", Password: "nope"}, nil)
		expectError(t, rec, http.StatusUnauthorized, "Invalid email or password")
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "who@example.com", Password: "hunter22"}, nil)
		expectError(t, rec, http.StatusUnauthorized, "Invalid email or password")
	})

	t.Run("success", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/login", LoginRequest{Email: "ADA@example.com", Password: "hunter22"}, nil)
		expectStatus(t, rec, http.StatusOK)

		var body userResponse
		decode(t, rec, &body)
		if body.User.ID != env.author.ID || body.User.Email != "ada@example.com" {
			t.Fatalf("unexpected user %+v", body.User)
		}
		if strings.Contains(rec.Body.String(), "password") {
			t.Fatalf("response leaks the password hash: %s", rec.Body.String())
		}

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == constants.AUTH_COOKIE_NAME {
				cookie = c
			}
		}
		if cookie == nil {
			t.Fatalf("auth cookie not set")
		}
		if !cookie.HttpOnly || cookie.Path != "/" || cookie.MaxAge != 3600 || cookie.SameSite != http.SameSiteLaxMode {
			t.Fatalf("unexpected cookie attributes %+v", cookie)
		}
		if cookie.Secure {
			t.Fatalf("cookie should only be secure in production")
		}
		if id, err := env.auth.Verify(cookie.Value); err != nil || id != env.author.ID {
			t.Fatalf("cookie token does not identify the user: %d %v", id, err)
		}
	})
}

func TestCheckAuth(t *testing.T) {
	env := newTestEnv(t)

	expectError(t, env.do(t, http.MethodGet, "/api/auth/check", nil, nil), http.StatusUnauthorized, "No token found")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	req.AddCookie(&http.Cookie{Name: constants.AUTH_COOKIE_NAME, Value: "not-a-token"})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	expectError(t, rec, http.StatusUnauthorized, "Invalid token")

	ghost := database.User{ID: 9999, Email: "ghost@example.com"}
	expectError(t, env.do(t, http.MethodGet, "/api/auth/check", nil, &ghost), http.StatusUnauthorized, "User not found")

	rec = env.do(t, http.MethodGet, "/api/auth/check", nil, &env.author)
	expectStatus(t, rec, http.StatusOK)
	var body userResponse
	decode(t, rec, &body)
	if body.User.Name != "Ada" || body.User.Role != database.RoleAdmin {
		t.Fatalf("unexpected user %+v", body.User)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/auth/logout", nil, &env.author)
	expectStatus(t, rec, http.StatusNoContent)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expired auth cookie, got %+v", cookies)
	}
}

func TestCreatePostRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]interface{}{"title": "Hi", "content": "<p>x</p>", "categoryId": env.category.ID}

	expectError(t, env.do(t, http.MethodPost, "/api/posts/create", body, nil), http.StatusUnauthorized, "No token found")

	ghost := database.User{ID: 9999, Email: "ghost@example.com"}
	expectError(t, env.do(t, http.MethodPost, "/api/posts/create", body, &ghost), http.StatusUnauthorized, "Unauthorized")
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]interface{}{
		"title":      "Hello World",
		"content":    `<p>look</p><img src="data:image/png;base64,` + pngPixel + `">`,
		"categoryId": fmt.Sprint(env.category.ID),
		"tagIds":     []interface{}{env.tags[0].ID, fmt.Sprint(env.tags[1].ID)},
	}

	rec := env.do(t, http.MethodPost, "/api/posts/create", body, &env.author)
	expectStatus(t, rec, http.StatusCreated)

	var res postResponse
	decode(t, rec, &res)
	post := res.Post
	if post.Slug != "hello-world" || !post.Published {
		t.Fatalf("unexpected post %+v", post)
	}
	if post.Author.ID != env.author.ID || post.Author.Name != "Ada" {
		t.Fatalf("unexpected author %+v", post.Author)
	}
	if len(post.Tags) != 2 {
		t.Fatalf("expected two tags, got %+v", post.Tags)
	}
	if len(env.storage.keys) != 1 {
		t.Fatalf("expected the embedded image to be uploaded, got %v", env.storage.keys)
	}
	stored := "https://images.example/" + env.storage.keys[0]
	if strings.Contains(post.Content, "data:image") || !strings.Contains(post.Content, stored) {
		t.Fatalf("content was not rewritten: %s", post.Content)
	}
	if post.Image != stored {
		t.Fatalf("expected meta image %q, got %q", stored, post.Image)
	}
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/posts/create", map[string]interface{}{"content": "<p>x</p>"}, &env.author)
	expectStatus(t, rec, http.StatusBadRequest)
	var body errorResponse
	decode(t, rec, &body)
	if !strings.Contains(body.Message, "title is required") || !strings.Contains(body.Message, "categoryId is required") {
		t.Fatalf("validation message should name the fields: %q", body.Message)
	}

	rec = env.do(t, http.MethodPost, "/api/posts/create", "{not json", &env.author)
	expectError(t, rec, http.StatusBadRequest, "Invalid request body")

	rec = env.do(t, http.MethodPost, "/api/posts/create", map[string]interface{}{
		"title": "Bad category", "content": "<p>x</p>", "categoryId": 404,
	}, &env.author)
	expectError(t, rec, http.StatusBadRequest, "Invalid category")

	rec = env.do(t, http.MethodPost, "/api/posts/create", map[string]interface{}{
		"title": "Blob", "content": `<img src="blob:https://app.example/1">`, "categoryId": env.category.ID,
	}, &env.author)
	expectError(t, rec, http.StatusBadRequest, "Invalid image")
}

func TestDraftAccessByKey(t *testing.T) {
	env := newTestEnv(t)
	draft := env.createPost(t, "Draft Notes", "open-sesame", false)
	path := "/api/posts/" + draft.Slug

	t.Run("anonymous without key", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, path, nil, nil)
		expectStatus(t, rec, http.StatusOK)
		var res postResponse
		decode(t, rec, &res)
		if res.Post.Content != constants.UNPUBLISHED_PLACEHOLDER || res.Post.Key != "" {
			t.Fatalf("draft leaked: %+v", res.Post)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, path+"?key=guess", nil, nil)
		expectStatus(t, rec, http.StatusForbidden)
		var res invalidKeyResponse
		decode(t, rec, &res)
		if res.Error != "Invalid key" || res.Post.Content != constants.UNPUBLISHED_PLACEHOLDER {
			t.Fatalf("unexpected response %+v", res)
		}
	})

	t.Run("matching key", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, path+"?key=open-sesame", nil, nil)
		expectStatus(t, rec, http.StatusOK)
		var res postResponse
		decode(t, rec, &res)
		if !strings.Contains(res.Post.Content, "secret body") || res.Post.Published {
			t.Fatalf("unexpected post %+v", res.Post)
		}

		stored, err := env.store.FindPostByID(context.Background(), draft.ID)
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if stored.Published {
			t.Fatalf("reading with the key must not publish the post")
		}
	})

	t.Run("owner", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/posts/id/"+fmt.Sprint(draft.ID), nil, &env.author)
		expectStatus(t, rec, http.StatusOK)
		var res postResponse
		decode(t, rec, &res)
		if res.Post.Key != "open-sesame" || !strings.Contains(res.Post.Content, "secret body") {
			t.Fatalf("owner should see everything: %+v", res.Post)
		}
	})

	t.Run("unknown slug", func(t *testing.T) {
		expectError(t, env.do(t, http.MethodGet, "/api/posts/nope", nil, nil), http.StatusNotFound, "Post not found")
	})
}

func TestEditPost(t *testing.T) {
	env := newTestEnv(t)
	post := env.createPost(t, "First Title", "", true)
	path := "/api/posts/edit/" + fmt.Sprint(post.ID)
	body := map[string]interface{}{
		"title":      "Second Title",
		"content":    "<p>updated</p>",
		"categoryId": env.category.ID,
		"tagIds":     []string{fmt.Sprint(env.tags[1].ID), fmt.Sprint(env.tags[2].ID)},
	}

	expectError(t, env.do(t, http.MethodPut, path, body, &env.other), http.StatusForbidden, "Not authorized to edit this post")

	rec := env.do(t, http.MethodPut, path, body, &env.author)
	expectStatus(t, rec, http.StatusOK)
	var res postResponse
	decode(t, rec, &res)
	if res.Post.Slug != "second-title" || res.Post.Content != "<p>updated</p>" {
		t.Fatalf("unexpected post %+v", res.Post)
	}
	names := []string{}
	for _, tag := range res.Post.Tags {
		names = append(names, tag.Name)
	}
	if strings.Join(names, ",") != "sql,web" {
		t.Fatalf("tags were not replaced: %v", names)
	}

	expectError(t, env.do(t, http.MethodPut, "/api/posts/edit/9999", body, &env.author), http.StatusNotFound, "Post not found")
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	post := env.createPost(t, "Doomed", "", true)
	path := "/api/posts/delete/" + fmt.Sprint(post.ID)

	expectError(t, env.do(t, http.MethodDelete, path, nil, nil), http.StatusUnauthorized, "No token found")
	expectError(t, env.do(t, http.MethodDelete, path, nil, &env.other), http.StatusForbidden, "Not authorized to delete this post")
	if _, err := env.store.FindPostByID(context.Background(), post.ID); err != nil {
		t.Fatalf("post should survive a forbidden delete: %v", err)
	}

	expectStatus(t, env.do(t, http.MethodDelete, path, nil, &env.author), http.StatusNoContent)
	expectStatus(t, env.do(t, http.MethodGet, "/api/posts/"+post.Slug, nil, nil), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodDelete, path, nil, &env.author), http.StatusNotFound)
}

func TestListPostsPagination(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		post := env.createPost(t, fmt.Sprintf("Post %02d", i), "", true)
		err := env.store.DB().Model(&database.Post{}).Where("id = ?", post.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Hour)).Error
		if err != nil {
			t.Fatalf("backdate: %v", err)
		}
	}
	env.createPost(t, "Hidden Draft", "k", false)

	rec := env.do(t, http.MethodGet, "/api/posts?page=2&limit=5", nil, nil)
	expectStatus(t, rec, http.StatusOK)

	var page database.Page[PostSummary]
	decode(t, rec, &page)
	p := page.Pagination
	if p.CurrentPage != 2 || p.Limit != 5 || p.TotalRecords != 12 || p.TotalPages != 3 {
		t.Fatalf("unexpected pagination %+v", p)
	}
	if p.NextPage == nil || *p.NextPage != 3 || p.PrevPage == nil || *p.PrevPage != 1 {
		t.Fatalf("unexpected cursors %+v", p)
	}
	if len(page.Data) != 5 || page.Data[0].Title != "Post 07" || page.Data[4].Title != "Post 03" {
		t.Fatalf("unexpected page contents %+v", page.Data)
	}
	if strings.Contains(rec.Body.String(), "secret body") {
		t.Fatalf("summaries must not carry content")
	}

	rec = env.do(t, http.MethodGet, "/api/posts?q=post%2011", nil, nil)
	decode(t, rec, &page)
	if page.Pagination.TotalRecords != 1 || page.Data[0].Title != "Post 11" {
		t.Fatalf("search returned %+v", page.Data)
	}
}

func TestReservedSlugs(t *testing.T) {
	env := newTestEnv(t)
	env.createPost(t, "Public One", "", true)
	env.createPost(t, "Private One", "k", false)

	rec := env.do(t, http.MethodGet, "/api/posts/all", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	var all []PostSummary
	decode(t, rec, &all)
	if len(all) != 1 || all[0].Title != "Public One" {
		t.Fatalf("unexpected published posts %+v", all)
	}

	expectError(t, env.do(t, http.MethodGet, "/api/posts/my-posts", nil, nil), http.StatusUnauthorized, "Unauthorized")

	rec = env.do(t, http.MethodGet, "/api/posts/my-posts", nil, &env.author)
	expectStatus(t, rec, http.StatusOK)
	var mine []PostSummary
	decode(t, rec, &mine)
	if len(mine) != 2 {
		t.Fatalf("expected drafts in my posts, got %+v", mine)
	}

	rec = env.do(t, http.MethodGet, "/api/posts/my-posts", nil, &env.other)
	expectStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected an empty list, got %s", rec.Body.String())
	}
}

func TestPostsTitledLikeReservedSlugsStayReachable(t *testing.T) {
	env := newTestEnv(t)

	for _, title := range []string{"All", "My Posts"} {
		post := env.createPost(t, title, "", true)
		rec := env.do(t, http.MethodGet, "/api/posts/"+post.Slug, nil, nil)
		expectStatus(t, rec, http.StatusOK)
		var res postResponse
		decode(t, rec, &res)
		if res.Post.ID != post.ID || res.Post.Title != title {
			t.Fatalf("slug %q served %+v instead of %q", post.Slug, res.Post, title)
		}
	}
}

func TestTagsAndCategories(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/tags", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	var tags []database.Tag
	decode(t, rec, &tags)
	if len(tags) != 3 || tags[0].Name != "go" || tags[2].Name != "web" {
		t.Fatalf("unexpected tags %+v", tags)
	}

	rec = env.do(t, http.MethodGet, "/api/categories", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	var categories []database.Category
	decode(t, rec, &categories)
	if len(categories) != 1 || categories[0].Name != "Engineering" {
		t.Fatalf("unexpected categories %+v", categories)
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	env := newTestEnv(t)
	expectError(t, env.do(t, http.MethodGet, "/api/nothing", nil, nil), http.StatusNotFound, "Not found")
}
