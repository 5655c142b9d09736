package site

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"inkwell/database"
)

type postResponse struct {
	Post PostView `json:"post"`
}

type invalidKeyResponse struct {
	Error string   `json:"error"`
	Post  PostView `json:"post"`
}

func (s *Server) ListPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := database.PostQuery{
		Page:   parsePositiveInt(query.Get("page"), 1),
		Limit:  parsePositiveInt(query.Get("limit"), 0),
		Search: query.Get("q"),
		Tag:    query.Get("tag"),
	}
	if category, ok := parseID(query.Get("category")); ok {
		q.CategoryID = category
	}

	page, err := s.store.ListPublishedPosts(r.Context(), q)
	if err != nil {
		respondInternal(w, r, "Failed to list posts", err)
		return
	}
	respondJSON(w, http.StatusOK, database.Page[PostSummary]{
		Data:       toPostSummaries(page.Data),
		Pagination: page.Pagination,
	})
}

// GetPostBySlug serves a single post. The slugs "all" and "my-posts" are
// reserved for the published listing and the requester's own posts.
func (s *Server) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	switch slug {
	case "all":
		posts, err := s.store.FindAllPublishedPosts(r.Context())
		if err != nil {
			respondInternal(w, r, "Failed to list posts", err)
			return
		}
		respondJSON(w, http.StatusOK, toPostSummaries(posts))
		return
	case "my-posts":
		user := getSignedInUserOrNil(r)
		if user == nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		posts, err := s.store.FindPostsByAuthor(r.Context(), user.ID)
		if err != nil {
			respondInternal(w, r, "Failed to list posts", err)
			return
		}
		respondJSON(w, http.StatusOK, toPostSummaries(posts))
		return
	}

	post, _, err := s.store.FindVisiblePostBySlug(r.Context(), slug, viewerFor(r))
	s.respondVisiblePost(w, r, post, err)
}

func (s *Server) GetPostByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "postID"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid post id")
		return
	}
	post, _, err := s.store.FindVisiblePostByID(r.Context(), id, viewerFor(r))
	s.respondVisiblePost(w, r, post, err)
}

func (s *Server) respondVisiblePost(w http.ResponseWriter, r *http.Request, post *database.Post, err error) {
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, postResponse{Post: toPostView(post)})
	case errors.Is(err, database.ErrInvalidKey):
		respondJSON(w, http.StatusForbidden, invalidKeyResponse{Error: "Invalid key", Post: toPostView(post)})
	default:
		respondStoreError(w, r, err, "load")
	}
}

func (s *Server) CreatePost(w http.ResponseWriter, r *http.Request) {
	user := getSignedInUserOrNil(r)

	var req PostRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		respondDecodeError(w, err, "Missing required fields")
		return
	}

	in, err := s.offloadImages(r, req.toInput(user.ID))
	if err != nil {
		respondStoreError(w, r, err, "create")
		return
	}

	post, err := s.store.CreatePost(r.Context(), in)
	if err != nil {
		respondStoreError(w, r, err, "create")
		return
	}
	respondJSON(w, http.StatusCreated, postResponse{Post: toPostView(post)})
}

func (s *Server) EditPost(w http.ResponseWriter, r *http.Request) {
	user := getSignedInUserOrNil(r)
	id, ok := parseID(chi.URLParam(r, "postID"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	var req PostRequest
	if err := s.decodeRequest(w, r, &req); err != nil {
		respondDecodeError(w, err, "Missing required fields")
		return
	}

	// Check ownership before anything is uploaded on the post's behalf.
	existing, err := s.store.FindPostByID(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err, "edit")
		return
	}
	if !existing.IsOwnedBy(user.ID) {
		respondStoreError(w, r, database.ErrForbidden, "edit")
		return
	}

	in, err := s.offloadImages(r, req.toInput(user.ID))
	if err != nil {
		respondStoreError(w, r, err, "edit")
		return
	}

	post, err := s.store.UpdatePost(r.Context(), id, user.ID, in)
	if err != nil {
		respondStoreError(w, r, err, "edit")
		return
	}
	respondJSON(w, http.StatusOK, postResponse{Post: toPostView(post)})
}

func (s *Server) DeletePost(w http.ResponseWriter, r *http.Request) {
	user := getSignedInUserOrNil(r)
	id, ok := parseID(chi.URLParam(r, "postID"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid post id")
		return
	}

	if err := s.store.DeletePost(r.Context(), id, user.ID); err != nil {
		respondStoreError(w, r, err, "delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// offloadImages moves embedded images out of the content into storage. The
// first uploaded image becomes the meta image unless one was given.
func (s *Server) offloadImages(r *http.Request, in database.PostInput) (database.PostInput, error) {
	if s.offloader == nil || in.Format == database.FormatMarkdown {
		return in, nil
	}
	res, err := s.offloader.Rewrite(r.Context(), in.Content)
	if err != nil {
		return in, err
	}
	in.Content = res.Content
	if in.Image == "" && len(res.Uploaded) > 0 {
		in.Image = res.Uploaded[0]
	}
	return in, nil
}
