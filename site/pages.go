package site

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"inkwell/database"
	templates "inkwell/templates_fancy"
)

func (s *Server) PublicHome(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	search := query.Get("q")

	page, err := s.store.ListPublishedPosts(r.Context(), database.PostQuery{
		Page:   parsePositiveInt(query.Get("page"), 1),
		Search: search,
		Tag:    query.Get("tag"),
	})
	if err != nil {
		s.renderInternalError(w, r, err)
		return
	}

	renderPage(w, http.StatusOK, templates.HomePage(templates.HomePageProps{
		Layout:     layoutProps(r, ""),
		Search:     search,
		Posts:      toPostCards(page.Data),
		Pagination: paginationProps("/", query, page.Pagination),
	}))
}

func (s *Server) PublicViewPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, state, err := s.store.FindVisiblePostBySlug(r.Context(), slug, viewerFor(r))
	status := http.StatusOK
	notice := ""
	switch {
	case err == nil:
		if state == database.AccessDraftNoKey {
			notice = "This post is a draft."
		}
	case errors.Is(err, database.ErrInvalidKey):
		status = http.StatusForbidden
		notice = "The key you supplied does not unlock this post."
	case errors.Is(err, database.ErrNotFound):
		renderPage(w, http.StatusNotFound, templates.NotFoundPage(layoutProps(r, "Not found"), "No post lives at this address."))
		return
	default:
		s.renderInternalError(w, r, err)
		return
	}

	props := layoutProps(r, post.Title)
	props.Description = post.Meta.Data().Description
	renderPage(w, status, templates.PostPage(templates.PostPageProps{
		Layout: props,
		Post:   toPostCard(*post),
		Body:   renderPostBody(post),
		Notice: notice,
	}))
}

// PublicViewUser lists an author's published posts. The author's drafts are
// included when they are the one looking.
func (s *Server) PublicViewUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(chi.URLParam(r, "userID"))
	if !ok {
		renderPage(w, http.StatusNotFound, templates.NotFoundPage(layoutProps(r, "Not found"), "No such author."))
		return
	}

	author, err := s.store.FindUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			renderPage(w, http.StatusNotFound, templates.NotFoundPage(layoutProps(r, "Not found"), "No such author."))
			return
		}
		s.renderInternalError(w, r, err)
		return
	}

	query := r.URL.Query()
	props := templates.AuthorPageProps{
		Layout:     layoutProps(r, author.Name),
		AuthorName: author.Name,
	}

	if viewer := getSignedInUserOrNil(r); viewer != nil && viewer.ID == author.ID {
		posts, err := s.store.FindPostsByAuthor(r.Context(), author.ID)
		if err != nil {
			s.renderInternalError(w, r, err)
			return
		}
		props.Posts = toPostCards(posts)
	} else {
		page, err := s.store.ListPublishedPosts(r.Context(), database.PostQuery{
			Page:     parsePositiveInt(query.Get("page"), 1),
			AuthorID: author.ID,
		})
		if err != nil {
			s.renderInternalError(w, r, err)
			return
		}
		props.Posts = toPostCards(page.Data)
		props.Pagination = paginationProps(r.URL.Path, query, page.Pagination)
	}

	renderPage(w, http.StatusOK, templates.AuthorPage(props))
}

func (s *Server) renderInternalError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	http.Error(w, "Something went wrong", http.StatusInternalServerError)
}

func paginationProps(basePath string, query url.Values, p database.Pagination) templates.PaginationProps {
	return templates.PaginationProps{
		BasePath:    basePath,
		Query:       query,
		CurrentPage: p.CurrentPage,
		TotalPages:  p.TotalPages,
		PrevPage:    p.PrevPage,
		NextPage:    p.NextPage,
	}
}
