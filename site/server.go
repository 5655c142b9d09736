package site

import (
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"inkwell/auth"
	"inkwell/config"
	"inkwell/database"
	"inkwell/offload"
)

// Server holds the per-process dependencies handed to every request. There
// is no other shared state.
type Server struct {
	store     *database.Store
	auth      *auth.Service
	offloader *offload.Offloader
	cfg       config.Config
	validate  *validator.Validate
}

func NewServer(store *database.Store, authSvc *auth.Service, offloader *offload.Offloader, cfg config.Config) *Server {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &Server{
		store:     store,
		auth:      authSvc,
		offloader: offloader,
		cfg:       cfg,
		validate:  validate,
	}
}

// Handler returns the routes of the API and the public pages.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.TryPutUserInContextMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		})
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusNotFound, "Not found")
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(httprate.LimitByIP(s.cfg.LoginRateLimit, time.Minute)).HandleFunc("/login", s.Login)
			r.Get("/check", s.CheckAuth)
			r.Post("/logout", s.Logout)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", s.ListPosts)
			r.Get("/id/{postID}", s.GetPostByID)
			r.Get("/{slug}", s.GetPostBySlug)

			r.Group(func(r chi.Router) {
				r.Use(s.AuthProtectedMiddleware)
				r.Post("/create", s.CreatePost)
				r.Put("/edit/{postID}", s.EditPost)
				r.Delete("/delete/{postID}", s.DeletePost)
			})
		})

		r.Get("/tags", s.ListTags)
		r.Get("/categories", s.ListCategories)
	})

	r.Get("/", s.PublicHome)
	r.Get("/posts/{slug}", s.PublicViewPost)
	r.Get("/u/{userID}", s.PublicViewUser)

	if !s.cfg.UsesObjectStorage() {
		fileServer := http.FileServer(filesOnlyFS{http.Dir(s.cfg.UploadDir)})
		r.Handle("/uploads/*", http.StripPrefix("/uploads", fileServer))
	}

	return r
}

// filesOnlyFS hides directories so uploaded objects cannot be listed.
type filesOnlyFS struct {
	fs http.FileSystem
}

func (f filesOnlyFS) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
