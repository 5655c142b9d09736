package site

import "net/http"

func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context())
	if err != nil {
		respondInternal(w, r, "Failed to list tags", err)
		return
	}
	respondJSON(w, http.StatusOK, tags)
}

func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		respondInternal(w, r, "Failed to list categories", err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}
