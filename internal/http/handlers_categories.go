package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kharcha/internal/log"
)

// handleListCategories splits the categories of one type and scope into
// built-in and user-defined lists.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	typ, scope := parseCategoryFilter(r.URL.Query())
	listing, err := s.svc.Categories.List(r.Context(), typ, scope)
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := parseCategory(NewRequestBodyParser(w, r))
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	created, err := s.svc.Categories.Create(r.Context(), c)
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/categories/"+created.ID).
		Body(created).
		Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	c, err := parseCategory(NewRequestBodyParser(w, r))
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	updated, err := s.svc.Categories.Update(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
