package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kharcha/internal/log"
)

// handleListTransactions returns the filtered, day-grouped transactions view.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	criteria := ParseCriteria(r.URL.Query())
	view, err := s.svc.Ledger.View(r.Context(), criteria)
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleTransactionCategories lists the options of the category filter.
func (s *Server) handleTransactionCategories(w http.ResponseWriter, r *http.Request) {
	options, err := s.svc.Ledger.CategoryOptions(r.Context())
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := parseTransaction(NewRequestBodyParser(w, r), s.loc)
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	created, err := s.svc.Ledger.Create(r.Context(), t)
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+created.ID).
		Body(created).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := parseTransaction(NewRequestBodyParser(w, r), s.loc)
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	updated, err := s.svc.Ledger.Update(r.Context(), chi.URLParam(r, "id"), t)
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, log.OpDelete)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
