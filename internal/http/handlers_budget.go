package http

import (
	"net/http"

	"kharcha/internal/core"
	"kharcha/internal/log"
)

// handleGetBudget returns the family budget with this month's spending.
func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Budget.Get(r.Context())
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSaveBudget replaces the family budget.
func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var b core.FamilyBudget
	if err := decodeJSON(w, r, &b); err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	view, err := s.svc.Budget.Save(r.Context(), b)
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
