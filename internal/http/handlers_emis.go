package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kharcha/internal/core"
	"kharcha/internal/log"
)

func (s *Server) handleListEMIs(w http.ResponseWriter, r *http.Request) {
	emis, err := s.svc.EMIs.List(r.Context())
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	if emis == nil {
		emis = []core.EMI{}
	}
	writeJSON(w, http.StatusOK, emis)
}

// handleDueEMIs lists the EMIs with an installment due today or earlier.
func (s *Server) handleDueEMIs(w http.ResponseWriter, r *http.Request) {
	emis, err := s.svc.EMIs.Due(r.Context())
	if err != nil {
		writeError(w, r, err, log.OpList)
		return
	}
	if emis == nil {
		emis = []core.EMI{}
	}
	writeJSON(w, http.StatusOK, emis)
}

func (s *Server) handleGetEMI(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.EMIs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleQuoteEMI previews the monthly payment for the submitted terms.
func (s *Server) handleQuoteEMI(w http.ResponseWriter, r *http.Request) {
	form, err := parseEMIForm(NewRequestBodyParser(w, r))
	if err != nil {
		writeError(w, r, err, log.OpQuote)
		return
	}
	quote, err := s.svc.EMIs.Quote(form)
	if err != nil {
		writeError(w, r, err, log.OpQuote)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleCreateEMI(w http.ResponseWriter, r *http.Request) {
	form, err := parseEMIForm(NewRequestBodyParser(w, r))
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	created, err := s.svc.EMIs.Create(r.Context(), form)
	if err != nil {
		writeError(w, r, err, log.OpCreate)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/emis/"+created.ID).
		Body(created).
		Write(w)
}

func (s *Server) handleReviseEMI(w http.ResponseWriter, r *http.Request) {
	form, err := parseEMIForm(NewRequestBodyParser(w, r))
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	revised, err := s.svc.EMIs.Revise(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		writeError(w, r, err, log.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, revised)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err, log.OpPayment)
		return
	}
	updated, err := s.svc.EMIs.RecordPayment(r.Context(), chi.URLParam(r, "id"), p.Get("amount"))
	if err != nil {
		writeError(w, r, err, log.OpPayment)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleEMISchedule(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.EMIs.Schedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
