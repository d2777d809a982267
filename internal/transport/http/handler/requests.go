package handler

import (
	"net/http"
	"strconv"

	requestapp "github.com/campusxchange/swapkr/internal/application/request"
	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/campusxchange/swapkr/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// RequestHandler handles "looking for" request endpoints.
type RequestHandler struct {
	svc requestapp.Service
}

func NewRequestHandler(svc requestapp.Service) *RequestHandler { return &RequestHandler{svc: svc} }

// List returns approved requests; ?urgent=true keeps only urgent ones.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	urgent, _ := strconv.ParseBool(r.URL.Query().Get("urgent"))
	reqs, err := h.svc.ListApproved(r.Context(), urgent)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(reqs))
}

func (h *RequestHandler) Mine(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.ListMine(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(reqs))
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Get(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body domain.CreateRequestRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := h.svc.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), body)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *RequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Request deleted"})
}
