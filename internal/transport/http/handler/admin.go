package handler

import (
	"net/http"
	"strconv"

	"github.com/campusxchange/swapkr/internal/application/access"
	"github.com/campusxchange/swapkr/internal/application/moderation"
	"github.com/campusxchange/swapkr/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// AdminHandler handles the moderation endpoints.
type AdminHandler struct {
	svc    moderation.Service
	policy *access.Policy
}

func NewAdminHandler(svc moderation.Service, policy *access.Policy) *AdminHandler {
	return &AdminHandler{svc: svc, policy: policy}
}

type adminCheckResponse struct {
	IsAdmin bool `json:"isAdmin"`
}

// Check tells the frontend whether to show admin controls. It is open to
// guests, who simply get false.
func (h *AdminHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, adminCheckResponse{
		IsAdmin: h.policy.IsAdminPrincipal(middleware.PrincipalFromContext(r.Context())),
	})
}

func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.ListPending(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) ApproveItem(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.ApproveListing(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *AdminHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.ApproveRequest(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *AdminHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteListing(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Item deleted"})
}

func (h *AdminHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRequest(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Request deleted"})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := parsePagination(r)
	users, err := h.svc.ListUsers(r.Context(), middleware.PrincipalFromContext(r.Context()), page, perPage)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteUser(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "User deleted"})
}

func parsePagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	return page, perPage
}
