package handler

import (
	"errors"
	"net/http"

	"github.com/campusxchange/swapkr/internal/application/listing"
	"github.com/campusxchange/swapkr/internal/domain"
	"github.com/campusxchange/swapkr/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

const maxImageUpload = 5 << 20

// ListingHandler handles item endpoints.
type ListingHandler struct {
	svc listing.Service
}

func NewListingHandler(svc listing.Service) *ListingHandler { return &ListingHandler{svc: svc} }

func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListApproved(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

func (h *ListingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListMine(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Get(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.svc.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Item deleted"})
}

// UploadImage accepts a multipart form with the picture in the "image" field.
func (h *ListingHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload)
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image field")
		return
	}
	defer file.Close()

	l, err := h.svc.AttachImage(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"), listing.ImageInput{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

type imageURLResponse struct {
	URL string `json:"url"`
}

func (h *ListingHandler) ImageURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.ImageURL(r.Context(), middleware.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imageURLResponse{URL: url})
}
