// internal/catalog/handler.go
package catalog

import (
	"net/http"

	"gig-marketplace/internal/common/auth"
	"gig-marketplace/internal/common/config"
	httpx "gig-marketplace/internal/common/http"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/validation"
	"gig-marketplace/internal/search"

	"github.com/gorilla/mux"
)

type Handler struct {
	svc    *Service
	paging config.SearchConfig
	logger logger.Logger
}

func NewHandler(svc *Service, paging config.SearchConfig, log logger.Logger) *Handler {
	if paging.DefaultPageSize <= 0 {
		paging.DefaultPageSize = defaultPageSize
	}
	if paging.MaxPageSize <= 0 || paging.MaxPageSize > search.MaxPageSize {
		paging.MaxPageSize = search.MaxPageSize
	}
	return &Handler{svc: svc, paging: paging, logger: log}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/services", h.create).Methods(http.MethodPost)
	r.HandleFunc("/services", h.list).Methods(http.MethodGet)
	r.HandleFunc("/services/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/services/{id}", h.update).Methods(http.MethodPatch)
	r.HandleFunc("/services/{id}", h.deactivate).Methods(http.MethodDelete)
	r.HandleFunc("/services/{id}/reviews", h.addReview).Methods(http.MethodPost)
	r.HandleFunc("/services/{id}/reviews", h.listReviews).Methods(http.MethodGet)
}

func caller(r *http.Request) *auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := validation.Decode(r.Body, createSchema, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	svc, err := h.svc.Create(r.Context(), caller(r), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, svc)
}

func (h *Handler) filter(r *http.Request) (search.ServiceFilter, error) {
	q := r.URL.Query()
	f := search.ServiceFilter{
		Keyword:  q.Get("q"),
		Category: q.Get("category"),
		City:     q.Get("city"),
		State:    q.Get("state"),
		Provider: q.Get("provider"),
		Sort:     q.Get("sort"),
	}
	var err error
	if f.MinPrice, err = httpx.QueryFloat(r, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = httpx.QueryFloat(r, "maxPrice"); err != nil {
		return f, err
	}
	if f.MinRating, err = httpx.QueryFloat(r, "minRating"); err != nil {
		return f, err
	}
	f.Page, f.PageSize, err = httpx.Pagination(r, h.paging.DefaultPageSize, h.paging.MaxPageSize)
	return f, err
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	page, err := h.svc.List(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	svc, err := h.svc.Get(r.Context(), caller(r), httpx.Var(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, svc)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := validation.Decode(r.Body, updateSchema, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	svc, err := h.svc.Update(r.Context(), caller(r), httpx.Var(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, svc)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id := httpx.Var(r, "id")
	if err := h.svc.Deactivate(r.Context(), caller(r), id); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"id": id, "message": "Service deactivated"})
}

func (h *Handler) addReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := validation.Decode(r.Body, reviewSchema, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.AddReview(r.Context(), caller(r), httpx.Var(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.ListReviews(r.Context(), caller(r), httpx.Var(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews})
}
