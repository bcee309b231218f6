// internal/jobs/handler.go
package jobs

import (
	"net/http"

	"gig-marketplace/internal/common/auth"
	"gig-marketplace/internal/common/config"
	httpx "gig-marketplace/internal/common/http"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/validation"
	"gig-marketplace/internal/models"
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
	r.HandleFunc("/jobs", h.create).Methods(http.MethodPost)
	r.HandleFunc("/jobs", h.list).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id}", h.update).Methods(http.MethodPatch)
	r.HandleFunc("/jobs/{id}/cancel", h.cancel).Methods(http.MethodPost)
	r.HandleFunc("/jobs/{id}/complete", h.complete).Methods(http.MethodPost)
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
	job, err := h.svc.Create(r.Context(), caller(r), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, job)
}

func (h *Handler) filter(r *http.Request) (search.JobFilter, error) {
	q := r.URL.Query()
	f := search.JobFilter{
		Keyword:  q.Get("q"),
		Category: q.Get("category"),
		City:     q.Get("city"),
		State:    q.Get("state"),
		Skills:   httpx.QueryList(r, "skills"),
		Status:   models.JobStatus(q.Get("status")),
		PostedBy: q.Get("postedBy"),
		Sort:     q.Get("sort"),
	}
	var err error
	if f.MinBudget, err = httpx.QueryFloat(r, "minBudget"); err != nil {
		return f, err
	}
	if f.MaxBudget, err = httpx.QueryFloat(r, "maxBudget"); err != nil {
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
	job, err := h.svc.Get(r.Context(), httpx.Var(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, job)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := validation.Decode(r.Body, updateSchema, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	job, err := h.svc.Update(r.Context(), caller(r), httpx.Var(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, job)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Cancel(r.Context(), caller(r), httpx.Var(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, job)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Complete(r.Context(), caller(r), httpx.Var(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, job)
}
