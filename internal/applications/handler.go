// internal/applications/handler.go
package applications

import (
	"net/http"

	"gig-marketplace/internal/common/auth"
	httpx "gig-marketplace/internal/common/http"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/validation"

	"github.com/gorilla/mux"
)

type Handler struct {
	svc    *Service
	logger logger.Logger
}

func NewHandler(svc *Service, log logger.Logger) *Handler {
	return &Handler{svc: svc, logger: log}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/jobs/{id}/applications", h.submit).Methods(http.MethodPost)
	r.HandleFunc("/jobs/{id}/applications", h.listForJob).Methods(http.MethodGet)
	r.HandleFunc("/applications/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/applications/{id}", h.updateStatus).Methods(http.MethodPatch)
	r.HandleFunc("/applications/{id}", h.withdraw).Methods(http.MethodDelete)
	r.HandleFunc("/users/applications", h.listForUser).Methods(http.MethodGet)
}

func caller(r *http.Request) *auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := validation.Decode(r.Body, submitSchema, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	app, err := h.svc.Submit(r.Context(), caller(r), httpx.Var(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) listForJob(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.ListForJob(r.Context(), caller(r), httpx.Var(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"applications": apps})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	app, err := h.svc.Get(r.Context(), caller(r), httpx.Var(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := validation.Decode(r.Body, updateStatusSchema, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	app, err := h.svc.UpdateStatus(r.Context(), caller(r), httpx.Var(r, "id"), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	id := httpx.Var(r, "id")
	if err := h.svc.Withdraw(r.Context(), caller(r), id); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"id": id, "message": "Application withdrawn"})
}

func (h *Handler) listForUser(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.ListForUser(r.Context(), caller(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"applications": apps})
}
