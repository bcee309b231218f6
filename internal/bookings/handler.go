// internal/bookings/handler.go
package bookings

import (
	"context"
	"net/http"

	"gig-marketplace/internal/common/auth"
	httpx "gig-marketplace/internal/common/http"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/validation"
	"gig-marketplace/internal/models"

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
	r.HandleFunc("/bookings", h.create).Methods(http.MethodPost)
	r.HandleFunc("/bookings/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/bookings/{id}/cancel", h.transition(h.svc.Cancel)).Methods(http.MethodPost)
	r.HandleFunc("/bookings/{id}/confirm", h.transition(h.svc.Confirm)).Methods(http.MethodPost)
	r.HandleFunc("/bookings/{id}/complete", h.transition(h.svc.Complete)).Methods(http.MethodPost)
	r.HandleFunc("/users/bookings", h.listForUser).Methods(http.MethodGet)
	r.HandleFunc("/providers/bookings", h.listForProvider).Methods(http.MethodGet)
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
	b, err := h.svc.Create(r.Context(), caller(r), req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), caller(r), httpx.Var(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

type transitionFunc func(ctx context.Context, caller *auth.Identity, id string) (*models.Booking, error)

func (h *Handler) transition(apply transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := apply(r.Context(), caller(r), httpx.Var(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, b)
	}
}

func (h *Handler) listForUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListForUser(r.Context(), caller(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"bookings": list})
}

func (h *Handler) listForProvider(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListForProvider(r.Context(), caller(r))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"bookings": list})
}
