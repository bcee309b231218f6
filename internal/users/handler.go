// internal/users/handler.go
package users

import (
	"net/http"

	"gig-marketplace/internal/common/auth"
	httpx "gig-marketplace/internal/common/http"
	"gig-marketplace/internal/common/logger"

	"github.com/gorilla/mux"
)

type Handler struct {
	svc        *Service
	cookieName string
	logger     logger.Logger
}

func NewHandler(svc *Service, cookieName string, log logger.Logger) *Handler {
	return &Handler{svc: svc, cookieName: cookieName, logger: log}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/users/me", h.me).Methods(http.MethodGet)
	r.HandleFunc("/sessions/current", h.signOut).Methods(http.MethodDelete)
	r.HandleFunc("/sessions", h.signOutEverywhere).Methods(http.MethodDelete)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	u, err := h.svc.Me(r.Context(), caller)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	if err := h.svc.SignOut(r.Context(), caller, auth.TokenFromRequest(r, h.cookieName)); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	h.clearCookie(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

func (h *Handler) signOutEverywhere(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.FromContext(r.Context())
	n, err := h.svc.SignOutEverywhere(r.Context(), caller)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	h.clearCookie(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"message": "Signed out everywhere", "sessions": n})
}
