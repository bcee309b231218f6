// internal/categories/handler.go
package categories

import (
	"net/http"

	"gig-marketplace/internal/common/auth"
	httpx "gig-marketplace/internal/common/http"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/validation"

	"github.com/gorilla/mux"
)

var createSchema = validation.MustCompile("category", `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 100},
		"slug": {"type": "string", "pattern": "^[a-z0-9]+(-[a-z0-9]+)*$", "maxLength": 100},
		"description": {"type": "string", "maxLength": 1000},
		"kind": {"type": "string", "enum": ["job", "service", "both"]}
	},
	"additionalProperties": false
}`)

type Handler struct {
	svc    *Service
	logger logger.Logger
}

func NewHandler(svc *Service, log logger.Logger) *Handler {
	return &Handler{svc: svc, logger: log}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/categories", h.list).Methods(http.MethodGet)
	r.HandleFunc("/categories", h.create).Methods(http.MethodPost)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), r.URL.Query().Get("kind"))
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": list})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := validation.Decode(r.Body, createSchema, &req); err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	caller, _ := auth.FromContext(r.Context())
	c, err := h.svc.Create(r.Context(), caller, req)
	if err != nil {
		httpx.WriteError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}
