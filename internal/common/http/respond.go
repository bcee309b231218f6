// Package http holds the JSON request and response helpers shared by every API handler.
package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"

	"github.com/gorilla/mux"
)

// WriteJSON writes data with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes err as the JSON error envelope. Server-side failures are logged with their cause.
func WriteError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	stdErr := apperrors.WriteHTTP(w, err)
	if apperrors.HTTPStatus(stdErr.Code) < http.StatusInternalServerError {
		return
	}
	logger.FromContext(r.Context(), log).Error("request failed", map[string]interface{}{
		"method": r.Method,
		"path":   r.URL.Path,
		"code":   stdErr.Code,
		"error":  err,
	})
}

// Var returns the named route variable.
func Var(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// QueryInt parses an optional integer query parameter.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInvalidArgumentError("Invalid query parameter", name+" must be an integer")
	}
	return n, nil
}

// QueryFloat parses an optional float query parameter; a missing value yields nil.
func QueryFloat(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.NewInvalidArgumentError("Invalid query parameter", name+" must be a number")
	}
	return &f, nil
}

// QueryList splits a comma separated query parameter, dropping blanks.
func QueryList(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Pagination reads page (>= 1) and pageSize (1..maxSize) with defaults.
func Pagination(r *http.Request, defSize, maxSize int) (page, pageSize int, err error) {
	page, err = QueryInt(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err = QueryInt(r, "pageSize", defSize)
	if err != nil {
		return 0, 0, err
	}
	if page < 1 {
		return 0, 0, apperrors.NewInvalidArgumentError("Invalid query parameter", "page must be >= 1")
	}
	if pageSize < 1 || pageSize > maxSize {
		return 0, 0, apperrors.NewInvalidArgumentError("Invalid query parameter",
			"pageSize must be between 1 and "+strconv.Itoa(maxSize))
	}
	return page, pageSize, nil
}
